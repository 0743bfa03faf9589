package games

import "github.com/MJE43/casino-engine/internal/engine"

// ReelCount is the number of reels on the machine.
const ReelCount = 3

// SlotSymbol is one reel symbol with its draw weight and triple payout.
type SlotSymbol struct {
	ID         string `json:"id"`
	Glyph      string `json:"glyph"`
	Weight     int    `json:"weight"`
	Multiplier int    `json:"multiplier"`
}

// Reel weights sum to 100; cherry is the most common, seven the rarest.
var defaultSlotSymbols = []SlotSymbol{
	{ID: "cherry", Glyph: "🍒", Weight: 25, Multiplier: 5},
	{ID: "lemon", Glyph: "🍋", Weight: 20, Multiplier: 10},
	{ID: "orange", Glyph: "🍊", Weight: 15, Multiplier: 15},
	{ID: "star", Glyph: "⭐", Weight: 15, Multiplier: 25},
	{ID: "diamond", Glyph: "💎", Weight: 10, Multiplier: 50},
	{ID: "bell", Glyph: "🔔", Weight: 8, Multiplier: 75},
	{ID: "seven", Glyph: "7️⃣", Weight: 7, Multiplier: 100},
}

// Reels holds the symbol index shown on each reel.
type Reels [ReelCount]int

// SpinReels draws each reel independently from the weighted table.
func SpinReels(src engine.Source, table []SlotSymbol) Reels {
	total := 0
	for _, s := range table {
		total += s.Weight
	}

	var r Reels
	for i := range r {
		roll := engine.Intn(src, total)
		for idx, s := range table {
			if roll < s.Weight {
				r[i] = idx
				break
			}
			roll -= s.Weight
		}
	}
	return r
}

// SlotPayout returns bet * multiplier when all reels show the same
// symbol, and 0 otherwise.
func SlotPayout(r Reels, bet int, table []SlotSymbol) int {
	first := r[0]
	for _, idx := range r[1:] {
		if idx != first {
			return 0
		}
	}
	if first < 0 || first >= len(table) {
		return 0
	}
	return bet * table[first].Multiplier
}

// SymbolIndex finds a symbol by id, or -1.
func SymbolIndex(table []SlotSymbol, id string) int {
	for i, s := range table {
		if s.ID == id {
			return i
		}
	}
	return -1
}
