package session

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MJE43/casino-engine/internal/ledger"
	"github.com/MJE43/casino-engine/internal/table"
)

// MaxHighScores caps the crash high-score list.
const MaxHighScores = 5

// DefaultGame is selected for new or unreadable sessions.
const DefaultGame = table.GameSlots

// Record is the persisted session snapshot.
type Record struct {
	ledger.Snapshot
	CurrentGame string `json:"currentGame"`
	// Nonce is the next provably fair nonce; zero when not in fair mode.
	Nonce uint64 `json:"nonce,omitempty"`
}

// HighScore is one cashed-out crash round.
type HighScore struct {
	Difficulty string    `json:"difficulty"`
	Multiplier float64   `json:"multiplier"`
	Winnings   int       `json:"winnings"`
	Date       time.Time `json:"date"`
}

// DecodeRecord reads a persisted record. Fields that are missing or hold
// the wrong kind of value fall back to their defaults one by one, and
// unreadable input yields the default record.
func DecodeRecord(data []byte) Record {
	return decodeRecord(data, ledger.DefaultBalance)
}

func decodeRecord(data []byte, startingBalance int) Record {
	rec := Record{
		Snapshot:    ledger.Snapshot{Balance: startingBalance},
		CurrentGame: DefaultGame,
	}

	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return rec
	}

	intField := func(key string, dst *int) {
		n, ok := fields[key].(json.Number)
		if !ok {
			return
		}
		v, err := strconv.Atoi(n.String())
		if err != nil || v < 0 {
			return
		}
		*dst = v
	}
	intField("balance", &rec.Balance)
	intField("totalWins", &rec.TotalWins)
	intField("totalLosses", &rec.TotalLosses)
	intField("totalSpins", &rec.TotalSpins)
	intField("biggestWin", &rec.BiggestWin)

	if g, ok := fields["currentGame"].(string); ok && table.IsGame(g) {
		rec.CurrentGame = g
	}
	if n, ok := fields["nonce"].(json.Number); ok {
		if v, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			rec.Nonce = v
		}
	}
	return rec
}

// DecodeHighScores reads a persisted high-score list, dropping entries
// that cannot be read, and returns it sorted and capped.
func DecodeHighScores(data []byte) []HighScore {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	var out []HighScore
	for _, r := range raw {
		var hs HighScore
		if err := json.Unmarshal(r, &hs); err != nil {
			continue
		}
		if hs.Difficulty == "" || hs.Multiplier <= 0 || hs.Winnings < 0 {
			continue
		}
		out = append(out, hs)
	}
	return rankHighScores(out)
}

// addHighScore inserts a cash-out, keeping the best MaxHighScores by
// multiplier. The multiplier is kept to two decimal places.
func addHighScore(list []HighScore, difficulty string, multiplier decimal.Decimal, winnings int, at time.Time) []HighScore {
	list = append(list, HighScore{
		Difficulty: difficulty,
		Multiplier: multiplier.Round(2).InexactFloat64(),
		Winnings:   winnings,
		Date:       at,
	})
	return rankHighScores(list)
}

func rankHighScores(list []HighScore) []HighScore {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Multiplier > list[j].Multiplier })
	if len(list) > MaxHighScores {
		list = list[:MaxHighScores]
	}
	return list
}
