package games

import "github.com/MJE43/casino-engine/internal/engine"

// Suit of a playing card.
type Suit string

const (
	Spades   Suit = "spades"
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
)

// Symbol returns the suit glyph used by renderers.
func (s Suit) Symbol() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// Card represents a playing card. Value is the blackjack point value with
// aces counted as 11 before soft adjustment.
type Card struct {
	Suit  Suit   `json:"suit"`
	Rank  string `json:"rank"`
	Value int    `json:"value"`
}

// String returns a human-readable card representation like "♠A".
func (c Card) String() string {
	return c.Suit.Symbol() + c.Rank
}

var cardSuits = []Suit{Spades, Hearts, Diamonds, Clubs}

var cardRanks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// The canonical 52-card deck, suit-major: ♠A, ♠2, ... ♣K.
var cardDeck [52]Card

func init() {
	i := 0
	for _, suit := range cardSuits {
		for _, rank := range cardRanks {
			cardDeck[i] = Card{Suit: suit, Rank: rank, Value: blackjackCardValue(rank)}
			i++
		}
	}
}

// CanonicalDeck returns a fresh unshuffled copy of the 52-card set.
func CanonicalDeck() Deck {
	d := make(Deck, len(cardDeck))
	copy(d, cardDeck[:])
	return d
}

// blackjackCardValue returns the blackjack point value of a card.
// 2-10: face value, J/Q/K: 10, A: 11 (soft)
func blackjackCardValue(rank string) int {
	switch rank {
	case "A":
		return 11
	case "J", "Q", "K":
		return 10
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	case "5":
		return 5
	case "6":
		return 6
	case "7":
		return 7
	case "8":
		return 8
	case "9":
		return 9
	case "10":
		return 10
	default:
		return 0
	}
}

// NewCard builds a card with its blackjack value filled in.
func NewCard(suit Suit, rank string) Card {
	return Card{Suit: suit, Rank: rank, Value: blackjackCardValue(rank)}
}

// Deck is an ordered stack of cards; the top of the deck is the end of the slice.
type Deck []Card

// ShuffledDeck returns a uniform random permutation of the 52-card set
// using Fisher-Yates with rejection-sampled indices.
func ShuffledDeck(src engine.Source) Deck {
	d := CanonicalDeck()
	for i := len(d) - 1; i > 0; i-- {
		j := engine.Intn(src, i+1)
		d[i], d[j] = d[j], d[i]
	}
	return d
}

// Draw removes and returns the top card. ok is false on an empty deck.
func (d *Deck) Draw() (card Card, ok bool) {
	n := len(*d)
	if n == 0 {
		return Card{}, false
	}
	card = (*d)[n-1]
	*d = (*d)[:n-1]
	return card, true
}

// HandValue calculates the best blackjack hand value: each ace counts 11
// until the total exceeds 21, then drops to 1 one at a time.
func HandValue(cards []Card) int {
	total := 0
	aces := 0
	for _, c := range cards {
		total += blackjackCardValue(c.Rank)
		if c.Rank == "A" {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsBlackjack reports a two-card 21.
func IsBlackjack(cards []Card) bool {
	return len(cards) == 2 && HandValue(cards) == 21
}

// IsSoft reports whether the hand's best value still counts an ace as 11.
func IsSoft(cards []Card) bool {
	hard := 0
	aces := 0
	for _, c := range cards {
		if c.Rank == "A" {
			aces++
			hard++
			continue
		}
		hard += blackjackCardValue(c.Rank)
	}
	return aces > 0 && hard+10 <= 21
}
