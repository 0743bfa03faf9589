// Package table implements the per-game round state machines. Every table
// validates legality with pure predicates, draws outcomes from an
// engine.Source and settles against a shared ledger.Account.
//
// Mutators never fail loudly: an illegal call or a rejected debit leaves
// the table untouched and reports false alongside the unchanged view.
package table

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Game names, as used in persisted records and round history.
const (
	GameSlots     = "slots"
	GameBlackjack = "blackjack"
	GameRoulette  = "roulette"
	GameCrash     = "crash"
)

// Games lists every playable game.
var Games = []string{GameSlots, GameBlackjack, GameRoulette, GameCrash}

// IsGame reports whether name is a known game.
func IsGame(name string) bool {
	for _, g := range Games {
		if g == name {
			return true
		}
	}
	return false
}

// Settlement describes one finished round.
type Settlement struct {
	Game    string
	RoundID string
	Bet     int
	Payout  int
	Outcome string
	// Difficulty and Multiplier are only set for crash rounds.
	Difficulty string
	Multiplier decimal.Decimal
}

// Won reports whether the round paid more than nothing.
func (s Settlement) Won() bool { return s.Payout > 0 }

// SettleFunc is notified after a round settles, outside the table lock.
type SettleFunc func(Settlement)

type notifier struct {
	onSettle SettleFunc
}

// OnSettle registers fn. It must be called before the table is shared.
func (n *notifier) OnSettle(fn SettleFunc) { n.onSettle = fn }

func (n *notifier) notify(s *Settlement) {
	if s != nil && n.onSettle != nil {
		n.onSettle(*s)
	}
}

func newRoundID() string { return uuid.NewString() }
