package table

import (
	"maps"
	"strconv"
	"sync"

	"github.com/MJE43/casino-engine/internal/engine"
	"github.com/MJE43/casino-engine/internal/games"
	"github.com/MJE43/casino-engine/internal/ledger"
)

// RouletteView is the renderable state of the roulette table. The drawn
// number stays hidden until the spin settles.
type RouletteView struct {
	RoundID     string              `json:"round_id,omitempty"`
	Stake       int                 `json:"stake"`
	Bets        map[string]int      `json:"bets"`
	TotalStaked int                 `json:"total_staked"`
	Spinning    bool                `json:"spinning"`
	LastResult  *games.WheelOutcome `json:"last_result,omitempty"`
	LastPayout  int                 `json:"last_payout"`
	CanBet      bool                `json:"can_bet"`
	CanSpin     bool                `json:"can_spin"`
	CanClear    bool                `json:"can_clear"`
}

// Roulette accumulates fixed-stake bets and resolves them on one spin.
type Roulette struct {
	notifier

	mu         sync.Mutex
	acct       ledger.Account
	src        engine.Source
	stake      int
	bets       map[string]int
	total      int
	spinning   bool
	pending    games.WheelOutcome
	roundID    string
	lastResult *games.WheelOutcome
	lastPayout int
}

// NewRoulette creates a table where every chip is worth stake credits.
func NewRoulette(acct ledger.Account, src engine.Source, stake int) *Roulette {
	return &Roulette{
		acct:  acct,
		src:   src,
		stake: stake,
		bets:  make(map[string]int),
	}
}

// View returns the current state.
func (r *Roulette) View() RouletteView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

// CanBet reports whether another chip can be placed.
func (r *Roulette) CanBet() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canBetLocked()
}

// CanSpin reports whether Spin would start the wheel.
func (r *Roulette) CanSpin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.spinning && r.total > 0
}

// PlaceBet debits one stake and adds it to the spot named by betType and
// value. Betting the same spot again adds to it.
func (r *Roulette) PlaceBet(betType games.BetType, value string) (RouletteView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	value, ok := games.NormalizeBet(betType, value)
	if !ok || !r.canBetLocked() || !r.acct.TryDebit(r.stake) {
		return r.viewLocked(), false
	}
	r.bets[games.BetKey(betType, value)] += r.stake
	r.total += r.stake
	return r.viewLocked(), true
}

// ClearBets refunds every chip on the table.
func (r *Roulette) ClearBets() (RouletteView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinning {
		return r.viewLocked(), false
	}
	if r.total > 0 {
		r.acct.Credit(r.total)
	}
	clear(r.bets)
	r.total = 0
	return r.viewLocked(), true
}

// Spin draws the winning number. Stakes were debited when placed, so the
// spin itself only counts towards the spin statistic.
func (r *Roulette) Spin() (RouletteView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinning || r.total == 0 {
		return r.viewLocked(), false
	}
	engine.BeginRound(r.src)
	r.pending = games.SpinWheel(r.src)
	r.roundID = newRoundID()
	r.spinning = true
	r.acct.RecordSpin()
	return r.viewLocked(), true
}

// Settle pays the bets against the drawn number and clears the layout.
func (r *Roulette) Settle() (RouletteView, bool) {
	r.mu.Lock()
	if !r.spinning {
		defer r.mu.Unlock()
		return r.viewLocked(), false
	}

	payout := games.CalculatePayout(r.bets, r.pending.Number)
	staked := r.total
	clear(r.bets)
	r.total = 0
	if payout > 0 {
		r.acct.Credit(payout)
		r.acct.RecordWin(payout)
	} else {
		r.acct.RecordLoss()
	}
	result := r.pending
	r.lastResult = &result
	r.lastPayout = payout
	r.spinning = false

	s := &Settlement{
		Game:    GameRoulette,
		RoundID: r.roundID,
		Bet:     staked,
		Payout:  payout,
		Outcome: "number-" + strconv.Itoa(result.Number),
	}
	v := r.viewLocked()
	r.mu.Unlock()
	r.notify(s)
	return v, true
}

func (r *Roulette) canBetLocked() bool {
	return !r.spinning && r.stake > 0 && r.acct.Balance() >= r.stake
}

func (r *Roulette) viewLocked() RouletteView {
	v := RouletteView{
		RoundID:     r.roundID,
		Stake:       r.stake,
		Bets:        maps.Clone(r.bets),
		TotalStaked: r.total,
		Spinning:    r.spinning,
		LastPayout:  r.lastPayout,
		CanBet:      r.canBetLocked(),
		CanSpin:     !r.spinning && r.total > 0,
		CanClear:    !r.spinning && r.total > 0,
	}
	if r.lastResult != nil {
		res := *r.lastResult
		v.LastResult = &res
	}
	return v
}
