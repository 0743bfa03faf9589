package table

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/MJE43/casino-engine/internal/engine"
	"github.com/MJE43/casino-engine/internal/games"
	"github.com/MJE43/casino-engine/internal/ledger"
)

// CrashState is the lifecycle state of a crash round.
type CrashState string

const (
	CrashBetting  CrashState = "betting"
	CrashPlaying  CrashState = "playing"
	CrashFinished CrashState = "finished"
)

// CrashView is the renderable state of the crash game. The crash step is
// only disclosed once the round is finished.
type CrashView struct {
	RoundID        string     `json:"round_id,omitempty"`
	State          CrashState `json:"state"`
	Difficulty     string     `json:"difficulty"`
	Bet            int        `json:"bet"`
	MinBet         int        `json:"min_bet"`
	MaxSteps       int        `json:"max_steps"`
	CurrentStep    int        `json:"current_step"`
	Multiplier     float64    `json:"multiplier"`
	MultiplierText string     `json:"multiplier_text"`
	PotentialWin   int        `json:"potential_win"`
	Crashed        bool       `json:"crashed"`
	CashedOut      bool       `json:"cashed_out"`
	Winnings       int        `json:"winnings"`
	CrashStep      int        `json:"crash_step,omitempty"`
	CanStart       bool       `json:"can_start"`
	CanStep        bool       `json:"can_step"`
	CanCashOut     bool       `json:"can_cash_out"`
}

// Crash is the step game: each step grows the multiplier until the
// hidden crash step is reached or the player cashes out.
type Crash struct {
	notifier

	mu           sync.Mutex
	acct         ledger.Account
	src          engine.Source
	minBet       int
	difficulties []games.Difficulty

	state      CrashState
	difficulty games.Difficulty
	bet        int
	crashStep  int
	step       int
	multiplier decimal.Decimal
	crashed    bool
	cashedOut  bool
	winnings   int
	roundID    string
}

// NewCrash creates a crash table with the given difficulty tiers.
func NewCrash(acct ledger.Account, src engine.Source, minBet int, difficulties []games.Difficulty) *Crash {
	c := &Crash{
		acct:         acct,
		src:          src,
		minBet:       minBet,
		difficulties: difficulties,
		state:        CrashBetting,
		multiplier:   decimal.NewFromInt(1),
	}
	if len(difficulties) > 0 {
		c.difficulty = difficulties[0]
	}
	return c
}

// Difficulties returns the configured tiers.
func (c *Crash) Difficulties() []games.Difficulty {
	return append([]games.Difficulty(nil), c.difficulties...)
}

// View returns the current state.
func (c *Crash) View() CrashView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// CanStart reports whether StartRound(difficulty, bet) would be accepted.
func (c *Crash) CanStart(difficulty string, bet int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := games.FindDifficulty(c.difficulties, difficulty)
	return ok && c.canStartLocked(bet)
}

// CanStep reports whether Step would advance the round.
func (c *Crash) CanStep() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == CrashPlaying
}

// CanCashOut reports whether CashOut would pay.
func (c *Crash) CanCashOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == CrashPlaying && !c.crashed
}

// StartRound samples the hidden crash step, debits bet and starts playing.
func (c *Crash) StartRound(difficulty string, bet int) (CrashView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := games.FindDifficulty(c.difficulties, difficulty)
	if !ok || !c.canStartLocked(bet) || !c.acct.TryDebit(bet) {
		return c.viewLocked(), false
	}
	engine.BeginRound(c.src)
	c.difficulty = d
	c.crashStep = games.SampleCrashStep(c.src, d)
	c.bet = bet
	c.step = 0
	c.multiplier = decimal.NewFromInt(1)
	c.crashed = false
	c.cashedOut = false
	c.winnings = 0
	c.roundID = newRoundID()
	c.state = CrashPlaying
	return c.viewLocked(), true
}

// Step advances one step. Reaching the crash step forfeits the bet.
func (c *Crash) Step() (CrashView, bool) {
	c.mu.Lock()
	if c.state != CrashPlaying {
		defer c.mu.Unlock()
		return c.viewLocked(), false
	}
	c.step++
	c.multiplier = c.difficulty.Multiplier(c.step)

	var s *Settlement
	if c.step >= c.crashStep {
		c.crashed = true
		c.state = CrashFinished
		c.acct.RecordLoss()
		s = c.settlementLocked("crashed")
	}
	v := c.viewLocked()
	c.mu.Unlock()
	c.notify(s)
	return v, true
}

// CashOut credits floor(bet * multiplier) and ends the round.
func (c *Crash) CashOut() (CrashView, bool) {
	c.mu.Lock()
	if c.state != CrashPlaying || c.crashed {
		defer c.mu.Unlock()
		return c.viewLocked(), false
	}
	c.winnings = games.Winnings(c.bet, c.multiplier)
	c.acct.Credit(c.winnings)
	c.acct.RecordWin(c.winnings)
	c.cashedOut = true
	c.state = CrashFinished

	s := c.settlementLocked("cashed_out")
	v := c.viewLocked()
	c.mu.Unlock()
	c.notify(s)
	return v, true
}

func (c *Crash) canStartLocked(bet int) bool {
	return c.state != CrashPlaying && bet >= c.minBet && bet <= c.acct.Balance()
}

func (c *Crash) settlementLocked(outcome string) *Settlement {
	return &Settlement{
		Game:       GameCrash,
		RoundID:    c.roundID,
		Bet:        c.bet,
		Payout:     c.winnings,
		Outcome:    outcome,
		Difficulty: c.difficulty.Name,
		Multiplier: c.multiplier,
	}
}

func (c *Crash) viewLocked() CrashView {
	v := CrashView{
		RoundID:        c.roundID,
		State:          c.state,
		Difficulty:     c.difficulty.Name,
		Bet:            c.bet,
		MinBet:         c.minBet,
		MaxSteps:       c.difficulty.MaxSteps,
		CurrentStep:    c.step,
		Multiplier:     c.multiplier.InexactFloat64(),
		MultiplierText: c.multiplier.StringFixed(2),
		Crashed:        c.crashed,
		CashedOut:      c.cashedOut,
		Winnings:       c.winnings,
		CanStart:       c.state != CrashPlaying && c.acct.Balance() >= c.minBet,
		CanStep:        c.state == CrashPlaying,
		CanCashOut:     c.state == CrashPlaying && !c.crashed,
	}
	if c.state == CrashPlaying {
		v.PotentialWin = games.Winnings(c.bet, c.multiplier)
	}
	if c.state == CrashFinished {
		v.CrashStep = c.crashStep
	}
	return v
}
