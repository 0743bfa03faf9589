package table

import (
	"slices"
	"sync"

	"github.com/MJE43/casino-engine/internal/engine"
	"github.com/MJE43/casino-engine/internal/games"
	"github.com/MJE43/casino-engine/internal/ledger"
)

// SlotsView is the renderable state of the slot machine.
type SlotsView struct {
	RoundID  string             `json:"round_id,omitempty"`
	Bet      int                `json:"bet"`
	Reels    games.Reels        `json:"reels"`
	Symbols  []games.SlotSymbol `json:"symbols"`
	Spinning bool               `json:"spinning"`
	LastWin  int                `json:"last_win"`
	CanSpin  bool               `json:"can_spin"`
}

// Slots is a three reel machine with a fixed bet.
type Slots struct {
	notifier

	mu       sync.Mutex
	acct     ledger.Account
	src      engine.Source
	bet      int
	table    []games.SlotSymbol
	reels    games.Reels
	pending  games.Reels
	spinning bool
	lastWin  int
	roundID  string
}

// NewSlots creates a machine using the given symbol table.
func NewSlots(acct ledger.Account, src engine.Source, bet int, table []games.SlotSymbol) *Slots {
	return &Slots{
		acct:  acct,
		src:   src,
		bet:   bet,
		table: table,
	}
}

// View returns the current state.
func (m *Slots) View() SlotsView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// CanSpin reports whether Spin would be accepted.
func (m *Slots) CanSpin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canSpinLocked()
}

// Spin debits the bet and draws the reels. The result is shown on Settle.
func (m *Slots) Spin() (SlotsView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.canSpinLocked() || !m.acct.TryDebit(m.bet) {
		return m.viewLocked(), false
	}
	m.acct.RecordSpin()
	engine.BeginRound(m.src)
	m.pending = games.SpinReels(m.src, m.table)
	m.roundID = newRoundID()
	m.spinning = true
	m.lastWin = 0
	return m.viewLocked(), true
}

// Settle stops the reels and pays a matching triple.
func (m *Slots) Settle() (SlotsView, bool) {
	m.mu.Lock()
	if !m.spinning {
		defer m.mu.Unlock()
		return m.viewLocked(), false
	}
	m.reels = m.pending
	m.spinning = false
	m.lastWin = games.SlotPayout(m.reels, m.bet, m.table)
	if m.lastWin > 0 {
		m.acct.Credit(m.lastWin)
		m.acct.RecordWin(m.lastWin)
	} else {
		m.acct.RecordLoss()
	}

	outcome := "miss"
	if m.lastWin > 0 {
		outcome = "triple-" + m.table[m.reels[0]].ID
	}
	s := &Settlement{
		Game:    GameSlots,
		RoundID: m.roundID,
		Bet:     m.bet,
		Payout:  m.lastWin,
		Outcome: outcome,
	}
	v := m.viewLocked()
	m.mu.Unlock()
	m.notify(s)
	return v, true
}

func (m *Slots) canSpinLocked() bool {
	return !m.spinning && m.bet > 0 && m.acct.Balance() >= m.bet
}

func (m *Slots) viewLocked() SlotsView {
	return SlotsView{
		RoundID:  m.roundID,
		Bet:      m.bet,
		Reels:    m.reels,
		Symbols:  slices.Clone(m.table),
		Spinning: m.spinning,
		LastWin:  m.lastWin,
		CanSpin:  m.canSpinLocked(),
	}
}
