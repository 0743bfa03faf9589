// Package ledger holds the player's credit balance and cumulative
// statistics. A single Ledger is shared by every table in a session.
package ledger

import "sync"

// DefaultBalance is the balance a fresh or unreadable ledger starts with.
const DefaultBalance = 1000

// Account is the view of the ledger the game tables are allowed to use.
type Account interface {
	Balance() int
	TryDebit(amount int) bool
	Credit(amount int)
	RecordWin(amount int)
	RecordLoss()
	RecordSpin()
	Snapshot() Snapshot
	Restore(s Snapshot)
}

// Snapshot is the full serializable state of a Ledger.
type Snapshot struct {
	Balance     int `json:"balance"`
	TotalWins   int `json:"totalWins"`
	TotalLosses int `json:"totalLosses"`
	TotalSpins  int `json:"totalSpins"`
	BiggestWin  int `json:"biggestWin"`
}

// DefaultSnapshot is the state of a brand new ledger.
func DefaultSnapshot() Snapshot {
	return Snapshot{Balance: DefaultBalance}
}

// Ledger implements Account. It is safe for concurrent use.
type Ledger struct {
	mu        sync.Mutex
	state     Snapshot
	defaults  Snapshot
	observers []func(Snapshot)
}

var _ Account = (*Ledger)(nil)

// New creates a ledger holding startingBalance credits. A negative
// starting balance falls back to DefaultBalance.
func New(startingBalance int) *Ledger {
	if startingBalance < 0 {
		startingBalance = DefaultBalance
	}
	def := Snapshot{Balance: startingBalance}
	return &Ledger{state: def, defaults: def}
}

// Observe registers fn to be called with the new state after every
// mutation. Observers run outside the ledger lock.
func (l *Ledger) Observe(fn func(Snapshot)) {
	l.mu.Lock()
	l.observers = append(l.observers, fn)
	l.mu.Unlock()
}

// Balance returns the current balance.
func (l *Ledger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Balance
}

// TryDebit removes amount from the balance iff the balance covers it.
// Non-positive amounts are rejected.
func (l *Ledger) TryDebit(amount int) bool {
	l.mu.Lock()
	if amount <= 0 || l.state.Balance < amount {
		l.mu.Unlock()
		return false
	}
	l.state.Balance -= amount
	l.unlockAndNotify()
	return true
}

// Credit adds amount to the balance. Negative amounts are ignored.
func (l *Ledger) Credit(amount int) {
	l.mu.Lock()
	if amount < 0 {
		l.mu.Unlock()
		return
	}
	l.state.Balance += amount
	l.unlockAndNotify()
}

// RecordWin counts a win and tracks the biggest payout.
func (l *Ledger) RecordWin(amount int) {
	l.mu.Lock()
	l.state.TotalWins++
	if amount > l.state.BiggestWin {
		l.state.BiggestWin = amount
	}
	l.unlockAndNotify()
}

// RecordLoss counts a loss.
func (l *Ledger) RecordLoss() {
	l.mu.Lock()
	l.state.TotalLosses++
	l.unlockAndNotify()
}

// RecordSpin counts a spin.
func (l *Ledger) RecordSpin() {
	l.mu.Lock()
	l.state.TotalSpins++
	l.unlockAndNotify()
}

// Snapshot returns a copy of the current state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Restore replaces the state with s. Negative fields are invalid and
// fall back to their defaults.
func (l *Ledger) Restore(s Snapshot) {
	l.mu.Lock()
	l.state = sanitize(s, l.defaults)
	l.unlockAndNotify()
}

// Reset returns the ledger to its starting state.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.state = l.defaults
	l.unlockAndNotify()
}

// unlockAndNotify releases l.mu and then fans the new state out to the
// observers. Callers must hold l.mu.
func (l *Ledger) unlockAndNotify() {
	s := l.state
	obs := l.observers
	l.mu.Unlock()
	for _, fn := range obs {
		fn(s)
	}
}

func sanitize(s, def Snapshot) Snapshot {
	if s.Balance < 0 {
		s.Balance = def.Balance
	}
	for _, f := range []*int{&s.TotalWins, &s.TotalLosses, &s.TotalSpins, &s.BiggestWin} {
		if *f < 0 {
			*f = 0
		}
	}
	return s
}
