// Package session ties one player's ledger to the four game tables and
// keeps the persisted snapshot, crash high scores and round history in
// step with every accepted action.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MJE43/casino-engine/internal/engine"
	"github.com/MJE43/casino-engine/internal/games"
	"github.com/MJE43/casino-engine/internal/ledger"
	"github.com/MJE43/casino-engine/internal/logger"
	"github.com/MJE43/casino-engine/internal/store"
	"github.com/MJE43/casino-engine/internal/table"
)

// Store persists sessions. Load methods return store.ErrNotFound when
// nothing was saved yet.
type Store interface {
	LoadRecord(ctx context.Context, sessionID string) ([]byte, error)
	SaveRecord(ctx context.Context, sessionID string, data []byte) error
	LoadHighScores(ctx context.Context, sessionID string) ([]byte, error)
	SaveHighScores(ctx context.Context, sessionID string, data []byte) error
	AppendRound(ctx context.Context, r store.Round) error
	ListRounds(ctx context.Context, sessionID string, limit int) ([]store.Round, error)
	ExportCSV(ctx context.Context, w io.Writer, sessionID string) error
}

// Options configures a Session.
type Options struct {
	ID     string
	Rules  games.Rules
	Source engine.Source // defaults to crypto/rand
	Store  Store         // defaults to an in-memory store
	Now    func() time.Time
}

// View is everything a client needs to render the casino.
type View struct {
	SessionID   string              `json:"session_id"`
	Ledger      ledger.Snapshot     `json:"ledger"`
	CurrentGame string              `json:"current_game"`
	Blackjack   table.BlackjackView `json:"blackjack"`
	Roulette    table.RouletteView  `json:"roulette"`
	Slots       table.SlotsView     `json:"slots"`
	Crash       table.CrashView     `json:"crash"`
	HighScores  []HighScore         `json:"high_scores"`
	CanReset    bool                `json:"can_reset"`
	Fairness    *engine.Commitment  `json:"fairness,omitempty"`
}

// Session owns the ledger and tables of one player. Actions are
// serialized; each returns the post-action View and whether it changed
// anything.
type Session struct {
	id    string
	rules games.Rules
	src   engine.Source
	store Store
	now   func() time.Time

	ledger    *ledger.Ledger
	blackjack *table.Blackjack
	roulette  *table.Roulette
	slots     *table.Slots
	crash     *table.Crash

	mu          sync.Mutex
	currentGame string
	highScores  []HighScore
	pending     []table.Settlement
	dirty       atomic.Bool
	scoresDirty bool
}

// New builds a session with a fresh ledger. Call Load to restore saved
// state.
func New(opts Options) *Session {
	if opts.ID == "" {
		opts.ID = "default"
	}
	if opts.Source == nil {
		opts.Source = engine.NewCryptoSource()
	}
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	r := opts.Rules

	s := &Session{
		id:          opts.ID,
		rules:       r,
		src:         opts.Source,
		store:       opts.Store,
		now:         opts.Now,
		ledger:      ledger.New(r.StartingBalance),
		currentGame: DefaultGame,
	}
	s.blackjack = table.NewBlackjack(s.ledger, s.src, r.BlackjackBet)
	s.roulette = table.NewRoulette(s.ledger, s.src, r.RouletteStake)
	s.slots = table.NewSlots(s.ledger, s.src, r.SlotBet, r.SlotSymbols)
	s.crash = table.NewCrash(s.ledger, s.src, r.CrashMinBet, r.Difficulties)

	s.ledger.Observe(func(ledger.Snapshot) { s.dirty.Store(true) })
	for _, t := range []interface{ OnSettle(table.SettleFunc) }{s.blackjack, s.roulette, s.slots, s.crash} {
		t.OnSettle(s.queueSettlement)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Rules returns the rules the session was built with.
func (s *Session) Rules() games.Rules { return s.rules }

// Balance returns the current balance.
func (s *Session) Balance() int { return s.ledger.Balance() }

// Load restores the saved record and high scores. Missing or damaged
// data never fails: the affected parts start from their defaults.
func (s *Session) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := decodeRecord(nil, s.rules.StartingBalance)
	data, err := s.store.LoadRecord(ctx, s.id)
	switch {
	case err == nil:
		rec = decodeRecord(data, s.rules.StartingBalance)
	case errors.Is(err, store.ErrNotFound):
		logger.Info(ctx).Str("session", s.id).Msg("no saved session, starting fresh")
	default:
		logger.Warn(ctx).Err(err).Str("session", s.id).Msg("load session record failed, using defaults")
	}
	s.ledger.Restore(rec.Snapshot)
	s.currentGame = rec.CurrentGame
	if seeker, ok := s.src.(interface{ Seek(uint64) }); ok && rec.Nonce > 0 {
		seeker.Seek(rec.Nonce)
	}

	s.highScores = nil
	data, err = s.store.LoadHighScores(ctx, s.id)
	switch {
	case err == nil:
		s.highScores = DecodeHighScores(data)
	case !errors.Is(err, store.ErrNotFound):
		logger.Warn(ctx).Err(err).Str("session", s.id).Msg("load high scores failed, starting empty")
	}
	s.dirty.Store(false)
	s.scoresDirty = false

	logger.Info(ctx).
		Str("session", s.id).
		Int("balance", rec.Balance).
		Str("game", rec.CurrentGame).
		Int("high_scores", len(s.highScores)).
		Msg("session loaded")
}

// View returns the current state without changing anything.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// HighScores returns the crash leaderboard, best first.
func (s *Session) HighScores() []HighScore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HighScore(nil), s.highScores...)
}

// Difficulties returns the crash tiers.
func (s *Session) Difficulties() []games.Difficulty { return s.crash.Difficulties() }

// History lists settled rounds, newest first.
func (s *Session) History(ctx context.Context, limit int) ([]store.Round, error) {
	return s.store.ListRounds(ctx, s.id, limit)
}

// ExportHistory writes every settled round as CSV.
func (s *Session) ExportHistory(ctx context.Context, w io.Writer) error {
	return s.store.ExportCSV(ctx, w, s.id)
}

// SelectGame switches the game shown to the player.
func (s *Session) SelectGame(ctx context.Context, game string) (View, bool) {
	return s.act(ctx, "select_game", func() bool {
		if !table.IsGame(game) {
			return false
		}
		if game != s.currentGame {
			s.currentGame = game
			s.dirty.Store(true)
		}
		return true
	})
}

// CanReset reports whether the player is broke and may start over.
func (s *Session) CanReset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canResetLocked()
}

// Reset restores the starting balance and clears statistics and high
// scores. It is only allowed once the balance is below every game's
// minimum stake and no round is in progress.
func (s *Session) Reset(ctx context.Context) (View, bool) {
	return s.act(ctx, "reset", func() bool {
		if !s.canResetLocked() {
			return false
		}
		s.ledger.Reset()
		s.highScores = nil
		s.scoresDirty = true
		logger.Info(ctx).Str("session", s.id).Msg("progress reset")
		return true
	})
}

// --------- Blackjack ---------

// SetBlackjackBet changes the bet used by the next deal.
func (s *Session) SetBlackjackBet(ctx context.Context, amount int) (View, bool) {
	return s.act(ctx, "blackjack_bet", func() bool { _, ok := s.blackjack.SetBet(amount); return ok })
}

// Deal starts a blackjack round, settling a natural immediately.
func (s *Session) Deal(ctx context.Context) (View, bool) {
	return s.act(ctx, "blackjack_deal", func() bool { _, ok := s.blackjack.Deal(); return ok })
}

// Hit draws a card for the player.
func (s *Session) Hit(ctx context.Context) (View, bool) {
	return s.act(ctx, "blackjack_hit", func() bool { _, ok := s.blackjack.Hit(); return ok })
}

// Stand plays out the dealer and settles the round.
func (s *Session) Stand(ctx context.Context) (View, bool) {
	return s.act(ctx, "blackjack_stand", func() bool { _, ok := s.blackjack.Stand(); return ok })
}

// Double doubles the bet, draws one card and stands.
func (s *Session) Double(ctx context.Context) (View, bool) {
	return s.act(ctx, "blackjack_double", func() bool { _, ok := s.blackjack.Double(); return ok })
}

// --------- Roulette ---------

// PlaceRouletteBet stakes one chip on a roulette spot.
func (s *Session) PlaceRouletteBet(ctx context.Context, betType games.BetType, value string) (View, bool) {
	return s.act(ctx, "roulette_bet", func() bool { _, ok := s.roulette.PlaceBet(betType, value); return ok })
}

// ClearRouletteBets refunds every chip on the table.
func (s *Session) ClearRouletteBets(ctx context.Context) (View, bool) {
	return s.act(ctx, "roulette_clear", func() bool { _, ok := s.roulette.ClearBets(); return ok })
}

// SpinRoulette draws the winning number; it stays hidden until SettleRoulette.
func (s *Session) SpinRoulette(ctx context.Context) (View, bool) {
	return s.act(ctx, "roulette_spin", func() bool { _, ok := s.roulette.Spin(); return ok })
}

// SettleRoulette reveals the spin and pays the winning bets.
func (s *Session) SettleRoulette(ctx context.Context) (View, bool) {
	return s.act(ctx, "roulette_settle", func() bool { _, ok := s.roulette.Settle(); return ok })
}

// --------- Slots ---------

// SpinSlots takes the slot bet and draws the reels.
func (s *Session) SpinSlots(ctx context.Context) (View, bool) {
	return s.act(ctx, "slots_spin", func() bool { _, ok := s.slots.Spin(); return ok })
}

// SettleSlots stops the reels and pays a matching triple.
func (s *Session) SettleSlots(ctx context.Context) (View, bool) {
	return s.act(ctx, "slots_settle", func() bool { _, ok := s.slots.Settle(); return ok })
}

// --------- Crash ---------

// StartCrash takes bet and opens a crash round on difficulty.
func (s *Session) StartCrash(ctx context.Context, difficulty string, bet int) (View, bool) {
	return s.act(ctx, "crash_start", func() bool { _, ok := s.crash.StartRound(difficulty, bet); return ok })
}

// StepCrash advances the open crash round by one step.
func (s *Session) StepCrash(ctx context.Context) (View, bool) {
	return s.act(ctx, "crash_step", func() bool { _, ok := s.crash.Step(); return ok })
}

// CashOutCrash pays the current multiplier and records a high score.
func (s *Session) CashOutCrash(ctx context.Context) (View, bool) {
	return s.act(ctx, "crash_cashout", func() bool { _, ok := s.crash.CashOut(); return ok })
}

// --------- internals ---------

// act runs fn under the session lock, then records settled rounds and
// persists whatever changed.
func (s *Session) act(ctx context.Context, action string, fn func() bool) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := fn()
	settled := s.pending
	s.pending = nil
	for _, st := range settled {
		s.recordLocked(ctx, st)
	}
	s.persistLocked(ctx)

	v := s.viewLocked()
	logger.Debug(ctx).
		Str("session", s.id).
		Str("action", action).
		Bool("accepted", ok).
		Int("balance", v.Ledger.Balance).
		Msg("session action")
	return v, ok
}

// queueSettlement runs synchronously inside act, so s.mu is held.
func (s *Session) queueSettlement(st table.Settlement) {
	s.pending = append(s.pending, st)
}

func (s *Session) recordLocked(ctx context.Context, st table.Settlement) {
	balance := s.ledger.Balance()
	logger.Debug(ctx).
		Str("session", s.id).
		Str("game", st.Game).
		Str("round", st.RoundID).
		Str("outcome", st.Outcome).
		Int("bet", st.Bet).
		Int("payout", st.Payout).
		Int("balance", balance).
		Msg("round settled")

	if st.Game == table.GameCrash && st.Outcome == "cashed_out" {
		s.highScores = addHighScore(s.highScores, st.Difficulty, st.Multiplier, st.Payout, s.now())
		s.scoresDirty = true
	}

	err := s.store.AppendRound(ctx, store.Round{
		SessionID:    s.id,
		Game:         st.Game,
		RoundID:      st.RoundID,
		Bet:          st.Bet,
		Payout:       st.Payout,
		Outcome:      st.Outcome,
		BalanceAfter: balance,
		CreatedAt:    s.now(),
	})
	if err != nil {
		logger.Warn(ctx).Err(err).Str("round", st.RoundID).Msg("append round history failed")
	}
}

// persistLocked saves the record and high scores if they changed. Save
// failures are logged; the in-memory state stays authoritative.
func (s *Session) persistLocked(ctx context.Context) {
	if s.dirty.Swap(false) {
		rec := Record{Snapshot: s.ledger.Snapshot(), CurrentGame: s.currentGame}
		if n, ok := s.src.(interface{ Nonce() uint64 }); ok {
			rec.Nonce = n.Nonce()
		}
		data, err := json.Marshal(rec)
		if err == nil {
			err = s.store.SaveRecord(ctx, s.id, data)
		}
		if err != nil {
			logger.Warn(ctx).Err(err).Str("session", s.id).Msg("save session record failed")
			s.dirty.Store(true)
		}
	}

	if s.scoresDirty {
		scores := s.highScores
		if scores == nil {
			scores = []HighScore{}
		}
		data, err := json.Marshal(scores)
		if err == nil {
			err = s.store.SaveHighScores(ctx, s.id, data)
		}
		if err != nil {
			logger.Warn(ctx).Err(err).Str("session", s.id).Msg("save high scores failed")
			return
		}
		s.scoresDirty = false
	}
}

func (s *Session) canResetLocked() bool {
	if s.ledger.Balance() >= s.rules.MinStake() {
		return false
	}
	return s.blackjack.View().State != table.BlackjackPlaying &&
		!s.crash.CanStep() &&
		!s.slots.View().Spinning &&
		s.roulette.View().TotalStaked == 0 &&
		!s.roulette.View().Spinning
}

func (s *Session) viewLocked() View {
	v := View{
		SessionID:   s.id,
		Ledger:      s.ledger.Snapshot(),
		CurrentGame: s.currentGame,
		Blackjack:   s.blackjack.View(),
		Roulette:    s.roulette.View(),
		Slots:       s.slots.View(),
		Crash:       s.crash.View(),
		HighScores:  append([]HighScore{}, s.highScores...),
		CanReset:    s.canResetLocked(),
	}
	if fs, ok := s.src.(*engine.FairSource); ok {
		c := fs.Commitment()
		v.Fairness = &c
	}
	return v
}
