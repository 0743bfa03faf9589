package scripting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MJE43/casino-engine/internal/games"
	"github.com/MJE43/casino-engine/internal/logger"
	"github.com/MJE43/casino-engine/internal/session"
	"github.com/MJE43/casino-engine/internal/store"
	"github.com/MJE43/casino-engine/internal/table"
)

// State is the autoplay engine's lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateError   State = "error"
)

var (
	ErrAlreadyRunning = errors.New("autoplay is already running")
	ErrNotRunning     = errors.New("autoplay is not running")
	ErrNoDobet        = errors.New("script must define a dobet() function")
)

// Player is the crash table the engine drives. *session.Session
// satisfies it.
type Player interface {
	ID() string
	Balance() int
	Difficulties() []games.Difficulty
	StartCrash(ctx context.Context, difficulty string, bet int) (session.View, bool)
	StepCrash(ctx context.Context) (session.View, bool)
	CashOutCrash(ctx context.Context) (session.View, bool)
}

// EventEmitter receives engine snapshots while a run progresses.
type EventEmitter interface {
	EmitScriptState(state Snapshot)
}

// RunRecorder persists a summary of every finished run.
type RunRecorder interface {
	SaveAutoplayRun(ctx context.Context, run store.AutoplayRun) error
}

// Options tune an Engine.
type Options struct {
	// MaxRounds caps the rounds of a single run. Defaults to 1000.
	MaxRounds int
	Emitter   EventEmitter
	Recorder  RunRecorder
}

// Snapshot is a serializable view of the engine.
type Snapshot struct {
	State           State        `json:"state"`
	Error           string       `json:"error,omitempty"`
	StopReason      string       `json:"stopReason,omitempty"`
	Rounds          int          `json:"rounds"`
	Stats           *Statistics  `json:"stats"`
	ProfitPercent   float64      `json:"profitPercent"`
	Chart           []ChartPoint `json:"chart"`
	Logs            []LogEntry   `json:"logs"`
	RoundsPerSecond float64      `json:"roundsPerSecond"`
}

// Engine runs crash autoplay scripts against a Player. One run at a time.
type Engine struct {
	mu         sync.RWMutex
	state      State
	err        error
	stopReason string
	cancel     context.CancelFunc

	vm        *VM
	vars      *Variables
	stats     *Statistics
	chart     *ChartBuffer
	rounds    int
	hasOnStep bool

	player Player
	opts   Options
	script string

	startTime time.Time
	lastEmit  time.Time
}

const emitInterval = 100 * time.Millisecond

// NewEngine creates an idle engine.
func NewEngine(player Player, opts Options) *Engine {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 1000
	}
	return &Engine{
		state:  StateIdle,
		player: player,
		opts:   opts,
	}
}

// Run executes script for at most rounds crash rounds (capped by
// MaxRounds; <= 0 means the cap) and blocks until the run ends. The
// script body runs once; dobet() is then called after every round to
// choose the next bet, and onstep(), if defined, after every surviving
// step. A round still in play when the run stops is cashed out.
func (e *Engine) Run(ctx context.Context, script string, rounds int) (Snapshot, error) {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return Snapshot{}, ErrAlreadyRunning
	}
	if rounds <= 0 || rounds > e.opts.MaxRounds {
		rounds = e.opts.MaxRounds
	}

	diffs := e.player.Difficulties()
	names := make([]string, len(diffs))
	for i, d := range diffs {
		names[i] = d.Name
	}
	initial := ""
	if len(names) > 0 {
		initial = names[0]
	}

	e.stats = NewStatistics(e.player.Balance())
	e.chart = NewChartBuffer(500)
	e.vars = NewVariables(e.stats, initial)
	e.vm = NewVM(names)
	e.rounds = 0
	e.state = StateRunning
	e.err = nil
	e.stopReason = ""
	e.startTime = time.Now()
	e.script = script

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	e.vm.SetVariables(e.vars)
	if err := e.vm.Execute(script); err != nil {
		return e.fail(ctx, err)
	}
	e.vm.SyncVariables(e.vars)
	if !e.vm.HasFunc("dobet") {
		return e.fail(ctx, ErrNoDobet)
	}
	e.hasOnStep = e.vm.HasFunc("onstep")

	e.vars.Running = true
	e.vm.SetVariables(e.vars)

	stopInterrupt := context.AfterFunc(ctx, func() { e.vm.Interrupt("autoplay cancelled") })
	defer stopInterrupt()

	logger.Info(ctx).Int("rounds", rounds).Str("difficulty", e.vars.Difficulty).Msg("autoplay started")
	e.emitState(true)

	reason, err := e.loop(ctx, rounds)
	if err != nil {
		return e.fail(ctx, err)
	}

	e.mu.Lock()
	e.state = StateStopped
	e.stopReason = reason
	e.cancel = nil
	e.mu.Unlock()

	snap := e.Snapshot()
	logger.Info(ctx).
		Int("rounds", snap.Rounds).
		Int("profit", snap.Stats.Profit).
		Str("reason", reason).
		Msg("autoplay finished")
	e.emitState(true)
	e.saveRun(ctx, snap)
	return snap, nil
}

// Stop cancels the current run. Run returns once the round in play has
// been cashed out.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning || e.cancel == nil {
		return ErrNotRunning
	}
	e.cancel()
	return nil
}

// Snapshot returns the current engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := Snapshot{
		State:      e.state,
		StopReason: e.stopReason,
		Rounds:     e.rounds,
	}
	if e.err != nil {
		snap.Error = e.err.Error()
	}
	if e.stats != nil {
		statsCopy := *e.stats
		snap.Stats = &statsCopy
		snap.ProfitPercent = statsCopy.ProfitPercent()
	}
	if e.chart != nil {
		snap.Chart = append([]ChartPoint(nil), e.chart.Points...)
	}
	if e.vm != nil {
		snap.Logs = e.vm.Logs()
	}
	if !e.startTime.IsZero() {
		if elapsed := time.Since(e.startTime).Seconds(); elapsed > 0 {
			snap.RoundsPerSecond = float64(e.rounds) / elapsed
		}
	}
	return snap
}

func (e *Engine) loop(ctx context.Context, limit int) (string, error) {
	for e.rounds < limit {
		if ctx.Err() != nil {
			return "cancelled", nil
		}
		if e.vm.StopRequested() {
			return "stop() called", nil
		}

		bet := e.vars.NextBet
		if bet <= 0 {
			return "", fmt.Errorf("nextbet must be a positive whole number, got %d", bet)
		}
		if _, ok := games.FindDifficulty(e.player.Difficulties(), e.vars.Difficulty); !ok {
			return "", fmt.Errorf("unknown difficulty %q", e.vars.Difficulty)
		}

		view, ok := e.player.StartCrash(ctx, e.vars.Difficulty, bet)
		if !ok {
			return fmt.Sprintf("bet %d rejected with balance %d", bet, e.player.Balance()), nil
		}

		cv, err := e.playRound(ctx, view.Crash)
		e.recordRound(cv)
		if err != nil {
			return "", err
		}

		if e.vars.StopOnWin && cv.CashedOut {
			return "stoponwin", nil
		}
		if e.rounds >= limit {
			break
		}

		if err := e.vm.Call("dobet"); err != nil {
			if ctx.Err() != nil {
				return "cancelled", nil
			}
			return "", err
		}
		e.vm.SyncVariables(e.vars)
		if e.vm.TakeResetStats() {
			e.mu.Lock()
			e.stats.Reset()
			e.chart.Reset()
			e.mu.Unlock()
			e.vm.SetVariables(e.vars)
		}
		e.emitState(false)
	}
	return "round limit reached", nil
}

// playRound steps cv until it finishes. Session calls use a context that
// outlives cancellation so an open round can always be settled.
func (e *Engine) playRound(ctx context.Context, cv table.CrashView) (table.CrashView, error) {
	settleCtx := context.WithoutCancel(ctx)
	e.vm.TakeCashout()

	for cv.State == table.CrashPlaying {
		cashout := ctx.Err() != nil ||
			e.vm.StopRequested() ||
			e.vm.TakeCashout() ||
			(e.vars.Target > 0 && cv.Multiplier >= e.vars.Target)

		var (
			v  session.View
			ok bool
		)
		if cashout {
			v, ok = e.player.CashOutCrash(settleCtx)
		} else {
			v, ok = e.player.StepCrash(settleCtx)
		}
		if !ok {
			return cv, fmt.Errorf("crash round %s did not advance", cv.RoundID)
		}
		cv = v.Crash

		if cv.State != table.CrashPlaying || !e.hasOnStep {
			continue
		}
		e.vars.observeStep(cv)
		e.vm.SetVariables(e.vars)
		if err := e.vm.Call("onstep"); err != nil {
			if ctx.Err() != nil {
				continue
			}
			if v, ok := e.player.CashOutCrash(settleCtx); ok {
				cv = v.Crash
			}
			return cv, err
		}
		e.vm.SyncVariables(e.vars)
	}
	return cv, nil
}

func (e *Engine) recordRound(cv table.CrashView) {
	e.mu.Lock()
	e.rounds++
	e.stats.RecordBet(BetResult{
		Amount:     cv.Bet,
		Payout:     cv.Winnings,
		Multiplier: cv.Multiplier,
		Win:        cv.CashedOut,
	})
	e.chart.Push(ChartPoint{BetNumber: e.stats.Bets, Profit: e.stats.Profit, Win: cv.CashedOut})
	e.mu.Unlock()

	e.vars.observeRound(cv, e.player.Balance())
	e.vm.SetVariables(e.vars)
}

func (e *Engine) fail(ctx context.Context, err error) (Snapshot, error) {
	e.mu.Lock()
	e.state = StateError
	e.err = err
	e.cancel = nil
	e.mu.Unlock()

	logger.Warn(ctx).Err(err).Int("rounds", e.rounds).Msg("autoplay failed")
	e.emitState(true)
	snap := e.Snapshot()
	e.saveRun(ctx, snap)
	return snap, err
}

func (e *Engine) saveRun(ctx context.Context, snap Snapshot) {
	if e.opts.Recorder == nil {
		return
	}
	run := store.AutoplayRun{
		SessionID:    e.player.ID(),
		Script:       e.script,
		State:        string(snap.State),
		StopReason:   snap.StopReason,
		Error:        snap.Error,
		Rounds:       snap.Rounds,
		FinalBalance: e.player.Balance(),
		StartedAt:    e.startTime.UTC(),
		EndedAt:      time.Now().UTC(),
	}
	if st := snap.Stats; st != nil {
		run.Wins = st.Wins
		run.Losses = st.Losses
		run.Wagered = st.Wagered
		run.Profit = st.Profit
		run.StartBalance = st.StartBal
	}
	if err := e.opts.Recorder.SaveAutoplayRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn(ctx).Err(err).Msg("save autoplay run")
	}
}

func (e *Engine) emitState(force bool) {
	if e.opts.Emitter == nil {
		return
	}
	now := time.Now()
	if !force && now.Sub(e.lastEmit) < emitInterval {
		return
	}
	e.lastEmit = now
	e.opts.Emitter.EmitScriptState(e.Snapshot())
}
