package session

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/casino-engine/internal/engine"
	"github.com/MJE43/casino-engine/internal/games"
	"github.com/MJE43/casino-engine/internal/store"
	"github.com/MJE43/casino-engine/internal/table"
)

// easyCrashAt3 is a draw that makes an Easy round crash on step 3.
const easyCrashAt3 = 705810099

func wheelDraw(t *testing.T, n int) uint32 {
	t.Helper()
	for pocket, v := range games.WheelOrder {
		if v == n {
			return uint32(37*1_000_000 + pocket)
		}
	}
	t.Fatalf("number %d is not on the wheel", n)
	return 0
}

func newSession(t *testing.T, src engine.Source) (*Session, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	s := New(Options{
		ID:     "test",
		Rules:  games.DefaultRules(),
		Source: src,
		Store:  st,
		Now:    func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) },
	})
	s.Load(context.Background())
	return s, st
}

func savedRecord(t *testing.T, st *store.Memory) Record {
	t.Helper()
	data, err := st.LoadRecord(context.Background(), "test")
	require.NoError(t, err)
	return DecodeRecord(data)
}

func TestFreshSession(t *testing.T) {
	s, st := newSession(t, nil)
	v := s.View()
	assert.Equal(t, "test", v.SessionID)
	assert.Equal(t, 1000, v.Ledger.Balance)
	assert.Equal(t, DefaultGame, v.CurrentGame)
	assert.Empty(t, v.HighScores)
	assert.False(t, v.CanReset)
	assert.Nil(t, v.Fairness)

	_, err := st.LoadRecord(context.Background(), "test")
	assert.ErrorIs(t, err, store.ErrNotFound, "loading alone does not write")
}

func TestLoadCorruptState(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.SaveRecord(ctx, "test", []byte(`{"balance":-4,"totalWins":"x","totalSpins":6,"currentGame":"poker"}`)))
	require.NoError(t, st.SaveHighScores(ctx, "test", []byte(`not json`)))

	s := New(Options{ID: "test", Rules: games.DefaultRules(), Store: st})
	s.Load(ctx)

	v := s.View()
	assert.Equal(t, 1000, v.Ledger.Balance)
	assert.Equal(t, 0, v.Ledger.TotalWins)
	assert.Equal(t, 6, v.Ledger.TotalSpins)
	assert.Equal(t, "slots", v.CurrentGame)
	assert.Empty(t, v.HighScores)
}

func TestRouletteScenarioPersists(t *testing.T) {
	ctx := context.Background()
	s, st := newSession(t, &engine.Sequence{Values: []uint32{wheelDraw(t, 17)}})

	for i := 0; i < 3; i++ {
		_, ok := s.PlaceRouletteBet(ctx, games.BetRed, "red")
		require.True(t, ok)
	}
	v := s.View()
	assert.Equal(t, 985, v.Ledger.Balance)
	assert.Equal(t, 15, v.Roulette.TotalStaked)
	assert.Equal(t, 985, savedRecord(t, st).Balance, "every mutation is persisted")

	_, ok := s.SpinRoulette(ctx)
	require.True(t, ok)
	v, ok = s.SettleRoulette(ctx)
	require.True(t, ok)
	assert.Equal(t, 1015, v.Ledger.Balance)
	assert.Empty(t, v.Roulette.Bets)

	rec := savedRecord(t, st)
	assert.Equal(t, 1015, rec.Balance)
	assert.Equal(t, 1, rec.TotalWins)
	assert.Equal(t, 1, rec.TotalSpins)

	rounds, err := s.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, table.GameRoulette, rounds[0].Game)
	assert.Equal(t, 15, rounds[0].Bet)
	assert.Equal(t, 30, rounds[0].Payout)
	assert.Equal(t, 1015, rounds[0].BalanceAfter)
	assert.Equal(t, v.Roulette.RoundID, rounds[0].RoundID)

	var buf bytes.Buffer
	require.NoError(t, s.ExportHistory(ctx, &buf))
	assert.Contains(t, buf.String(), "roulette")
}

func TestRejectedActionReportsFalse(t *testing.T) {
	ctx := context.Background()
	s, st := newSession(t, nil)

	v, ok := s.Hit(ctx)
	assert.False(t, ok)
	assert.Equal(t, 1000, v.Ledger.Balance)

	_, ok = s.SettleSlots(ctx)
	assert.False(t, ok)
	_, ok = s.StartCrash(ctx, "Easy", 5)
	assert.False(t, ok, "below the crash minimum")

	_, err := st.LoadRecord(ctx, "test")
	assert.ErrorIs(t, err, store.ErrNotFound, "nothing changed, nothing saved")
}

func TestCrashCashOutRecordsHighScore(t *testing.T) {
	ctx := context.Background()
	s, st := newSession(t, &engine.Sequence{Values: []uint32{easyCrashAt3}})

	_, ok := s.StartCrash(ctx, "Easy", 100)
	require.True(t, ok)
	s.StepCrash(ctx)
	s.StepCrash(ctx)
	v, ok := s.CashOutCrash(ctx)
	require.True(t, ok)
	assert.Equal(t, 1021, v.Ledger.Balance)

	require.Len(t, v.HighScores, 1)
	hs := v.HighScores[0]
	assert.Equal(t, "Easy", hs.Difficulty)
	assert.Equal(t, 1.21, hs.Multiplier)
	assert.Equal(t, 121, hs.Winnings)
	assert.Equal(t, time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC), hs.Date)

	data, err := st.LoadHighScores(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, v.HighScores, DecodeHighScores(data))

	// A crashed round does not make the leaderboard.
	_, ok = s.StartCrash(ctx, "Easy", 100)
	require.True(t, ok)
	for i := 0; i < 3; i++ {
		s.StepCrash(ctx)
	}
	assert.Len(t, s.HighScores(), 1)

	rounds, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
}

func TestHighScoresSurviveReload(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	opts := Options{ID: "test", Rules: games.DefaultRules(), Source: &engine.Sequence{Values: []uint32{easyCrashAt3}}, Store: st}

	s := New(opts)
	s.Load(ctx)
	s.SelectGame(ctx, table.GameCrash)
	s.StartCrash(ctx, "Easy", 10)
	s.StepCrash(ctx)
	s.CashOutCrash(ctx)

	again := New(opts)
	again.Load(ctx)
	v := again.View()
	assert.Equal(t, table.GameCrash, v.CurrentGame)
	assert.Equal(t, 1001, v.Ledger.Balance)
	require.Len(t, v.HighScores, 1)
	assert.Equal(t, 1.1, v.HighScores[0].Multiplier)
}

func TestSelectGame(t *testing.T) {
	ctx := context.Background()
	s, st := newSession(t, nil)

	_, ok := s.SelectGame(ctx, "poker")
	assert.False(t, ok)

	v, ok := s.SelectGame(ctx, table.GameBlackjack)
	require.True(t, ok)
	assert.Equal(t, table.GameBlackjack, v.CurrentGame)
	assert.Equal(t, table.GameBlackjack, savedRecord(t, st).CurrentGame)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.SaveRecord(ctx, "test", []byte(`{"balance":1000}`)))
	require.NoError(t, st.SaveHighScores(ctx, "test", []byte(`[{"difficulty":"Easy","multiplier":2,"winnings":20}]`)))

	s := New(Options{ID: "test", Rules: games.DefaultRules(), Store: st})
	s.Load(ctx)
	require.Len(t, s.HighScores(), 1)

	_, ok := s.Reset(ctx)
	assert.False(t, ok, "cannot reset while the player can still bet")

	require.NoError(t, st.SaveRecord(ctx, "test", []byte(`{"balance":4,"totalLosses":30}`)))
	s.Load(ctx)
	require.True(t, s.CanReset())

	v, ok := s.Reset(ctx)
	require.True(t, ok)
	assert.Equal(t, 1000, v.Ledger.Balance)
	assert.Equal(t, 0, v.Ledger.TotalLosses)
	assert.Empty(t, v.HighScores)

	assert.Equal(t, 1000, savedRecord(t, st).Balance)
	data, err := st.LoadHighScores(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestResetBlockedMidRound(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.SaveRecord(ctx, "test", []byte(`{"balance":14}`)))
	s := New(Options{ID: "test", Rules: games.DefaultRules(), Store: st, Source: &engine.Sequence{Values: []uint32{easyCrashAt3}}})
	s.Load(ctx)

	_, ok := s.StartCrash(ctx, "Easy", 10)
	require.True(t, ok)
	assert.Equal(t, 4, s.Balance())
	assert.False(t, s.CanReset(), "crash round still running")

	s.StepCrash(ctx)
	s.StepCrash(ctx)
	s.StepCrash(ctx)
	assert.True(t, s.CanReset())
}

func TestFairModePersistsNonce(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seeds := engine.Seeds{Server: "server-seed", Client: "client-seed"}
	opts := Options{ID: "test", Rules: games.DefaultRules(), Source: engine.NewFairSource(seeds, 0), Store: st}

	s := New(opts)
	s.Load(ctx)
	s.SpinSlots(ctx)
	v, _ := s.SettleSlots(ctx)
	s.SpinSlots(ctx)

	require.NotNil(t, v.Fairness)
	assert.Equal(t, engine.HashServerSeed("server-seed"), v.Fairness.ServerSeedHash)
	assert.Equal(t, "client-seed", v.Fairness.ClientSeed)
	assert.Equal(t, uint64(2), savedRecord(t, st).Nonce)

	fresh := engine.NewFairSource(seeds, 0)
	again := New(Options{ID: "test", Rules: games.DefaultRules(), Source: fresh, Store: st})
	again.Load(ctx)
	assert.Equal(t, uint64(2), fresh.Nonce())
}

func TestViewIsJSON(t *testing.T) {
	s, _ := newSession(t, nil)
	data, err := json.Marshal(s.View())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"ledger", "blackjack", "roulette", "slots", "crash", "high_scores", "can_reset"} {
		assert.Contains(t, decoded, key)
	}
}
