package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/casino-engine/internal/engine"
	"github.com/MJE43/casino-engine/internal/games"
	"github.com/MJE43/casino-engine/internal/ledger"
)

// easyCrashAt3 is a draw that makes an Easy round crash on step 3.
const easyCrashAt3 = 705810099

func newCrash(balance int, draws ...uint32) (*Crash, *ledger.Ledger) {
	l := ledger.New(balance)
	rules := games.DefaultRules()
	return NewCrash(l, &engine.Sequence{Values: draws}, rules.CrashMinBet, rules.Difficulties), l
}

func TestCrashCashOut(t *testing.T) {
	c, l := newCrash(1000, easyCrashAt3)

	var settled Settlement
	c.OnSettle(func(s Settlement) { settled = s })

	v, ok := c.StartRound("Easy", 100)
	require.True(t, ok)
	assert.Equal(t, CrashPlaying, v.State)
	assert.Equal(t, 900, l.Balance())
	assert.Equal(t, 1.0, v.Multiplier)
	assert.Zero(t, v.CrashStep, "crash step is hidden while playing")

	v, _ = c.Step()
	assert.Equal(t, "1.10", v.MultiplierText)
	v, _ = c.Step()
	assert.Equal(t, 2, v.CurrentStep)
	assert.Equal(t, "1.21", v.MultiplierText)
	assert.Equal(t, 121, v.PotentialWin)

	v, ok = c.CashOut()
	require.True(t, ok)
	assert.Equal(t, CrashFinished, v.State)
	assert.True(t, v.CashedOut)
	assert.Equal(t, 121, v.Winnings)
	assert.Equal(t, 3, v.CrashStep)
	assert.Equal(t, 1021, l.Balance())
	assert.Equal(t, 1, l.Snapshot().TotalWins)

	assert.Equal(t, "cashed_out", settled.Outcome)
	assert.Equal(t, "Easy", settled.Difficulty)
	assert.Equal(t, "1.21", settled.Multiplier.String())

	_, ok = c.Step()
	assert.False(t, ok)
	_, ok = c.CashOut()
	assert.False(t, ok)
}

func TestCrashForfeitsOnCrashStep(t *testing.T) {
	c, l := newCrash(1000, easyCrashAt3)
	_, ok := c.StartRound("easy", 100)
	require.True(t, ok)

	var v CrashView
	for i := 0; i < 3; i++ {
		v, ok = c.Step()
		require.True(t, ok)
	}
	assert.True(t, v.Crashed)
	assert.Equal(t, CrashFinished, v.State)
	assert.False(t, v.CanCashOut)
	assert.Equal(t, 900, l.Balance())
	assert.Equal(t, 1, l.Snapshot().TotalLosses)

	_, ok = c.CashOut()
	assert.False(t, ok)
	assert.Equal(t, 900, l.Balance())
}

func TestCrashStartGuards(t *testing.T) {
	c, l := newCrash(50, easyCrashAt3)

	tests := []struct {
		name       string
		difficulty string
		bet        int
	}{
		{"below min bet", "Easy", 9},
		{"above balance", "Easy", 51},
		{"unknown difficulty", "Impossible", 10},
	}
	for _, tt := range tests {
		assert.False(t, c.CanStart(tt.difficulty, tt.bet), tt.name)
		_, ok := c.StartRound(tt.difficulty, tt.bet)
		assert.False(t, ok, tt.name)
	}
	assert.Equal(t, 50, l.Balance())

	_, ok := c.StartRound("Medium", 50)
	require.True(t, ok)
	assert.False(t, c.CanStart("Medium", 0))
	_, ok = c.StartRound("Medium", 10)
	assert.False(t, ok, "one round at a time")
}

func TestCrashCashOutImmediately(t *testing.T) {
	c, l := newCrash(100, easyCrashAt3)
	_, ok := c.StartRound("Easy", 10)
	require.True(t, ok)

	v, ok := c.CashOut()
	require.True(t, ok)
	assert.Equal(t, 10, v.Winnings)
	assert.Equal(t, 100, l.Balance())
}

func TestCrashRoundsAlwaysEnd(t *testing.T) {
	l := ledger.New(1_000_000)
	rules := games.DefaultRules()
	src := engine.NewFairSource(engine.Seeds{Server: "crash", Client: "rounds"}, 0)
	c := NewCrash(l, src, rules.CrashMinBet, rules.Difficulties)

	for _, d := range rules.Difficulties {
		for i := 0; i < 100; i++ {
			_, ok := c.StartRound(d.Name, 10)
			require.True(t, ok)
			steps := 0
			for c.CanStep() {
				c.Step()
				steps++
			}
			require.LessOrEqual(t, steps, d.MaxSteps)
			require.True(t, c.View().Crashed)
		}
	}
}
