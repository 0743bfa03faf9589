package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/casino-engine/internal/engine"
	"github.com/MJE43/casino-engine/internal/games"
	"github.com/MJE43/casino-engine/internal/ledger"
)

func TestSlotsTripleSeven(t *testing.T) {
	l := ledger.New(1000)
	symbols := games.DefaultRules().SlotSymbols
	m := NewSlots(l, &engine.Sequence{Values: []uint32{99}}, 10, symbols)

	v, ok := m.Spin()
	require.True(t, ok)
	assert.True(t, v.Spinning)
	assert.Equal(t, 990, l.Balance())
	assert.False(t, m.CanSpin())

	v, ok = m.Settle()
	require.True(t, ok)
	seven := games.SymbolIndex(symbols, "seven")
	assert.Equal(t, games.Reels{seven, seven, seven}, v.Reels)
	assert.Equal(t, 1000, v.LastWin)
	assert.Equal(t, 1990, l.Balance())

	s := l.Snapshot()
	assert.Equal(t, 1, s.TotalSpins)
	assert.Equal(t, 1, s.TotalWins)
	assert.Equal(t, 1000, s.BiggestWin)
}

func TestSlotsMiss(t *testing.T) {
	l := ledger.New(1000)
	symbols := games.DefaultRules().SlotSymbols
	// 99 lands on seven and 100 wraps to cherry.
	m := NewSlots(l, &engine.Sequence{Values: []uint32{99, 99, 100}}, 10, symbols)

	var settled Settlement
	m.OnSettle(func(s Settlement) { settled = s })

	m.Spin()
	v, ok := m.Settle()
	require.True(t, ok)
	assert.Equal(t, 0, v.LastWin)
	assert.Equal(t, 990, l.Balance())
	assert.Equal(t, 1, l.Snapshot().TotalLosses)
	assert.Equal(t, "miss", settled.Outcome)
	assert.Equal(t, 10, settled.Bet)
}

func TestSlotsGuards(t *testing.T) {
	l := ledger.New(9)
	m := NewSlots(l, &engine.Sequence{}, 10, games.DefaultRules().SlotSymbols)

	assert.False(t, m.CanSpin())
	_, ok := m.Spin()
	assert.False(t, ok)
	_, ok = m.Settle()
	assert.False(t, ok)
	assert.Equal(t, 9, l.Balance())
	assert.Equal(t, 0, l.Snapshot().TotalSpins)
}
