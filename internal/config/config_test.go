package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/casino-engine/internal/engine"
	"github.com/MJE43/casino-engine/internal/games"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CASINO_DB_PATH", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:17888", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "default", cfg.SessionID)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 1000, cfg.AutoplayMaxRounds)
	assert.Equal(t, "casino.db", filepath.Base(cfg.DBPath))
	assert.False(t, cfg.FairMode())
	assert.IsType(t, &engine.CryptoSource{}, cfg.Source())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CASINO_ADDR", ":9000")
	t.Setenv("CASINO_DB_PATH", "/tmp/x.db")
	t.Setenv("CASINO_SERVER_SEED", "secret")
	t.Setenv("CASINO_CLIENT_SEED", "me")
	t.Setenv("CASINO_SHUTDOWN_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, 250*time.Millisecond, cfg.ShutdownTimeout)
	require.True(t, cfg.FairMode())

	src, ok := cfg.Source().(*engine.FairSource)
	require.True(t, ok)
	assert.Equal(t, engine.HashServerSeed("secret"), src.Commitment().ServerSeedHash)
	assert.Equal(t, "me", src.Commitment().ClientSeed)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("CASINO_SHUTDOWN_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("CASINO_SHUTDOWN_TIMEOUT", "1s")
	t.Setenv("CASINO_AUTOPLAY_MAX_ROUNDS", "0")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRulesEmptyPath(t *testing.T) {
	r, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, games.DefaultRules(), r)
}

func TestParseRulesOverlay(t *testing.T) {
	data := []byte(`
starting_balance: 500
roulette_stake: 10
difficulties:
  - name: Gentle
    description: barely moves
    crash_chance: 0.01
    growth: "1.05"
    max_steps: 80
`)
	r, err := ParseRules(data)
	require.NoError(t, err)

	assert.Equal(t, 500, r.StartingBalance)
	assert.Equal(t, 10, r.RouletteStake)
	assert.Equal(t, 25, r.BlackjackBet, "unset keys keep defaults")
	assert.Equal(t, games.DefaultRules().SlotSymbols, r.SlotSymbols)

	require.Len(t, r.Difficulties, 1)
	d := r.Difficulties[0]
	assert.Equal(t, "Gentle", d.Name)
	assert.Equal(t, "1.1025", d.Multiplier(2).String())
	assert.Equal(t, 80, d.MaxSteps)
}

func TestParseRulesErrors(t *testing.T) {
	tests := map[string]string{
		"not yaml":     "starting_balance: [",
		"bad growth":   "difficulties:\n  - {name: X, crash_chance: 0.1, growth: \"fast\", max_steps: 3}\n",
		"zero stake":   "slot_bet: 0\n",
		"empty reels":  "slot_symbols: []\n",
		"bad chance":   "difficulties:\n  - {name: X, crash_chance: 1.5, growth: \"1.1\", max_steps: 3}\n",
		"wrong kind":   "blackjack_bet: lots\n",
		"zero weights": "slot_symbols:\n  - {id: a, weight: 0, multiplier: 1}\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRules([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crash_min_bet: 20\n"), 0o644))

	r, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, 20, r.CrashMinBet)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
