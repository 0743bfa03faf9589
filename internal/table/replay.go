package table

import (
	"errors"
	"fmt"

	"github.com/MJE43/casino-engine/internal/engine"
	"github.com/MJE43/casino-engine/internal/games"
)

var (
	ErrUnknownGame       = errors.New("unknown game")
	ErrUnknownDifficulty = errors.New("unknown crash difficulty")
)

// Replay is the outcome a provably fair round drew, re-derived from the
// revealed seeds. Only the field for Game is set.
type Replay struct {
	Game           string              `json:"game"`
	Nonce          uint64              `json:"nonce"`
	ServerSeedHash string              `json:"server_seed_hash"`
	Deck           games.Deck          `json:"deck,omitempty"`
	Wheel          *games.WheelOutcome `json:"wheel,omitempty"`
	Reels          *games.Reels        `json:"reels,omitempty"`
	Difficulty     string              `json:"difficulty,omitempty"`
	CrashStep      int                 `json:"crash_step,omitempty"`
}

// ReplayRound redraws the round played at nonce. The draw matches what the
// tables do after engine.BeginRound moved the stream to that nonce, so the
// result can be checked against the round history and the published hash.
func ReplayRound(seeds engine.Seeds, nonce uint64, game string, rules games.Rules, difficulty string) (Replay, error) {
	src := engine.NewFairSource(seeds, nonce)
	r := Replay{
		Game:           game,
		Nonce:          nonce,
		ServerSeedHash: engine.HashServerSeed(seeds.Server),
	}

	switch game {
	case GameBlackjack:
		r.Deck = games.ShuffledDeck(src)
	case GameRoulette:
		w := games.SpinWheel(src)
		r.Wheel = &w
	case GameSlots:
		reels := games.SpinReels(src, rules.SlotSymbols)
		r.Reels = &reels
	case GameCrash:
		d, ok := games.FindDifficulty(rules.Difficulties, difficulty)
		if !ok {
			return Replay{}, fmt.Errorf("%w: %q", ErrUnknownDifficulty, difficulty)
		}
		r.Difficulty = d.Name
		r.CrashStep = games.SampleCrashStep(src, d)
	default:
		return Replay{}, fmt.Errorf("%w: %q", ErrUnknownGame, game)
	}
	return r, nil
}
