package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/MJE43/casino-engine/internal/games"
)

// rulesFile mirrors the YAML layout. Omitted keys keep their defaults.
type rulesFile struct {
	StartingBalance *int             `yaml:"starting_balance"`
	BlackjackBet    *int             `yaml:"blackjack_bet"`
	RouletteStake   *int             `yaml:"roulette_stake"`
	SlotBet         *int             `yaml:"slot_bet"`
	CrashMinBet     *int             `yaml:"crash_min_bet"`
	SlotSymbols     []slotSymbolFile `yaml:"slot_symbols"`
	Difficulties    []difficultyFile `yaml:"difficulties"`
}

type slotSymbolFile struct {
	ID         string `yaml:"id"`
	Glyph      string `yaml:"glyph"`
	Weight     int    `yaml:"weight"`
	Multiplier int    `yaml:"multiplier"`
}

type difficultyFile struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	CrashChance float64 `yaml:"crash_chance"`
	// Growth is read as text so "1.15" stays exact.
	Growth   string `yaml:"growth"`
	MaxSteps int    `yaml:"max_steps"`
}

// LoadRules returns the default rules overlaid with the YAML file at path.
// An empty path means defaults.
func LoadRules(path string) (games.Rules, error) {
	if path == "" {
		return games.DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return games.Rules{}, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules overlays YAML data on the default rules and validates the
// result.
func ParseRules(data []byte) (games.Rules, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return games.Rules{}, fmt.Errorf("parse rules: %w", err)
	}

	r := games.DefaultRules()
	for dst, src := range map[*int]*int{
		&r.StartingBalance: f.StartingBalance,
		&r.BlackjackBet:    f.BlackjackBet,
		&r.RouletteStake:   f.RouletteStake,
		&r.SlotBet:         f.SlotBet,
		&r.CrashMinBet:     f.CrashMinBet,
	} {
		if src != nil {
			*dst = *src
		}
	}

	if f.SlotSymbols != nil {
		r.SlotSymbols = make([]games.SlotSymbol, 0, len(f.SlotSymbols))
		for _, s := range f.SlotSymbols {
			r.SlotSymbols = append(r.SlotSymbols, games.SlotSymbol{
				ID:         s.ID,
				Glyph:      s.Glyph,
				Weight:     s.Weight,
				Multiplier: s.Multiplier,
			})
		}
	}

	if f.Difficulties != nil {
		r.Difficulties = make([]games.Difficulty, 0, len(f.Difficulties))
		for _, d := range f.Difficulties {
			growth, err := decimal.NewFromString(d.Growth)
			if err != nil {
				return games.Rules{}, fmt.Errorf("difficulty %q: growth %q: %w", d.Name, d.Growth, err)
			}
			r.Difficulties = append(r.Difficulties, games.Difficulty{
				Name:        d.Name,
				Description: d.Description,
				CrashChance: d.CrashChance,
				Growth:      growth,
				MaxSteps:    d.MaxSteps,
			})
		}
	}

	if err := r.Validate(); err != nil {
		return games.Rules{}, fmt.Errorf("invalid rules: %w", err)
	}
	return r, nil
}
