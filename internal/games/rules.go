package games

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Rules collects the tunable stakes and tables of every game.
type Rules struct {
	StartingBalance int          `json:"starting_balance"`
	BlackjackBet    int          `json:"blackjack_bet"`
	RouletteStake   int          `json:"roulette_stake"`
	SlotBet         int          `json:"slot_bet"`
	CrashMinBet     int          `json:"crash_min_bet"`
	SlotSymbols     []SlotSymbol `json:"slot_symbols"`
	Difficulties    []Difficulty `json:"difficulties"`
}

// DefaultRules returns the stock casino configuration.
func DefaultRules() Rules {
	symbols := make([]SlotSymbol, len(defaultSlotSymbols))
	copy(symbols, defaultSlotSymbols)
	diffs := make([]Difficulty, len(defaultDifficulties))
	copy(diffs, defaultDifficulties)

	return Rules{
		StartingBalance: 1000,
		BlackjackBet:    25,
		RouletteStake:   5,
		SlotBet:         10,
		CrashMinBet:     10,
		SlotSymbols:     symbols,
		Difficulties:    diffs,
	}
}

// MinStake is the smallest amount any game will accept.
func (r Rules) MinStake() int {
	m := r.BlackjackBet
	for _, v := range []int{r.RouletteStake, r.SlotBet, r.CrashMinBet} {
		if v < m {
			m = v
		}
	}
	return m
}

// Validate checks that every stake and table entry is usable.
func (r Rules) Validate() error {
	var errs []error
	if r.StartingBalance < 0 {
		errs = append(errs, fmt.Errorf("starting_balance must be >= 0, got %d", r.StartingBalance))
	}
	for name, v := range map[string]int{
		"blackjack_bet":  r.BlackjackBet,
		"roulette_stake": r.RouletteStake,
		"slot_bet":       r.SlotBet,
		"crash_min_bet":  r.CrashMinBet,
	} {
		if v < 1 {
			errs = append(errs, fmt.Errorf("%s must be >= 1, got %d", name, v))
		}
	}

	if len(r.SlotSymbols) == 0 {
		errs = append(errs, errors.New("slot_symbols must not be empty"))
	}
	for _, s := range r.SlotSymbols {
		if s.ID == "" || s.Weight < 1 || s.Multiplier < 0 {
			errs = append(errs, fmt.Errorf("slot symbol %q needs an id, weight >= 1 and multiplier >= 0", s.ID))
		}
	}

	if len(r.Difficulties) == 0 {
		errs = append(errs, errors.New("difficulties must not be empty"))
	}
	for _, d := range r.Difficulties {
		if d.Name == "" {
			errs = append(errs, errors.New("difficulty name must not be empty"))
		}
		if d.CrashChance <= 0 || d.CrashChance >= 1 {
			errs = append(errs, fmt.Errorf("difficulty %q: crash_chance must be in (0,1), got %v", d.Name, d.CrashChance))
		}
		if d.Growth.LessThanOrEqual(decimal.NewFromInt(1)) {
			errs = append(errs, fmt.Errorf("difficulty %q: growth must be > 1, got %s", d.Name, d.Growth))
		}
		if d.MaxSteps < 1 {
			errs = append(errs, fmt.Errorf("difficulty %q: max_steps must be >= 1, got %d", d.Name, d.MaxSteps))
		}
	}
	return errors.Join(errs...)
}
