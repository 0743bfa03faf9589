package games

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDefaultRules(t *testing.T) {
	r := DefaultRules()
	if err := r.Validate(); err != nil {
		t.Fatalf("default rules should validate: %v", err)
	}
	if r.StartingBalance != 1000 {
		t.Errorf("expected starting balance 1000, got %d", r.StartingBalance)
	}
	if r.MinStake() != 5 {
		t.Errorf("expected min stake 5, got %d", r.MinStake())
	}
}

func TestDefaultRulesAreCopies(t *testing.T) {
	a := DefaultRules()
	a.SlotSymbols[0].Multiplier = 999
	a.Difficulties[0].MaxSteps = 1

	b := DefaultRules()
	if b.SlotSymbols[0].Multiplier == 999 || b.Difficulties[0].MaxSteps == 1 {
		t.Error("mutating one rules value leaked into the defaults")
	}
}

func TestRulesValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Rules)
	}{
		{"negative balance", func(r *Rules) { r.StartingBalance = -1 }},
		{"zero blackjack bet", func(r *Rules) { r.BlackjackBet = 0 }},
		{"zero roulette stake", func(r *Rules) { r.RouletteStake = 0 }},
		{"no symbols", func(r *Rules) { r.SlotSymbols = nil }},
		{"zero weight", func(r *Rules) { r.SlotSymbols[0].Weight = 0 }},
		{"no difficulties", func(r *Rules) { r.Difficulties = nil }},
		{"crash chance of one", func(r *Rules) { r.Difficulties[0].CrashChance = 1 }},
		{"flat growth", func(r *Rules) { r.Difficulties[0].Growth = decimal.NewFromInt(1) }},
		{"no steps", func(r *Rules) { r.Difficulties[0].MaxSteps = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DefaultRules()
			tt.mutate(&r)
			if err := r.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
