package games

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MJE43/casino-engine/internal/engine"
)

// Difficulty configures one crash tier. Each step survives with
// probability 1-CrashChance and multiplies the payout by Growth.
type Difficulty struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CrashChance float64         `json:"crash_chance"`
	Growth      decimal.Decimal `json:"growth"`
	MaxSteps    int             `json:"max_steps"`
}

var defaultDifficulties = []Difficulty{
	{
		Name:        "Easy",
		Description: "Lower risk, steady rewards.",
		CrashChance: 0.05,
		Growth:      decimal.RequireFromString("1.1"),
		MaxSteps:    50,
	},
	{
		Name:        "Medium",
		Description: "Balanced risk and reward.",
		CrashChance: 0.07,
		Growth:      decimal.RequireFromString("1.15"),
		MaxSteps:    35,
	},
	{
		Name:        "Hard",
		Description: "Higher risk, bigger potential rewards.",
		CrashChance: 0.3,
		Growth:      decimal.RequireFromString("1.2"),
		MaxSteps:    25,
	},
	{
		Name:        "Hardcore",
		Description: "Extreme risk, massive potential rewards.",
		CrashChance: 0.7,
		Growth:      decimal.RequireFromString("1.3"),
		MaxSteps:    15,
	},
}

// SampleCrashStep draws the hidden step a crash round fails on, by
// inverting the geometric CDF: floor(ln(1-U) / ln(1-p)), clamped to
// [1, MaxSteps].
func SampleCrashStep(src engine.Source, d Difficulty) int {
	u := engine.OpenFloat(src)
	steps := math.Floor(math.Log(1-u) / math.Log(1-d.CrashChance))
	if math.IsNaN(steps) || steps < 1 {
		return 1
	}
	if steps > float64(d.MaxSteps) {
		return d.MaxSteps
	}
	return int(steps)
}

// Multiplier returns Growth^step exactly.
func (d Difficulty) Multiplier(step int) decimal.Decimal {
	m := decimal.NewFromInt(1)
	for i := 0; i < step; i++ {
		m = m.Mul(d.Growth)
	}
	return m
}

// Winnings returns floor(bet * multiplier).
func Winnings(bet int, multiplier decimal.Decimal) int {
	return int(decimal.NewFromInt(int64(bet)).Mul(multiplier).Floor().IntPart())
}

// FindDifficulty looks a tier up by name, ignoring case.
func FindDifficulty(table []Difficulty, name string) (Difficulty, bool) {
	for _, d := range table {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return Difficulty{}, false
}
