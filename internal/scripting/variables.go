package scripting

import (
	"github.com/dop251/goja"

	"github.com/MJE43/casino-engine/internal/table"
)

// Variables is the script-visible state. Only NextBet, Difficulty,
// Target and StopOnWin are read back from the script; everything else is
// overwritten before each callback.
type Variables struct {
	Balance     int
	NextBet     int
	PreviousBet int
	Difficulty  string
	// Target cashes out automatically once the multiplier reaches it.
	// Zero disables it.
	Target    float64
	StopOnWin bool
	Win       bool
	Running   bool

	// Current round, refreshed before onstep().
	Step         int
	Multiplier   float64
	PotentialWin int

	// Last finished round.
	CrashStep      int
	LastMultiplier float64

	Stats   *Statistics
	LastBet map[string]interface{}
}

// NewVariables creates the initial variable set.
func NewVariables(stats *Statistics, difficulty string) *Variables {
	return &Variables{
		Balance:    stats.Balance,
		Difficulty: difficulty,
		Multiplier: 1,
		Stats:      stats,
		LastBet: map[string]interface{}{
			"amount":     0,
			"payout":     0,
			"multiplier": 0.0,
			"win":        false,
			"step":       0,
			"crashStep":  0,
			"difficulty": difficulty,
		},
	}
}

func injectConstants(vm *goja.Runtime, difficulties []string) {
	vm.Set("DIFFICULTIES", difficulties)
}

func injectVariables(vm *goja.Runtime, vars *Variables) {
	vm.Set("balance", vars.Balance)
	vm.Set("nextbet", vars.NextBet)
	vm.Set("previousbet", vars.PreviousBet)
	vm.Set("difficulty", vars.Difficulty)
	vm.Set("target", vars.Target)
	vm.Set("stoponwin", vars.StopOnWin)
	vm.Set("win", vars.Win)
	vm.Set("running", vars.Running)

	vm.Set("step", vars.Step)
	vm.Set("multiplier", vars.Multiplier)
	vm.Set("potentialwin", vars.PotentialWin)
	vm.Set("crashstep", vars.CrashStep)
	vm.Set("lastmultiplier", vars.LastMultiplier)

	vm.Set("bets", vars.Stats.Bets)
	vm.Set("wins", vars.Stats.Wins)
	vm.Set("losses", vars.Stats.Losses)
	vm.Set("winstreak", vars.Stats.WinStreak)
	vm.Set("losestreak", vars.Stats.LoseStreak)
	vm.Set("currentstreak", vars.Stats.CurrentStreak)
	vm.Set("profit", vars.Stats.Profit)
	vm.Set("currentprofit", vars.Stats.CurrentProfit)
	vm.Set("wagered", vars.Stats.Wagered)
	vm.Set("highest_bet", vars.Stats.HighestBet)
	vm.Set("highest_profit", vars.Stats.HighestProfit)
	vm.Set("lowest_profit", vars.Stats.LowestProfit)
	vm.Set("started_bal", vars.Stats.StartBal)

	vm.Set("lastBet", vars.LastBet)
}

func syncFromVM(vm *goja.Runtime, vars *Variables) {
	vars.NextBet = toInt(vm.Get("nextbet"))
	vars.Difficulty = toString(vm.Get("difficulty"))
	vars.Target = toFloat64(vm.Get("target"))
	vars.StopOnWin = toBool(vm.Get("stoponwin"))
}

// observeStep refreshes the in-round variables from a live crash view.
func (vars *Variables) observeStep(cv table.CrashView) {
	vars.Step = cv.CurrentStep
	vars.Multiplier = cv.Multiplier
	vars.PotentialWin = cv.PotentialWin
}

// observeRound records a finished crash round.
func (vars *Variables) observeRound(cv table.CrashView, balance int) {
	vars.Balance = balance
	vars.PreviousBet = cv.Bet
	vars.Win = cv.CashedOut
	vars.Step = cv.CurrentStep
	vars.Multiplier = cv.Multiplier
	vars.PotentialWin = 0
	vars.CrashStep = cv.CrashStep
	vars.LastMultiplier = cv.Multiplier
	vars.LastBet = map[string]interface{}{
		"amount":     cv.Bet,
		"payout":     cv.Winnings,
		"multiplier": cv.Multiplier,
		"win":        cv.CashedOut,
		"step":       cv.CurrentStep,
		"crashStep":  cv.CrashStep,
		"difficulty": cv.Difficulty,
	}
}

func toFloat64(v goja.Value) float64 {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0
	}
	return v.ToFloat()
}

func toInt(v goja.Value) int {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0
	}
	return int(v.ToInteger())
}

func toBool(v goja.Value) bool {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return false
	}
	return v.ToBoolean()
}

func toString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}
