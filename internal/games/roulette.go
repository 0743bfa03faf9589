package games

import (
	"strconv"
	"strings"

	"github.com/MJE43/casino-engine/internal/engine"
)

// Color of a roulette pocket.
type Color string

const (
	Red   Color = "red"
	Black Color = "black"
	Green Color = "green"
)

// WheelOrder is the European single-zero pocket order, clockwise from zero.
var WheelOrder = [37]int{
	0, 32, 15, 19, 4, 21, 2, 25, 17, 34, 6, 27, 13, 36, 11, 30, 8, 23, 10, 5,
	24, 16, 33, 1, 20, 14, 31, 9, 22, 18, 29, 7, 28, 12, 35, 3, 26,
}

// The engine's red set. 17 is red and 19 black, so house results differ
// from a printed European layout on those two pockets.
var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true,
	12: true, 14: true, 16: true, 17: true, 18: true,
	21: true, 23: true, 25: true, 27: true, 30: true,
	32: true, 34: true, 36: true,
}

// WheelOutcome is one spin of the wheel. Pocket is the index into WheelOrder.
type WheelOutcome struct {
	Number int   `json:"number"`
	Color  Color `json:"color"`
	Pocket int   `json:"pocket"`
}

// NumberColor returns the pocket colour for n; 0 is green.
func NumberColor(n int) Color {
	if n == 0 {
		return Green
	}
	if redNumbers[n] {
		return Red
	}
	return Black
}

// SpinWheel picks one of the 37 pockets uniformly.
func SpinWheel(src engine.Source) WheelOutcome {
	pocket := engine.Intn(src, len(WheelOrder))
	n := WheelOrder[pocket]
	return WheelOutcome{Number: n, Color: NumberColor(n), Pocket: pocket}
}

// BetType names a roulette betting spot family.
type BetType string

const (
	BetNumber BetType = "number"
	BetRed    BetType = "red"
	BetBlack  BetType = "black"
	BetEven   BetType = "even"
	BetOdd    BetType = "odd"
	BetLow    BetType = "low"
	BetHigh   BetType = "high"
)

// BetKey builds the "type-value" key bets are accumulated under.
func BetKey(t BetType, value string) string {
	return string(t) + "-" + value
}

// NormalizeBet validates a bet and returns its canonical value. Straight
// bets need a number in [0,36]; outside bets always use the type name, so
// every red chip lands on "red-red".
func NormalizeBet(t BetType, value string) (string, bool) {
	value = strings.TrimSpace(value)
	switch t {
	case BetNumber:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 36 {
			return "", false
		}
		return strconv.Itoa(n), true
	case BetRed, BetBlack, BetEven, BetOdd, BetLow, BetHigh:
		return string(t), true
	default:
		return "", false
	}
}

// CalculatePayout sums the payout of every bet against the winning number.
// Straight numbers pay 36x the stake, even-money spots pay 2x. Zero only
// pays straight bets on 0. Unknown keys pay nothing.
func CalculatePayout(bets map[string]int, winningNumber int) int {
	color := NumberColor(winningNumber)
	total := 0
	for key, amount := range bets {
		betType, value, _ := strings.Cut(key, "-")
		switch BetType(betType) {
		case BetNumber:
			if n, err := strconv.Atoi(value); err == nil && n == winningNumber {
				total += amount * 36
			}
		case BetRed:
			if color == Red {
				total += amount * 2
			}
		case BetBlack:
			if color == Black {
				total += amount * 2
			}
		case BetEven:
			if winningNumber > 0 && winningNumber%2 == 0 {
				total += amount * 2
			}
		case BetOdd:
			if winningNumber > 0 && winningNumber%2 == 1 {
				total += amount * 2
			}
		case BetLow:
			if winningNumber >= 1 && winningNumber <= 18 {
				total += amount * 2
			}
		case BetHigh:
			if winningNumber >= 19 && winningNumber <= 36 {
				total += amount * 2
			}
		}
	}
	return total
}
