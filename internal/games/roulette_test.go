package games

import (
	"testing"

	"github.com/MJE43/casino-engine/internal/engine"
)

func TestCalculatePayout(t *testing.T) {
	tests := []struct {
		name    string
		bets    map[string]int
		winning int
		want    int
	}{
		{"straight hit", map[string]int{"number-17": 5}, 17, 180},
		{"straight miss", map[string]int{"number-17": 5}, 18, 0},
		{"red on red", map[string]int{"red-red": 10}, 17, 20},
		{"black on red", map[string]int{"black-black": 10}, 17, 0},
		{"black on black", map[string]int{"black-black": 10}, 19, 20},
		{"red on black", map[string]int{"red-red": 10}, 19, 0},
		{"even", map[string]int{"even-even": 5}, 18, 10},
		{"odd", map[string]int{"odd-odd": 5}, 17, 10},
		{"low", map[string]int{"low-low": 5}, 18, 10},
		{"high", map[string]int{"high-high": 5}, 19, 10},
		{"zero beats outside bets", map[string]int{"red-red": 5, "black-black": 5, "even-even": 5, "odd-odd": 5, "low-low": 5, "high-high": 5}, 0, 0},
		{"straight zero", map[string]int{"number-0": 5}, 0, 180},
		{"combined", map[string]int{"number-17": 5, "red-red": 10, "odd-odd": 5}, 17, 180 + 20 + 10},
		{"unknown key ignored", map[string]int{"corner-1": 5}, 1, 0},
		{"empty", map[string]int{}, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculatePayout(tt.bets, tt.winning); got != tt.want {
				t.Errorf("CalculatePayout: expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestNumberColor(t *testing.T) {
	if NumberColor(0) != Green {
		t.Error("0 should be green")
	}
	reds := 0
	for n := 1; n <= 36; n++ {
		if NumberColor(n) == Red {
			reds++
		}
	}
	if reds != 18 {
		t.Errorf("expected 18 red numbers, got %d", reds)
	}
	for n, want := range map[int]Color{17: Red, 5: Red, 36: Red, 2: Black, 19: Black, 35: Black} {
		if got := NumberColor(n); got != want {
			t.Errorf("NumberColor(%d): expected %s, got %s", n, want, got)
		}
	}
}

func TestSpinWheel(t *testing.T) {
	src := engine.NewFairSource(engine.Seeds{Server: "wheel", Client: "test"}, 0)
	seen := map[int]bool{}
	for i := 0; i < 5000; i++ {
		out := SpinWheel(src)
		if out.Number < 0 || out.Number > 36 {
			t.Fatalf("number %d out of range", out.Number)
		}
		if WheelOrder[out.Pocket] != out.Number {
			t.Fatalf("pocket %d does not hold %d", out.Pocket, out.Number)
		}
		if out.Color != NumberColor(out.Number) {
			t.Fatalf("colour mismatch for %d", out.Number)
		}
		seen[out.Number] = true
	}
	if len(seen) != 37 {
		t.Errorf("expected all 37 numbers to appear, saw %d", len(seen))
	}
}

func TestWheelOrderCoversAllNumbers(t *testing.T) {
	seen := map[int]bool{}
	for _, n := range WheelOrder {
		seen[n] = true
	}
	if len(seen) != 37 {
		t.Errorf("wheel order has %d unique numbers", len(seen))
	}
}

func TestNormalizeBet(t *testing.T) {
	tests := []struct {
		betType BetType
		value   string
		want    string
		ok      bool
	}{
		{BetNumber, "17", "17", true},
		{BetNumber, " 0 ", "0", true},
		{BetNumber, "37", "", false},
		{BetNumber, "x", "", false},
		{BetRed, "red", "red", true},
		{BetRed, "", "red", true},
		{BetHigh, "whatever", "high", true},
		{BetType("split"), "1", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeBet(tt.betType, tt.value)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeBet(%s,%q) = (%q,%v), want (%q,%v)", tt.betType, tt.value, got, ok, tt.want, tt.ok)
		}
	}
	if BetKey(BetRed, "red") != "red-red" {
		t.Errorf("unexpected key %s", BetKey(BetRed, "red"))
	}
}
