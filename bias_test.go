package blindspot

import (
	"math"
	"strings"
	"testing"
)

func testOutlets() OutletDirectory {
	return OutletDirectory{
		"1": {ID: "1", Name: "Left Post", Bias: BiasLeft},
		"2": {ID: "2", Name: "Center Wire", Bias: BiasCenter},
		"3": {ID: "3", Name: "Right Herald", Bias: BiasRight},
		"4": {ID: "4", Name: "Mystery Blog", Bias: "fringe"},
	}
}

func TestAggregateBias(t *testing.T) {
	outlets := testOutlets()
	articles := []Article{
		{ID: "a", MediaOutletID: "1"},
		{ID: "b", MediaOutletID: "1"},
		{ID: "c", MediaOutletID: "1"},
		{ID: "d", MediaOutletID: "3"},
	}
	counts := AggregateBias(articles, outlets)
	if counts != (BiasCounts{Left: 3, Center: 0, Right: 1}) {
		t.Fatalf("counts = %+v, want {3 0 1}", counts)
	}

	left, center, right := counts.Percentages()
	if RoundPercent(left) != 75.0 || RoundPercent(center) != 0.0 || RoundPercent(right) != 25.0 {
		t.Errorf("percentages = %.1f/%.1f/%.1f, want 75.0/0.0/25.0", left, center, right)
	}
}

func TestAggregateBiasExcludesUnknown(t *testing.T) {
	outlets := testOutlets()
	articles := []Article{
		{ID: "a", MediaOutletID: "1"},
		{ID: "b", MediaOutletID: "4"},  // unrecognized bias label
		{ID: "c", MediaOutletID: "99"}, // no such outlet
		{ID: "d"},                      // no outlet at all
	}
	counts := AggregateBias(articles, outlets)
	if counts.Total() != 1 || counts.Left != 1 {
		t.Errorf("counts = %+v, want only the left article counted", counts)
	}
}

func TestPercentagesSumToHundred(t *testing.T) {
	tests := []BiasCounts{
		{Left: 1, Center: 1, Right: 1},
		{Left: 2, Center: 0, Right: 5},
		{Left: 0, Center: 3, Right: 0},
	}
	for _, c := range tests {
		l, m, r := c.Percentages()
		if math.Abs(l+m+r-100) > 1e-9 {
			t.Errorf("%+v: percentages sum to %v, want 100", c, l+m+r)
		}
	}
}

func TestPercentagesAllZero(t *testing.T) {
	l, m, r := BiasCounts{}.Percentages()
	if l != 0 || m != 0 || r != 0 {
		t.Errorf("empty counts produced %v/%v/%v, want zeros", l, m, r)
	}
	if bar := (BiasCounts{}).VisualBar(); bar != "" {
		t.Errorf("empty counts produced bar %q, want empty", bar)
	}
}

func TestVisualBarQuantization(t *testing.T) {
	// 75% left and 25% right: 15 left glyphs, 5 right glyphs.
	bar := BiasCounts{Left: 3, Right: 1}.VisualBar()
	want := strings.Repeat(gaugeLeftGlyph, 15) + strings.Repeat(gaugeRightGlyph, 5)
	if bar != want {
		t.Errorf("bar = %q, want %q", bar, want)
	}

	// 1/3 each: 33.3% truncates to 6 glyphs per side, not 7.
	bar = BiasCounts{Left: 1, Center: 1, Right: 1}.VisualBar()
	want = strings.Repeat(gaugeLeftGlyph, 6) + strings.Repeat(gaugeCenterGlyph, 6) + strings.Repeat(gaugeRightGlyph, 6)
	if bar != want {
		t.Errorf("bar = %q, want %q", bar, want)
	}
}

func TestRoundPercentHalfToEven(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{33.333333, 33.3},
		{66.666666, 66.7},
		{0.25, 0.2},
		{0.75, 0.8},
		{100, 100},
	}
	for _, tt := range tests {
		if got := RoundPercent(tt.in); got != tt.want {
			t.Errorf("RoundPercent(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDistributeBias(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	got := DistributeBias(BiasCounts{Left: 2, Center: 1, Right: 1}, ids)
	want := map[string]string{"a": BiasLeft, "b": BiasLeft, "c": BiasCenter, "d": BiasRight}
	for id, label := range want {
		if got[id] != label {
			t.Errorf("article %s: got %s, want %s", id, got[id], label)
		}
	}
}

func TestDistributeBiasMismatch(t *testing.T) {
	ids := []string{"a", "b", "c"}
	got := DistributeBias(BiasCounts{Left: 1}, ids)
	for _, id := range ids {
		if got[id] != BiasUnknown {
			t.Errorf("article %s: got %s, want unknown on count mismatch", id, got[id])
		}
	}
}
