package blindspot

import (
	"math"
	"testing"
)

func TestTitleSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{"identical", "Fed raises interest rates", "Fed raises interest rates", 1.0},
		{"disjoint", "stock market rallies", "hurricane hits coast", 0.0},
		{"both empty", "", "", 1.0},
		{"one empty", "Fed raises rates", "", 0.0},
		{"punctuation ignored", "Breaking: Fed raises rates!", "breaking fed raises rates", 1.0},
		{"case insensitive", "FED RAISES RATES", "fed raises rates", 1.0},
		{"partial overlap", "fed raises rates", "fed cuts rates", 0.5},
		{"repeated words collapse", "rates rates rates", "rates", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TitleSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("TitleSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTitleSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Fed raises rates again", "Fed raises interest rates"},
		{"white house briefing", "White House Press Briefing Today"},
		{"", "only one side"},
	}
	for _, p := range pairs {
		ab := TitleSimilarity(p[0], p[1])
		ba := TitleSimilarity(p[1], p[0])
		if ab != ba {
			t.Errorf("similarity not symmetric for %q / %q: %v vs %v", p[0], p[1], ab, ba)
		}
	}
}

func TestTitleSimilarityRange(t *testing.T) {
	pairs := [][2]string{
		{"a b c", "b c d"},
		{"one two", "three four"},
		{"same same", "same"},
	}
	for _, p := range pairs {
		got := TitleSimilarity(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("TitleSimilarity(%q, %q) = %v, out of [0, 1]", p[0], p[1], got)
		}
	}
}
