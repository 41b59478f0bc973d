package blindspot

import (
	"strings"
	"testing"
)

func TestOutletDirectoryBias(t *testing.T) {
	outlets := OutletDirectory{
		"1": {ID: "1", Bias: BiasLeft},
		"2": {ID: "2", Bias: "far-out"},
	}
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"known", "1", BiasLeft},
		{"malformed label", "2", BiasUnknown},
		{"missing outlet", "99", BiasUnknown},
		{"empty id", "", BiasUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outlets.Bias(tt.id); got != tt.want {
				t.Errorf("Bias(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestEmbeddingText(t *testing.T) {
	a := Article{Title: "Title", Content: "Content body"}
	if got := EmbeddingText(a, 100); got != "Title\nContent body" {
		t.Errorf("EmbeddingText = %q", got)
	}

	long := Article{Title: "T", Content: strings.Repeat("x", 5000)}
	got := EmbeddingText(long, 0)
	if len([]rune(got)) != DefaultTextRunes {
		t.Errorf("truncated to %d runes, want %d", len([]rune(got)), DefaultTextRunes)
	}

	if got := EmbeddingText(a, 3); got != "Tit" {
		t.Errorf("EmbeddingText with cap 3 = %q", got)
	}
}
