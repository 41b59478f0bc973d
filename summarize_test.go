package blindspot

import (
	"context"
	"errors"
	"testing"
)

type fakeSummarizer struct {
	title   string
	summary string
	err     error
	calls   int
}

func (s *fakeSummarizer) Summarize(ctx context.Context, articles []Article) (string, string, error) {
	s.calls++
	return s.title, s.summary, s.err
}

func TestSummarizeClusterFallbackOnError(t *testing.T) {
	articles := []Article{{Title: "Breaking Fed raises interest rates today"}}
	s := &fakeSummarizer{err: errors.New("rate limited")}

	title, summary := SummarizeCluster(context.Background(), s, articles, nil)
	if summary != FallbackSummary {
		t.Errorf("summary = %q, want fallback", summary)
	}
	if title != "Fed raises interest" {
		t.Errorf("title = %q, want keyword fallback", title)
	}
}

func TestSummarizeClusterBackfillsEmptyFields(t *testing.T) {
	articles := []Article{{Title: "Senate passes budget bill"}}

	title, summary := SummarizeCluster(context.Background(),
		&fakeSummarizer{title: "  ", summary: "A real summary."}, articles, nil)
	if title != "Senate passes budget" {
		t.Errorf("blank title not backfilled, got %q", title)
	}
	if summary != "A real summary." {
		t.Errorf("summary = %q, want the one returned", summary)
	}

	title, summary = SummarizeCluster(context.Background(),
		&fakeSummarizer{title: "A real title"}, articles, nil)
	if title != "A real title" || summary != FallbackSummary {
		t.Errorf("got %q / %q, want returned title with fallback summary", title, summary)
	}
}

func TestFallbackTitle(t *testing.T) {
	tests := []struct {
		name     string
		articles []Article
		want     string
	}{
		{"empty cluster", nil, "new issue"},
		{"stopwords skipped", []Article{{Title: "BREAKING news Fed raises rates"}}, "Fed raises rates"},
		{"short words skipped", []Article{{Title: "a in US economy grows"}}, "in US economy"},
		{"three keyword cap", []Article{{Title: "one two three four five"}}, "one two three"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FallbackTitle(tt.articles); got != tt.want {
				t.Errorf("FallbackTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFallbackTitleTruncation(t *testing.T) {
	articles := []Article{{Title: "extraordinarily consequential announcements"}}
	got := FallbackTitle(articles)
	if len([]rune(got)) > 25 {
		t.Errorf("title %q exceeds 25 runes", got)
	}
	if got != "extraordinarily conseq..." {
		t.Errorf("got %q, want truncation with ellipsis", got)
	}
}

func TestSampleArticlesDeterministic(t *testing.T) {
	articles := make([]Article, 30)
	for i := range articles {
		articles[i].ID = string(rune('a' + i))
	}

	first := sampleArticles(articles, 10, 42)
	second := sampleArticles(articles, 10, 42)
	if len(first) != 10 {
		t.Fatalf("sampled %d articles, want 10", len(first))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("sampling not deterministic: %v vs %v", first, second)
		}
	}

	// Picks stay in original order.
	for i := 1; i < len(first); i++ {
		if first[i].ID <= first[i-1].ID {
			t.Errorf("sample out of original order at %d: %v", i, first)
		}
	}
}

func TestSampleArticlesSmallCluster(t *testing.T) {
	articles := []Article{{ID: "1"}, {ID: "2"}}
	got := sampleArticles(articles, 12, 42)
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
		t.Errorf("small cluster should pass through unchanged, got %v", got)
	}
}
