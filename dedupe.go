package blindspot

import "log/slog"

// DefaultSimilarityThreshold is the title similarity at or above which
// two articles from different outlets are treated as the same story.
const DefaultSimilarityThreshold = 0.8

// Deduplicator removes exact (URL) and near-duplicate (similar title)
// articles. Input order is the ingestion order and is preserved in the
// output, which makes the keep/discard decisions reproducible.
type Deduplicator struct {
	// Threshold for near-duplicate titles; DefaultSimilarityThreshold
	// when zero.
	Threshold float64
	Logger    *slog.Logger
}

// Dedupe returns the surviving articles. The first pass drops articles
// whose URL was already seen; the second pass scans article pairs
// within each category and drops the shorter-content article of any
// cross-outlet pair whose titles score at or above the threshold.
func (d Deduplicator) Dedupe(articles []Article) []Article {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	threshold := d.Threshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	// Pass 1: exact URL duplicates, first occurrence wins. Articles
	// without a URL are never exact duplicates of each other.
	seen := make(map[string]bool, len(articles))
	kept := make([]Article, 0, len(articles))
	urlDropped := 0
	for _, a := range articles {
		if a.URL != "" {
			if seen[a.URL] {
				urlDropped++
				continue
			}
			seen[a.URL] = true
		}
		kept = append(kept, a)
	}
	if urlDropped > 0 {
		logger.Info("dropped exact URL duplicates", "count", urlDropped)
	}

	// Pass 2: near-duplicate titles, per category.
	byCategory := make(map[string][]int)
	var categories []string
	for idx, a := range kept {
		if _, ok := byCategory[a.Category]; !ok {
			categories = append(categories, a.Category)
		}
		byCategory[a.Category] = append(byCategory[a.Category], idx)
	}

	removed := make([]bool, len(kept))
	titleDropped := 0
	for _, category := range categories {
		indices := byCategory[category]
		for p := 0; p < len(indices); p++ {
			i := indices[p]
			if removed[i] {
				continue
			}
			for q := p + 1; q < len(indices); q++ {
				j := indices[q]
				if removed[j] {
					continue
				}
				// Same-outlet similarity is not duplication; the URL
				// pass already covers same-outlet duplicates. Articles
				// with no outlet ID are never treated as same-outlet.
				if kept[i].MediaOutletID != "" && kept[i].MediaOutletID == kept[j].MediaOutletID {
					continue
				}
				score := TitleSimilarity(kept[i].Title, kept[j].Title)
				if score < threshold {
					continue
				}
				// Keep the longer content. On a tie the earlier
				// article survives.
				if len(kept[j].Content) > len(kept[i].Content) {
					removed[i] = true
					titleDropped++
					logger.Info("dropped near-duplicate article",
						"category", category, "score", score,
						"dropped", kept[i].Title, "kept", kept[j].Title)
					break
				}
				removed[j] = true
				titleDropped++
				logger.Info("dropped near-duplicate article",
					"category", category, "score", score,
					"dropped", kept[j].Title, "kept", kept[i].Title)
			}
		}
	}
	if titleDropped > 0 {
		logger.Info("dropped near-duplicate articles", "count", titleDropped)
	}

	out := make([]Article, 0, len(kept))
	for idx, a := range kept {
		if !removed[idx] {
			out = append(out, a)
		}
	}
	return out
}
