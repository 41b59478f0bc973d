package blindspot

import "time"

// Bias labels assigned to media outlets.
const (
	BiasLeft    = "left"
	BiasCenter  = "center"
	BiasRight   = "right"
	BiasUnknown = "unknown"
)

// Article is a single crawled news article. Articles are immutable
// once fetched: the URL identifies exact duplicates, (title, category)
// identifies near-duplicates. Missing content is an empty string and a
// missing media outlet ID makes the article's bias unknown.
type Article struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Category      string    `json:"category"`
	MediaOutletID string    `json:"media_outlet_id"`
	URL           string    `json:"url"`
	PublishedAt   time.Time `json:"published_at"`
}

// MediaOutlet is reference data about a news source, loaded once per
// run and read-only afterwards.
type MediaOutlet struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bias string `json:"bias"`
}

// OutletDirectory maps outlet IDs to their reference data.
type OutletDirectory map[string]MediaOutlet

// Bias returns the bias label for an outlet ID. Unknown outlets and
// labels outside left/center/right come back as BiasUnknown.
func (d OutletDirectory) Bias(outletID string) string {
	outlet, ok := d[outletID]
	if !ok {
		return BiasUnknown
	}
	switch outlet.Bias {
	case BiasLeft, BiasCenter, BiasRight:
		return outlet.Bias
	}
	return BiasUnknown
}

// Issue is the pipeline's output: one non-noise cluster of articles
// judged to cover the same story, with its bias distribution.
type Issue struct {
	ID           string    `json:"id,omitempty"`
	Category     string    `json:"category"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	ArticleCount int       `json:"article_count"`
	BiasLeft     int       `json:"bias_left"`
	BiasCenter   int       `json:"bias_center"`
	BiasRight    int       `json:"bias_right"`
	ArticleIDs   []string  `json:"article_ids"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// Counts returns the issue's bias distribution.
func (i Issue) Counts() BiasCounts {
	return BiasCounts{Left: i.BiasLeft, Center: i.BiasCenter, Right: i.BiasRight}
}

// DefaultTextRunes caps the text sent to the embedding provider.
const DefaultTextRunes = 3000

// EmbeddingText builds the text an article is embedded under: title
// and content joined, truncated to maxRunes. The truncated text is
// also the embedding cache key.
func EmbeddingText(a Article, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultTextRunes
	}
	text := a.Title + "\n" + a.Content
	runes := []rune(text)
	if len(runes) > maxRunes {
		return string(runes[:maxRunes])
	}
	return text
}
