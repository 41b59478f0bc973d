package blindspot

import (
	"math"
	"strings"
)

// Gauge glyphs, one per full 5% of the corresponding side.
const (
	gaugeLeftGlyph   = "🟥"
	gaugeCenterGlyph = "⬜"
	gaugeRightGlyph  = "🟦"
)

// BiasCounts is the left/center/right distribution of a cluster's
// source outlets. Articles whose outlet bias is unknown are counted in
// no bucket.
type BiasCounts struct {
	Left   int `json:"left"`
	Center int `json:"center"`
	Right  int `json:"right"`
}

// Total is the number of classified articles.
func (c BiasCounts) Total() int {
	return c.Left + c.Center + c.Right
}

// AggregateBias tallies the outlet bias of each article. Articles with
// an unknown outlet or a bias label outside left/center/right are
// excluded from every bucket, not mapped to one.
func AggregateBias(articles []Article, outlets OutletDirectory) BiasCounts {
	var counts BiasCounts
	for _, a := range articles {
		switch outlets.Bias(a.MediaOutletID) {
		case BiasLeft:
			counts.Left++
		case BiasCenter:
			counts.Center++
		case BiasRight:
			counts.Right++
		}
	}
	return counts
}

// Percentages returns each side's share of the classified articles,
// unrounded. All zero when no article is classified.
func (c BiasCounts) Percentages() (left, center, right float64) {
	total := c.Total()
	if total == 0 {
		return 0, 0, 0
	}
	return float64(c.Left) / float64(total) * 100,
		float64(c.Center) / float64(total) * 100,
		float64(c.Right) / float64(total) * 100
}

// RoundPercent rounds a percentage for display: one decimal place,
// half to even.
func RoundPercent(p float64) float64 {
	return math.RoundToEven(p*10) / 10
}

// VisualBar renders the distribution as a bar of colored glyphs, one
// glyph per full 5% of each side. The quantization is display-only;
// counts and percentages keep their exact values.
func (c BiasCounts) VisualBar() string {
	left, center, right := c.Percentages()
	return strings.Repeat(gaugeLeftGlyph, int(left/5)) +
		strings.Repeat(gaugeCenterGlyph, int(center/5)) +
		strings.Repeat(gaugeRightGlyph, int(right/5))
}

// BiasGauge is the display form of a bias distribution: raw counts,
// percentages rounded to one decimal and the quantized visual bar.
type BiasGauge struct {
	Left          int     `json:"left"`
	Center        int     `json:"center"`
	Right         int     `json:"right"`
	LeftPercent   float64 `json:"left_percent"`
	CenterPercent float64 `json:"center_percent"`
	RightPercent  float64 `json:"right_percent"`
	VisualBar     string  `json:"visual_bar"`
}

// Gauge builds the display gauge for a distribution.
func (c BiasCounts) Gauge() BiasGauge {
	left, center, right := c.Percentages()
	return BiasGauge{
		Left:          c.Left,
		Center:        c.Center,
		Right:         c.Right,
		LeftPercent:   RoundPercent(left),
		CenterPercent: RoundPercent(center),
		RightPercent:  RoundPercent(right),
		VisualBar:     c.VisualBar(),
	}
}

// DistributeBias reconstructs a per-article bias label for each linked
// article by handing out the aggregate counts in insertion order: the
// first Left articles get "left", the next Center get "center", the
// rest "right". This is a display heuristic, not a stored fact. If the
// counts do not cover the article list exactly, every article degrades
// to "unknown".
func DistributeBias(c BiasCounts, articleIDs []string) map[string]string {
	labels := make([]string, 0, c.Total())
	for range c.Left {
		labels = append(labels, BiasLeft)
	}
	for range c.Center {
		labels = append(labels, BiasCenter)
	}
	for range c.Right {
		labels = append(labels, BiasRight)
	}

	out := make(map[string]string, len(articleIDs))
	if len(labels) != len(articleIDs) {
		for _, id := range articleIDs {
			out[id] = BiasUnknown
		}
		return out
	}
	for idx, id := range articleIDs {
		out[id] = labels[idx]
	}
	return out
}
