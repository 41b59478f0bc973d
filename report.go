package blindspot

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/report.html
var htmlTemplate string

//go:embed templates/styles.css
var cssStyles string

// FormatIssueReport renders issues as markdown cards: title, category,
// summary and the bias gauge with counts and rounded percentages.
func FormatIssueReport(issues []Issue) string {
	if len(issues) == 0 {
		return "# Today's Issues\n\nNo issues found.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Today's Issues\n\n*%d issues*\n\n", len(issues))
	for i, issue := range issues {
		gauge := issue.Counts().Gauge()
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, issue.Title)
		fmt.Fprintf(&b, "*%s* | %d articles\n\n", issue.Category, issue.ArticleCount)
		fmt.Fprintf(&b, "%s\n\n", issue.Summary)
		fmt.Fprintf(&b, "%s\n\n", gauge.VisualBar)
		fmt.Fprintf(&b, "left: %d (%.1f%%) | center: %d (%.1f%%) | right: %d (%.1f%%)\n\n",
			gauge.Left, gauge.LeftPercent,
			gauge.Center, gauge.CenterPercent,
			gauge.Right, gauge.RightPercent)
		b.WriteString("---\n\n")
	}
	return b.String()
}

// FormatSweepTable renders sweep results as a markdown table with
// columns padded to equal display width.
func FormatSweepTable(results []SweepResult) string {
	header := []string{"eps", "min_samples", "category", "clusters", "noise", "total"}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			strconv.FormatFloat(r.Eps, 'g', -1, 64),
			strconv.Itoa(r.MinSamples),
			r.Category,
			strconv.Itoa(r.Clusters),
			strconv.Itoa(r.Noise),
			strconv.Itoa(r.Total),
		})
	}

	widths := make([]int, len(header))
	for i, cell := range header {
		widths[i] = runewidth.StringWidth(cell)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i, cell := range cells {
			pad := widths[i] - runewidth.StringWidth(cell)
			b.WriteString(" " + cell + strings.Repeat(" ", pad) + " |")
		}
		b.WriteString("\n")
	}
	writeRow(header)
	b.WriteString("|")
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2) + "|")
	}
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

// RenderHTMLReport converts a markdown report into a standalone HTML
// page with embedded styles.
func RenderHTMLReport(markdown string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Linkify,
			extension.Strikethrough,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("parse report template: %w", err)
	}

	data := struct {
		Title string
		Date  string
		Body  template.HTML
		CSS   template.CSS
	}{
		Title: "Today's Issues",
		Date:  time.Now().Format("2 January 2006"),
		Body:  template.HTML(body.String()),
		CSS:   template.CSS(cssStyles),
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("execute report template: %w", err)
	}
	return out.String(), nil
}
