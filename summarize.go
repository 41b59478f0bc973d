package blindspot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// FallbackSummary replaces a failed or empty summarization result.
const FallbackSummary = "summary unavailable"

// Summarizer produces a short title and a longer summary for a
// cluster of articles covering the same story.
type Summarizer interface {
	Summarize(ctx context.Context, articles []Article) (title, summary string, err error)
}

// SummarizeCluster calls the summarizer and applies the fallback
// policy: on failure or an empty result, the title is synthesized from
// the first article's title keywords and the summary becomes
// FallbackSummary. The run never aborts on summarizer errors.
func SummarizeCluster(ctx context.Context, s Summarizer, articles []Article, logger *slog.Logger) (string, string) {
	if logger == nil {
		logger = slog.Default()
	}
	title, summary, err := s.Summarize(ctx, articles)
	if err != nil {
		logger.Warn("cluster summarization failed, using fallback", "error", err)
		return FallbackTitle(articles), FallbackSummary
	}
	if strings.TrimSpace(title) == "" {
		title = FallbackTitle(articles)
	}
	if strings.TrimSpace(summary) == "" {
		summary = FallbackSummary
	}
	return title, summary
}

// headline boilerplate that carries no story information.
var titleStopwords = map[string]bool{
	"news": true, "breaking": true, "exclusive": true, "report": true,
	"update": true, "live": true, "video": true, "watch": true,
	"opinion": true, "analysis": true,
}

// FallbackTitle extracts up to three keywords from the first article's
// title and joins them into a stand-in headline, truncated to 25
// runes.
func FallbackTitle(articles []Article) string {
	if len(articles) == 0 {
		return "new issue"
	}
	original := articles[0].Title

	var keywords []string
	for _, word := range strings.Fields(original) {
		if len([]rune(word)) < 2 || titleStopwords[strings.ToLower(word)] {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == 3 {
			break
		}
	}

	title := strings.Join(keywords, " ")
	if title == "" {
		title = original
	}
	runes := []rune(title)
	if len(runes) > 25 {
		title = string(runes[:22]) + "..."
	}
	if title == "" {
		title = "new issue"
	}
	return title
}

// issueBrief is the structured summarizer response.
type issueBrief struct {
	Title   string `json:"title" jsonschema:"description=Short headline capturing the shared story"`
	Summary string `json:"summary" jsonschema:"description=Detailed multi-paragraph summary with background and main points"`
}

// SummarizerOptions tune the OpenAI summarizer.
type SummarizerOptions struct {
	Model        string // chat model; gpt-4o-mini when empty
	MaxArticles  int    // articles sampled per cluster; 12 when zero
	ContentRunes int    // content runes included per article; 1000 when zero
	Seed         int64  // sampling seed; 42 when zero, for reproducible summaries
}

// OpenAISummarizer merges a cluster's articles into one title and
// summary through a chat completion with a structured output schema.
type OpenAISummarizer struct {
	client openai.Client
	opts   SummarizerOptions
}

// NewOpenAISummarizer builds the production summarizer.
func NewOpenAISummarizer(apiKey string, opts SummarizerOptions) *OpenAISummarizer {
	if opts.Model == "" {
		opts.Model = string(openai.ChatModelGPT4oMini)
	}
	if opts.MaxArticles <= 0 {
		opts.MaxArticles = 12
	}
	if opts.ContentRunes <= 0 {
		opts.ContentRunes = 1000
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	return &OpenAISummarizer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		opts:   opts,
	}
}

const summarizerSystemPrompt = `You merge news articles that cover the same story into one issue brief.
Write a short, concrete headline and a summary of several paragraphs that a first-time reader can follow:
what happened, the background, and the main points of contention. Use plain sentences.`

// Summarize samples the cluster deterministically, sends the sampled
// titles and content excerpts in one request and decodes the
// structured response.
func (s *OpenAISummarizer) Summarize(ctx context.Context, articles []Article) (string, string, error) {
	sampled := sampleArticles(articles, s.opts.MaxArticles, s.opts.Seed)

	var b strings.Builder
	for _, a := range sampled {
		content := []rune(a.Content)
		if len(content) > s.opts.ContentRunes {
			content = content[:s.opts.ContentRunes]
		}
		fmt.Fprintf(&b, "[title] %s\n[content] %s\n\n", a.Title, string(content))
	}

	schema, err := reflectSchema(&issueBrief{})
	if err != nil {
		return "", "", err
	}

	chatCompletion, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summarizerSystemPrompt),
			openai.UserMessage("Summarize the issue covered by these articles:\n\n" + b.String()),
		},
		Model:       openai.ChatModel(s.opts.Model),
		MaxTokens:   openai.Int(1000),
		Temperature: openai.Float(0.4),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "issue_brief",
					Description: openai.String("Title and summary for a cluster of related news articles"),
					Schema:      schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("summarization request: %w", err)
	}
	if len(chatCompletion.Choices) == 0 || chatCompletion.Choices[0].Message.Content == "" {
		return "", "", fmt.Errorf("empty summarization response")
	}

	var brief issueBrief
	if err := json.Unmarshal([]byte(chatCompletion.Choices[0].Message.Content), &brief); err != nil {
		return "", "", fmt.Errorf("parse summarization response: %w", err)
	}
	return brief.Title, brief.Summary, nil
}

// reflectSchema turns a response struct into a JSON schema map for
// structured outputs.
func reflectSchema(v any) (any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaObj := reflector.Reflect(v)
	if schemaObj.Type == "" {
		schemaObj.Type = "object"
	}
	schemaBytes, err := json.Marshal(schemaObj)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var schema any
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	return schema, nil
}

// sampleArticles picks up to max articles with a seeded permutation,
// keeping the picks in their original order. The fixed seed keeps
// summarizer input reproducible across runs over the same cluster.
func sampleArticles(articles []Article, max int, seed int64) []Article {
	if len(articles) <= max {
		out := make([]Article, len(articles))
		copy(out, articles)
		return out
	}
	r := rand.New(rand.NewSource(seed))
	picks := r.Perm(len(articles))[:max]
	sort.Ints(picks)
	out := make([]Article, 0, max)
	for _, idx := range picks {
		out = append(out, articles[idx])
	}
	return out
}
