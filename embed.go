package blindspot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// EmbeddingDim is the dimensionality of article embedding vectors.
const EmbeddingDim = 1536

// DefaultBatchSize is the number of texts sent per embedding request.
const DefaultBatchSize = 256

// EmbeddingProvider turns a batch of texts into one vector per text,
// preserving input order.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// EmbeddingCache maps article text to its embedding vector, keyed by
// the exact (post-truncation) text so that identical texts are only
// embedded once. The cache lives for one pipeline run unless its
// entries are persisted and seeded back through the store.
type EmbeddingCache struct {
	provider EmbeddingProvider
	entries  map[string][]float64
	logger   *slog.Logger
}

// NewEmbeddingCache builds an empty cache around a provider. A nil
// logger falls back to slog.Default.
func NewEmbeddingCache(provider EmbeddingProvider, logger *slog.Logger) *EmbeddingCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingCache{
		provider: provider,
		entries:  make(map[string][]float64),
		logger:   logger,
	}
}

// Seed preloads cache entries, e.g. rows persisted by a previous run.
func (c *EmbeddingCache) Seed(entries map[string][]float64) {
	for text, vec := range entries {
		c.entries[text] = vec
	}
}

// Snapshot copies the current cache contents for persistence.
func (c *EmbeddingCache) Snapshot() map[string][]float64 {
	out := make(map[string][]float64, len(c.entries))
	for text, vec := range c.entries {
		out[text] = vec
	}
	return out
}

// Len reports the number of cached texts.
func (c *EmbeddingCache) Len() int { return len(c.entries) }

// Embed returns one vector per input text, in input order. Texts are
// processed in batches of batchSize; cached texts are served locally
// and the uncached remainder of each batch goes to the provider as a
// single request. If that request fails, every uncached text in the
// batch gets a zero vector of EmbeddingDim instead of failing the run;
// a zero vector has no direction, so the article becomes unclusterable
// noise. Zero-vector fallbacks are never cached.
func (c *EmbeddingCache) Embed(ctx context.Context, texts []string, batchSize int) [][]float64 {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	out := make([][]float64, len(texts))

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		var uncachedPos []int
		var uncached []string
		for k := start; k < end; k++ {
			if vec, ok := c.entries[texts[k]]; ok {
				out[k] = vec
				continue
			}
			uncachedPos = append(uncachedPos, k)
			uncached = append(uncached, texts[k])
		}
		if len(uncached) == 0 {
			continue
		}

		vectors, err := c.provider.Embed(ctx, uncached)
		if err == nil && len(vectors) != len(uncached) {
			err = fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(uncached))
		}
		if err != nil {
			c.logger.Warn("embedding batch failed, falling back to zero vectors",
				"texts", len(uncached), "error", err)
			for _, pos := range uncachedPos {
				out[pos] = make([]float64, EmbeddingDim)
			}
			continue
		}

		for k, pos := range uncachedPos {
			c.entries[uncached[k]] = vectors[k]
			out[pos] = vectors[k]
		}
	}

	return out
}

// OpenAIEmbedder is the production EmbeddingProvider, backed by the
// OpenAI embeddings API.
type OpenAIEmbedder struct {
	client openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates an embedder for the given model; an empty
// model selects text-embedding-3-small, which produces 1536-dim
// vectors.
func NewOpenAIEmbedder(apiKey, model string) *OpenAIEmbedder {
	m := openai.EmbeddingModelTextEmbedding3Small
	if model != "" {
		m = openai.EmbeddingModel(model)
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  m,
	}
}

// Embed requests embeddings for a batch of texts in one API call.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d texts", len(resp.Data), len(texts))
	}
	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}
