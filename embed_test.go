package blindspot

import (
	"context"
	"errors"
	"testing"
)

// fakeProvider returns a deterministic vector per text, or fails every
// call when fail is set. calls counts provider round trips; embedded
// counts texts actually sent.
type fakeProvider struct {
	fail     bool
	calls    int
	embedded int
}

func (p *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	p.calls++
	if p.fail {
		return nil, errors.New("upstream unavailable")
	}
	p.embedded += len(texts)
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, EmbeddingDim)
		vec[0] = float64(len(text))
		vec[1] = 1
		out[i] = vec
	}
	return out, nil
}

func TestEmbedFailureFallsBackToZeroVectors(t *testing.T) {
	provider := &fakeProvider{fail: true}
	cache := NewEmbeddingCache(provider, nil)

	texts := []string{"one", "two", "three", "four", "five"}
	vectors := cache.Embed(context.Background(), texts, DefaultBatchSize)
	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(texts))
	}
	for i, vec := range vectors {
		if len(vec) != EmbeddingDim {
			t.Fatalf("vector %d has %d dims, want %d", i, len(vec), EmbeddingDim)
		}
		for _, v := range vec {
			if v != 0 {
				t.Fatalf("vector %d is not a zero vector", i)
			}
		}
	}
	if cache.Len() != 0 {
		t.Errorf("zero-vector fallbacks were cached: %d entries", cache.Len())
	}
}

func TestEmbedCacheHitsSkipProvider(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewEmbeddingCache(provider, nil)
	ctx := context.Background()

	cache.Embed(ctx, []string{"alpha", "beta"}, DefaultBatchSize)
	if provider.embedded != 2 {
		t.Fatalf("first pass embedded %d texts, want 2", provider.embedded)
	}

	cache.Embed(ctx, []string{"alpha", "beta"}, DefaultBatchSize)
	if provider.embedded != 2 {
		t.Errorf("cached texts were re-embedded: %d total", provider.embedded)
	}

	cache.Embed(ctx, []string{"alpha", "gamma"}, DefaultBatchSize)
	if provider.embedded != 3 {
		t.Errorf("only the uncached text should be sent, embedded %d total", provider.embedded)
	}
}

func TestEmbedPreservesOrder(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewEmbeddingCache(provider, nil)

	texts := []string{"a", "bb", "ccc", "dddd"}
	vectors := cache.Embed(context.Background(), texts, 2)
	for i, text := range texts {
		if vectors[i][0] != float64(len(text)) {
			t.Errorf("position %d: vector does not match text %q", i, text)
		}
	}
}

func TestEmbedBatching(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewEmbeddingCache(provider, nil)

	texts := []string{"a", "b", "c", "d", "e"}
	cache.Embed(context.Background(), texts, 2)
	if provider.calls != 3 {
		t.Errorf("5 texts at batch size 2 made %d calls, want 3", provider.calls)
	}
}

func TestEmbedSeedAndSnapshot(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewEmbeddingCache(provider, nil)

	seeded := make([]float64, EmbeddingDim)
	seeded[5] = 42
	cache.Seed(map[string][]float64{"known": seeded})

	vectors := cache.Embed(context.Background(), []string{"known"}, DefaultBatchSize)
	if provider.calls != 0 {
		t.Errorf("seeded text reached the provider")
	}
	if vectors[0][5] != 42 {
		t.Errorf("seeded vector not served from cache")
	}

	snap := cache.Snapshot()
	if len(snap) != 1 || snap["known"][5] != 42 {
		t.Fatalf("snapshot = %d entries, want the seeded vector", len(snap))
	}
	delete(snap, "known")
	if cache.Len() != 1 {
		t.Errorf("mutating the snapshot map changed the cache")
	}
}
