package blindspot

import (
	"context"
	"fmt"
	"log/slog"
)

// ArticleSource supplies the pipeline's input: crawled articles in
// ingestion order and the outlet reference data.
type ArticleSource interface {
	Articles(ctx context.Context) ([]Article, error)
	MediaOutlets(ctx context.Context) (OutletDirectory, error)
}

// IssueSink persists finalized issues together with their
// issue-article mappings. The sink owns deduplication against
// previously persisted issues; the pipeline does not check.
type IssueSink interface {
	SaveIssues(ctx context.Context, issues []Issue) error
}

// ClusterParams is one (eps, min_samples) pair for the cluster engine.
type ClusterParams struct {
	Eps        float64
	MinSamples int
}

// Default parameter grid swept by Pipeline.Sweep.
var (
	DefaultSweepEps        = []float64{0.3, 0.4, 0.5, 0.6, 0.7}
	DefaultSweepMinSamples = []int{2, 3, 4, 5}
)

// PipelineOptions tune one pipeline run. Zero values select the
// documented defaults.
type PipelineOptions struct {
	SimilarityThreshold float64       // near-duplicate title threshold; 0.8 when zero
	BatchSize           int           // embedding batch size; 256 when zero
	TextRunes           int           // embedded text truncation; 3000 when zero
	Params              ClusterParams // eps 0.3, min_samples 3 when zero
}

func (o *PipelineOptions) fillDefaults() {
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.TextRunes <= 0 {
		o.TextRunes = DefaultTextRunes
	}
	if o.Params.Eps <= 0 {
		o.Params.Eps = DefaultEps
	}
	if o.Params.MinSamples <= 0 {
		o.Params.MinSamples = DefaultMinSamples
	}
}

// Pipeline sequences fetch, dedup, embedding, clustering,
// summarization, bias aggregation and persistence. Each stage is
// idempotent over its inputs; only the external summarizer is
// nondeterministic. Single-threaded by design: the embedding cache and
// article slices are owned by one run.
type Pipeline struct {
	source     ArticleSource
	cache      *EmbeddingCache
	summarizer Summarizer
	sink       IssueSink
	opts       PipelineOptions
	logger     *slog.Logger
}

// NewPipeline wires a pipeline. The sink may be nil when the caller
// only wants the issues returned; logger nil falls back to
// slog.Default.
func NewPipeline(source ArticleSource, cache *EmbeddingCache, summarizer Summarizer, sink IssueSink, opts PipelineOptions, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	opts.fillDefaults()
	return &Pipeline{
		source:     source,
		cache:      cache,
		summarizer: summarizer,
		sink:       sink,
		opts:       opts,
		logger:     logger,
	}
}

// categoryGroup keeps a category's articles in ingestion order.
type categoryGroup struct {
	category string
	articles []Article
}

// groupByCategory partitions articles by category, categories ordered
// by first appearance.
func groupByCategory(articles []Article) []categoryGroup {
	index := make(map[string]int)
	var groups []categoryGroup
	for _, a := range articles {
		i, ok := index[a.Category]
		if !ok {
			i = len(groups)
			index[a.Category] = i
			groups = append(groups, categoryGroup{category: a.Category})
		}
		groups[i].articles = append(groups[i].articles, a)
	}
	return groups
}

// Run executes the full pipeline and returns the issues it produced.
// A failure inside one category is isolated: that category contributes
// zero issues and the remaining categories still run. Fetch and
// persistence failures abort the run.
func (p *Pipeline) Run(ctx context.Context) ([]Issue, error) {
	articles, err := p.source.Articles(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch articles: %w", err)
	}
	outlets, err := p.source.MediaOutlets(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch media outlets: %w", err)
	}
	p.logger.Info("articles loaded", "count", len(articles), "outlets", len(outlets))

	deduped := Deduplicator{Threshold: p.opts.SimilarityThreshold, Logger: p.logger}.Dedupe(articles)
	p.logger.Info("deduplication complete", "kept", len(deduped), "removed", len(articles)-len(deduped))

	issues := []Issue{}
	for _, group := range groupByCategory(deduped) {
		categoryIssues, err := p.processCategory(ctx, group, outlets)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			// One broken category must not block issue generation for
			// every other topic; it just yields zero clusters.
			p.logger.Error("category processing failed, recording zero clusters",
				"category", group.category, "error", err)
			continue
		}
		issues = append(issues, categoryIssues...)
	}

	if p.sink != nil {
		if err := p.sink.SaveIssues(ctx, issues); err != nil {
			return issues, fmt.Errorf("persist issues: %w", err)
		}
	}
	return issues, nil
}

// processCategory embeds, clusters, summarizes and aggregates one
// category's articles.
func (p *Pipeline) processCategory(ctx context.Context, group categoryGroup, outlets OutletDirectory) ([]Issue, error) {
	texts := make([]string, len(group.articles))
	for i, a := range group.articles {
		texts[i] = EmbeddingText(a, p.opts.TextRunes)
	}
	vectors := p.cache.Embed(ctx, texts, p.opts.BatchSize)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	engine := ClusterEngine{Eps: p.opts.Params.Eps, MinSamples: p.opts.Params.MinSamples}
	labels := engine.Cluster(vectors)
	clusters, noise := CountLabels(labels)
	p.logger.Info("category clustered", "category", group.category,
		"clusters", clusters, "noise", noise, "articles", len(labels))

	var issues []Issue
	for cluster := 0; cluster < clusters; cluster++ {
		var members []Article
		for i, label := range labels {
			if label == cluster {
				members = append(members, group.articles[i])
			}
		}

		title, summary := SummarizeCluster(ctx, p.summarizer, members, p.logger)
		counts := AggregateBias(members, outlets)

		ids := make([]string, len(members))
		for i, a := range members {
			ids[i] = a.ID
		}
		issues = append(issues, Issue{
			Category:     group.category,
			Title:        title,
			Summary:      summary,
			ArticleCount: len(members),
			BiasLeft:     counts.Left,
			BiasCenter:   counts.Center,
			BiasRight:    counts.Right,
			ArticleIDs:   ids,
		})
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return issues, nil
}

// SweepResult records cluster and noise counts for one parameter pair
// in one category.
type SweepResult struct {
	Eps        float64 `json:"eps"`
	MinSamples int     `json:"min_samples"`
	Category   string  `json:"category"`
	Clusters   int     `json:"clusters"`
	Noise      int     `json:"noise"`
	Total      int     `json:"total"`
}

// Sweep runs the clustering stage over a grid of (eps, min_samples)
// pairs and reports cluster/noise counts per category. Embeddings are
// computed once per category and reused across the grid; no
// summarization or persistence happens. Nil lists select the default
// grid.
func (p *Pipeline) Sweep(ctx context.Context, epsList []float64, minSamplesList []int) ([]SweepResult, error) {
	if len(epsList) == 0 {
		epsList = DefaultSweepEps
	}
	if len(minSamplesList) == 0 {
		minSamplesList = DefaultSweepMinSamples
	}

	articles, err := p.source.Articles(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch articles: %w", err)
	}
	deduped := Deduplicator{Threshold: p.opts.SimilarityThreshold, Logger: p.logger}.Dedupe(articles)
	groups := groupByCategory(deduped)

	vectorsByCategory := make([][][]float64, len(groups))
	for gi, group := range groups {
		texts := make([]string, len(group.articles))
		for i, a := range group.articles {
			texts[i] = EmbeddingText(a, p.opts.TextRunes)
		}
		vectorsByCategory[gi] = p.cache.Embed(ctx, texts, p.opts.BatchSize)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	var results []SweepResult
	for _, eps := range epsList {
		for _, minSamples := range minSamplesList {
			engine := ClusterEngine{Eps: eps, MinSamples: minSamples}
			for gi, group := range groups {
				labels := engine.Cluster(vectorsByCategory[gi])
				clusters, noise := CountLabels(labels)
				results = append(results, SweepResult{
					Eps:        eps,
					MinSamples: minSamples,
					Category:   group.category,
					Clusters:   clusters,
					Noise:      noise,
					Total:      len(labels),
				})
				p.logger.Info("sweep point", "eps", eps, "min_samples", minSamples,
					"category", group.category, "clusters", clusters, "noise", noise)
			}
		}
	}
	return results, nil
}
