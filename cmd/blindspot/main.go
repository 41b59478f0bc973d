package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/blindspot-news/blindspot"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// .env is optional; the environment may already be set.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:           "blindspot",
		Short:         "News deduplication, clustering and bias reporting pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(runCmd(logger))
	rootCmd.AddCommand(sweepCmd(logger))
	rootCmd.AddCommand(importCmd(logger))
	rootCmd.AddCommand(seedCmd(logger))
	rootCmd.AddCommand(issuesCmd(logger))
	rootCmd.AddCommand(issueCmd(logger))
	rootCmd.AddCommand(articlesCmd(logger))

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// openStore loads config and opens the database; commands that talk to
// the OpenAI API get the config back for the API key and model names.
func openStore(logger *slog.Logger) (*blindspot.Store, blindspot.Config, error) {
	cfg, err := blindspot.LoadConfig()
	if err != nil {
		return nil, blindspot.Config{}, err
	}
	store, err := blindspot.OpenStore(cfg.DatabasePath, logger)
	if err != nil {
		return nil, blindspot.Config{}, err
	}
	return store, cfg, nil
}

func buildPipeline(ctx context.Context, store *blindspot.Store, cfg blindspot.Config, logger *slog.Logger, withSummarizer bool) (*blindspot.Pipeline, *blindspot.EmbeddingCache, error) {
	embedder := blindspot.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	cache := blindspot.NewEmbeddingCache(embedder, logger)

	persisted, err := store.LoadEmbeddings(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load embedding cache: %w", err)
	}
	cache.Seed(persisted)
	logger.Info("embedding cache loaded", "entries", cache.Len())

	var summarizer blindspot.Summarizer
	if withSummarizer {
		summarizer = blindspot.NewOpenAISummarizer(cfg.OpenAIAPIKey, blindspot.SummarizerOptions{
			Model: cfg.SummaryModel,
		})
	}

	opts := blindspot.PipelineOptions{
		SimilarityThreshold: cfg.SimilarityThreshold,
		BatchSize:           cfg.BatchSize,
		Params: blindspot.ClusterParams{
			Eps:        cfg.Eps,
			MinSamples: cfg.MinSamples,
		},
	}
	return blindspot.NewPipeline(store, cache, summarizer, store, opts, logger), cache, nil
}

func runCmd(logger *slog.Logger) *cobra.Command {
	var (
		reportPath string
		htmlPath   string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: dedupe -> embed -> cluster -> summarize -> report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, cfg, err := openStore(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			pipeline, cache, err := buildPipeline(ctx, store, cfg, logger, true)
			if err != nil {
				return err
			}

			// A run replaces the previous run's issues.
			if err := store.ClearIssues(ctx); err != nil {
				return err
			}

			issues, err := pipeline.Run(ctx)
			if err != nil {
				return err
			}
			logger.Info("pipeline complete", "issues", len(issues))

			if err := store.SaveEmbeddings(ctx, cache.Snapshot()); err != nil {
				return fmt.Errorf("persist embedding cache: %w", err)
			}

			markdown := blindspot.FormatIssueReport(issues)
			if err := os.WriteFile(reportPath, []byte(markdown), 0644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			html, err := blindspot.RenderHTMLReport(markdown)
			if err != nil {
				return err
			}
			if err := os.WriteFile(htmlPath, []byte(html), 0644); err != nil {
				return fmt.Errorf("write html report: %w", err)
			}
			logger.Info("reports written", "markdown", reportPath, "html", htmlPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&reportPath, "report", "report.md", "markdown report output path")
	cmd.Flags().StringVar(&htmlPath, "html", "report.html", "HTML report output path")
	return cmd
}

func sweepCmd(logger *slog.Logger) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sweep the clustering parameter grid and report cluster/noise counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, cfg, err := openStore(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			pipeline, cache, err := buildPipeline(ctx, store, cfg, logger, false)
			if err != nil {
				return err
			}

			results, err := pipeline.Sweep(ctx, nil, nil)
			if err != nil {
				return err
			}
			if err := store.SaveEmbeddings(ctx, cache.Snapshot()); err != nil {
				return fmt.Errorf("persist embedding cache: %w", err)
			}

			table := blindspot.FormatSweepTable(results)
			if outPath == "" {
				fmt.Print(table)
				return nil
			}
			if err := os.WriteFile(outPath, []byte(table), 0644); err != nil {
				return fmt.Errorf("write sweep table: %w", err)
			}
			logger.Info("sweep table written", "path", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write the table to a file instead of stdout")
	return cmd
}

// defaultSourceNames maps crawler source keys to outlet names for
// sources whose key is not already the outlet name.
var defaultSourceNames = map[string]string{
	"foxnews":   "Fox News",
	"cnn":       "CNN",
	"nytimes":   "The New York Times",
	"wsj":       "The Wall Street Journal",
	"reuters":   "Reuters",
	"apnews":    "Associated Press",
	"breitbart": "Breitbart",
	"msnbc":     "MSNBC",
}

func importCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir-or-file>",
		Short: "Import crawler JSON dumps into the article database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, _, err := openStore(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			paths, err := crawlFiles(args[0])
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no JSON files found at %s", args[0])
			}

			for _, path := range paths {
				records, err := readCrawlFile(path)
				if err != nil {
					logger.Warn("skipping unreadable crawl file", "path", path, "error", err)
					continue
				}
				stats, err := store.ImportCrawled(ctx, records, defaultSourceNames)
				if err != nil {
					return fmt.Errorf("import %s: %w", path, err)
				}
				logger.Info("crawl file imported", "path", path,
					"total", stats.Total, "inserted", stats.Inserted, "skipped", stats.Skipped)
			}
			return nil
		},
	}
}

func crawlFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(path, entry.Name()))
	}
	return paths, nil
}

func readCrawlFile(path string) ([]blindspot.CrawledArticle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []blindspot.CrawledArticle
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

func seedCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <outlets.yaml>",
		Short: "Seed the media outlet table from a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			outlets, err := blindspot.LoadOutletSeed(args[0])
			if err != nil {
				return err
			}
			if err := store.SeedOutlets(cmd.Context(), outlets); err != nil {
				return err
			}
			logger.Info("outlets seeded", "count", len(outlets))
			return nil
		},
	}
}

func issuesCmd(logger *slog.Logger) *cobra.Command {
	var (
		category string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "List persisted issues, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			issues, err := store.ListIssues(cmd.Context(), category, limit)
			if err != nil {
				return err
			}
			for _, issue := range issues {
				gauge := issue.Counts().Gauge()
				fmt.Printf("%s  [%s]  %s\n", issue.ID, issue.Category, issue.Title)
				fmt.Printf("    %d articles  %s  L %.1f%% / C %.1f%% / R %.1f%%\n",
					issue.ArticleCount, gauge.VisualBar,
					gauge.LeftPercent, gauge.CenterPercent, gauge.RightPercent)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only issues in this category")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of issues")
	return cmd
}

func issueCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "issue <id>",
		Short: "Show one issue in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			issue, err := store.GetIssue(cmd.Context(), args[0])
			if errors.Is(err, blindspot.ErrIssueNotFound) {
				return fmt.Errorf("issue %s not found", args[0])
			}
			if err != nil {
				return err
			}

			gauge := issue.Counts().Gauge()
			fmt.Printf("%s  [%s]\n\n", issue.Title, issue.Category)
			fmt.Println(issue.Summary)
			fmt.Printf("\n%s\n", gauge.VisualBar)
			fmt.Printf("left: %d (%.1f%%) | center: %d (%.1f%%) | right: %d (%.1f%%)\n",
				gauge.Left, gauge.LeftPercent,
				gauge.Center, gauge.CenterPercent,
				gauge.Right, gauge.RightPercent)
			fmt.Printf("\n%d articles: %s\n", issue.ArticleCount, strings.Join(issue.ArticleIDs, ", "))
			return nil
		},
	}
}

func articlesCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "articles <issue-id>",
		Short: "List an issue's articles with reconstructed bias labels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			infos, err := store.IssueArticles(cmd.Context(), args[0])
			if errors.Is(err, blindspot.ErrIssueNotFound) {
				return fmt.Errorf("issue %s not found", args[0])
			}
			if err != nil {
				return err
			}
			for _, info := range infos {
				fmt.Printf("%s  [%s]  %s\n    %s  %s\n", info.ID, info.Bias, info.Title, info.MediaOutlet, info.URL)
			}
			return nil
		},
	}
}
