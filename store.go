package blindspot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"
)

// ErrIssueNotFound reports a lookup for an issue ID that does not
// exist, as opposed to a query failure.
var ErrIssueNotFound = errors.New("issue not found")

const storeSchema = `
CREATE TABLE IF NOT EXISTS media_outlets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	bias TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	media_outlet_id INTEGER REFERENCES media_outlets(id),
	url TEXT NOT NULL UNIQUE,
	published_at TIMESTAMP,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);
CREATE TABLE IF NOT EXISTS issues (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category TEXT NOT NULL,
	title TEXT NOT NULL,
	summary TEXT NOT NULL,
	article_count INTEGER NOT NULL,
	bias_left INTEGER NOT NULL DEFAULT 0,
	bias_center INTEGER NOT NULL DEFAULT 0,
	bias_right INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS issue_articles (
	issue_id INTEGER NOT NULL REFERENCES issues(id),
	article_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_issue_articles_issue ON issue_articles(issue_id);
CREATE TABLE IF NOT EXISTS embeddings (
	text TEXT PRIMARY KEY,
	vector TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Store wraps the sqlite database holding outlets, articles, issues
// and persisted embedding-cache rows. It implements ArticleSource and
// IssueSink.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenStore opens (creating if needed) the database at path and
// applies the schema. Use ":memory:" for an ephemeral store.
func OpenStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Articles returns all stored articles in ingestion order, which fixes
// the deduplicator's tie-breaking across runs.
func (s *Store) Articles(ctx context.Context) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, category, media_outlet_id, url, published_at
		FROM articles
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var (
			id        int64
			a         Article
			outletID  sql.NullInt64
			published sql.NullTime
		)
		if err := rows.Scan(&id, &a.Title, &a.Content, &a.Category, &outletID, &a.URL, &published); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.ID = strconv.FormatInt(id, 10)
		if outletID.Valid {
			a.MediaOutletID = strconv.FormatInt(outletID.Int64, 10)
		}
		if published.Valid {
			a.PublishedAt = published.Time
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// MediaOutlets loads the outlet reference data.
func (s *Store) MediaOutlets(ctx context.Context) (OutletDirectory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, bias FROM media_outlets`)
	if err != nil {
		return nil, fmt.Errorf("query media outlets: %w", err)
	}
	defer rows.Close()

	outlets := make(OutletDirectory)
	for rows.Next() {
		var (
			id     int64
			outlet MediaOutlet
		)
		if err := rows.Scan(&id, &outlet.Name, &outlet.Bias); err != nil {
			return nil, fmt.Errorf("scan media outlet: %w", err)
		}
		outlet.ID = strconv.FormatInt(id, 10)
		outlets[outlet.ID] = outlet
	}
	return outlets, rows.Err()
}

// outletSeedFile is the yaml layout of an outlet seed file.
type outletSeedFile struct {
	Outlets []struct {
		Name string `yaml:"name"`
		Bias string `yaml:"bias"`
	} `yaml:"outlets"`
}

// LoadOutletSeed parses an outlets.yaml seed file.
func LoadOutletSeed(path string) ([]MediaOutlet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read outlet seed: %w", err)
	}
	var file outletSeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse outlet seed: %w", err)
	}
	outlets := make([]MediaOutlet, 0, len(file.Outlets))
	for _, o := range file.Outlets {
		outlets = append(outlets, MediaOutlet{Name: o.Name, Bias: o.Bias})
	}
	return outlets, nil
}

// SeedOutlets inserts outlets by name, leaving already-known names
// untouched. Bias labels outside left/center/right are stored as
// "unknown" rather than rejected.
func (s *Store) SeedOutlets(ctx context.Context, outlets []MediaOutlet) error {
	for _, outlet := range outlets {
		bias := outlet.Bias
		switch bias {
		case BiasLeft, BiasCenter, BiasRight:
		default:
			s.logger.Warn("outlet has unrecognized bias label, storing as unknown",
				"outlet", outlet.Name, "bias", bias)
			bias = BiasUnknown
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO media_outlets (name, bias) VALUES (?, ?)`,
			outlet.Name, bias); err != nil {
			return fmt.Errorf("seed outlet %q: %w", outlet.Name, err)
		}
	}
	return nil
}

// CrawledArticle is the shape of one record in a crawler JSON dump.
type CrawledArticle struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	Source    string `json:"source"`
	CrawledAt string `json:"crawled_at"`
}

// ImportStats summarizes one import run.
type ImportStats struct {
	Total    int
	Inserted int
	Skipped  int // already stored (same URL) or missing required fields
}

var crawledAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseCrawledAt(value string) time.Time {
	for _, layout := range crawledAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Now()
}

// ImportCrawled inserts crawler output, mapping each record's source
// key to an outlet name through sourceNames and skipping URLs that are
// already stored. Records without a title or URL are skipped; records
// whose outlet is unknown are stored without one, which makes their
// bias unknown downstream.
func (s *Store) ImportCrawled(ctx context.Context, records []CrawledArticle, sourceNames map[string]string) (ImportStats, error) {
	stats := ImportStats{Total: len(records)}

	nameToID := make(map[string]int64)
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM media_outlets`)
	if err != nil {
		return stats, fmt.Errorf("query media outlets: %w", err)
	}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return stats, fmt.Errorf("scan media outlet: %w", err)
		}
		nameToID[name] = id
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return stats, err
	}
	rows.Close()

	for _, record := range records {
		if record.Title == "" || record.URL == "" {
			s.logger.Warn("skipping crawled article with missing required fields", "url", record.URL)
			stats.Skipped++
			continue
		}

		var outletID any
		name := record.Source
		if mapped, ok := sourceNames[record.Source]; ok {
			name = mapped
		}
		if id, ok := nameToID[name]; ok {
			outletID = id
		} else {
			s.logger.Warn("crawled article has no known outlet, storing without one",
				"source", record.Source, "url", record.URL)
		}

		res, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO articles (title, content, category, media_outlet_id, url, published_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			record.Title, record.Content, record.Category, outletID, record.URL,
			parseCrawledAt(record.CrawledAt))
		if err != nil {
			return stats, fmt.Errorf("insert article %q: %w", record.URL, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return stats, fmt.Errorf("insert article %q: %w", record.URL, err)
		}
		if affected == 0 {
			stats.Skipped++
		} else {
			stats.Inserted++
		}
	}
	return stats, nil
}

// SaveIssues persists issues and their article mappings in one
// transaction. Mappings keep the issue's article order, which the
// per-article bias reconstruction depends on.
func (s *Store) SaveIssues(ctx context.Context, issues []Issue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, issue := range issues {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO issues (category, title, summary, article_count, bias_left, bias_center, bias_right)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			issue.Category, issue.Title, issue.Summary, issue.ArticleCount,
			issue.BiasLeft, issue.BiasCenter, issue.BiasRight)
		if err != nil {
			return fmt.Errorf("insert issue %q: %w", issue.Title, err)
		}
		issueID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert issue %q: %w", issue.Title, err)
		}
		for _, articleID := range issue.ArticleIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO issue_articles (issue_id, article_id) VALUES (?, ?)`,
				issueID, articleID); err != nil {
				return fmt.Errorf("insert issue article mapping: %w", err)
			}
		}
	}
	return tx.Commit()
}

// ClearIssues removes all persisted issues and their mappings, usually
// before saving a fresh run's results.
func (s *Store) ClearIssues(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM issue_articles`); err != nil {
		return fmt.Errorf("clear issue articles: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM issues`); err != nil {
		return fmt.Errorf("clear issues: %w", err)
	}
	return nil
}

// ListIssues returns persisted issues, newest first, optionally
// filtered by category. A non-positive limit defaults to 20. Article
// IDs are not loaded; use GetIssue for those.
func (s *Store) ListIssues(ctx context.Context, category string, limit int) ([]Issue, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, category, title, summary, article_count, bias_left, bias_center, bias_right, created_at
		FROM issues`
	args := []any{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	var issues []Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

func scanIssue(rows *sql.Rows) (Issue, error) {
	var (
		id      int64
		issue   Issue
		created sql.NullTime
	)
	if err := rows.Scan(&id, &issue.Category, &issue.Title, &issue.Summary,
		&issue.ArticleCount, &issue.BiasLeft, &issue.BiasCenter, &issue.BiasRight,
		&created); err != nil {
		return Issue{}, fmt.Errorf("scan issue: %w", err)
	}
	issue.ID = strconv.FormatInt(id, 10)
	if created.Valid {
		issue.CreatedAt = created.Time
	}
	return issue, nil
}

// GetIssue loads one issue with its article IDs in insertion order.
// Returns ErrIssueNotFound for an unknown ID.
func (s *Store) GetIssue(ctx context.Context, id string) (Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, title, summary, article_count, bias_left, bias_center, bias_right, created_at
		FROM issues WHERE id = ?`, id)
	if err != nil {
		return Issue{}, fmt.Errorf("query issue: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Issue{}, err
		}
		return Issue{}, ErrIssueNotFound
	}
	issue, err := scanIssue(rows)
	if err != nil {
		return Issue{}, err
	}
	rows.Close()

	idRows, err := s.db.QueryContext(ctx,
		`SELECT article_id FROM issue_articles WHERE issue_id = ? ORDER BY rowid`, id)
	if err != nil {
		return Issue{}, fmt.Errorf("query issue articles: %w", err)
	}
	defer idRows.Close()
	for idRows.Next() {
		var articleID string
		if err := idRows.Scan(&articleID); err != nil {
			return Issue{}, fmt.Errorf("scan issue article: %w", err)
		}
		issue.ArticleIDs = append(issue.ArticleIDs, articleID)
	}
	return issue, idRows.Err()
}

// ArticleInfo is the per-article view of an issue: article fields, the
// outlet name and the reconstructed bias label.
type ArticleInfo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	MediaOutlet string    `json:"media_outlet"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"published_at"`
	Bias        string    `json:"bias"`
}

// IssueArticles lists an issue's articles with bias labels
// reconstructed from the issue's aggregate counts (see
// DistributeBias). Returns ErrIssueNotFound for an unknown issue.
func (s *Store) IssueArticles(ctx context.Context, issueID string) ([]ArticleInfo, error) {
	issue, err := s.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if len(issue.ArticleIDs) == 0 {
		return nil, nil
	}
	biasByID := DistributeBias(issue.Counts(), issue.ArticleIDs)

	placeholders := strings.Repeat("?,", len(issue.ArticleIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(issue.ArticleIDs))
	for i, id := range issue.ArticleIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.title, a.url, a.category, a.published_at, COALESCE(m.name, 'Unknown')
		FROM articles a
		LEFT JOIN media_outlets m ON m.id = a.media_outlet_id
		WHERE a.id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]ArticleInfo)
	for rows.Next() {
		var (
			id        int64
			info      ArticleInfo
			published sql.NullTime
		)
		if err := rows.Scan(&id, &info.Title, &info.URL, &info.Category, &published, &info.MediaOutlet); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		info.ID = strconv.FormatInt(id, 10)
		if published.Valid {
			info.PublishedAt = published.Time
		}
		info.Bias = biasByID[info.ID]
		if info.Bias == "" {
			info.Bias = BiasUnknown
		}
		byID[info.ID] = info
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ArticleInfo, 0, len(issue.ArticleIDs))
	for _, id := range issue.ArticleIDs {
		if info, ok := byID[id]; ok {
			out = append(out, info)
		}
	}
	return out, nil
}

// LoadEmbeddings reads the persisted embedding-cache rows, keyed by
// the embedded text.
func (s *Store) LoadEmbeddings(ctx context.Context) (map[string][]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT text, vector FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	entries := make(map[string][]float64)
	for rows.Next() {
		var (
			text       string
			vectorJSON string
		)
		if err := rows.Scan(&text, &vectorJSON); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		var vector []float64
		if err := json.Unmarshal([]byte(vectorJSON), &vector); err != nil {
			return nil, fmt.Errorf("parse embedding vector: %w", err)
		}
		entries[text] = vector
	}
	return entries, rows.Err()
}

// SaveEmbeddings upserts embedding-cache rows so later runs can reuse
// them.
func (s *Store) SaveEmbeddings(ctx context.Context, entries map[string][]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for text, vector := range entries {
		vectorJSON, err := json.Marshal(vector)
		if err != nil {
			return fmt.Errorf("marshal embedding vector: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO embeddings (text, vector) VALUES (?, ?)`,
			text, string(vectorJSON)); err != nil {
			return fmt.Errorf("save embedding: %w", err)
		}
	}
	return tx.Commit()
}
