package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"PositiveNews/internal/domain"
	"PositiveNews/internal/ports"
)

// SQLiteRepository persists articles, sources, keywords and durable
// settings into a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.ArticleStore = (*SQLiteRepository)(nil)

// Open creates (or opens) the database at path and bootstraps the
// schema.
func Open(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path+"?_journal=WAL&_timeout=5000&_fk=true")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	original_url TEXT NOT NULL UNIQUE,
	source_name TEXT,
	published_at INTEGER,
	created_at INTEGER NOT NULL,
	score REAL DEFAULT 5.0,
	image_url TEXT,
	image_alt TEXT,
	image_credit TEXT,
	image_credit_url TEXT,
	published BOOLEAN NOT NULL DEFAULT 0,
	language TEXT DEFAULT 'en',
	category TEXT DEFAULT 'other',
	status TEXT NOT NULL DEFAULT 'hot'
);
CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);

CREATE TABLE IF NOT EXISTS keywords (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	word TEXT NOT NULL UNIQUE,
	weight REAL NOT NULL DEFAULT 1.0,
	keyword_type TEXT NOT NULL DEFAULT 'positive'
);

CREATE TABLE IF NOT EXISTS news_sources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	url TEXT NOT NULL UNIQUE,
	language TEXT DEFAULT 'en',
	enabled BOOLEAN NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT
);
`

// Close releases the underlying connection pool.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Seed inserts default sources missing from the table and, only when
// the keyword table is empty, the default ledger. Safe to call on
// every start.
func (r *SQLiteRepository) Seed(ctx context.Context, sources []domain.Source, keywords []domain.Keyword) error {
	for _, src := range sources {
		query, args, err := sq.Insert("news_sources").
			Columns("name", "url", "language", "enabled").
			Values(src.Name, src.URL, src.Language, true).
			Suffix("ON CONFLICT(url) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("build source insert: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("seed source %s: %w", src.Name, err)
		}
	}

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM keywords`).Scan(&count); err != nil {
		return fmt.Errorf("count keywords: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, kw := range keywords {
		query, args, err := sq.Insert("keywords").
			Columns("word", "weight", "keyword_type").
			Values(kw.Word, kw.Weight, string(kw.Type)).
			Suffix("ON CONFLICT(word) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("build keyword insert: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("seed keyword %s: %w", kw.Word, err)
		}
	}
	return nil
}

// ExistingURLs returns every original URL ever published, used to keep
// re-runs idempotent.
func (r *SQLiteRepository) ExistingURLs(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT original_url FROM articles`)
	if err != nil {
		return nil, fmt.Errorf("query urls: %w", err)
	}
	defer rows.Close()

	urls := map[string]bool{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		urls[u] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return urls, nil
}

// PublishBatch clears the newest-batch flag on all rows and inserts
// the given articles with the flag set, in one transaction. Either the
// whole batch lands or nothing changes.
func (r *SQLiteRepository) PublishBatch(ctx context.Context, articles []domain.Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE articles SET published = 0 WHERE published = 1`); err != nil {
		return fmt.Errorf("clear published flag: %w", err)
	}

	for _, a := range articles {
		createdAt := a.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		query, args, err := sq.Insert("articles").
			Columns("title", "content", "original_url", "source_name", "published_at", "created_at",
				"score", "image_url", "image_alt", "image_credit", "image_credit_url",
				"published", "language", "category", "status").
			Values(a.Title, a.Content, a.OriginalURL, a.SourceName, a.PublishedAt.Unix(), createdAt.Unix(),
				a.Score, a.Image.URL, a.Image.Alt, a.Image.Photographer, a.Image.PhotographerURL,
				true, a.Language, a.Category, string(domain.StatusHot)).
			ToSql()
		if err != nil {
			return fmt.Errorf("build article insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert article %s: %w", a.OriginalURL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// EnabledSources lists the feed endpoints the coordinator should pull.
func (r *SQLiteRepository) EnabledSources(ctx context.Context) ([]domain.Source, error) {
	query, args, err := sq.Select("id", "name", "url", "language", "enabled").
		From("news_sources").
		Where(sq.Eq{"enabled": true}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build source query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var s domain.Source
		if err := rows.Scan(&s.ID, &s.Name, &s.URL, &s.Language, &s.Enabled); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// Keywords loads the full pre-scoring ledger.
func (r *SQLiteRepository) Keywords(ctx context.Context) ([]domain.Keyword, error) {
	query, args, err := sq.Select("id", "word", "weight", "keyword_type").
		From("keywords").
		OrderBy("keyword_type", "word").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build keyword query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rows.Close()

	var keywords []domain.Keyword
	for rows.Next() {
		var kw domain.Keyword
		var kind string
		if err := rows.Scan(&kw.ID, &kw.Word, &kw.Weight, &kind); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		kw.Type = domain.KeywordType(kind)
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

// Setting reads one durable setting, falling back when absent.
func (r *SQLiteRepository) Setting(ctx context.Context, key, fallback string) string {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return fallback
	}
	return value
}

// SaveSetting upserts one durable setting.
func (r *SQLiteRepository) SaveSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

// AdvanceStatuses runs the periodic lifecycle maintenance. Hot rows
// whose newest-batch flag has been cleared move to categorized; rows
// outside the newest batch older than archiveAfter move to archived.
// Age is measured from created_at.
func (r *SQLiteRepository) AdvanceStatuses(ctx context.Context, now time.Time, archiveAfter time.Duration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE articles SET status = ? WHERE status = ? AND published = 0`,
		string(domain.StatusCategorized), string(domain.StatusHot)); err != nil {
		return fmt.Errorf("promote to categorized: %w", err)
	}

	cutoff := now.Add(-archiveAfter).Unix()
	if _, err := tx.ExecContext(ctx,
		`UPDATE articles SET status = ? WHERE status = ? AND published = 0 AND created_at < ?`,
		string(domain.StatusArchived), string(domain.StatusCategorized), cutoff); err != nil {
		return fmt.Errorf("promote to archived: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit maintenance: %w", err)
	}
	return nil
}

// HotArticles returns the newest published batch, best first. Consumed
// by the presentation layer.
func (r *SQLiteRepository) HotArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	return r.queryArticles(ctx, sq.Eq{"published": true, "status": string(domain.StatusHot)}, "score DESC", limit)
}

// ArticlesByCategory returns categorized articles of one category,
// newest first.
func (r *SQLiteRepository) ArticlesByCategory(ctx context.Context, category string, limit int) ([]domain.Article, error) {
	return r.queryArticles(ctx, sq.Eq{"category": category, "status": string(domain.StatusCategorized)}, "created_at DESC", limit)
}

// ArchivedArticles returns the archive, newest first.
func (r *SQLiteRepository) ArchivedArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	return r.queryArticles(ctx, sq.Eq{"status": string(domain.StatusArchived)}, "created_at DESC", limit)
}

// Counts reports totals for the admin dashboard.
func (r *SQLiteRepository) Counts(ctx context.Context) (total, flagged int, err error) {
	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&total); err != nil {
		return 0, 0, fmt.Errorf("count articles: %w", err)
	}
	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles WHERE published = 1`).Scan(&flagged); err != nil {
		return 0, 0, fmt.Errorf("count flagged: %w", err)
	}
	return total, flagged, nil
}

func (r *SQLiteRepository) queryArticles(ctx context.Context, where sq.Eq, order string, limit int) ([]domain.Article, error) {
	query, args, err := sq.Select("id", "title", "content", "original_url", "source_name",
		"published_at", "created_at", "score", "image_url", "image_alt", "image_credit",
		"image_credit_url", "published", "language", "category", "status").
		From("articles").
		Where(where).
		OrderBy(order).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build article query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var (
			a                      domain.Article
			publishedAt, createdAt int64
			status                 string
		)
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.OriginalURL, &a.SourceName,
			&publishedAt, &createdAt, &a.Score, &a.Image.URL, &a.Image.Alt, &a.Image.Photographer,
			&a.Image.PhotographerURL, &a.Published, &a.Language, &a.Category, &status); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.PublishedAt = time.Unix(publishedAt, 0).UTC()
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		a.Status = domain.Status(status)
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
