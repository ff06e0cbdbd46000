package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yangwenmai/blockpress/internal/model"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ ArticleReader     = (*Store)(nil)
	_ ArticleWriter     = (*Store)(nil)
	_ ArticleRepository = (*Store)(nil)
)

// Store persists dynamic articles in SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initialises the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: articles table
		s.migrateV2, // v1 → v2: description and category columns
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Store) migrateV1() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS articles (
		id            TEXT PRIMARY KEY,
		title         TEXT NOT NULL,
		blocks        TEXT NOT NULL,
		author_id     TEXT NOT NULL,
		author_name   TEXT NOT NULL,
		author_avatar TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		visibility    TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		published_at  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_articles_feed ON articles(status, visibility, published_at DESC);
	CREATE INDEX IF NOT EXISTS idx_articles_author ON articles(author_id, updated_at DESC);
	`)
	return err
}

func (s *Store) migrateV2() error {
	if _, err := s.db.Exec(`ALTER TABLE articles ADD COLUMN description TEXT NOT NULL DEFAULT ''`); err != nil {
		return err
	}
	_, err := s.db.Exec(`ALTER TABLE articles ADD COLUMN category TEXT NOT NULL DEFAULT ''`)
	return err
}

const articleColumns = `id, title, description, category, blocks, author_id, author_name, author_avatar, status, visibility, created_at, updated_at, published_at`

// ---------------------------------------------------------------------------
// Articles
// ---------------------------------------------------------------------------

// SaveArticle inserts or replaces an article. Static seed articles saved here
// become dynamic. Local draft ids are rejected; the caller assigns a real id
// first.
func (s *Store) SaveArticle(ctx context.Context, a model.Article) error {
	if model.IsLocalDraftID(a.ID) {
		return fmt.Errorf("save article: %q is a local draft id", a.ID)
	}
	a.Source = model.SourceDynamic
	if err := a.CheckInvariants(); err != nil {
		return fmt.Errorf("save article: %w", err)
	}
	blocks, err := json.Marshal(a.Blocks)
	if err != nil {
		return fmt.Errorf("encode blocks: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO articles (`+articleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			category = excluded.category,
			blocks = excluded.blocks,
			author_id = excluded.author_id,
			author_name = excluded.author_name,
			author_avatar = excluded.author_avatar,
			status = excluded.status,
			visibility = excluded.visibility,
			updated_at = excluded.updated_at,
			published_at = excluded.published_at`,
		a.ID, a.Title, a.Description, a.Category, string(blocks),
		a.Author.ID, a.Author.Name, a.Author.AvatarURL,
		string(a.Status), string(a.Visibility),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt), formatTimePtr(a.PublishedAt),
	)
	return err
}

// GetArticle returns the article with the given id in any status.
func (s *Store) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.NotFoundError{Kind: "article", ID: id}
	}
	return a, err
}

// ArticleExists reports whether an article with the given id is persisted.
func (s *Store) ArticleExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM articles WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

// ListPublished returns published, public articles, newest first.
func (s *Store) ListPublished(ctx context.Context) ([]model.Article, error) {
	return s.ListArticles(ctx, ArticleFilter{
		Status:     []model.Status{model.StatusPublished},
		Visibility: []model.Visibility{model.VisibilityPublic},
	})
}

// ListArticles returns articles matching the filter. Published articles are
// ordered by publication time, drafts by last update.
func (s *Store) ListArticles(ctx context.Context, f ArticleFilter) ([]model.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles`
	var conditions []string
	var args []interface{}

	if len(f.Status) > 0 {
		placeholders := make([]string, len(f.Status))
		for i, st := range f.Status {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if len(f.Visibility) > 0 {
		placeholders := make([]string, len(f.Visibility))
		for i, v := range f.Visibility {
			placeholders[i] = "?"
			args = append(args, string(v))
		}
		conditions = append(conditions, "visibility IN ("+strings.Join(placeholders, ",")+")")
	}
	if f.AuthorID != "" {
		conditions = append(conditions, "author_id = ?")
		args = append(args, f.AuthorID)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY COALESCE(published_at, updated_at) DESC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// DeleteArticle removes an article.
func (s *Store) DeleteArticle(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &model.NotFoundError{Kind: "article", ID: id}
	}
	return nil
}

// CountByStatus returns the number of draft and published articles.
func (s *Store) CountByStatus(ctx context.Context) (StatusCounts, error) {
	var counts StatusCounts
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM articles`, string(model.StatusDraft), string(model.StatusPublished))
	if err := row.Scan(&counts.Draft, &counts.Published); err != nil {
		return counts, err
	}
	return counts, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row scanner) (*model.Article, error) {
	var (
		a                    model.Article
		blocks               string
		status, visibility   string
		createdAt, updatedAt string
		publishedAt          sql.NullString
	)
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Category, &blocks,
		&a.Author.ID, &a.Author.Name, &a.Author.AvatarURL,
		&status, &visibility, &createdAt, &updatedAt, &publishedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(blocks), &a.Blocks); err != nil {
		return nil, fmt.Errorf("decode blocks of %s: %w", a.ID, err)
	}
	a.Status = model.Status(status)
	a.Visibility = model.Visibility(visibility)
	a.Source = model.SourceDynamic
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		t, err := parseTime(publishedAt.String)
		if err != nil {
			return nil, err
		}
		a.PublishedAt = &t
	}
	return &a, nil
}

// timeLayout is fixed-width so stored timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
