package store

import (
	"context"

	"github.com/yangwenmai/blockpress/internal/model"
)

// StatusCounts holds the number of persisted articles per status.
type StatusCounts struct {
	Draft     int `json:"draft"`
	Published int `json:"published"`
}

// ArticleFilter holds query parameters for listing persisted articles.
type ArticleFilter struct {
	Status     []model.Status
	Visibility []model.Visibility
	AuthorID   string
}

// ArticleReader provides read access to persisted articles.
type ArticleReader interface {
	GetArticle(ctx context.Context, id string) (*model.Article, error)
	ArticleExists(ctx context.Context, id string) (bool, error)
	ListArticles(ctx context.Context, f ArticleFilter) ([]model.Article, error)
	ListPublished(ctx context.Context) ([]model.Article, error)
	CountByStatus(ctx context.Context) (StatusCounts, error)
}

// ArticleWriter provides write access to persisted articles.
type ArticleWriter interface {
	SaveArticle(ctx context.Context, a model.Article) error
	DeleteArticle(ctx context.Context, id string) error
}

// ArticleRepository combines all article operations for the API layer.
type ArticleRepository interface {
	ArticleReader
	ArticleWriter
}
