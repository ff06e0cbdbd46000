package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yangwenmai/blockpress/internal/model"
)

// DynamicSource lists persisted articles that are published and public.
type DynamicSource interface {
	ListPublished(ctx context.Context) ([]model.Article, error)
}

// ArticleGetter loads a single persisted article regardless of status.
type ArticleGetter interface {
	GetArticle(ctx context.Context, id string) (*model.Article, error)
}

// Service serves the merged article list. The dynamic list is fetched with a
// timeout and cached for a short window; any fetch failure degrades to the
// seed corpus alone.
type Service struct {
	seed    []model.Article
	source  DynamicSource
	getter  ArticleGetter
	timeout time.Duration
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	cached    []model.Article
	fetchedAt time.Time
	gen       uint64 // bumped by Invalidate
}

// Options tunes the dynamic fetch.
type Options struct {
	Timeout  time.Duration // per fetch; zero means no timeout
	CacheTTL time.Duration // zero disables caching
}

// NewService creates a feed service over the given seed corpus.
func NewService(seed []model.Article, source DynamicSource, getter ArticleGetter, opts Options) *Service {
	return &Service{
		seed:    seed,
		source:  source,
		getter:  getter,
		timeout: opts.Timeout,
		ttl:     opts.CacheTTL,
		now:     time.Now,
	}
}

// List returns the merged, de-duplicated article list. It never fails.
func (s *Service) List(ctx context.Context) []model.Article {
	return Merge(s.seed, s.dynamic(ctx))
}

// Get resolves one article by id. Persisted articles win over seed articles.
func (s *Service) Get(ctx context.Context, id string) (model.Article, error) {
	if s.getter != nil {
		a, err := s.getter.GetArticle(ctx, id)
		switch {
		case err == nil:
			return *a, nil
		case !errors.Is(err, model.ErrNotFound):
			return model.Article{}, err
		}
	}
	if a, ok := Find(s.seed, nil, id); ok {
		return a, nil
	}
	return model.Article{}, &model.NotFoundError{Kind: "article", ID: id}
}

// Seed returns the static article with the given id, if any.
func (s *Service) Seed(id string) (model.Article, bool) {
	return Find(s.seed, nil, id)
}

// Refresh fetches the dynamic list now and replaces the cache.
func (s *Service) Refresh(ctx context.Context) error {
	_, err := s.refresh(ctx)
	return err
}

// refresh fetches the dynamic list and caches it, unless Invalidate ran while
// the fetch was in flight. The fetched list is returned either way.
func (s *Service) refresh(ctx context.Context) ([]model.Article, error) {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	list, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.gen == gen {
		s.cached = list
		s.fetchedAt = s.now()
	}
	s.mu.Unlock()
	return list, nil
}

// Invalidate drops the cached dynamic list so the next List refetches.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.fetchedAt = time.Time{}
	s.gen++
	s.mu.Unlock()
}

func (s *Service) dynamic(ctx context.Context) []model.Article {
	s.mu.Lock()
	if s.ttl > 0 && !s.fetchedAt.IsZero() && s.now().Sub(s.fetchedAt) < s.ttl {
		list := s.cached
		s.mu.Unlock()
		return list
	}
	s.mu.Unlock()

	list, err := s.refresh(ctx)
	if err != nil {
		slog.Warn("dynamic articles unavailable, serving seed only", "error", err)
		return nil
	}
	return list
}

func (s *Service) fetch(ctx context.Context) ([]model.Article, error) {
	if s.source == nil {
		return nil, nil
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.source.ListPublished(ctx)
}
