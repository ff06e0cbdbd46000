// Package seed holds the article corpus bundled into the binary at build time.
// Seed articles are read-only and keep a homepage populated even when no
// persisted article is available.
package seed

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yangwenmai/blockpress/internal/model"
)

//go:embed articles.yaml
var articlesYAML []byte

type seedArticle struct {
	ID          string           `yaml:"id"`
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Category    string           `yaml:"category"`
	Author      model.Author     `yaml:"author"`
	CreatedAt   time.Time        `yaml:"createdAt"`
	PublishedAt time.Time        `yaml:"publishedAt"`
	Blocks      []model.RawBlock `yaml:"blocks"`
}

var (
	loadOnce sync.Once
	loaded   []model.Article
	loadErr  error
)

// Articles returns copies of the bundled seed articles in corpus order.
// It panics if the embedded corpus is malformed.
func Articles() []model.Article {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(articlesYAML)
	})
	if loadErr != nil {
		panic(loadErr)
	}
	out := make([]model.Article, len(loaded))
	for i, a := range loaded {
		out[i] = a.Clone()
	}
	return out
}

// Parse decodes a YAML seed corpus. Every article is published, public and
// tagged static; block and article invariants are checked.
func Parse(data []byte) ([]model.Article, error) {
	var raw []seedArticle
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse seed corpus: %w", err)
	}

	seen := make(map[string]bool, len(raw))
	out := make([]model.Article, 0, len(raw))
	for _, r := range raw {
		if seen[r.ID] {
			return nil, fmt.Errorf("seed article %q: duplicate id", r.ID)
		}
		seen[r.ID] = true

		blocks, err := model.DecodeBlocks(r.Blocks)
		if err != nil {
			return nil, fmt.Errorf("seed article %q: %w", r.ID, err)
		}
		if bad := model.InvalidBlockIDs(blocks); len(bad) > 0 {
			return nil, fmt.Errorf("seed article %q: invalid blocks %v", r.ID, bad)
		}

		published := r.PublishedAt.UTC()
		if published.IsZero() {
			published = r.CreatedAt.UTC()
		}
		a := model.Article{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Category:    r.Category,
			Blocks:      blocks,
			Author:      r.Author,
			CreatedAt:   r.CreatedAt.UTC(),
			UpdatedAt:   published,
			PublishedAt: &published,
			Status:      model.StatusPublished,
			Visibility:  model.VisibilityPublic,
			Source:      model.SourceStatic,
		}
		if err := a.CheckInvariants(); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
