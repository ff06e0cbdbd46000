package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the publication state of an article.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Visibility controls who may see a published article.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Source records where an article came from.
type Source string

const (
	// SourceStatic articles are bundled at build time and never change at runtime.
	SourceStatic Source = "static"
	// SourceDynamic articles are persisted and mutable.
	SourceDynamic Source = "dynamic"
)

// DraftIDPrefix marks ids of local drafts that were never persisted.
const DraftIDPrefix = "draft-"

// Author identifies who wrote an article.
type Author struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	AvatarURL string `json:"avatarUrl,omitempty" yaml:"avatarUrl,omitempty"`
}

// Article is the aggregate root: an ordered block sequence plus metadata.
type Article struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Blocks      BlockList  `json:"blocks"`
	Author      Author     `json:"author"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Status      Status     `json:"status"`
	Visibility  Visibility `json:"visibility"`
	Source      Source     `json:"source"`
}

// NewArticleID returns a fresh random article id.
func NewArticleID() string {
	return uuid.New().String()
}

// NewDraftID returns a fresh id marked as a local, unsaved draft.
func NewDraftID() string {
	return DraftIDPrefix + uuid.New().String()
}

// IsLocalDraftID reports whether id names a local, not-yet-persisted draft.
func IsLocalDraftID(id string) bool {
	return strings.HasPrefix(id, DraftIDPrefix) && len(id) > len(DraftIDPrefix)
}

// NewDraft creates a dynamic draft article. Visibility defaults to private
// until the article is published.
func NewDraft(id, title string, author Author, blocks []Block, now time.Time) Article {
	now = now.UTC()
	return Article{
		ID:         id,
		Title:      title,
		Blocks:     append(BlockList(nil), blocks...),
		Author:     author,
		CreatedAt:  now,
		UpdatedAt:  now,
		Status:     StatusDraft,
		Visibility: VisibilityPrivate,
		Source:     SourceDynamic,
	}
}

// IsStatic reports whether the article belongs to the bundled seed corpus.
func (a *Article) IsStatic() bool { return a.Source == SourceStatic }

// Clone returns a copy that shares no mutable state with a.
func (a Article) Clone() Article {
	a.Blocks = append(BlockList(nil), a.Blocks...)
	if a.PublishedAt != nil {
		t := *a.PublishedAt
		a.PublishedAt = &t
	}
	return a
}

// Publish moves a draft to published. An empty visibility defaults to public.
func (a *Article) Publish(now time.Time, v Visibility) error {
	if a.Status == StatusPublished {
		return fmt.Errorf("%w: article %s is already published", ErrInvalidTransition, a.ID)
	}
	if len(a.Blocks) == 0 {
		return fmt.Errorf("%w: article %s has no blocks", ErrInvalidTransition, a.ID)
	}
	switch v {
	case "":
		v = VisibilityPublic
	case VisibilityPublic, VisibilityPrivate:
	default:
		return fmt.Errorf("%w: unknown visibility %q", ErrInvalidTransition, v)
	}
	now = now.UTC()
	a.Status = StatusPublished
	a.Visibility = v
	a.PublishedAt = &now
	a.UpdatedAt = now
	return nil
}

// Unpublish moves a published article back to draft.
func (a *Article) Unpublish(now time.Time) error {
	if a.Status != StatusPublished {
		return fmt.Errorf("%w: article %s is not published", ErrInvalidTransition, a.ID)
	}
	a.Status = StatusDraft
	a.PublishedAt = nil
	a.UpdatedAt = now.UTC()
	return nil
}

// CheckInvariants returns an *InvariantError describing the first broken
// invariant, or nil.
func (a *Article) CheckInvariants() error {
	fail := func(format string, args ...any) error {
		return &InvariantError{ArticleID: a.ID, Reason: fmt.Sprintf(format, args...)}
	}
	if a.ID == "" {
		return fail("empty id")
	}
	switch a.Status {
	case StatusDraft:
		if a.PublishedAt != nil {
			return fail("draft has publishedAt")
		}
	case StatusPublished:
		if a.PublishedAt == nil {
			return fail("published without publishedAt")
		}
		if len(a.Blocks) == 0 {
			return fail("published with no blocks")
		}
	default:
		return fail("unknown status %q", a.Status)
	}
	seen := make(map[string]bool, len(a.Blocks))
	for i, b := range a.Blocks {
		if !isVariant(b) {
			return fail("block %d has unsupported type %T", i, b)
		}
		if seen[b.BlockID()] {
			return fail("duplicate block id %q", b.BlockID())
		}
		seen[b.BlockID()] = true
	}
	return nil
}

// MustHoldInvariants panics when a breaks an article invariant. Broken
// invariants mean an upstream bug rather than bad user input.
func (a *Article) MustHoldInvariants() {
	if err := a.CheckInvariants(); err != nil {
		panic(err)
	}
}
