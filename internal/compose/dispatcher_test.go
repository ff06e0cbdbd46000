package compose

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/yangwenmai/blockpress/internal/model"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRegistry(t *testing.T) *MemoryRegistry {
	t.Helper()
	r, err := NewMemoryRegistry(Template{
		ID:       "known",
		Name:     "Known",
		Category: "guides",
		Blocks: model.BlockList{
			model.HeadingBlock{Base: model.Base{ID: "tpl-h", Content: "Intro"}, Level: 2},
			model.TextBlock{Base: model.Base{ID: "tpl-t", Content: "Body"}},
		},
	})
	if err != nil {
		t.Fatalf("NewMemoryRegistry: %v", err)
	}
	return r
}

func newTestDispatcher(t *testing.T, opts ...Option) *Dispatcher {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewDispatcher(testRegistry(t), StubFetcher{}, opts...)
}

func assertNewDraft(t *testing.T, a model.Article) {
	t.Helper()
	if a.Status != model.StatusDraft {
		t.Errorf("Status = %q, want draft", a.Status)
	}
	if len(a.Blocks) == 0 {
		t.Error("Blocks should not be empty")
	}
	if a.ID == "" {
		t.Error("ID should not be empty")
	}
	if err := a.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants: %v", err)
	}
}

func TestCreateBlankArticle(t *testing.T) {
	d := newTestDispatcher(t)
	a, err := d.Create(context.Background(), Options{Mode: ModeBlank})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	assertNewDraft(t, a)
	if a.Title != defaultTitle {
		t.Errorf("Title = %q, want %q", a.Title, defaultTitle)
	}
	if len(a.Blocks) != 1 || a.Blocks[0].Kind() != model.TypeText {
		t.Errorf("Blocks = %#v, want one text block", a.Blocks)
	}
	if !a.CreatedAt.Equal(fixedNow) || !a.UpdatedAt.Equal(fixedNow) {
		t.Errorf("timestamps = %v/%v, want %v", a.CreatedAt, a.UpdatedAt, fixedNow)
	}
}

func TestCreateBlankArticle_Options(t *testing.T) {
	d := newTestDispatcher(t)
	a := d.CreateBlankArticle(Options{Title: " My post ", Description: "About things", Category: "misc", Author: model.Author{ID: "u1"}})
	if a.Title != "My post" || a.Category != "misc" || a.Author.ID != "u1" {
		t.Errorf("article = %+v", a)
	}
	if a.Blocks[0].Text() != "About things" {
		t.Errorf("seed block content = %q", a.Blocks[0].Text())
	}
}

func TestCreateBlankArticle_UniqueIDs(t *testing.T) {
	d := NewDispatcher(nil, nil)
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		a, err := d.Create(context.Background(), Options{})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if seen[a.ID] {
			t.Fatalf("duplicate article id %q after %d calls", a.ID, i)
		}
		seen[a.ID] = true
	}
}

func TestCreateFromTemplate(t *testing.T) {
	d := newTestDispatcher(t)
	a, err := d.Create(context.Background(), Options{Mode: ModeTemplate, TemplateID: "known"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	assertNewDraft(t, a)
	if len(a.Blocks) != 2 {
		t.Fatalf("Blocks len = %d, want 2", len(a.Blocks))
	}
	for _, b := range a.Blocks {
		if b.BlockID() == "tpl-h" || b.BlockID() == "tpl-t" {
			t.Errorf("block id %q reuses the template's id", b.BlockID())
		}
	}
	if h, ok := a.Blocks[0].(model.HeadingBlock); !ok || h.Level != 2 || h.Content != "Intro" {
		t.Errorf("first block = %#v, want heading level 2", a.Blocks[0])
	}
	if a.Title != "Known" || a.Category != "guides" {
		t.Errorf("Title/Category = %q/%q", a.Title, a.Category)
	}

	b, _ := d.Create(context.Background(), Options{Mode: ModeTemplate, TemplateID: "known", Title: "Mine"})
	if b.Title != "Mine" {
		t.Errorf("Title = %q, want Mine", b.Title)
	}
	if b.Blocks[0].BlockID() == a.Blocks[0].BlockID() {
		t.Error("two instantiations share block ids")
	}
}

// skeletonRegistry serves templates as-is, like an external registry that
// does not check its data.
type skeletonRegistry map[string]Template

func (r skeletonRegistry) GetTemplate(_ context.Context, id string) (*Template, error) {
	tpl, ok := r[id]
	if !ok {
		return nil, &model.NotFoundError{Kind: "template", ID: id}
	}
	return &tpl, nil
}

func TestCreateFromTemplate_EmptySkeleton(t *testing.T) {
	reg := skeletonRegistry{
		"empty":   {ID: "empty", Name: "Empty"},
		"invalid": {ID: "invalid", Name: "Broken", Blocks: model.BlockList{model.HeadingBlock{Base: model.Base{ID: "h"}, Level: 9}}},
	}
	d := NewDispatcher(reg, nil, WithClock(func() time.Time { return fixedNow }))

	for id := range reg {
		a, err := d.Create(context.Background(), Options{Mode: ModeTemplate, TemplateID: id})
		if err != nil {
			t.Fatalf("Create(%s): %v", id, err)
		}
		assertNewDraft(t, a)
		if len(a.Blocks) != 1 {
			t.Fatalf("Create(%s) blocks = %d, want 1", id, len(a.Blocks))
		}
		if tb, ok := a.Blocks[0].(model.TextBlock); !ok || tb.Content != "" {
			t.Errorf("Create(%s) block = %#v, want one empty text block", id, a.Blocks[0])
		}
	}
}

func TestCreateFromTemplate_NotFound(t *testing.T) {
	d := newTestDispatcher(t)
	for _, id := range []string{"missing", ""} {
		_, err := d.Create(context.Background(), Options{Mode: ModeTemplate, TemplateID: id})
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("TemplateID %q: error = %v, want ErrNotFound", id, err)
		}
		var nf *model.NotFoundError
		if !errors.As(err, &nf) || nf.Kind != "template" {
			t.Errorf("TemplateID %q: error = %#v, want template NotFoundError", id, err)
		}
	}
}

func TestCreateFromImport(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	t.Run("markdown with front matter", func(t *testing.T) {
		a, err := d.Create(ctx, Options{Mode: ModeImport, Import: ImportSource{
			Markdown: "---\ntitle: Hello\ncategories: [go]\n---\n# Heading\n\nFirst paragraph.\n",
		}})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		assertNewDraft(t, a)
		if a.Title != "Hello" || a.Category != "go" {
			t.Errorf("Title/Category = %q/%q", a.Title, a.Category)
		}
		if len(a.Blocks) != 2 {
			t.Errorf("Blocks len = %d, want 2", len(a.Blocks))
		}
	})

	t.Run("text", func(t *testing.T) {
		a := d.CreateFromImport(ctx, Options{Import: ImportSource{Text: "one\n\ntwo\nthree"}})
		if len(a.Blocks) != 3 {
			t.Errorf("Blocks len = %d, want 3", len(a.Blocks))
		}
	})

	t.Run("html", func(t *testing.T) {
		a := d.CreateFromImport(ctx, Options{Import: ImportSource{HTML: "<h2>Hi</h2><p>Body</p>"}})
		if len(a.Blocks) != 2 || a.Title != "Hi" {
			t.Errorf("Title = %q, Blocks = %#v", a.Title, a.Blocks)
		}
	})

	t.Run("url", func(t *testing.T) {
		a := d.CreateFromImport(ctx, Options{Import: ImportSource{URL: "https://example.com/p"}})
		if a.Title != "Imported from https://example.com/p" || len(a.Blocks) != 2 {
			t.Errorf("Title = %q, Blocks = %d", a.Title, len(a.Blocks))
		}
	})

	t.Run("empty falls back", func(t *testing.T) {
		for _, src := range []ImportSource{{}, {Text: "   \n\n "}, {HTML: "<div></div>"}, {Markdown: "```"}} {
			a := d.CreateFromImport(ctx, Options{Import: src})
			assertNewDraft(t, a)
			if len(a.Blocks) < 1 {
				t.Errorf("source %+v: no blocks", src)
			}
		}
		a := d.CreateFromImport(ctx, Options{Import: ImportSource{Text: "  "}})
		if len(a.Blocks) != 1 || a.Blocks[0].Kind() != model.TypeText || a.Blocks[0].Text() != "" {
			t.Errorf("Blocks = %#v, want one empty text block", a.Blocks)
		}
	})
}

// failingFetcher always errors.
type failingFetcher struct{}

func (failingFetcher) Fetch(context.Context, string) (*FetchedDocument, error) {
	return nil, errors.New("network down")
}

func TestCreateFromImport_FetchFailure(t *testing.T) {
	d := NewDispatcher(nil, failingFetcher{})
	a, err := d.Create(context.Background(), Options{Mode: ModeImport, Import: ImportSource{URL: "https://example.com"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(a.Blocks) != 1 || a.Blocks[0].Text() != "" {
		t.Errorf("Blocks = %#v, want one empty text block", a.Blocks)
	}

	d = NewDispatcher(nil, nil)
	a, _ = d.Create(context.Background(), Options{Mode: ModeImport, Import: ImportSource{URL: "https://example.com"}})
	if len(a.Blocks) != 1 {
		t.Errorf("Blocks len = %d, want 1", len(a.Blocks))
	}
}

func TestResumeDraft(t *testing.T) {
	d := newTestDispatcher(t)
	a, err := d.Create(context.Background(), Options{DraftID: "draft-123"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	assertNewDraft(t, a)
	if a.ID != "draft-123" {
		t.Errorf("ID = %q, want draft-123", a.ID)
	}

	a, err = d.Create(context.Background(), Options{Mode: ModeDraft})
	if err != nil || !model.IsLocalDraftID(a.ID) {
		t.Errorf("Create draft without id = %q, %v", a.ID, err)
	}

	_, err = d.Create(context.Background(), Options{Mode: ModeDraft, DraftID: "abc"})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("non-draft id error = %v, want ErrNotFound", err)
	}
}

func TestCreate_UnknownMode(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Create(context.Background(), Options{Mode: "clone"})
	if !errors.Is(err, ErrUnknownMode) {
		t.Errorf("error = %v, want ErrUnknownMode", err)
	}
}

func TestResolveMode(t *testing.T) {
	tests := []struct {
		opts Options
		want Mode
	}{
		{Options{}, ModeBlank},
		{Options{DraftID: "draft-1"}, ModeDraft},
		{Options{DraftID: "x"}, ModeBlank},
		{Options{Mode: ModeImport, DraftID: "draft-1"}, ModeImport},
	}
	for _, tt := range tests {
		if got := ResolveMode(tt.opts); got != tt.want {
			t.Errorf("ResolveMode(%+v) = %q, want %q", tt.opts, got, tt.want)
		}
	}
}

// takenIDs reports the listed ids as existing.
type takenIDs struct {
	taken map[string]bool
	err   error
}

func (m *takenIDs) ArticleExists(_ context.Context, id string) (bool, error) {
	return m.taken[id], m.err
}

func TestCreate_AvoidsKnownIDs(t *testing.T) {
	n := 0
	gen := func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	checker := &takenIDs{taken: map[string]bool{"id-1": true, "id-2": true}}
	d := newTestDispatcher(t, WithIDGenerator(gen), WithIDChecker(checker))

	a, err := d.Create(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID != "id-3" {
		t.Errorf("ID = %q, want id-3", a.ID)
	}
}

func TestCreate_IDCheckerErrorKeepsID(t *testing.T) {
	d := newTestDispatcher(t, WithIDGenerator(func() string { return "fixed" }), WithIDChecker(&takenIDs{err: errors.New("db")}))
	a, err := d.Create(context.Background(), Options{})
	if err != nil || a.ID != "fixed" {
		t.Errorf("Create = %q, %v", a.ID, err)
	}
}

func TestCreate_PanicsWhenIDsExhausted(t *testing.T) {
	d := newTestDispatcher(t,
		WithIDGenerator(func() string { return "same" }),
		WithIDChecker(&takenIDs{taken: map[string]bool{"same": true}}),
	)
	defer func() {
		if recover() == nil {
			t.Error("expected panic when every generated id is taken")
		}
	}()
	d.Create(context.Background(), Options{})
}
