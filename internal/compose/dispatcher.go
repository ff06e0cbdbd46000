// Package compose creates new draft articles. A caller picks one of four
// mutually exclusive modes and the Dispatcher runs the matching strategy.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yangwenmai/blockpress/internal/model"
)

// Mode selects a creation strategy.
type Mode string

const (
	ModeBlank    Mode = "blank"
	ModeTemplate Mode = "template"
	ModeImport   Mode = "import"
	ModeDraft    Mode = "draft"
)

const (
	defaultTitle = "Untitled"
	// maxIDAttempts bounds regeneration of an article id that is already taken.
	maxIDAttempts = 5
)

// ErrUnknownMode is returned for a mode with no registered strategy.
var ErrUnknownMode = errors.New("unknown creation mode")

// Options carries the caller's input for every mode. Fields a mode does not
// use are ignored.
type Options struct {
	Mode        Mode
	Title       string
	Description string
	Category    string
	Author      model.Author

	TemplateID string       // template mode
	Import     ImportSource // import mode
	DraftID    string       // draft mode, must carry model.DraftIDPrefix
}

// ImportSource describes what to import. The first non-empty field in the
// order HTML, Markdown, Text, URL is used.
type ImportSource struct {
	HTML     string `json:"html,omitempty"`
	Markdown string `json:"markdown,omitempty"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url,omitempty"`
}

// IDChecker reports whether an article id is already taken.
type IDChecker interface {
	ArticleExists(ctx context.Context, id string) (bool, error)
}

// Strategy builds a new draft article.
type Strategy func(ctx context.Context, opts Options) (model.Article, error)

// Dispatcher maps modes to strategies.
type Dispatcher struct {
	templates  TemplateRegistry
	fetcher    Fetcher
	ids        IDChecker
	now        func() time.Time
	newID      func() string
	strategies map[Mode]Strategy
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithIDChecker makes the dispatcher regenerate ids that are already taken.
func WithIDChecker(c IDChecker) Option { return func(d *Dispatcher) { d.ids = c } }

// WithClock overrides the creation time source.
func WithClock(now func() time.Time) Option { return func(d *Dispatcher) { d.now = now } }

// WithIDGenerator overrides article id generation.
func WithIDGenerator(gen func() string) Option { return func(d *Dispatcher) { d.newID = gen } }

// NewDispatcher creates a dispatcher. fetcher may be nil, in which case URL
// imports fall back to an empty draft.
func NewDispatcher(templates TemplateRegistry, fetcher Fetcher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		templates: templates,
		fetcher:   fetcher,
		now:       time.Now,
		newID:     model.NewArticleID,
	}
	for _, o := range opts {
		o(d)
	}
	d.strategies = map[Mode]Strategy{
		ModeBlank: func(_ context.Context, o Options) (model.Article, error) {
			return d.CreateBlankArticle(o), nil
		},
		ModeTemplate: d.CreateFromTemplate,
		ModeImport: func(ctx context.Context, o Options) (model.Article, error) {
			return d.CreateFromImport(ctx, o), nil
		},
		ModeDraft: func(_ context.Context, o Options) (model.Article, error) {
			return d.ResumeDraft(o)
		},
	}
	return d
}

// ResolveMode returns the effective mode: an empty mode with a local draft id
// resumes that draft, otherwise it means blank.
func ResolveMode(opts Options) Mode {
	if opts.Mode != "" {
		return opts.Mode
	}
	if model.IsLocalDraftID(opts.DraftID) {
		return ModeDraft
	}
	return ModeBlank
}

// Create runs the strategy for opts.Mode and, except for resumed drafts,
// gives the result an id no existing article uses. The returned article is
// never persisted by Create.
func (d *Dispatcher) Create(ctx context.Context, opts Options) (model.Article, error) {
	mode := ResolveMode(opts)
	strategy, ok := d.strategies[mode]
	if !ok {
		return model.Article{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	a, err := strategy(ctx, opts)
	if err != nil {
		return model.Article{}, err
	}
	if mode != ModeDraft {
		a.ID = d.freshID(ctx, a.ID)
	}
	mustBeNewDraft(&a)
	slog.Debug("article created", "mode", string(mode), "article_id", a.ID, "blocks", len(a.Blocks))
	return a, nil
}

// CreateBlankArticle returns a draft with one text block seeded from the
// description.
func (d *Dispatcher) CreateBlankArticle(opts Options) model.Article {
	blocks := []model.Block{model.TextBlock{Base: newBase(strings.TrimSpace(opts.Description))}}
	return d.newDraft(opts, blocks)
}

// CreateFromTemplate returns a draft holding a copy of the template's blocks,
// each with a fresh id. Unknown template ids yield a *model.NotFoundError. A
// skeleton with no valid blocks gives one empty text block.
func (d *Dispatcher) CreateFromTemplate(ctx context.Context, opts Options) (model.Article, error) {
	if opts.TemplateID == "" || d.templates == nil {
		return model.Article{}, &model.NotFoundError{Kind: "template", ID: opts.TemplateID}
	}
	tpl, err := d.templates.GetTemplate(ctx, opts.TemplateID)
	if err != nil {
		return model.Article{}, err
	}
	if tpl == nil {
		return model.Article{}, &model.NotFoundError{Kind: "template", ID: opts.TemplateID}
	}

	blocks := make([]model.Block, 0, len(tpl.Blocks))
	for _, b := range tpl.Blocks {
		if !model.Validate(b) {
			continue
		}
		blocks = append(blocks, model.WithID(b, model.NewBlockID()))
	}
	if len(blocks) == 0 {
		slog.Warn("template has no usable blocks, starting empty", "template_id", tpl.ID)
		blocks = []model.Block{model.TextBlock{Base: newBase("")}}
	}
	if opts.Title == "" {
		opts.Title = tpl.Name
	}
	if opts.Description == "" {
		opts.Description = tpl.Description
	}
	if opts.Category == "" {
		opts.Category = tpl.Category
	}
	return d.newDraft(opts, blocks), nil
}

// CreateFromImport decomposes the import source into blocks. It never fails:
// empty, unreadable or unreachable input gives a draft with one empty text
// block.
func (d *Dispatcher) CreateFromImport(ctx context.Context, opts Options) model.Article {
	var blocks []model.Block
	var fm frontMatter
	src := opts.Import

	switch {
	case strings.TrimSpace(src.HTML) != "":
		blocks, fm.Title = decomposeHTML(strings.NewReader(src.HTML))
	case strings.TrimSpace(src.Markdown) != "":
		var body string
		fm, body = splitFrontMatter(src.Markdown)
		blocks = decomposeMarkdown(body)
	case strings.TrimSpace(src.Text) != "":
		blocks = decomposeText(src.Text)
	case strings.TrimSpace(src.URL) != "":
		blocks, fm.Title = d.importURL(ctx, strings.TrimSpace(src.URL))
	}

	if opts.Title == "" {
		opts.Title = fm.Title
	}
	if opts.Title == "" {
		opts.Title = firstHeading(blocks)
	}
	if opts.Description == "" {
		opts.Description = fm.Description
	}
	if opts.Category == "" {
		opts.Category = fm.Category
	}
	if len(blocks) == 0 {
		blocks = []model.Block{model.TextBlock{Base: newBase("")}}
	}
	return d.newDraft(opts, blocks)
}

func (d *Dispatcher) importURL(ctx context.Context, url string) ([]model.Block, string) {
	if d.fetcher == nil {
		slog.Warn("import by url not configured", "url", url)
		return nil, ""
	}
	doc, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		slog.Warn("import fetch failed, starting empty", "url", url, "error", err)
		return nil, ""
	}
	return decomposeText(doc.Text), doc.Title
}

// ResumeDraft loads the default skeleton for a local draft id. Nothing is
// read from storage.
func (d *Dispatcher) ResumeDraft(opts Options) (model.Article, error) {
	id := opts.DraftID
	if id == "" {
		id = model.NewDraftID()
	}
	if !model.IsLocalDraftID(id) {
		return model.Article{}, &model.NotFoundError{Kind: "draft", ID: id}
	}
	blocks := []model.Block{
		model.HeadingBlock{Base: newBase(""), Level: 1},
		model.TextBlock{Base: newBase(strings.TrimSpace(opts.Description))},
	}
	a := d.newDraft(opts, blocks)
	a.ID = id
	return a, nil
}

func (d *Dispatcher) newDraft(opts Options, blocks []model.Block) model.Article {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = defaultTitle
	}
	a := model.NewDraft(d.newID(), title, opts.Author, blocks, d.now())
	a.Description = strings.TrimSpace(opts.Description)
	a.Category = strings.TrimSpace(opts.Category)
	return a
}

// freshID returns id, or a newly generated one, that the IDChecker reports as
// unused. Lookup errors are logged and the current id is kept.
func (d *Dispatcher) freshID(ctx context.Context, id string) string {
	if d.ids == nil {
		return id
	}
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		taken, err := d.ids.ArticleExists(ctx, id)
		if err != nil {
			slog.Warn("article id check failed", "article_id", id, "error", err)
			return id
		}
		if !taken {
			return id
		}
		id = d.newID()
	}
	panic(fmt.Sprintf("compose: no unused article id after %d attempts", maxIDAttempts))
}

// mustBeNewDraft panics when a strategy broke the shared creation contract.
func mustBeNewDraft(a *model.Article) {
	if a.Status != model.StatusDraft || len(a.Blocks) == 0 {
		panic(fmt.Sprintf("compose: strategy returned article %q with status %q and %d blocks", a.ID, a.Status, len(a.Blocks)))
	}
	a.MustHoldInvariants()
}

func firstHeading(blocks []model.Block) string {
	for _, b := range blocks {
		if h, ok := b.(model.HeadingBlock); ok && h.Content != "" {
			return h.Content
		}
	}
	return ""
}
