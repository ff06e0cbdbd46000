package compose

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/yangwenmai/blockpress/internal/model"
)

//go:embed templates.yaml
var templatesYAML []byte

// Template is a named block skeleton new articles can start from.
type Template struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Blocks      model.BlockList `json:"blocks"`
}

// TemplateRegistry resolves templates by id. Unknown ids yield an error
// matching model.ErrNotFound.
type TemplateRegistry interface {
	GetTemplate(ctx context.Context, id string) (*Template, error)
}

// MemoryRegistry is a fixed, in-memory TemplateRegistry.
type MemoryRegistry struct {
	byID  map[string]Template
	order []string
}

var _ TemplateRegistry = (*MemoryRegistry)(nil)

// NewMemoryRegistry builds a registry from the given templates, keeping order.
// It fails on empty or duplicate ids and on templates without blocks.
func NewMemoryRegistry(templates ...Template) (*MemoryRegistry, error) {
	r := &MemoryRegistry{byID: make(map[string]Template, len(templates))}
	for _, t := range templates {
		if t.ID == "" {
			return nil, fmt.Errorf("template with empty id")
		}
		if _, dup := r.byID[t.ID]; dup {
			return nil, fmt.Errorf("template %q: duplicate id", t.ID)
		}
		if len(t.Blocks) == 0 {
			return nil, fmt.Errorf("template %q: no blocks", t.ID)
		}
		r.byID[t.ID] = t
		r.order = append(r.order, t.ID)
	}
	return r, nil
}

// BuiltinTemplates returns the registry of templates shipped with the binary.
func BuiltinTemplates() (*MemoryRegistry, error) {
	templates, err := ParseTemplates(templatesYAML)
	if err != nil {
		return nil, err
	}
	return NewMemoryRegistry(templates...)
}

// GetTemplate returns a copy of the template with the given id.
func (r *MemoryRegistry) GetTemplate(_ context.Context, id string) (*Template, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, &model.NotFoundError{Kind: "template", ID: id}
	}
	t.Blocks = append(model.BlockList(nil), t.Blocks...)
	return &t, nil
}

// List returns all templates in registration order.
func (r *MemoryRegistry) List() []Template {
	out := make([]Template, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

type templateYAML struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Category    string           `yaml:"category"`
	Blocks      []model.RawBlock `yaml:"blocks"`
}

// ParseTemplates decodes templates from YAML. Every template needs at least
// one valid block.
func ParseTemplates(data []byte) ([]Template, error) {
	var raw []templateYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	out := make([]Template, 0, len(raw))
	for _, r := range raw {
		blocks, err := model.DecodeBlocks(r.Blocks)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", r.ID, err)
		}
		if len(blocks) == 0 {
			return nil, fmt.Errorf("template %q: no blocks", r.ID)
		}
		if bad := model.InvalidBlockIDs(blocks); len(bad) > 0 {
			return nil, fmt.Errorf("template %q: invalid blocks %v", r.ID, bad)
		}
		out = append(out, Template{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Category:    r.Category,
			Blocks:      blocks,
		})
	}
	return out, nil
}
