package seed

import (
	"strings"
	"testing"

	"github.com/yangwenmai/blockpress/internal/model"
)

func TestArticles_Embedded(t *testing.T) {
	list := Articles()
	if len(list) == 0 {
		t.Fatal("embedded corpus is empty")
	}
	if list[0].ID != "welcome" {
		t.Errorf("first seed id = %q, want welcome", list[0].ID)
	}
	for _, a := range list {
		if a.Source != model.SourceStatic {
			t.Errorf("%s: Source = %q, want static", a.ID, a.Source)
		}
		if a.Status != model.StatusPublished || a.Visibility != model.VisibilityPublic {
			t.Errorf("%s: Status/Visibility = %q/%q", a.ID, a.Status, a.Visibility)
		}
		if len(a.Blocks) == 0 {
			t.Errorf("%s: no blocks", a.ID)
		}
		if err := a.CheckInvariants(); err != nil {
			t.Errorf("%s: %v", a.ID, err)
		}
	}
}

func TestArticles_ReturnsCopies(t *testing.T) {
	first := Articles()
	first[0].Title = "mutated"
	first[0].Blocks[0] = model.DividerBlock{Base: model.Base{ID: "x"}}

	second := Articles()
	if second[0].Title == "mutated" || second[0].Blocks[0].BlockID() == "x" {
		t.Error("Articles shares state between calls")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"not yaml list", "id: x", "parse seed corpus"},
		{"duplicate id", "- id: a\n  blocks: [{id: b, type: text, content: x}]\n- id: a\n  blocks: [{id: b, type: text, content: x}]", "duplicate id"},
		{"bad block", "- id: a\n  blocks: [{id: b, type: image, content: x}]", "invalid block"},
		{"bad image url", "- id: a\n  blocks: [{id: b, type: image, content: x, metadata: {imageUrl: foo.txt}}]", "invalid blocks"},
		{"no blocks", "- id: a\n  createdAt: 2025-01-01T00:00:00Z", "no blocks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse error = %v, want containing %q", err, tt.want)
			}
		})
	}
}
