// Package feed reconciles the bundled seed corpus with persisted articles into
// the single list shown to readers.
package feed

import (
	"fmt"

	"github.com/yangwenmai/blockpress/internal/model"
)

// Merge combines the static seed list with the dynamic list.
//
// Static articles keep their positions; a dynamic article sharing an id
// replaces the static one in place. Dynamic articles with no static
// counterpart follow in dynamic order. Each id appears exactly once. Inputs
// are not modified and the result shares no block storage with them.
//
// Merge panics if the static list contains an id twice, since the seed corpus
// is fixed at build time. Repeated ids in the dynamic list keep their first
// occurrence.
func Merge(static, dynamic []model.Article) []model.Article {
	byID := make(map[string]int, len(dynamic))
	for i, a := range dynamic {
		if _, dup := byID[a.ID]; !dup {
			byID[a.ID] = i
		}
	}

	out := make([]model.Article, 0, len(static)+len(dynamic))
	emitted := make(map[string]bool, len(static)+len(dynamic))
	for _, s := range static {
		if emitted[s.ID] {
			panic(fmt.Sprintf("feed: duplicate static article id %q", s.ID))
		}
		emitted[s.ID] = true
		if i, ok := byID[s.ID]; ok {
			out = append(out, dynamic[i].Clone())
			continue
		}
		out = append(out, s.Clone())
	}
	for _, d := range dynamic {
		if emitted[d.ID] {
			continue
		}
		emitted[d.ID] = true
		out = append(out, d.Clone())
	}
	return out
}

// Find returns the article with the given id using the same precedence as
// Merge: a dynamic article wins over a static one.
func Find(static, dynamic []model.Article, id string) (model.Article, bool) {
	for _, d := range dynamic {
		if d.ID == id {
			return d.Clone(), true
		}
	}
	for _, s := range static {
		if s.ID == id {
			return s.Clone(), true
		}
	}
	return model.Article{}, false
}
