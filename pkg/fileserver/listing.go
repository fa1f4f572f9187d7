package fileserver

import (
	"fmt"

	"github.com/gobwas/glob"
)

// hiddenFilter drops entries whose name matches any configured pattern
// from directory listings.
type hiddenFilter []glob.Glob

func compileHidden(patterns []string) (hiddenFilter, error) {
	filter := make(hiddenFilter, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid hidden pattern %q: %w", p, err)
		}
		filter = append(filter, g)
	}
	return filter, nil
}

func (f hiddenFilter) hidden(name string) bool {
	for _, g := range f {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// apply filters names in place, keeping their order.
func (f hiddenFilter) apply(names []string) []string {
	if len(f) == 0 {
		return names
	}
	kept := names[:0]
	for _, name := range names {
		if !f.hidden(name) {
			kept = append(kept, name)
		}
	}
	return kept
}
