package stats

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// TargetFilter matches usernames against a watch-list. Matching uses Unicode
// case folding and ignores the domain.
type TargetFilter struct {
	names map[string]string
}

// NewTargetFilter builds a filter from raw target names. Blank names are ignored.
func NewTargetFilter(names []string) *TargetFilter {
	f := &TargetFilter{names: make(map[string]string, len(names))}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := fold(n)
		if _, ok := f.names[key]; !ok {
			f.names[key] = n
		}
	}
	return f
}

// Active reports whether the filter restricts anything.
func (f *TargetFilter) Active() bool {
	return f != nil && len(f.names) > 0
}

// Match reports whether username is on the watch-list.
func (f *TargetFilter) Match(username string) bool {
	if !f.Active() {
		return false
	}
	_, ok := f.names[fold(strings.TrimSpace(username))]
	return ok
}

// Len returns the number of distinct target names.
func (f *TargetFilter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.names)
}

// Names returns the distinct target names as first supplied, sorted.
func (f *TargetFilter) Names() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.names))
	for _, n := range f.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// fold creates a Caser per call; a Caser must not be shared between goroutines.
func fold(s string) string {
	return cases.Fold().String(s)
}
