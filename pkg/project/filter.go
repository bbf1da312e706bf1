// Package project identifies import names that belong to the scanned project.
//
// [Filter] is the core allow-list: it holds exactly the names it is given
// and performs no inference. [LocalModules] is a separate discovery helper
// the command line uses to seed that list from the project layout.
package project

import "slices"

// Filter excludes configured project-internal names from dependency
// resolution.
type Filter struct {
	names map[string]struct{}
}

// NewFilter returns a filter over names.
func NewFilter(names ...string) *Filter {
	f := &Filter{names: make(map[string]struct{}, len(names))}
	f.Add(names...)
	return f
}

// Add extends the internal set.
func (f *Filter) Add(names ...string) {
	for _, n := range names {
		if n != "" {
			f.names[n] = struct{}{}
		}
	}
}

// IsInternal reports whether name is part of the project itself.
func (f *Filter) IsInternal(name string) bool {
	if f == nil {
		return false
	}
	_, ok := f.names[name]
	return ok
}

// Names returns the internal set in sorted order.
func (f *Filter) Names() []string {
	out := make([]string, 0, len(f.names))
	for n := range f.names {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
