package alias

import (
	"slices"
	"strings"

	"github.com/matzehuels/reqscan/pkg/integrations"
)

// Group is one package identifier and the import names that resolve to it.
type Group struct {
	Package string
	Imports []string
}

// Resolver maps import names to package identifiers.
type Resolver struct {
	table      Table
	discovered Table
}

// NewResolver returns a resolver that consults table first, then the
// discovered table, and otherwise maps a name to itself. Either may be nil.
func NewResolver(table, discovered Table) *Resolver {
	return &Resolver{table: table, discovered: discovered}
}

// Resolve returns the package identifier for name.
func (r *Resolver) Resolve(name string) string {
	pkg, _ := r.lookup(name)
	return pkg
}

func (r *Resolver) lookup(name string) (string, bool) {
	if pkg, ok := r.table[name]; ok {
		return pkg, true
	}
	if pkg, ok := r.discovered[name]; ok {
		return pkg, true
	}
	return name, false
}

// Group resolves names and merges those whose identifiers normalize to the
// same project. When spellings differ, an identifier that came from a table
// wins over a name mapped to itself, then the lexically smallest. Groups are
// sorted case-insensitively by package identifier.
func (r *Resolver) Group(names []string) []Group {
	type candidate struct {
		pkg      string
		explicit bool
	}
	best := make(map[string]candidate)
	members := make(map[string][]string)
	for _, name := range names {
		pkg, explicit := r.lookup(name)
		id := integrations.NormalizePkgName(pkg)
		members[id] = append(members[id], name)
		cur, ok := best[id]
		switch {
		case !ok:
		case explicit != cur.explicit:
			if !explicit {
				continue
			}
		case pkg >= cur.pkg:
			continue
		}
		best[id] = candidate{pkg: pkg, explicit: explicit}
	}

	groups := make([]Group, 0, len(best))
	for id, c := range best {
		imports := slices.Clone(members[id])
		slices.Sort(imports)
		groups = append(groups, Group{Package: c.pkg, Imports: slices.Compact(imports)})
	}
	slices.SortFunc(groups, func(a, b Group) int {
		if c := strings.Compare(strings.ToLower(a.Package), strings.ToLower(b.Package)); c != 0 {
			return c
		}
		return strings.Compare(a.Package, b.Package)
	})
	return groups
}
