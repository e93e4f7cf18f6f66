// Package catalog assigns stable integer ids to catalog entries and maps
// them in both directions, for the full catalog and for the restricted
// subset. The two universes are numbered independently: a restricted id is
// never comparable with a full id.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// UnknownNameError reports a name that is not part of a universe.
type UnknownNameError struct {
	Name     string
	Universe string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("unknown name %q in %s catalog", e.Name, e.Universe)
}

// DuplicateNameError reports a name that appears twice in the catalog source.
type DuplicateNameError struct {
	Name  string
	First int
	Again int
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate catalog name %q at positions %d and %d", e.Name, e.First, e.Again)
}

// Universe is one dense numbering of catalog names: id_to_name, name_to_id
// and a trie over lower-cased names for case-insensitive exact and prefix
// lookups. Immutable once built; safe for concurrent reads.
type Universe struct {
	label string
	names []string
	ids   map[string]int
	trie  *patricia.Trie // lower-cased name -> []int (ascending)
	hay   *haystack
}

func newUniverse(label string, names []string) *Universe {
	u := &Universe{
		label: label,
		names: names,
		ids:   make(map[string]int, len(names)),
		trie:  patricia.NewTrie(),
	}
	for id, name := range names {
		u.ids[name] = id
		if name == "" {
			continue
		}
		key := patricia.Prefix(strings.ToLower(name))
		if item := u.trie.Get(key); item != nil {
			u.trie.Set(key, append(item.([]int), id))
		} else {
			u.trie.Insert(key, []int{id})
		}
	}
	u.hay = newHaystack(names)
	return u
}

// Label returns "full" or "restricted".
func (u *Universe) Label() string { return u.label }

// Size returns the number of entries.
func (u *Universe) Size() int { return len(u.names) }

// Names returns the names in id order. The slice must not be modified.
func (u *Universe) Names() []string { return u.names }

// Name maps an id back to its name.
func (u *Universe) Name(id int) (string, error) {
	if id < 0 || id >= len(u.names) {
		return "", fmt.Errorf("id %d out of range for %s catalog of %d", id, u.label, len(u.names))
	}
	return u.names[id], nil
}

// ID maps a name to its id. A miss is an *UnknownNameError.
func (u *Universe) ID(name string) (int, error) {
	if id, ok := u.ids[name]; ok {
		return id, nil
	}
	return 0, &UnknownNameError{Name: name, Universe: u.label}
}

// Lookup maps a name to its id, reporting absence instead of failing.
func (u *Universe) Lookup(name string) (int, bool) {
	id, ok := u.ids[name]
	return id, ok
}

// Exact returns the ids whose lower-cased name equals lower, ascending.
func (u *Universe) Exact(lower string) []int {
	if lower == "" {
		return nil
	}
	item := u.trie.Get(patricia.Prefix(lower))
	if item == nil {
		return nil
	}
	ids := item.([]int)
	out := make([]int, len(ids))
	copy(out, ids)
	return out
}

// WithPrefix returns the ids whose lower-cased name starts with lower,
// ascending (catalog order).
func (u *Universe) WithPrefix(lower string) []int {
	var out []int
	err := u.trie.VisitSubtree(patricia.Prefix(lower), func(_ patricia.Prefix, item patricia.Item) error {
		out = append(out, item.([]int)...)
		return nil
	})
	if err != nil {
		return nil
	}
	sort.Ints(out)
	return out
}

// Containing returns the ids whose lower-cased name contains lower,
// ascending (catalog order). An empty lower matches every name.
func (u *Universe) Containing(lower string) []int {
	return u.hay.containing(lower)
}

// Index is the full universe plus the restricted-subset universe.
type Index struct {
	full       *Universe
	restricted *Universe
}

// Build assigns ids by iteration order. The restricted universe keeps
// entries flagged Restricted, in the same relative order, numbered from 0.
func Build(entries []ports.CatalogEntry) (*Index, error) {
	names := make([]string, 0, len(entries))
	var restricted []string
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		if first, dup := seen[e.Name]; dup {
			return nil, &DuplicateNameError{Name: e.Name, First: first, Again: i}
		}
		seen[e.Name] = i
		names = append(names, e.Name)
		if e.Restricted {
			restricted = append(restricted, e.Name)
		}
	}
	return &Index{
		full:       newUniverse("full", names),
		restricted: newUniverse("restricted", restricted),
	}, nil
}

// Full returns the full-catalog universe.
func (x *Index) Full() *Universe { return x.full }

// Restricted returns the restricted-subset universe.
func (x *Index) Restricted() *Universe { return x.restricted }

// Universe selects the full or restricted universe.
func (x *Index) Universe(restricted bool) *Universe {
	if restricted {
		return x.restricted
	}
	return x.full
}

// ID resolves a name in the full catalog. A miss means the observations and
// the catalog disagree, which callers treat as fatal.
func (x *Index) ID(name string) (int, error) {
	return x.full.ID(name)
}

// RestrictedID resolves a name in the restricted subset. Absence is an
// expected outcome: most catalog entries are not restricted-subset members.
func (x *Index) RestrictedID(name string) (int, bool) {
	return x.restricted.Lookup(name)
}
