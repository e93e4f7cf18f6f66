package catalog

import (
	"sort"
	"strings"

	aho "github.com/petar-dambovaliev/aho-corasick"
)

// sep cannot appear in a match, so no match spans two names.
const sep = "\x00"

// haystack is every lower-cased name joined by sep, scanned in one pass per
// query instead of one strings.Contains call per name.
type haystack struct {
	text   string
	starts []int // byte offset of each name in text
}

func newHaystack(names []string) *haystack {
	var b strings.Builder
	starts := make([]int, len(names))
	for i, n := range names {
		if i > 0 {
			b.WriteString(sep)
		}
		starts[i] = b.Len()
		b.WriteString(strings.ToLower(n))
	}
	return &haystack{text: b.String(), starts: starts}
}

// nameAt maps a byte offset in text back to the id of the enclosing name.
func (h *haystack) nameAt(offset int) int {
	return sort.SearchInts(h.starts, offset+1) - 1
}

func (h *haystack) containing(lower string) []int {
	if lower == "" {
		out := make([]int, len(h.starts))
		for i := range out {
			out[i] = i
		}
		return out
	}
	if strings.Contains(lower, sep) {
		return nil
	}

	builder := aho.NewAhoCorasickBuilder(aho.Opts{DFA: true})
	ac := builder.Build([]string{lower})
	matches := ac.FindAll(h.text)
	if len(matches) == 0 {
		return nil
	}

	// Non-overlapping matches of one pattern arrive left to right, so ids
	// come out ascending; a name matched twice appears twice in a row.
	var out []int
	for _, m := range matches {
		id := h.nameAt(m.Start())
		if n := len(out); n > 0 && out[n-1] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}
