package files

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// Writer writes prepared artifacts as JSON files under Dir.
type Writer struct {
	Dir string
}

// WriteMap writes an id -> name object ({"0": "Fireball", ...}).
func (w Writer) WriteMap(name string, names []string) (string, error) {
	m := make(map[string]string, len(names))
	for id, n := range names {
		m[strconv.Itoa(id)] = n
	}
	return w.write(name, m, true)
}

// WriteEvaluation writes replay pairs.
func (w Writer) WriteEvaluation(name string, pairs []ports.LabeledQuery) (string, error) {
	if pairs == nil {
		pairs = []ports.LabeledQuery{}
	}
	return w.write(name, pairs, false)
}

type vectorRecord struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

type scalarRecord struct {
	X []float64 `json:"x"`
	Y int       `json:"y"`
}

// WriteExamples writes {"x", "y"} records. When scalar is set, y is the
// record's integer Label instead of its label vector.
func (w Writer) WriteExamples(name string, set ports.ExampleSet, scalar bool) (string, error) {
	if scalar {
		out := make([]scalarRecord, len(set.Records))
		for i, r := range set.Records {
			out[i] = scalarRecord{X: r.X, Y: r.Label}
		}
		return w.write(name, out, false)
	}
	out := make([]vectorRecord, len(set.Records))
	for i, r := range set.Records {
		out[i] = vectorRecord{X: r.X, Y: r.Y}
	}
	return w.write(name, out, false)
}

// WriteJSON writes any value indented, for small human-read files such as
// evaluation failures.
func (w Writer) WriteJSON(name string, v any) (string, error) {
	return w.write(name, v, true)
}

// write marshals v into Dir/name through a temp file and rename, so a
// reader never sees a half-written file.
func (w Writer) write(name string, v any, indent bool) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(w.Dir, name)

	tmp, err := os.CreateTemp(w.Dir, "."+name+".*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}
