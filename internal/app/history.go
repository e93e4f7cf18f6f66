package app

import (
	"fmt"

	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// BatchSummary is one stored batch and how many evaluation runs it holds.
type BatchSummary struct {
	Name    string
	Entries int
	Runs    int
}

// Batches summarizes every batch in the store, in key order.
func Batches(store ports.Storage) ([]BatchSummary, error) {
	names, err := store.Batches()
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	out := make([]BatchSummary, 0, len(names))
	for _, name := range names {
		entries, err := store.LoadCatalog(name)
		if err != nil {
			return nil, fmt.Errorf("batch %q: %w", name, err)
		}
		reports, err := store.Reports(name)
		if err != nil {
			return nil, fmt.Errorf("batch %q: %w", name, err)
		}
		out = append(out, BatchSummary{Name: name, Entries: len(entries), Runs: len(reports)})
	}
	return out, nil
}

// Reports returns the stored evaluation runs of a batch, oldest first.
// When last is positive only the last runs are kept.
func Reports(store ports.Storage, batch string, last int) ([]ports.RunReport, error) {
	reports, err := store.Reports(batch)
	if err != nil {
		return nil, fmt.Errorf("batch %q: %w", batch, err)
	}
	if last > 0 && len(reports) > last {
		reports = reports[len(reports)-last:]
	}
	return reports, nil
}
