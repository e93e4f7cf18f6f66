// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

import "time"

// Storage persists prepared batches to durable storage.
// The backing store (bbolt) is batch-scoped: each batch name gets its own
// namespace. Concurrent reads are safe; writes are serialized by the adapter.
//
// Crash safety: every Save must be transactional. A crash mid-write must not
// corrupt previously committed data.
type Storage interface {
	// SaveCatalog persists the catalog snapshot the batch was prepared against.
	SaveCatalog(batch string, entries []CatalogEntry) error

	// LoadCatalog returns nil, nil if the batch has no catalog.
	LoadCatalog(batch string) ([]CatalogEntry, error)

	// SaveDistribution persists one aggregated distribution (query -> id -> count).
	SaveDistribution(batch string, restricted bool, dist map[string]map[int]uint32) error

	// LoadDistribution returns nil, nil if absent.
	LoadDistribution(batch string, restricted bool) (map[string]map[int]uint32, error)

	// SaveEvaluation persists the replay pairs for one universe.
	SaveEvaluation(batch string, restricted bool, pairs []LabeledQuery) error

	// LoadEvaluation returns nil, nil if absent.
	LoadEvaluation(batch string, restricted bool) ([]LabeledQuery, error)

	// SaveExamples persists one encoded example set under its name
	// (e.g. "alpha-dense"). Overwrites any prior set of the same name.
	SaveExamples(batch string, set ExampleSet) error

	// LoadExamples returns nil, nil if absent.
	LoadExamples(batch, name string) (*ExampleSet, error)

	// AppendReport records one evaluation run.
	AppendReport(batch string, report RunReport) error

	// Reports lists recorded runs oldest first.
	Reports(batch string) ([]RunReport, error)

	// Batches lists batch names in key order.
	Batches() ([]string, error)

	// DeleteBatch removes all data for a batch.
	// Idempotent: deleting a nonexistent batch is not an error.
	DeleteBatch(batch string) error
}

// ExampleSet is a named list of training records. Label-vector sets fill Y;
// the per-observation "naive" set fills Label instead.
type ExampleSet struct {
	Name    string    `msgpack:"name" json:"name"`
	Records []Example `msgpack:"records" json:"records"`
}

// Example is one training record: encoded input and its target.
type Example struct {
	X     []float64 `msgpack:"x" json:"x"`
	Y     []float64 `msgpack:"y,omitempty" json:"y,omitempty"`
	Label int       `msgpack:"l,omitempty" json:"-"`
}

// RunReport is the persisted summary of one evaluation run.
type RunReport struct {
	ID         string        `json:"id"`
	Strategy   string        `json:"strategy"`
	Model      string        `json:"model,omitempty"`
	Restricted bool          `json:"restricted"`
	Top1       int           `json:"top1"`
	Top2       int           `json:"top2"`
	Top3       int           `json:"top3"`
	Top10      int           `json:"top10"`
	Failed     int           `json:"failed"`
	Elapsed    time.Duration `json:"elapsed"`
	RecordedAt int64         `json:"recorded_at"`
}
