// Package bbolt implements the ports.Storage interface using bbolt (embedded B+ tree).
// Each prepared batch gets its own top-level bucket. Within that bucket, small
// records (catalog, evaluation pairs, run reports) are JSON; distributions use a
// compact binary layout and example sets are msgpack compressed with zstd.
// Writes are transactional: a crash mid-write cannot corrupt previously
// committed data.
package bbolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// Bucket keys
var (
	bucketCatalog  = []byte("catalog")
	bucketDist     = []byte("distribution")
	bucketEval     = []byte("evaluation")
	bucketExamples = []byte("examples")
	bucketReports  = []byte("reports")
	keyEntries     = []byte("entries")
	keyFull        = []byte(ports.SubsetFull)
	keyRestricted  = []byte(ports.SubsetRestricted)
)

// Store implements ports.Storage backed by bbolt.
type Store struct {
	db *bolt.DB
}

var _ ports.Storage = (*Store)(nil)

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func subsetKey(restricted bool) []byte {
	if restricted {
		return keyRestricted
	}
	return keyFull
}

// put writes value under batch/bucket/key, creating buckets as needed.
func (s *Store) put(batch string, bucket, key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(batch))
		if err != nil {
			return err
		}
		sub, err := b.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		return sub.Put(key, value)
	})
}

// get copies the value under batch/bucket/key out of the transaction.
// Returns nil when any level is missing.
func (s *Store) get(batch string, bucket, key []byte) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(batch))
		if b == nil {
			return nil
		}
		sub := b.Bucket(bucket)
		if sub == nil {
			return nil
		}
		// bbolt slices are only valid within tx
		if v := sub.Get(key); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	return data, err
}

// SaveCatalog persists the catalog snapshot of a batch.
func (s *Store) SaveCatalog(batch string, entries []ports.CatalogEntry) error {
	if entries == nil {
		return fmt.Errorf("nil catalog")
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	return s.put(batch, bucketCatalog, keyEntries, data)
}

// LoadCatalog returns nil, nil if the batch has no catalog.
func (s *Store) LoadCatalog(batch string) ([]ports.CatalogEntry, error) {
	data, err := s.get(batch, bucketCatalog, keyEntries)
	if err != nil || data == nil {
		return nil, err
	}
	var entries []ports.CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	return entries, nil
}

// SaveDistribution persists one aggregated distribution.
func (s *Store) SaveDistribution(batch string, restricted bool, dist map[string]map[int]uint32) error {
	if dist == nil {
		return fmt.Errorf("nil distribution")
	}
	data, err := encodeDistribution(dist)
	if err != nil {
		return fmt.Errorf("encode distribution: %w", err)
	}
	return s.put(batch, bucketDist, subsetKey(restricted), data)
}

// LoadDistribution returns nil, nil if absent.
func (s *Store) LoadDistribution(batch string, restricted bool) (map[string]map[int]uint32, error) {
	data, err := s.get(batch, bucketDist, subsetKey(restricted))
	if err != nil || data == nil {
		return nil, err
	}
	dist, err := decodeDistribution(data)
	if err != nil {
		return nil, fmt.Errorf("decode distribution: %w", err)
	}
	return dist, nil
}

// SaveEvaluation persists the replay pairs for one universe.
func (s *Store) SaveEvaluation(batch string, restricted bool, pairs []ports.LabeledQuery) error {
	if pairs == nil {
		pairs = []ports.LabeledQuery{}
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}
	return s.put(batch, bucketEval, subsetKey(restricted), data)
}

// LoadEvaluation returns nil, nil if absent.
func (s *Store) LoadEvaluation(batch string, restricted bool) ([]ports.LabeledQuery, error) {
	data, err := s.get(batch, bucketEval, subsetKey(restricted))
	if err != nil || data == nil {
		return nil, err
	}
	var pairs []ports.LabeledQuery
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("unmarshal evaluation: %w", err)
	}
	return pairs, nil
}

// SaveExamples persists one example set, replacing any set of the same name.
func (s *Store) SaveExamples(batch string, set ports.ExampleSet) error {
	if set.Name == "" {
		return fmt.Errorf("example set has no name")
	}
	data, err := encodeExamples(set)
	if err != nil {
		return fmt.Errorf("encode examples %q: %w", set.Name, err)
	}
	return s.put(batch, bucketExamples, []byte(set.Name), data)
}

// LoadExamples returns nil, nil if absent.
func (s *Store) LoadExamples(batch, name string) (*ports.ExampleSet, error) {
	data, err := s.get(batch, bucketExamples, []byte(name))
	if err != nil || data == nil {
		return nil, err
	}
	set, err := decodeExamples(data)
	if err != nil {
		return nil, fmt.Errorf("decode examples %q: %w", name, err)
	}
	return set, nil
}

// AppendReport records one evaluation run under the next sequence number.
// A missing ID or timestamp is filled in.
func (s *Store) AppendReport(batch string, report ports.RunReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.RecordedAt == 0 {
		report.RecordedAt = time.Now().Unix()
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(batch))
		if err != nil {
			return err
		}
		rb, err := b.CreateBucketIfNotExists(bucketReports)
		if err != nil {
			return err
		}
		seq, err := rb.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return rb.Put(key, data)
	})
}

// Reports lists recorded runs oldest first.
func (s *Store) Reports(batch string) ([]ports.RunReport, error) {
	var out []ports.RunReport
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(batch))
		if b == nil {
			return nil
		}
		rb := b.Bucket(bucketReports)
		if rb == nil {
			return nil
		}
		return rb.ForEach(func(k, v []byte) error {
			var r ports.RunReport
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("unmarshal report %x: %w", k, err)
			}
			out = append(out, r)
			return nil
		})
	})
	return out, err
}

// Batches lists batch names in key order.
func (s *Store) Batches() ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			out = append(out, string(name))
			return nil
		})
	})
	return out, err
}

// DeleteBatch removes all data for a batch.
// Idempotent: deleting a nonexistent batch is not an error.
func (s *Store) DeleteBatch(batch string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(batch))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil // idempotent
		}
		return err
	})
}
