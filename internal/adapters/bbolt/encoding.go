// Binary encodings for batch blobs.
//
// Distributions use a compact little-endian layout:
//
//	queryCount: uint32
//	per query (sorted):
//	  keyLen:    uint16
//	  key:       [keyLen]byte
//	  pairCount: uint32
//	  pairs:     [pairCount]× (ID:uint32 + Count:uint32), ids ascending
//
// Example sets are msgpack, compressed with zstd. A set of dense float
// vectors compresses well since most positions are padding zeros.
package bbolt

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// pairSize is the byte size of a single encoded (id, count) pair.
const pairSize = 8

// encodeDistribution encodes query -> id -> count. Keys and ids are sorted
// for deterministic output; a single buffer is pre-allocated.
func encodeDistribution(dist map[string]map[int]uint32) ([]byte, error) {
	totalSize := 4
	for key, counts := range dist {
		totalSize += 2 + len(key) + 4 + len(counts)*pairSize
	}
	buf := make([]byte, totalSize)
	offset := 0

	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(keys)))
	offset += 4

	for _, key := range keys {
		if len(key) > 65535 {
			return nil, fmt.Errorf("query too long: %d bytes", len(key))
		}
		binary.LittleEndian.PutUint16(buf[offset:], uint16(len(key)))
		offset += 2
		copy(buf[offset:], key)
		offset += len(key)

		counts := dist[key]
		ids := make([]int, 0, len(counts))
		for id := range counts {
			if id < 0 {
				return nil, fmt.Errorf("negative id %d for %q", id, key)
			}
			ids = append(ids, id)
		}
		sort.Ints(ids)

		binary.LittleEndian.PutUint32(buf[offset:], uint32(len(ids)))
		offset += 4
		for _, id := range ids {
			binary.LittleEndian.PutUint32(buf[offset:], uint32(id))
			offset += 4
			binary.LittleEndian.PutUint32(buf[offset:], counts[id])
			offset += 4
		}
	}
	return buf, nil
}

// decodeDistribution reverses encodeDistribution. Every read is
// bounds-checked to avoid panics on corrupt data.
func decodeDistribution(data []byte) (map[string]map[int]uint32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("distribution too short: %d bytes", len(data))
	}
	offset := 0
	queryCount := binary.LittleEndian.Uint32(data[offset:])
	offset += 4

	dist := make(map[string]map[int]uint32, min(int(queryCount), len(data)))
	for i := uint32(0); i < queryCount; i++ {
		if offset+2 > len(data) {
			return nil, fmt.Errorf("truncated at query %d key length (offset %d)", i, offset)
		}
		keyLen := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2

		if offset+keyLen > len(data) {
			return nil, fmt.Errorf("truncated at query %d key (offset %d, need %d)", i, offset, keyLen)
		}
		key := string(data[offset : offset+keyLen])
		offset += keyLen

		if offset+4 > len(data) {
			return nil, fmt.Errorf("truncated at query %d pair count (offset %d)", i, offset)
		}
		pairCount := int(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4

		if pairCount > (len(data)-offset)/pairSize {
			return nil, fmt.Errorf("truncated at query %d pairs (offset %d, need %d)", i, offset, pairCount*pairSize)
		}
		counts := make(map[int]uint32, pairCount)
		for j := 0; j < pairCount; j++ {
			id := int(binary.LittleEndian.Uint32(data[offset:]))
			offset += 4
			counts[id] = binary.LittleEndian.Uint32(data[offset:])
			offset += 4
		}
		dist[key] = counts
	}
	return dist, nil
}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

// codecs returns process-wide zstd codecs. EncodeAll and DecodeAll are safe
// for concurrent use.
func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil)
	})
	return zstdEnc, zstdDec, zstdErr
}

func encodeExamples(set ports.ExampleSet) ([]byte, error) {
	raw, err := msgpack.Marshal(&set)
	if err != nil {
		return nil, fmt.Errorf("msgpack: %w", err)
	}
	enc, _, err := codecs()
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
}

func decodeExamples(data []byte) (*ports.ExampleSet, error) {
	_, dec, err := codecs()
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	var set ports.ExampleSet
	if err := msgpack.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("msgpack: %w", err)
	}
	return &set, nil
}
