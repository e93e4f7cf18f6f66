// Package files reads catalogs, observations and scorer descriptors from
// disk and writes prepared datasets back out as JSON.
package files

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// CatalogFile is a JSON array of catalog records. Only "name" and "srd" are
// read; other fields are ignored.
type CatalogFile struct {
	Path string
}

var _ ports.CatalogSource = CatalogFile{}

// LoadCatalog reads the catalog in file order.
func (c CatalogFile) LoadCatalog() ([]ports.CatalogEntry, error) {
	var entries []ports.CatalogEntry
	if err := decodeArray(c.Path, func(d *json.Decoder) error {
		var e ports.CatalogEntry
		if err := d.Decode(&e); err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", c.Path, err)
	}
	return entries, nil
}

// ObservationFile is a JSON array of {"query", "result"} objects.
type ObservationFile struct {
	Path string
}

var _ ports.ObservationSource = ObservationFile{}

// LoadObservations streams the array so large logs are not buffered twice.
func (o ObservationFile) LoadObservations() ([]ports.Observation, error) {
	var obs []ports.Observation
	if err := decodeArray(o.Path, func(d *json.Decoder) error {
		var ob ports.Observation
		if err := d.Decode(&ob); err != nil {
			return err
		}
		obs = append(obs, ob)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("observations %s: %w", o.Path, err)
	}
	return obs, nil
}

// decodeArray opens path, expects a top-level JSON array and calls each
// once per element.
func decodeArray(path string, each func(*json.Decoder) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	d := json.NewDecoder(f)
	tok, err := d.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return fmt.Errorf("expected a JSON array")
	}
	for i := 0; d.More(); i++ {
		if err := each(d); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	if _, err := d.Token(); err != nil {
		return err
	}
	return nil
}
