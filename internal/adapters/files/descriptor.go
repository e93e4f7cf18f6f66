package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// LoadDescriptor reads a YAML scorer descriptor. A relative model path is
// resolved against the descriptor's directory, and a missing name defaults
// to the file name without extension.
func LoadDescriptor(path string) (ports.ScorerDescriptor, error) {
	var d ports.ScorerDescriptor
	data, err := os.ReadFile(path)
	if err != nil {
		return d, err
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("descriptor %s: %w", path, err)
	}
	if d.Name == "" {
		d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if d.Subset == "" {
		d.Subset = ports.SubsetFull
	}
	if d.Model != "" && !filepath.IsAbs(d.Model) {
		d.Model = filepath.Join(filepath.Dir(path), d.Model)
	}
	if d.Subset != ports.SubsetFull && d.Subset != ports.SubsetRestricted {
		return d, fmt.Errorf("descriptor %s: unknown subset %q", path, d.Subset)
	}
	return d, nil
}

// SaveDescriptor writes d as YAML.
func SaveDescriptor(path string, d ports.ScorerDescriptor) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
