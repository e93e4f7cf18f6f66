package ports

// Subset names for ScorerDescriptor.Subset.
const (
	SubsetFull       = "full"
	SubsetRestricted = "restricted"
)

// ScorerDescriptor records how a learned scorer was trained: which alphabet
// and encoding mode its input uses and which catalog universe its output
// covers. Descriptors ship as YAML sidecars next to the model file.
type ScorerDescriptor struct {
	Name        string  `yaml:"name" json:"name"`
	Alphabet    string  `yaml:"alphabet" json:"alphabet"` // "alpha" or "qwerty"
	Mode        string  `yaml:"mode" json:"mode"`         // "dense" or "index"
	Subset      string  `yaml:"subset" json:"subset"`     // "full" or "restricted"
	CatalogSize int     `yaml:"catalog_size" json:"catalog_size"`
	InputLength int     `yaml:"input_length" json:"input_length"`
	Model       string  `yaml:"model,omitempty" json:"model,omitempty"`
	InputName   string  `yaml:"input_name,omitempty" json:"input_name,omitempty"`
	OutputName  string  `yaml:"output_name,omitempty" json:"output_name,omitempty"`
	InputShape  []int64 `yaml:"input_shape,omitempty" json:"input_shape,omitempty"`
}

// Restricted reports whether the scorer was trained on the restricted subset.
func (d ScorerDescriptor) Restricted() bool {
	return d.Subset == SubsetRestricted
}

// Scorer is an external learned capability. Predict receives one encoded
// query and returns one weight per catalog id of the universe it was trained
// against.
//
// Implementations that cannot be called concurrently must either lock
// internally or be wrapped with rank.Serialized before parallel evaluation.
type Scorer interface {
	Descriptor() ScorerDescriptor
	Predict(input []float64) ([]float64, error)
}
