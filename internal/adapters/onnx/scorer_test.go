package onnx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// Runtime tests need a real libonnxruntime and a model exported with one
// [1,16] float input and one [1,N] float output.
func requireRuntime(t *testing.T) (lib, model string) {
	t.Helper()
	lib = os.Getenv("NNSEARCH_ONNX_LIB")
	model = os.Getenv("NNSEARCH_ONNX_MODEL")
	if lib == "" || model == "" {
		t.Skip("NNSEARCH_ONNX_LIB and NNSEARCH_ONNX_MODEL not set")
	}
	return lib, model
}

func TestOpen_NoModelPath(t *testing.T) {
	_, err := Open(ports.ScorerDescriptor{Name: "empty"})
	assert.ErrorContains(t, err, "no model path")
}

func TestScorer_Predict(t *testing.T) {
	lib, model := requireRuntime(t)
	require.NoError(t, Init(lib))
	require.NoError(t, Init(lib), "second init is a no-op")

	s, err := Open(ports.ScorerDescriptor{Name: "env", Alphabet: "alpha", Mode: "dense", Model: model})
	require.NoError(t, err)
	defer s.Close()

	d := s.Descriptor()
	assert.NotEmpty(t, d.InputName)
	assert.NotEmpty(t, d.OutputName)
	require.Positive(t, d.CatalogSize)

	x := make([]float64, d.InputLength)
	x[0] = 6.0 / 28
	w, err := s.Predict(x)
	require.NoError(t, err)
	assert.Len(t, w, d.CatalogSize)

	again, err := s.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, w, again, "same input, same output")

	_, err = s.Predict(x[:3])
	assert.Error(t, err)
}

func TestScorer_CloseTwice(t *testing.T) {
	lib, model := requireRuntime(t)
	require.NoError(t, Init(lib))

	s, err := Open(ports.ScorerDescriptor{Name: "env", Model: model})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())

	_, err = s.Predict(make([]float64, 16))
	assert.ErrorContains(t, err, "closed")
}

func TestOpen_MissingModel(t *testing.T) {
	lib, _ := requireRuntime(t)
	require.NoError(t, Init(lib))
	_, err := Open(ports.ScorerDescriptor{Name: "gone", Model: filepath.Join(t.TempDir(), "gone.onnx")})
	assert.Error(t, err)
}
