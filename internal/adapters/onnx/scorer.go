// Package onnx implements ports.Scorer on top of ONNX Runtime through
// github.com/yalue/onnxruntime_go. A scorer binds one fixed input tensor and
// one fixed output tensor to its session, so Predict calls are serialized.
package onnx

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/mommothazaz123/avrae-search-nn/internal/domain/canon"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

var envMu sync.Mutex

// Init loads the ONNX Runtime shared library and creates the process-wide
// environment. Later calls are no-ops once it succeeded; a failed attempt
// may be retried with another path.
func Init(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnxruntime init: %w", err)
	}
	return nil
}

// Shutdown destroys the environment. Scorers must be closed first.
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// Scorer runs one ONNX model.
type Scorer struct {
	desc    ports.ScorerDescriptor
	mu      sync.Mutex
	session *ort.AdvancedSession
	in      *ort.Tensor[float32]
	out     *ort.Tensor[float32]
}

var _ ports.Scorer = (*Scorer)(nil)

// Open creates a session for d.Model. Missing input/output names and the
// output size are read from the model itself. Init must have succeeded.
func Open(d ports.ScorerDescriptor) (*Scorer, error) {
	if d.Model == "" {
		return nil, fmt.Errorf("scorer %q: no model path", d.Name)
	}
	inputs, outputs, err := ort.GetInputOutputInfo(d.Model)
	if err != nil {
		return nil, fmt.Errorf("scorer %q: inspect %s: %w", d.Name, d.Model, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("scorer %q: model has no inputs or outputs", d.Name)
	}
	if d.InputName == "" {
		d.InputName = inputs[0].Name
	}
	if d.OutputName == "" {
		d.OutputName = outputs[0].Name
	}
	if d.InputLength == 0 {
		d.InputLength = canon.DefaultLength
	}
	if len(d.InputShape) == 0 {
		d.InputShape = []int64{1, int64(d.InputLength)}
	}
	if d.CatalogSize == 0 {
		dims := outputs[0].Dimensions
		if len(dims) == 0 || dims[len(dims)-1] <= 0 {
			return nil, fmt.Errorf("scorer %q: output size unknown; set catalog_size", d.Name)
		}
		d.CatalogSize = int(dims[len(dims)-1])
	}

	inShape := ort.NewShape(d.InputShape...)
	if inShape.FlattenedSize() != int64(d.InputLength) {
		return nil, fmt.Errorf("scorer %q: input shape %v does not hold %d values", d.Name, d.InputShape, d.InputLength)
	}
	in, err := ort.NewEmptyTensor[float32](inShape)
	if err != nil {
		return nil, fmt.Errorf("scorer %q: input tensor: %w", d.Name, err)
	}
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(d.CatalogSize)))
	if err != nil {
		in.Destroy()
		return nil, fmt.Errorf("scorer %q: output tensor: %w", d.Name, err)
	}
	session, err := ort.NewAdvancedSession(d.Model,
		[]string{d.InputName}, []string{d.OutputName},
		[]ort.Value{in}, []ort.Value{out}, nil)
	if err != nil {
		in.Destroy()
		out.Destroy()
		return nil, fmt.Errorf("scorer %q: session: %w", d.Name, err)
	}
	return &Scorer{desc: d, session: session, in: in, out: out}, nil
}

// Descriptor returns the descriptor with names and sizes filled in.
func (s *Scorer) Descriptor() ports.ScorerDescriptor { return s.desc }

// Predict copies x into the input tensor, runs the session and returns a
// copy of the output row.
func (s *Scorer) Predict(x []float64) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, fmt.Errorf("scorer %q: closed", s.desc.Name)
	}

	data := s.in.GetData()
	if len(x) != len(data) {
		return nil, fmt.Errorf("scorer %q: input has %d values, model takes %d", s.desc.Name, len(x), len(data))
	}
	for i, v := range x {
		data[i] = float32(v)
	}
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("scorer %q: run: %w", s.desc.Name, err)
	}
	raw := s.out.GetData()
	weights := make([]float64, len(raw))
	for i, v := range raw {
		weights[i] = float64(v)
	}
	return weights, nil
}

// Close releases the session and tensors. Safe to call more than once.
func (s *Scorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.in.Destroy()
	s.out.Destroy()
	s.session, s.in, s.out = nil, nil, nil
	return err
}
