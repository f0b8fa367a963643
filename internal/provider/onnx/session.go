// Package onnx runs the face embedding model through ONNX Runtime.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider"
)

// Config describes the model file and its tensor signature
type Config struct {
	ModelPath    string
	LibraryPath  string
	InputName    string
	OutputName   string
	InputSize    int
	EmbeddingDim int
}

// DefaultConfig matches the MomentoRecognition export: input "input"
// [1,3,256,256] and output "embedding" [1,512]
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:    modelPath,
		InputName:    "input",
		OutputName:   "embedding",
		InputSize:    256,
		EmbeddingDim: 512,
	}
}

// environment reference-counts the process-wide ONNX Runtime environment so
// sessions can be released and reloaded independently
var environment struct {
	mu   sync.Mutex
	refs int
}

func acquireEnvironment(libraryPath string) error {
	environment.mu.Lock()
	defer environment.mu.Unlock()

	if environment.refs == 0 {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if !ort.IsInitialized() {
			if err := ort.InitializeEnvironment(); err != nil {
				return fmt.Errorf("initialize onnxruntime: %w", err)
			}
		}
	}
	environment.refs++
	return nil
}

func releaseEnvironment() error {
	environment.mu.Lock()
	defer environment.mu.Unlock()

	if environment.refs == 0 {
		return nil
	}
	environment.refs--
	if environment.refs == 0 && ort.IsInitialized() {
		return ort.DestroyEnvironment()
	}
	return nil
}

// Session owns pre-allocated input and output tensors, so runs are
// serialized
type Session struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	inLen   int
	outLen  int
}

var _ provider.InferenceSession = (*Session)(nil)

// NewSession loads the model and allocates its tensors
func NewSession(cfg Config) (*Session, error) {
	if cfg.InputSize <= 0 || cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("invalid tensor geometry %d/%d", cfg.InputSize, cfg.EmbeddingDim)
	}

	if err := acquireEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	s := &Session{
		inLen:  3 * cfg.InputSize * cfg.InputSize,
		outLen: cfg.EmbeddingDim,
	}

	var err error
	s.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(cfg.InputSize), int64(cfg.InputSize)))
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	s.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.EmbeddingDim)))
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	s.session, err = ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.Value{s.input},
		[]ort.Value{s.output},
		nil,
	)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("create embedding session from %s: %w", cfg.ModelPath, err)
	}

	return s, nil
}

// Run copies the tensor in, runs the model and returns a copy of the raw output
func (s *Session) Run(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, domain.ErrModelUnavailable.WithError(errors.New("embedding session closed"))
	}
	if len(input) != s.inLen {
		return nil, domain.ErrDimensionMismatch.WithError(
			fmt.Errorf("tensor has %d values, model expects %d", len(input), s.inLen))
	}

	copy(s.input.GetData(), input)
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("run embedding: %w", err)
	}

	out := make([]float32, s.outLen)
	copy(out, s.output.GetData())
	return out, nil
}

// Close destroys the session and its tensors. Safe to call twice.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.session != nil {
		errs = append(errs, s.session.Destroy())
		s.session = nil
	}
	if s.input != nil {
		errs = append(errs, s.input.Destroy())
		s.input = nil
	}
	if s.output != nil {
		errs = append(errs, s.output.Destroy())
		s.output = nil
	}
	if s.inLen > 0 {
		errs = append(errs, releaseEnvironment())
		s.inLen = 0
	}

	return errors.Join(errs...)
}
