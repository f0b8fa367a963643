package onnx

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("models/MomentoRecognition32.onnx")

	assert.Equal(t, "models/MomentoRecognition32.onnx", cfg.ModelPath)
	assert.Equal(t, "input", cfg.InputName)
	assert.Equal(t, "embedding", cfg.OutputName)
	assert.Equal(t, 256, cfg.InputSize)
	assert.Equal(t, 512, cfg.EmbeddingDim)
}

func TestNewSession_InvalidGeometry(t *testing.T) {
	cfg := DefaultConfig("unused.onnx")
	cfg.InputSize = 0

	_, err := NewSession(cfg)
	assert.Error(t, err)
}

func TestClosedSession(t *testing.T) {
	s := &Session{}

	_, err := s.Run(context.Background(), make([]float32, 12))
	assert.True(t, errors.Is(err, domain.ErrModelUnavailable))
	assert.NoError(t, s.Close())
}

// TestSession_WithModel runs only when ONNX Runtime and the model are available
func TestSession_WithModel(t *testing.T) {
	modelPath := os.Getenv("ONNX_MODEL_PATH")
	if modelPath == "" {
		t.Skip("ONNX_MODEL_PATH not set")
	}

	cfg := DefaultConfig(modelPath)
	cfg.LibraryPath = os.Getenv("ONNX_RUNTIME_LIB")

	s, err := NewSession(cfg)
	require.NoError(t, err)

	input := make([]float32, 3*cfg.InputSize*cfg.InputSize)
	for i := range input {
		input[i] = float32(i%255)/255 - 0.5
	}

	out, err := s.Run(context.Background(), input)
	require.NoError(t, err)
	assert.Len(t, out, cfg.EmbeddingDim)

	_, err = s.Run(context.Background(), input[:10])
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Run(context.Background(), input)
	assert.True(t, errors.Is(err, domain.ErrModelUnavailable))
}
