// Package extractor turns a frame region into a unit embedding.
package extractor

import (
	"context"
	"fmt"
	"image"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/embedding"
	"github.com/saturnino-fabrica-de-software/momento/internal/preprocess"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider"
)

// SessionSource hands out the current inference session. The model manager
// satisfies it.
type SessionSource interface {
	Models() (provider.Detector, provider.InferenceSession, error)
}

// Extractor runs preprocessing and inference for one region at a time
type Extractor struct {
	pipeline  *preprocess.Pipeline
	models    SessionSource
	dimension int
}

// New creates an extractor. dimension, when positive, is enforced on every
// model output.
func New(pipeline *preprocess.Pipeline, models SessionSource, dimension int) *Extractor {
	return &Extractor{
		pipeline:  pipeline,
		models:    models,
		dimension: dimension,
	}
}

// Dimension returns the enforced output size, or 0 when unchecked
func (e *Extractor) Dimension() int {
	return e.dimension
}

// Extract preprocesses img (cropped to box when non-nil), runs the session and
// normalizes the raw output. It fails with ErrModelUnavailable before doing
// any work when models are not ready.
func (e *Extractor) Extract(ctx context.Context, img image.Image, box *domain.DetectionBox) (embedding.Vector, error) {
	_, session, err := e.models.Models()
	if err != nil {
		return nil, err
	}

	tensor, err := e.pipeline.Tensor(img, box)
	if err != nil {
		return nil, err
	}

	raw, err := session.Run(ctx, tensor)
	if err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}

	if e.dimension > 0 && len(raw) != e.dimension {
		return nil, domain.ErrDimensionMismatch.WithError(
			fmt.Errorf("model returned %d values, expected %d", len(raw), e.dimension))
	}

	return embedding.Normalize(raw)
}
