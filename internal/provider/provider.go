package provider

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
)

// Detector define a interface para detectores de faces externos
type Detector interface {
	// Detect retorna zero ou mais faces encontradas no frame
	// Nenhuma face não é erro: retorna slice vazio
	Detect(ctx context.Context, frame domain.Frame) ([]Detection, error)

	// Close libera os recursos do modelo
	Close() error
}

// InferenceSession runs the embedding model on one preprocessed tensor
type InferenceSession interface {
	// Run takes a 3·S·S planar tensor and returns the raw (unnormalized) embedding
	Run(ctx context.Context, input []float32) ([]float32, error)

	// Close releases the inference resources
	Close() error
}

// Detection represents a detected face in the frame
type Detection struct {
	Box        domain.DetectionBox `json:"box"`
	Landmarks  []image.Point       `json:"landmarks,omitempty"`
	Confidence float64             `json:"confidence"`
}

const jpegQuality = 90

// JPEGBytes returns the frame encoded as JPEG, reusing the original bytes
// when the frame was decoded from a JPEG
func JPEGBytes(frame domain.Frame) ([]byte, error) {
	if frame.Format == "jpeg" && len(frame.Data) > 0 {
		return frame.Data, nil
	}
	if frame.Image == nil {
		return nil, domain.ErrInvalidImage
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.Image, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodedBytes returns the original encoded bytes when present, JPEG otherwise
func EncodedBytes(frame domain.Frame) ([]byte, error) {
	if len(frame.Data) > 0 {
		return frame.Data, nil
	}
	return JPEGBytes(frame)
}
