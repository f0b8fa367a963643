// Package dlib detects faces and 5-point landmarks locally with the dlib
// models bundled in MODEL_DIR.
package dlib

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	face "github.com/Kagami/go-face"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider"
)

// Config holds the model bundle location. The directory must contain
// shape_predictor_5_face_landmarks.dat, dlib_face_recognition_resnet_model_v1.dat
// and, when UseCNN is set, mmod_human_face_detector.dat.
type Config struct {
	ModelDir string
	UseCNN   bool
}

// Detector wraps a go-face recognizer. dlib is not safe for concurrent
// calls on one recognizer, so Detect is serialized.
type Detector struct {
	mu  sync.Mutex
	rec *face.Recognizer
	cnn bool
}

var _ provider.Detector = (*Detector)(nil)

// NewDetector loads the model bundle
func NewDetector(cfg Config) (*Detector, error) {
	rec, err := face.NewRecognizer(cfg.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("load dlib models from %s: %w", cfg.ModelDir, err)
	}

	return &Detector{rec: rec, cnn: cfg.UseCNN}, nil
}

// Detect returns one detection per face with its landmark shape
func (d *Detector) Detect(ctx context.Context, frame domain.Frame) ([]provider.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := provider.JPEGBytes(frame)
	if err != nil {
		return nil, fmt.Errorf("dlib detect: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rec == nil {
		return nil, domain.ErrModelUnavailable.WithError(errors.New("dlib detector closed"))
	}

	var faces []face.Face
	if d.cnn {
		faces, err = d.rec.RecognizeCNN(data)
	} else {
		faces, err = d.rec.Recognize(data)
	}
	if err != nil {
		var loadErr face.ImageLoadError
		if errors.As(err, &loadErr) {
			return nil, domain.ErrInvalidImage.WithError(err)
		}
		return nil, fmt.Errorf("dlib detect: %w", err)
	}

	return toDetections(faces), nil
}

// Close releases the native recognizer. Safe to call twice.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rec != nil {
		d.rec.Close()
		d.rec = nil
	}
	return nil
}

func toDetections(faces []face.Face) []provider.Detection {
	detections := make([]provider.Detection, 0, len(faces))
	for _, f := range faces {
		landmarks := make([]image.Point, len(f.Shapes))
		copy(landmarks, f.Shapes)

		// dlib HOG/CNN detection does not report a score
		detections = append(detections, provider.Detection{
			Box:        domain.BoxFromRect(f.Rectangle),
			Landmarks:  landmarks,
			Confidence: 1.0,
		})
	}
	return detections
}
