package deepface

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider"
)

// Detector implements provider.Detector using the DeepFace API
type Detector struct {
	client *Client
}

var _ provider.Detector = (*Detector)(nil)

// NewDetector creates a new DeepFace detector
func NewDetector(config Config) *Detector {
	return &Detector{
		client: NewClient(config),
	}
}

// Detect sends the frame to DeepFace and converts each facial area to a
// pixel box. With enforce_detection off DeepFace reports a frame-sized area
// with zero confidence when it finds nothing; those are dropped.
func (d *Detector) Detect(ctx context.Context, frame domain.Frame) ([]provider.Detection, error) {
	data, err := provider.EncodedBytes(frame)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	resp, err := d.client.Represent(ctx, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	detections := make([]provider.Detection, 0, len(resp.Results))
	for _, result := range resp.Results {
		if result.FaceConfidence <= 0 {
			continue
		}

		area := result.FacialArea
		detection := provider.Detection{
			Box: domain.DetectionBox{
				Top:    area.Y,
				Right:  area.X + area.W,
				Bottom: area.Y + area.H,
				Left:   area.X,
			},
			Confidence: result.FaceConfidence,
		}
		if area.LeftEye != nil && area.RightEye != nil {
			detection.Landmarks = []image.Point{
				{X: area.LeftEye[0], Y: area.LeftEye[1]},
				{X: area.RightEye[0], Y: area.RightEye[1]},
			}
		}

		detections = append(detections, detection)
	}

	return detections, nil
}

// Close is a no-op; DeepFace is stateless
func (d *Detector) Close() error {
	return nil
}
