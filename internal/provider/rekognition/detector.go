package rekognition

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
)

// landmarkTypes are kept in this order on each detection
var landmarkTypes = []types.LandmarkType{
	types.LandmarkTypeEyeLeft,
	types.LandmarkTypeEyeRight,
	types.LandmarkTypeNose,
	types.LandmarkTypeMouthLeft,
	types.LandmarkTypeMouthRight,
}

// Detector implements provider.Detector using AWS Rekognition DetectFaces
type Detector struct {
	api    API
	config Config
}

var _ provider.Detector = (*Detector)(nil)

// NewDetector creates a detector backed by the AWS SDK client
func NewDetector(ctx context.Context, cfg Config) (*Detector, error) {
	api, err := NewAPI(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewDetectorWithAPI(api, cfg), nil
}

// NewDetectorWithAPI creates a detector over an existing client
func NewDetectorWithAPI(api API, cfg Config) *Detector {
	return &Detector{api: api, config: cfg}
}

// Detect converts Rekognition's ratio bounding boxes to frame pixels.
// Returns an empty slice if no faces are detected (not an error).
func (d *Detector) Detect(ctx context.Context, frame domain.Frame) ([]provider.Detection, error) {
	if frame.Image == nil {
		return nil, domain.ErrInvalidImage
	}

	data, err := provider.EncodedBytes(frame)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	if len(data) > maxImageSize {
		if data, err = provider.JPEGBytes(domain.Frame{Image: frame.Image}); err != nil {
			return nil, fmt.Errorf("detect faces: %w", err)
		}
		if len(data) > maxImageSize {
			return nil, domain.ErrInvalidImage.WithError(
				fmt.Errorf("image too large (%d bytes, maximum %d)", len(data), maxImageSize))
		}
	}

	output, err := d.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image: &types.Image{
			Bytes: data,
		},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", parseError(err))
	}

	bounds := frame.Image.Bounds()
	detections := make([]provider.Detection, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil {
			continue
		}
		confidence := float32(0)
		if detail.Confidence != nil {
			confidence = *detail.Confidence
		}
		if confidence < d.config.MinConfidence {
			continue
		}

		detections = append(detections, provider.Detection{
			Box:        toBox(detail.BoundingBox, bounds.Dx(), bounds.Dy()),
			Landmarks:  toLandmarks(detail.Landmarks, bounds.Dx(), bounds.Dy()),
			Confidence: float64(confidence) / 100,
		})
	}

	return detections, nil
}

// Close is a no-op; the SDK client holds no native resources
func (d *Detector) Close() error {
	return nil
}

// toBox scales a ratio box to pixels. Rekognition may report ratios outside
// [0,1] for faces cut by the frame edge; the preprocessing stage clamps.
func toBox(b *types.BoundingBox, width, height int) domain.DetectionBox {
	left := ratio(b.Left) * float64(width)
	top := ratio(b.Top) * float64(height)
	right := left + ratio(b.Width)*float64(width)
	bottom := top + ratio(b.Height)*float64(height)

	return domain.DetectionBox{
		Top:    int(math.Round(top)),
		Right:  int(math.Round(right)),
		Bottom: int(math.Round(bottom)),
		Left:   int(math.Round(left)),
	}
}

func toLandmarks(landmarks []types.Landmark, width, height int) []image.Point {
	byType := make(map[types.LandmarkType]types.Landmark, len(landmarks))
	for _, l := range landmarks {
		byType[l.Type] = l
	}

	points := make([]image.Point, 0, len(landmarkTypes))
	for _, lt := range landmarkTypes {
		l, ok := byType[lt]
		if !ok {
			continue
		}
		points = append(points, image.Point{
			X: int(math.Round(ratio(l.X) * float64(width))),
			Y: int(math.Round(ratio(l.Y) * float64(height))),
		})
	}
	return points
}

func ratio(v *float32) float64 {
	if v == nil {
		return 0
	}
	return float64(*v)
}
