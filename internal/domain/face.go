package domain

import (
	"image"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9 ]+$`)

// ValidateName checks an identity name before any network or inference work
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

// DetectionBox is a face region in source-frame pixel coordinates
type DetectionBox struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

func (b DetectionBox) Width() int {
	return b.Right - b.Left
}

func (b DetectionBox) Height() int {
	return b.Bottom - b.Top
}

// Rect converts the box to a half-open image.Rectangle
func (b DetectionBox) Rect() image.Rectangle {
	return image.Rectangle{
		Min: image.Point{X: b.Left, Y: b.Top},
		Max: image.Point{X: b.Right, Y: b.Bottom},
	}
}

// BoxFromRect converts an image.Rectangle to a DetectionBox
func BoxFromRect(r image.Rectangle) DetectionBox {
	return DetectionBox{
		Top:    r.Min.Y,
		Right:  r.Max.X,
		Bottom: r.Max.Y,
		Left:   r.Min.X,
	}
}

// Frame is one decoded camera frame. Data keeps the encoded bytes when the
// frame was decoded from a file or upload so detectors can skip re-encoding.
type Frame struct {
	Image  image.Image
	Data   []byte
	Format string
}

// MatchResult is produced fresh per recognition and never persisted
type MatchResult struct {
	Name  string       `json:"name"`
	Box   DetectionBox `json:"box"`
	Score float64      `json:"score"`
}

// Recognition is the outcome of one scheduled recognition pass
type Recognition struct {
	Matches     []MatchResult `json:"matches"`
	Detections  int           `json:"detections"`
	Skipped     int           `json:"skipped"`
	Latency     time.Duration `json:"-"`
	LatencyMs   int64         `json:"latency_ms"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Face representa uma face cadastrada no backend
type Face struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Image     []byte    `json:"-"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
