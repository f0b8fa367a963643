package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider"
)

// DefaultDimension matches the bundled recognition model output
const DefaultDimension = 512

// Detector simula detecção dividindo o frame em faixas verticais iguais,
// uma por face
type Detector struct {
	faces int
}

// NewDetector cria um detector que sempre encontra n faces
func NewDetector(faces int) *Detector {
	if faces < 0 {
		faces = 0
	}
	return &Detector{faces: faces}
}

// Detect retorna uma caixa centralizada por faixa
func (d *Detector) Detect(ctx context.Context, frame domain.Frame) ([]provider.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Image == nil {
		return nil, domain.ErrInvalidImage
	}

	bounds := frame.Image.Bounds()
	if d.faces == 0 || bounds.Dx() < d.faces || bounds.Dy() < 2 {
		return []provider.Detection{}, nil
	}

	stripe := bounds.Dx() / d.faces
	detections := make([]provider.Detection, 0, d.faces)
	for i := 0; i < d.faces; i++ {
		left := i*stripe + stripe/8
		right := (i+1)*stripe - stripe/8
		if right <= left {
			left, right = i*stripe, (i+1)*stripe
		}
		detections = append(detections, provider.Detection{
			Box: domain.DetectionBox{
				Top:    bounds.Dy() / 8,
				Right:  right,
				Bottom: bounds.Dy() - bounds.Dy()/8,
				Left:   left,
			},
			Confidence: 0.99,
		})
	}

	return detections, nil
}

// Close is a no-op
func (d *Detector) Close() error {
	return nil
}

// Session gera embeddings determinísticos a partir do hash do tensor
type Session struct {
	dimension int
}

// NewSession cria uma sessão mock com a dimensão informada
func NewSession(dimension int) *Session {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Session{dimension: dimension}
}

// Run hashes the tensor so identical crops always yield identical embeddings
func (s *Session) Run(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(input) == 0 {
		return nil, domain.ErrInvalidImage
	}

	buf := make([]byte, 4*len(input))
	for i, v := range input {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}

	return generateEmbedding(buf, s.dimension), nil
}

// Close is a no-op
func (s *Session) Close() error {
	return nil
}

// generateEmbedding gera embedding determinístico baseado no hash dos dados.
// O resultado não é normalizado, como a saída bruta de um modelo real.
func generateEmbedding(data []byte, dimension int) []float32 {
	embedding := make([]float32, dimension)

	block := sha256.Sum256(data)
	for i := 0; i < dimension; i++ {
		idx := i % len(block)
		if i > 0 && idx == 0 {
			block = sha256.Sum256(block[:])
		}
		embedding[i] = ((float32(block[idx])/255.0)*2 - 1) * 3
	}

	return embedding
}

var (
	_ provider.Detector         = (*Detector)(nil)
	_ provider.InferenceSession = (*Session)(nil)
)
