// Package preprocess turns a decoded frame, optionally cropped to a detection
// box, into the planar normalized tensor the embedding model consumes.
package preprocess

import (
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
)

// Config holds the model-specific tensor geometry and channel statistics
type Config struct {
	Size int
	Mean [3]float64
	Std  [3]float64
}

// DefaultConfig matches the bundled 256x256 recognition model
func DefaultConfig() Config {
	return Config{
		Size: 256,
		Mean: [3]float64{0.485, 0.456, 0.406},
		Std:  [3]float64{0.229, 0.224, 0.225},
	}
}

// ConfigFrom builds a Config from slice-valued settings
func ConfigFrom(size int, mean, std []float64) (Config, error) {
	if len(mean) != 3 || len(std) != 3 {
		return Config{}, fmt.Errorf("mean and std need 3 channels, got %d and %d", len(mean), len(std))
	}
	cfg := Config{Size: size}
	copy(cfg.Mean[:], mean)
	copy(cfg.Std[:], std)
	return cfg, nil
}

// Pipeline is safe for concurrent use; it holds no mutable state
type Pipeline struct {
	size   int
	scale  [3]float32
	offset [3]float32
	interp xdraw.Interpolator
}

// New validates cfg and precomputes the per-channel affine transform
func New(cfg Config) (*Pipeline, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("tensor size must be positive, got %d", cfg.Size)
	}

	p := &Pipeline{
		size:   cfg.Size,
		interp: xdraw.BiLinear,
	}
	for c := 0; c < 3; c++ {
		if cfg.Std[c] == 0 {
			return nil, fmt.Errorf("std for channel %d must be non-zero", c)
		}
		// (v/255 - mean) / std == v*scale + offset
		p.scale[c] = float32(1 / (255 * cfg.Std[c]))
		p.offset[c] = float32(-cfg.Mean[c] / cfg.Std[c])
	}

	return p, nil
}

// Size returns the spatial edge S of the produced S×S tensor
func (p *Pipeline) Size() int {
	return p.size
}

// TensorLen is the number of float32 values in one tensor (3·S·S)
func (p *Pipeline) TensorLen() int {
	return 3 * p.size * p.size
}

// Tensor converts img into a 3·S·S planar RGB tensor. With a box the region
// is clamped to the frame and stretched to S×S; without one the whole frame
// is scaled to fit and centered on a black canvas.
func (p *Pipeline) Tensor(img image.Image, box *domain.DetectionBox) ([]float32, error) {
	if img == nil {
		return nil, domain.ErrInvalidImage
	}

	canvas := image.NewRGBA(image.Rect(0, 0, p.size, p.size))

	if box != nil {
		src, err := clampBox(img.Bounds(), *box)
		if err != nil {
			return nil, err
		}
		p.interp.Scale(canvas, canvas.Bounds(), img, src, xdraw.Src, nil)
	} else {
		bounds := img.Bounds()
		if bounds.Empty() {
			return nil, domain.ErrInvalidRegion.WithError(fmt.Errorf("empty frame"))
		}
		draw.Draw(canvas, canvas.Bounds(), image.Black, image.Point{}, draw.Src)
		p.interp.Scale(canvas, fitRect(bounds.Dx(), bounds.Dy(), p.size), img, bounds, xdraw.Over, nil)
	}

	return p.planar(canvas), nil
}

// clampBox intersects the box with the frame bounds. Box coordinates are
// relative to the frame origin.
func clampBox(bounds image.Rectangle, box domain.DetectionBox) (image.Rectangle, error) {
	if box.Width() <= 0 || box.Height() <= 0 {
		return image.Rectangle{}, domain.ErrInvalidRegion.WithError(
			fmt.Errorf("box %dx%d", box.Width(), box.Height()))
	}

	r := box.Rect().Add(bounds.Min).Intersect(bounds)
	if r.Empty() {
		return image.Rectangle{}, domain.ErrInvalidRegion.WithError(
			fmt.Errorf("box %v outside frame %v", box.Rect(), bounds))
	}
	return r, nil
}

// fitRect scales w×h so the larger side equals size and centers the result
func fitRect(w, h, size int) image.Rectangle {
	var nw, nh int
	if w >= h {
		nw = size
		nh = (h*size + w/2) / w
	} else {
		nh = size
		nw = (w*size + h/2) / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	x := (size - nw) / 2
	y := (size - nh) / 2
	return image.Rect(x, y, x+nw, y+nh)
}

func (p *Pipeline) planar(canvas *image.RGBA) []float32 {
	plane := p.size * p.size
	out := make([]float32, 3*plane)

	for y := 0; y < p.size; y++ {
		row := canvas.Pix[y*canvas.Stride:]
		for x := 0; x < p.size; x++ {
			px := row[x*4:]
			i := y*p.size + x
			out[i] = float32(px[0])*p.scale[0] + p.offset[0]
			out[plane+i] = float32(px[1])*p.scale[1] + p.offset[1]
			out[2*plane+i] = float32(px[2])*p.scale[2] + p.offset[2]
		}
	}

	return out
}
