package preprocess

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// identityPipeline leaves pixel/255 untouched so assertions read naturally
func identityPipeline(t *testing.T, size int) *Pipeline {
	t.Helper()
	p, err := New(Config{Size: size, Mean: [3]float64{0, 0, 0}, Std: [3]float64{1, 1, 1}})
	require.NoError(t, err)
	return p
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default", cfg: DefaultConfig()},
		{name: "zero size", cfg: Config{Size: 0, Std: [3]float64{1, 1, 1}}, wantErr: true},
		{name: "zero std", cfg: Config{Size: 8, Std: [3]float64{1, 0, 1}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.Size, p.Size())
			assert.Equal(t, 3*tt.cfg.Size*tt.cfg.Size, p.TensorLen())
		})
	}
}

func TestConfigFrom(t *testing.T) {
	cfg, err := ConfigFrom(128, []float64{0.1, 0.2, 0.3}, []float64{0.4, 0.5, 0.6})
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Size)
	assert.Equal(t, [3]float64{0.1, 0.2, 0.3}, cfg.Mean)
	assert.Equal(t, [3]float64{0.4, 0.5, 0.6}, cfg.Std)

	_, err = ConfigFrom(128, []float64{0.1}, []float64{0.4, 0.5, 0.6})
	assert.Error(t, err)
}

func TestTensor_PlanarNormalization(t *testing.T) {
	p, err := New(Config{
		Size: 4,
		Mean: [3]float64{0.5, 0.25, 0},
		Std:  [3]float64{0.5, 0.25, 2},
	})
	require.NoError(t, err)

	img := solidImage(4, 4, color.RGBA{R: 255, G: 0, B: 51, A: 255})
	tensor, err := p.Tensor(img, nil)
	require.NoError(t, err)
	require.Len(t, tensor, 48)

	// red plane: (1 - 0.5)/0.5, green: (0 - 0.25)/0.25, blue: (0.2 - 0)/2
	for i := 0; i < 16; i++ {
		assert.InDelta(t, 1.0, tensor[i], 1e-5)
		assert.InDelta(t, -1.0, tensor[16+i], 1e-5)
		assert.InDelta(t, 0.1, tensor[32+i], 1e-5)
	}
}

func TestTensor_BoxCropStretches(t *testing.T) {
	p := identityPipeline(t, 8)

	// left half red, right half blue
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			if x < 10 {
				img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}

	box := domain.DetectionBox{Top: 2, Right: 8, Bottom: 6, Left: 2}
	tensor, err := p.Tensor(img, &box)
	require.NoError(t, err)

	// crop lies entirely inside the red half, stretched over the whole canvas
	for i := 0; i < 64; i++ {
		assert.InDelta(t, 1.0, tensor[i], 1e-5)
		assert.InDelta(t, 0.0, tensor[128+i], 1e-5)
	}
}

func TestTensor_BoxClampedToFrame(t *testing.T) {
	p := identityPipeline(t, 4)
	img := solidImage(10, 10, color.RGBA{G: 255, A: 255})

	box := domain.DetectionBox{Top: -5, Right: 30, Bottom: 4, Left: 6}
	tensor, err := p.Tensor(img, &box)
	require.NoError(t, err)

	for i := 0; i < 16; i++ {
		assert.InDelta(t, 1.0, tensor[16+i], 1e-5)
	}
}

func TestTensor_InvalidRegion(t *testing.T) {
	p := identityPipeline(t, 4)
	img := solidImage(10, 10, color.RGBA{A: 255})

	tests := []struct {
		name string
		box  domain.DetectionBox
	}{
		{name: "zero width", box: domain.DetectionBox{Top: 1, Right: 3, Bottom: 5, Left: 3}},
		{name: "zero height", box: domain.DetectionBox{Top: 4, Right: 5, Bottom: 4, Left: 1}},
		{name: "negative width", box: domain.DetectionBox{Top: 1, Right: 1, Bottom: 5, Left: 5}},
		{name: "outside frame", box: domain.DetectionBox{Top: 20, Right: 40, Bottom: 30, Left: 30}},
		{name: "zero after clamp", box: domain.DetectionBox{Top: 2, Right: 0, Bottom: 8, Left: -4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tensor, err := p.Tensor(img, &tt.box)
			assert.Nil(t, tensor)
			assert.True(t, errors.Is(err, domain.ErrInvalidRegion), "got %v", err)
		})
	}
}

func TestTensor_BoxRelativeToBoundsMin(t *testing.T) {
	p := identityPipeline(t, 2)

	base := solidImage(20, 20, color.RGBA{A: 255})
	for y := 10; y < 20; y++ {
		for x := 10; x < 20; x++ {
			base.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	sub := base.SubImage(image.Rect(10, 10, 20, 20))

	box := domain.DetectionBox{Top: 0, Right: 10, Bottom: 10, Left: 0}
	tensor, err := p.Tensor(sub, &box)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 1.0, tensor[i], 1e-5)
	}
}

func TestTensor_WholeFrameLetterbox(t *testing.T) {
	p := identityPipeline(t, 8)

	// 16x8 white frame scales to 8x4 and is centered vertically
	img := solidImage(16, 8, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	tensor, err := p.Tensor(img, nil)
	require.NoError(t, err)

	red := tensor[:64]
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := red[y*8+x]
			if y >= 2 && y < 6 {
				assert.InDelta(t, 1.0, v, 1e-5, "row %d inside content", y)
			} else {
				assert.InDelta(t, 0.0, v, 1e-5, "row %d is padding", y)
			}
		}
	}
}

func TestTensor_WholeFramePortrait(t *testing.T) {
	p := identityPipeline(t, 8)

	img := solidImage(4, 16, color.RGBA{G: 255, A: 255})
	tensor, err := p.Tensor(img, nil)
	require.NoError(t, err)

	green := tensor[64:128]
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			want := 0.0
			if x >= 3 && x < 5 {
				want = 1.0
			}
			assert.InDelta(t, want, green[y*8+x], 1e-5)
		}
	}
}

func TestTensor_NilImage(t *testing.T) {
	p := identityPipeline(t, 4)
	_, err := p.Tensor(nil, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidImage))
}

func TestFitRect(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want image.Rectangle
	}{
		{name: "square", w: 100, h: 100, want: image.Rect(0, 0, 256, 256)},
		{name: "landscape", w: 640, h: 480, want: image.Rect(0, 32, 256, 224)},
		{name: "portrait", w: 480, h: 640, want: image.Rect(32, 0, 224, 256)},
		{name: "thin", w: 1000, h: 1, want: image.Rect(0, 127, 256, 128)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fitRect(tt.w, tt.h, 256))
		})
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// resizedPNG rewrites the IHDR dimensions of a valid PNG, leaving the pixel
// data for the original size
func resizedPNG(t *testing.T, width, height uint32) []byte {
	t.Helper()

	data := encodePNG(t, solidImage(1, 1, color.RGBA{A: 255}))
	binary.BigEndian.PutUint32(data[16:20], width)
	binary.BigEndian.PutUint32(data[20:24], height)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestDecodeFrame(t *testing.T) {
	valid := encodePNG(t, solidImage(6, 4, color.RGBA{R: 10, A: 255}))

	frame, err := DecodeFrame(valid)
	require.NoError(t, err)
	assert.Equal(t, "png", frame.Format)
	assert.Equal(t, image.Rect(0, 0, 6, 4), frame.Image.Bounds())
	assert.Equal(t, valid, frame.Data)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "not an image", data: []byte("not an image")},
		{name: "header declares 20000x20000", data: resizedPNG(t, 20000, 20000)},
		{name: "header one row over the limit", data: resizedPNG(t, 10000, MaxFramePixels/10000+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame(tt.data)
			assert.True(t, errors.Is(err, domain.ErrInvalidImage))
		})
	}
}

func TestDecodeBase64Frame(t *testing.T) {
	data := encodePNG(t, solidImage(3, 3, color.RGBA{A: 255}))
	raw := base64.StdEncoding.EncodeToString(data)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "raw base64", input: raw},
		{name: "data uri", input: "data:image/png;base64," + raw},
		{name: "surrounding whitespace", input: "  " + raw + "\n"},
		{name: "malformed data uri", input: "data:image/png;base64", wantErr: true},
		{name: "invalid base64", input: "%%%", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := DecodeBase64Frame(tt.input)
			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrInvalidImage))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 3, frame.Image.Bounds().Dx())
		})
	}
}
