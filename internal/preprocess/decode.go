package preprocess

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
)

// MaxFramePixels caps width×height of a decoded frame, checked against the
// header before any pixel buffer is allocated
const MaxFramePixels = 40_000_000

// DecodeFrame decodes JPEG, PNG, BMP or WebP bytes into a Frame
func DecodeFrame(data []byte) (domain.Frame, error) {
	if len(data) == 0 {
		return domain.Frame{}, domain.ErrInvalidImage.WithError(fmt.Errorf("empty image"))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.Frame{}, domain.ErrInvalidImage.WithError(err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxFramePixels {
		return domain.Frame{}, domain.ErrInvalidImage.WithError(
			fmt.Errorf("frame is %dx%d, limit is %d pixels", cfg.Width, cfg.Height, MaxFramePixels))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.Frame{}, domain.ErrInvalidImage.WithError(err)
	}

	return domain.Frame{Image: img, Data: data, Format: format}, nil
}

// DecodeBase64Frame accepts raw base64 or a data URI such as
// "data:image/jpeg;base64,/9j/4AAQ..." as produced by browser screenshots
func DecodeBase64Frame(s string) (domain.Frame, error) {
	data, err := DecodeBase64(s)
	if err != nil {
		return domain.Frame{}, err
	}
	return DecodeFrame(data)
}

// DecodeBase64 strips an optional data URI prefix and decodes the payload
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("malformed data uri"))
		}
		s = s[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	return data, nil
}
