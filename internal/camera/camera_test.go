package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSnapshotSource_Frame(t *testing.T) {
	data := pngBytes(t, 8, 6)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer server.Close()

	frame, err := NewSnapshotSource(server.URL, time.Second).Frame(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "png", frame.Format)
	assert.Equal(t, 8, frame.Image.Bounds().Dx())
	assert.Equal(t, data, frame.Data)
}

func TestSnapshotSource_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      []byte
		wantImage bool
	}{
		{name: "camera error status", status: http.StatusServiceUnavailable, body: []byte("busy")},
		{name: "not an image", status: http.StatusOK, body: []byte("<html></html>"), wantImage: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write(tt.body)
			}))
			defer server.Close()

			_, err := NewSnapshotSource(server.URL, time.Second).Frame(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.wantImage, errors.Is(err, domain.ErrInvalidImage))
		})
	}
}

func TestFileSource_Frame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 4, 4), 0o600))

	src := NewFileSource(path)
	frame, err := src.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, frame.Image.Bounds().Dy())

	// picks up a rewritten file
	require.NoError(t, os.WriteFile(path, pngBytes(t, 10, 2), 0o600))
	frame, err = src.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, frame.Image.Bounds().Dx())

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.png")).Frame(context.Background())
	assert.Error(t, err)
}

func TestFromURL(t *testing.T) {
	assert.Nil(t, FromURL("", time.Second))
	assert.IsType(t, &SnapshotSource{}, FromURL("http://cam.local/snapshot.jpg", time.Second))
	assert.IsType(t, &SnapshotSource{}, FromURL("https://cam.local/snapshot.jpg", time.Second))

	src := FromURL("file:///tmp/frame.jpg", time.Second)
	require.IsType(t, &FileSource{}, src)
	assert.Equal(t, "/tmp/frame.jpg", src.(*FileSource).path)
}
