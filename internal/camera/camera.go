// Package camera provides frame sources for the recognition scheduler.
package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/preprocess"
)

// Source yields the current frame
type Source interface {
	Frame(ctx context.Context) (domain.Frame, error)
}

// maxSnapshotBytes caps a single camera snapshot
const maxSnapshotBytes = 16 << 20

// SnapshotSource pulls one still image per frame from an HTTP camera
// endpoint (IP cameras, mjpg-streamer's ?action=snapshot, etc.)
type SnapshotSource struct {
	url        string
	httpClient *http.Client
}

// NewSnapshotSource creates a source for url
func NewSnapshotSource(url string, timeout time.Duration) *SnapshotSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SnapshotSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Frame fetches and decodes the current snapshot
func (s *SnapshotSource) Frame(ctx context.Context) (domain.Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("create snapshot request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Frame{}, ctx.Err()
		}
		return domain.Frame{}, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return domain.Frame{}, fmt.Errorf("fetch snapshot: camera returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes+1))
	if err != nil {
		return domain.Frame{}, fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) > maxSnapshotBytes {
		return domain.Frame{}, domain.ErrInvalidImage.WithError(fmt.Errorf("snapshot larger than %d bytes", maxSnapshotBytes))
	}

	return preprocess.DecodeFrame(data)
}

// FileSource re-reads an image file on every frame, so a process writing the
// file (ffmpeg -update 1, a capture script) acts as the camera
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Frame reads and decodes the file
func (s *FileSource) Frame(ctx context.Context) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return domain.Frame{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("read frame %s: %w", s.path, err)
	}
	return preprocess.DecodeFrame(data)
}

// FromURL picks a source for a CAMERA_URL value: http(s) URLs are polled as
// snapshots, file:// URLs and bare paths are read from disk. An empty value
// yields nil.
func FromURL(raw string, timeout time.Duration) Source {
	switch {
	case raw == "":
		return nil
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return NewSnapshotSource(raw, timeout)
	default:
		return NewFileSource(strings.TrimPrefix(raw, "file://"))
	}
}
