package face

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/momento/internal/backend"
	"github.com/saturnino-fabrica-de-software/momento/internal/config"
	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/model"
	"github.com/saturnino-fabrica-de-software/momento/internal/preprocess"
)

// fakeBackend keeps enrolled embeddings in memory
type fakeBackend struct {
	mu    sync.Mutex
	faces map[string][]float64
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(backend.PathEnroll, func(w http.ResponseWriter, r *http.Request) {
		var req backend.EnrollRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.faces[req.Name] = req.Embedding
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(backend.StatusResponse{Worked: true})
	})

	mux.HandleFunc(backend.PathSavedList, func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		names := make([]string, 0, len(b.faces))
		for name := range b.faces {
			names = append(names, name)
		}
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(backend.ListResponse{Worked: true, Names: names})
	})

	mux.HandleFunc(backend.PathEmbedding, func(w http.ResponseWriter, r *http.Request) {
		var req backend.EmbeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		vec, ok := b.faces[req.Name]
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(backend.EmbeddingResponse{Message: "Face not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(backend.EmbeddingResponse{Worked: true, Embedding: vec})
	})

	return mux
}

func testEngineConfig(backendURL string) *config.EngineConfig {
	return &config.EngineConfig{
		BackendURL:      backendURL,
		BackendTimeout:  time.Second,
		Username:        "maria",
		Detector:        "mock",
		Embedder:        "mock",
		EmbeddingDim:    64,
		InputSize:       32,
		NormMean:        []float64{0.485, 0.456, 0.406},
		NormStd:         []float64{0.229, 0.224, 0.225},
		MatchThreshold:  0.6,
		SyncConcurrency: 2,
	}
}

func testFrame(t *testing.T, shade uint8) domain.Frame {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: uint8(x * 5), B: uint8(y * 5), A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	frame, err := preprocess.DecodeFrame(buf.Bytes())
	require.NoError(t, err)
	return frame
}

func TestEngine_EnrollThenRecognize(t *testing.T) {
	fb := &fakeBackend{faces: map[string][]float64{}}
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := NewEngine(testEngineConfig(srv.URL), logger)
	require.NoError(t, err)
	defer func() { _ = engine.Close() }()

	ctx := context.Background()
	report, err := engine.Start(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Loaded)
	assert.Equal(t, model.StateReady, engine.Models.State())

	alice := testFrame(t, 200)
	require.NoError(t, engine.Service.Enroll(ctx, "Alice", alice))
	assert.Equal(t, []string{"Alice"}, engine.Service.Known())

	rec, err := engine.Service.Recognize(ctx, alice)
	require.NoError(t, err)
	require.Len(t, rec.Matches, 1)
	assert.Equal(t, "Alice", rec.Matches[0].Name)
	assert.InDelta(t, 1.0, rec.Matches[0].Score, 1e-5)
}

func TestEngine_StartSyncsFromBackend(t *testing.T) {
	fb := &fakeBackend{faces: map[string][]float64{}}
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	first, err := NewEngine(testEngineConfig(srv.URL), logger)
	require.NoError(t, err)
	_, err = first.Start(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, first.Service.Enroll(ctx, "Alice", testFrame(t, 10)))
	require.NoError(t, first.Service.Enroll(ctx, "Bob", testFrame(t, 250)))
	require.NoError(t, first.Close())
	assert.Zero(t, first.Store.Len())

	second, err := NewEngine(testEngineConfig(srv.URL), logger)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	report, err := second.Start(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Loaded)
	assert.Equal(t, []string{"Alice", "Bob"}, second.Service.Known())
}

func TestEngine_FailedModelLoadSkipsSync(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	cfg := testEngineConfig(srv.URL)
	cfg.Embedder = "onnx"
	cfg.ModelDir = t.TempDir()
	cfg.EmbeddingModel = "missing.onnx"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := NewEngine(cfg, logger)
	require.NoError(t, err)

	_, err = engine.Start(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.Equal(t, model.StateFailed, engine.Models.State())
	assert.Zero(t, hits)
}

func TestNewEngine_RejectsBadPreprocessing(t *testing.T) {
	cfg := testEngineConfig("http://localhost")
	cfg.NormStd = []float64{0.2, 0, 0.2}

	_, err := NewEngine(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
