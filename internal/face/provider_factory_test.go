package face

import (
	"context"
	"strings"
	"testing"

	"github.com/saturnino-fabrica-de-software/momento/internal/config"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider/mock"
)

func TestNewLoaders_DeepFace(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		deepFaceURL string
	}{
		{name: "explicit url", deepFaceURL: "http://localhost:5005"},
		{name: "custom url", deepFaceURL: "http://custom-host:8080"},
		{name: "empty url falls back to default", deepFaceURL: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.EngineConfig{
				Detector:     "deepface",
				Embedder:     "mock",
				DeepFaceURL:  tt.deepFaceURL,
				EmbeddingDim: 128,
			}

			loaders, err := NewLoaders(cfg)
			if err != nil {
				t.Fatalf("NewLoaders() error = %v", err)
			}

			detector, err := loaders.Detector(ctx)
			if err != nil {
				t.Fatalf("Detector() error = %v", err)
			}
			if _, ok := detector.(*deepface.Detector); !ok {
				t.Errorf("Detector() returned type %T, want *deepface.Detector", detector)
			}
		})
	}
}

func TestNewLoaders_Mock(t *testing.T) {
	ctx := context.Background()
	cfg := &config.EngineConfig{
		Detector:     "mock",
		Embedder:     "mock",
		EmbeddingDim: 128,
	}

	loaders, err := NewLoaders(cfg)
	if err != nil {
		t.Fatalf("NewLoaders() error = %v", err)
	}

	detector, err := loaders.Detector(ctx)
	if err != nil {
		t.Fatalf("Detector() error = %v", err)
	}
	if _, ok := detector.(*mock.Detector); !ok {
		t.Errorf("Detector() returned type %T, want *mock.Detector", detector)
	}

	session, err := loaders.Session(ctx)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	out, err := session.Run(ctx, []float32{1, 2, 3})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out) != 128 {
		t.Errorf("Run() returned %d values, want 128", len(out))
	}
}

func TestNewLoaders_DlibMissingModels(t *testing.T) {
	cfg := &config.EngineConfig{
		Detector: "dlib",
		Embedder: "mock",
		ModelDir: t.TempDir(),
	}

	loaders, err := NewLoaders(cfg)
	if err != nil {
		t.Fatalf("NewLoaders() error = %v", err)
	}

	// resolution is lazy; the failure surfaces when the manager loads
	if _, err := loaders.Detector(context.Background()); err == nil {
		t.Fatal("Detector() expected error for empty model dir, got nil")
	}
}

func TestDlibConfig(t *testing.T) {
	tests := []struct {
		name    string
		dlibCNN bool
	}{
		{name: "hog by default", dlibCNN: false},
		{name: "cnn when enabled", dlibCNN: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.EngineConfig{ModelDir: "/models", DlibCNN: tt.dlibCNN}

			got := dlibConfig(cfg)
			if got.ModelDir != "/models" {
				t.Errorf("ModelDir = %q, want %q", got.ModelDir, "/models")
			}
			if got.UseCNN != tt.dlibCNN {
				t.Errorf("UseCNN = %v, want %v", got.UseCNN, tt.dlibCNN)
			}
		})
	}
}

func TestNewLoaders_Rekognition(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Rekognition test in short mode (requires AWS credentials)")
	}

	cfg := &config.EngineConfig{
		Detector:  "rekognition",
		Embedder:  "mock",
		AWSRegion: "us-east-1",
	}

	loaders, err := NewLoaders(cfg)
	if err != nil {
		t.Fatalf("NewLoaders() error = %v", err)
	}

	detector, err := loaders.Detector(context.Background())
	if err != nil {
		t.Skipf("Skipping Rekognition test (likely missing AWS credentials): %v", err)
	}
	_ = detector.Close()
}

func TestNewLoaders_Unknown(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EngineConfig
		wantErr string
	}{
		{
			name:    "unknown detector",
			cfg:     config.EngineConfig{Detector: "opencv", Embedder: "mock"},
			wantErr: "unknown detector type: opencv",
		},
		{
			name:    "unknown embedder",
			cfg:     config.EngineConfig{Detector: "mock", Embedder: "tflite"},
			wantErr: "unknown embedder type: tflite",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoaders(&tt.cfg)
			if err == nil {
				t.Fatal("NewLoaders() expected error, got nil")
			}
			if !strings.HasPrefix(err.Error(), tt.wantErr) {
				t.Errorf("NewLoaders() error = %v, want error starting with %q", err, tt.wantErr)
			}
		})
	}
}

func TestTypeConstants(t *testing.T) {
	if DetectorTypeDlib != "dlib" {
		t.Errorf("DetectorTypeDlib = %q, want %q", DetectorTypeDlib, "dlib")
	}
	if DetectorTypeRekognition != "rekognition" {
		t.Errorf("DetectorTypeRekognition = %q, want %q", DetectorTypeRekognition, "rekognition")
	}
	if EmbedderTypeONNX != "onnx" {
		t.Errorf("EmbedderTypeONNX = %q, want %q", EmbedderTypeONNX, "onnx")
	}
}
