package face

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/saturnino-fabrica-de-software/momento/internal/config"
	"github.com/saturnino-fabrica-de-software/momento/internal/model"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider/dlib"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider/onnx"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider/rekognition"
)

// DetectorType defines supported face detector backends
type DetectorType string

const (
	// DetectorTypeDlib runs the dlib HOG/CNN detector in-process
	DetectorTypeDlib DetectorType = "dlib"
	// DetectorTypeDeepFace delegates detection to a DeepFace service (dev/test)
	DetectorTypeDeepFace DetectorType = "deepface"
	// DetectorTypeRekognition uses AWS Rekognition DetectFaces (cloud)
	DetectorTypeRekognition DetectorType = "rekognition"
	// DetectorTypeMock is deterministic and needs no models
	DetectorTypeMock DetectorType = "mock"
)

// EmbedderType defines supported embedding backends
type EmbedderType string

const (
	EmbedderTypeONNX EmbedderType = "onnx"
	EmbedderTypeMock EmbedderType = "mock"
)

// NewLoaders resolves the configured detector and embedder into loaders for
// the model manager. Nothing is loaded until the manager runs them.
//
// Environment variables:
//   - DETECTOR: "dlib", "deepface", "rekognition" or "mock" (default: "dlib")
//   - EMBEDDER: "onnx" or "mock" (default: "onnx")
//   - MODEL_DIR: directory holding the dlib bundle and the ONNX model
//   - DLIB_CNN: use the dlib CNN detector instead of HOG (default: false)
//   - DEEPFACE_URL: DeepFace API URL (default: "http://localhost:5005")
//   - AWS_REGION: AWS region for Rekognition (default: "us-east-1")
func NewLoaders(cfg *config.EngineConfig) (model.Loaders, error) {
	detector, err := detectorLoader(cfg)
	if err != nil {
		return model.Loaders{}, err
	}

	session, err := sessionLoader(cfg)
	if err != nil {
		return model.Loaders{}, err
	}

	return model.Loaders{Detector: detector, Session: session}, nil
}

func dlibConfig(cfg *config.EngineConfig) dlib.Config {
	return dlib.Config{ModelDir: cfg.ModelDir, UseCNN: cfg.DlibCNN}
}

func detectorLoader(cfg *config.EngineConfig) (func(context.Context) (provider.Detector, error), error) {
	switch DetectorType(cfg.Detector) {
	case DetectorTypeDlib, "":
		return func(ctx context.Context) (provider.Detector, error) {
			return dlib.NewDetector(dlibConfig(cfg))
		}, nil

	case DetectorTypeDeepFace:
		return func(ctx context.Context) (provider.Detector, error) {
			return createDeepFaceDetector(cfg), nil
		}, nil

	case DetectorTypeRekognition:
		return func(ctx context.Context) (provider.Detector, error) {
			rekogConfig := rekognition.DefaultConfig()
			if cfg.AWSRegion != "" {
				rekogConfig.Region = cfg.AWSRegion
			}

			det, err := rekognition.NewDetector(ctx, rekogConfig)
			if err != nil {
				return nil, fmt.Errorf("create rekognition detector in %s: %w", rekogConfig.Region, err)
			}
			return det, nil
		}, nil

	case DetectorTypeMock:
		return func(ctx context.Context) (provider.Detector, error) {
			return mock.NewDetector(1), nil
		}, nil

	default:
		return nil, fmt.Errorf("unknown detector type: %s (supported: %s, %s, %s, %s)",
			cfg.Detector, DetectorTypeDlib, DetectorTypeDeepFace, DetectorTypeRekognition, DetectorTypeMock)
	}
}

func sessionLoader(cfg *config.EngineConfig) (func(context.Context) (provider.InferenceSession, error), error) {
	switch EmbedderType(cfg.Embedder) {
	case EmbedderTypeONNX, "":
		onnxConfig := onnx.Config{
			ModelPath:    filepath.Join(cfg.ModelDir, cfg.EmbeddingModel),
			LibraryPath:  cfg.ONNXRuntimeLib,
			InputName:    cfg.ModelInput,
			OutputName:   cfg.ModelOutput,
			InputSize:    cfg.InputSize,
			EmbeddingDim: cfg.EmbeddingDim,
		}
		return func(ctx context.Context) (provider.InferenceSession, error) {
			return onnx.NewSession(onnxConfig)
		}, nil

	case EmbedderTypeMock:
		return func(ctx context.Context) (provider.InferenceSession, error) {
			return mock.NewSession(cfg.EmbeddingDim), nil
		}, nil

	default:
		return nil, fmt.Errorf("unknown embedder type: %s (supported: %s, %s)",
			cfg.Embedder, EmbedderTypeONNX, EmbedderTypeMock)
	}
}

// createDeepFaceDetector creates a DeepFace detector, keeping the client
// defaults for timeout, model and backend
func createDeepFaceDetector(cfg *config.EngineConfig) *deepface.Detector {
	deepfaceConfig := deepface.DefaultConfig()
	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	return deepface.NewDetector(deepfaceConfig)
}
