package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config configures the face storage backend (cmd/api, cmd/migrate)
type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`

	// Rate limiting (requests per minute per client IP)
	RateLimitMax int `envconfig:"RATE_LIMIT_MAX" default:"600"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// EngineConfig configures the recognition engine (cmd/recognizer, cmd/momentoctl)
type EngineConfig struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3001"`
	Environment string `envconfig:"ENV" default:"development"`

	// Backend collaborator
	BackendURL     string        `envconfig:"BACKEND_URL" default:"http://localhost:3000"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`
	Username       string        `envconfig:"USERNAME" required:"true"`

	// Models
	Detector       string `envconfig:"DETECTOR" default:"dlib"`
	Embedder       string `envconfig:"EMBEDDER" default:"onnx"`
	ModelDir       string `envconfig:"MODEL_DIR" default:"./models"`
	DlibCNN        bool   `envconfig:"DLIB_CNN" default:"false"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"MomentoRecognition32.onnx"`
	ONNXRuntimeLib string `envconfig:"ONNX_RUNTIME_LIB"`
	ModelInput     string `envconfig:"MODEL_INPUT" default:"input"`
	ModelOutput    string `envconfig:"MODEL_OUTPUT" default:"embedding"`
	EmbeddingDim   int    `envconfig:"EMBEDDING_DIM" default:"512"`
	DeepFaceURL    string `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	AWSRegion      string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Preprocessing
	InputSize int       `envconfig:"INPUT_SIZE" default:"256"`
	NormMean  []float64 `envconfig:"NORM_MEAN" default:"0.485,0.456,0.406"`
	NormStd   []float64 `envconfig:"NORM_STD" default:"0.229,0.224,0.225"`

	// Matching
	MatchThreshold float64 `envconfig:"MATCH_THRESHOLD" default:"0.6"`
	BestMatchOnly  bool    `envconfig:"BEST_MATCH_ONLY" default:"false"`

	// Scheduling
	RecognitionInterval time.Duration `envconfig:"RECOGNITION_INTERVAL" default:"500ms"`
	SyncConcurrency     int           `envconfig:"SYNC_CONCURRENCY" default:"4"`
	CameraURL           string        `envconfig:"CAMERA_URL"`
}

// LoadEngine reads and validates the engine configuration
func LoadEngine() (*EngineConfig, error) {
	var cfg EngineConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load engine config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load engine config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with
func (c *EngineConfig) Validate() error {
	if c.MatchThreshold < -1 || c.MatchThreshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be within [-1, 1], got %v", c.MatchThreshold)
	}
	if c.InputSize <= 0 {
		return fmt.Errorf("INPUT_SIZE must be positive, got %d", c.InputSize)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.EmbeddingDim)
	}
	if len(c.NormMean) != 3 {
		return fmt.Errorf("NORM_MEAN needs 3 values, got %d", len(c.NormMean))
	}
	if len(c.NormStd) != 3 {
		return fmt.Errorf("NORM_STD needs 3 values, got %d", len(c.NormStd))
	}
	for i, s := range c.NormStd {
		if s == 0 {
			return fmt.Errorf("NORM_STD[%d] must be non-zero", i)
		}
	}
	if c.RecognitionInterval <= 0 {
		return fmt.Errorf("RECOGNITION_INTERVAL must be positive, got %s", c.RecognitionInterval)
	}
	if c.SyncConcurrency <= 0 {
		return fmt.Errorf("SYNC_CONCURRENCY must be positive, got %d", c.SyncConcurrency)
	}
	return nil
}

func (c *EngineConfig) IsDevelopment() bool {
	return c.Environment == "development"
}
