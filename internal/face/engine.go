package face

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/momento/internal/audit"
	"github.com/saturnino-fabrica-de-software/momento/internal/backend"
	"github.com/saturnino-fabrica-de-software/momento/internal/config"
	"github.com/saturnino-fabrica-de-software/momento/internal/extractor"
	"github.com/saturnino-fabrica-de-software/momento/internal/matcher"
	"github.com/saturnino-fabrica-de-software/momento/internal/model"
	"github.com/saturnino-fabrica-de-software/momento/internal/preprocess"
	"github.com/saturnino-fabrica-de-software/momento/internal/recognition"
	"github.com/saturnino-fabrica-de-software/momento/internal/store"
)

// Engine is the recognition engine assembled from an EngineConfig
type Engine struct {
	Models  *model.Manager
	Store   *store.Store
	Backend *backend.Client
	Service *recognition.Service
}

// NewEngine wires the model manager, preprocessing, extraction, matching,
// store and backend client. Models are not loaded until Start.
func NewEngine(cfg *config.EngineConfig, logger *slog.Logger) (*Engine, error) {
	loaders, err := NewLoaders(cfg)
	if err != nil {
		return nil, err
	}

	pipelineCfg, err := preprocess.ConfigFrom(cfg.InputSize, cfg.NormMean, cfg.NormStd)
	if err != nil {
		return nil, fmt.Errorf("preprocessing config: %w", err)
	}
	pipeline, err := preprocess.New(pipelineCfg)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	manager := model.NewManager(loaders, logger)
	ext := extractor.New(pipeline, manager, cfg.EmbeddingDim)
	matching := matcher.New(ext, matcher.Config{
		Threshold:     cfg.MatchThreshold,
		BestMatchOnly: cfg.BestMatchOnly,
	}, logger)

	faces := store.New(cfg.EmbeddingDim)
	client := backend.NewClient(backend.Config{
		BaseURL:  cfg.BackendURL,
		Username: cfg.Username,
		Timeout:  cfg.BackendTimeout,
	})

	service := recognition.NewService(manager, ext, matching, faces, client, logger).
		WithAudit(audit.NewSlogLogger(logger)).
		WithIdentity(cfg.Username, cfg.Detector).
		WithSyncConcurrency(cfg.SyncConcurrency)

	return &Engine{
		Models:  manager,
		Store:   faces,
		Backend: client,
		Service: service,
	}, nil
}

// Start loads the models and populates the store from the backend. A
// failed model load is returned before any backend traffic.
func (e *Engine) Start(ctx context.Context, progress func(name string, err error)) (store.SyncReport, error) {
	if err := e.Models.Initialize(ctx); err != nil {
		return store.SyncReport{}, err
	}
	return e.Service.Sync(ctx, progress)
}

// Close empties the store and releases the models
func (e *Engine) Close() error {
	e.Store.Clear()
	if err := e.Models.Release(); err != nil {
		return fmt.Errorf("release models: %w", err)
	}
	return nil
}
