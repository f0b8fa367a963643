// Package matcher scores the faces of one frame against enrolled embeddings.
package matcher

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/embedding"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider"
	"github.com/saturnino-fabrica-de-software/momento/internal/store"
)

// DefaultThreshold is the similarity a pair must strictly exceed to match
const DefaultThreshold = 0.6

// Embedder extracts a unit embedding for one region of a frame
type Embedder interface {
	Extract(ctx context.Context, img image.Image, box *domain.DetectionBox) (embedding.Vector, error)
}

// Config controls match acceptance
type Config struct {
	Threshold float64
	// BestMatchOnly keeps only the highest scorer per detection instead of
	// every name above the threshold
	BestMatchOnly bool
}

// DefaultConfig returns the default multi-match configuration
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold}
}

// Result holds the matches of one frame. Skipped counts detections whose
// embedding could not be computed.
type Result struct {
	Matches []domain.MatchResult
	Skipped int
}

// Engine compares detections with a store snapshot
type Engine struct {
	embedder Embedder
	config   Config
	logger   *slog.Logger
}

// New creates a matching engine
func New(embedder Embedder, config Config, logger *slog.Logger) *Engine {
	return &Engine{
		embedder: embedder,
		config:   config,
		logger:   logger.With("component", "matcher"),
	}
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.config
}

// Match embeds every detection and scores it against every entry of snap.
// A detection that fails to embed is skipped without affecting the others;
// only ErrModelUnavailable and ctx cancellation abort the pass.
func (e *Engine) Match(ctx context.Context, img image.Image, detections []provider.Detection, snap store.Snapshot) (Result, error) {
	result := Result{Matches: make([]domain.MatchResult, 0)}
	if len(detections) == 0 || len(snap) == 0 {
		return result, nil
	}

	names := snap.Names()
	for i := range detections {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		box := detections[i].Box
		vec, err := e.embedder.Extract(ctx, img, &box)
		if err != nil {
			if errors.Is(err, domain.ErrModelUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return Result{}, err
			}
			result.Skipped++
			e.logger.Debug("detection skipped",
				slog.Int("index", i),
				slog.Any("box", box),
				slog.Any("error", err),
			)
			continue
		}

		result.Matches = append(result.Matches, e.score(vec, box, names, snap)...)
	}

	return result, nil
}

// MatchEmbedding scores one already extracted embedding
func (e *Engine) MatchEmbedding(vec embedding.Vector, box domain.DetectionBox, snap store.Snapshot) []domain.MatchResult {
	return e.score(vec, box, snap.Names(), snap)
}

func (e *Engine) score(vec embedding.Vector, box domain.DetectionBox, names []string, snap store.Snapshot) []domain.MatchResult {
	var matches []domain.MatchResult
	var best *domain.MatchResult

	for _, name := range names {
		score, err := embedding.CosineSimilarity(vec, snap[name])
		if err != nil {
			e.logger.Warn("enrolled embedding not comparable",
				slog.String("name", name),
				slog.Any("error", err),
			)
			continue
		}
		if score <= e.config.Threshold {
			continue
		}

		m := domain.MatchResult{Name: name, Box: box, Score: score}
		if !e.config.BestMatchOnly {
			matches = append(matches, m)
			continue
		}
		if best == nil || m.Score > best.Score {
			best = &m
		}
	}

	if best != nil {
		matches = append(matches, *best)
	}
	return matches
}
