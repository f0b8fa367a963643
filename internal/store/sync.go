package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/embedding"
)

// Source is the system of record for enrolled faces
type Source interface {
	ListNames(ctx context.Context) ([]string, error)
	FetchEmbedding(ctx context.Context, name string) ([]float64, error)
}

// SyncOptions tunes a Sync run
type SyncOptions struct {
	// Concurrency bounds parallel embedding fetches (default 4)
	Concurrency int
	// Progress, when set, is called once per name after its fetch settles
	Progress func(name string, err error)
}

// SyncReport summarizes a Sync run
type SyncReport struct {
	Loaded   int
	Skipped  []string
	Duration time.Duration
}

// Sync repopulates s from src. Names that fail to fetch or normalize are
// skipped and logged; the store is replaced only once all fetches settle.
// A failure to list names, or ctx ending, leaves s untouched.
func Sync(ctx context.Context, s *Store, src Source, opts SyncOptions, logger *slog.Logger) (SyncReport, error) {
	start := time.Now()

	names, err := src.ListNames(ctx)
	if err != nil {
		return SyncReport{}, fmt.Errorf("list enrolled names: %w", err)
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}

	var (
		mu      sync.Mutex
		entries = make(map[string]embedding.Vector, len(names))
		skipped []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			v, err := fetch(gctx, src, name, s.Dimension())

			mu.Lock()
			if err != nil {
				skipped = append(skipped, name)
			} else {
				entries[name] = v
			}
			mu.Unlock()

			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("skipping enrolled face",
					slog.String("name", name),
					slog.Any("error", err),
				)
			}
			if opts.Progress != nil {
				opts.Progress(name, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return SyncReport{}, fmt.Errorf("sync enrolled faces: %w", err)
	}

	if err := s.Replace(entries); err != nil {
		return SyncReport{}, fmt.Errorf("apply synced faces: %w", err)
	}

	sort.Strings(skipped)
	report := SyncReport{
		Loaded:   len(entries),
		Skipped:  skipped,
		Duration: time.Since(start),
	}

	logger.Info("embedding store synced",
		slog.Int("loaded", report.Loaded),
		slog.Int("skipped", len(report.Skipped)),
		slog.Duration("elapsed", report.Duration),
	)
	return report, nil
}

func fetch(ctx context.Context, src Source, name string, dimension int) (embedding.Vector, error) {
	raw, err := src.FetchEmbedding(ctx, name)
	if err != nil {
		return nil, err
	}
	if dimension > 0 && len(raw) != dimension {
		return nil, domain.ErrDimensionMismatch.WithError(fmt.Errorf("%q has %d values, expected %d", name, len(raw), dimension))
	}
	return embedding.FromFloat64(raw)
}
