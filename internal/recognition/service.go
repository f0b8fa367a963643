// Package recognition wires detection, extraction, matching and the backend
// into the enrollment, removal and recognition workflows.
package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/saturnino-fabrica-de-software/momento/internal/audit"
	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/embedding"
	"github.com/saturnino-fabrica-de-software/momento/internal/matcher"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider"
	"github.com/saturnino-fabrica-de-software/momento/internal/store"
)

type BackendInterface interface {
	Enroll(ctx context.Context, name string, image []byte, vec embedding.Vector) error
	Remove(ctx context.Context, name string) error
	ListNames(ctx context.Context) ([]string, error)
	FetchEmbedding(ctx context.Context, name string) ([]float64, error)
}

type ModelsInterface interface {
	Models() (provider.Detector, provider.InferenceSession, error)
}

type Service struct {
	models          ModelsInterface
	embedder        matcher.Embedder
	matcher         *matcher.Engine
	store           *store.Store
	backend         BackendInterface
	audit           audit.Logger
	logger          *slog.Logger
	username        string
	detectorName    string
	syncConcurrency int
}

func NewService(
	models ModelsInterface,
	embedder matcher.Embedder,
	engine *matcher.Engine,
	faces *store.Store,
	backend BackendInterface,
	logger *slog.Logger,
) *Service {
	return &Service{
		models:          models,
		embedder:        embedder,
		matcher:         engine,
		store:           faces,
		backend:         backend,
		audit:           &audit.NoOpLogger{},
		logger:          logger.With("component", "recognition"),
		syncConcurrency: 4,
	}
}

func (s *Service) WithAudit(logger audit.Logger) *Service {
	s.audit = logger
	return s
}

// WithIdentity sets the username and detector name recorded in audit events
func (s *Service) WithIdentity(username, detector string) *Service {
	s.username = username
	s.detectorName = detector
	return s
}

func (s *Service) WithSyncConcurrency(n int) *Service {
	if n > 0 {
		s.syncConcurrency = n
	}
	return s
}

// Enroll registers name from a frame holding exactly one face. The store is
// only updated after the backend accepts the enrollment.
func (s *Service) Enroll(ctx context.Context, name string, frame domain.Frame) error {
	if err := domain.ValidateName(name); err != nil {
		return err
	}

	err := s.enroll(ctx, name, frame)
	s.record(ctx, audit.Event{
		EventType: audit.EventFaceEnrolled,
		Name:      name,
	}, err)
	return err
}

func (s *Service) enroll(ctx context.Context, name string, frame domain.Frame) error {
	detector, _, err := s.models.Models()
	if err != nil {
		return err
	}
	if frame.Image == nil {
		return domain.ErrInvalidImage
	}

	detections, err := detector.Detect(ctx, frame)
	if err != nil {
		return fmt.Errorf("enroll %q: detect faces: %w", name, err)
	}
	if len(detections) != 1 {
		return domain.ErrNoSingleFace.WithError(fmt.Errorf("found %d faces", len(detections)))
	}

	box := detections[0].Box
	vec, err := s.embedder.Extract(ctx, frame.Image, &box)
	if err != nil {
		return fmt.Errorf("enroll %q: %w", name, err)
	}

	image, err := provider.JPEGBytes(frame)
	if err != nil {
		return fmt.Errorf("enroll %q: %w", name, err)
	}

	if err := s.backend.Enroll(ctx, name, image, vec); err != nil {
		return fmt.Errorf("enroll %q: %w", name, err)
	}

	if err := s.store.Put(name, vec); err != nil {
		return fmt.Errorf("enroll %q: store: %w", name, err)
	}

	s.logger.Info("face enrolled", slog.String("name", name))
	return nil
}

// Remove deletes name from the backend, then from the store
func (s *Service) Remove(ctx context.Context, name string) error {
	if err := domain.ValidateName(name); err != nil {
		return err
	}

	err := s.backend.Remove(ctx, name)
	if err != nil {
		err = fmt.Errorf("remove %q: %w", name, err)
	} else {
		s.store.Remove(name)
		s.logger.Info("face removed", slog.String("name", name))
	}

	s.record(ctx, audit.Event{
		EventType: audit.EventFaceRemoved,
		Name:      name,
	}, err)
	return err
}

// Recognize detects every face in frame and matches it against a snapshot
// of the store
func (s *Service) Recognize(ctx context.Context, frame domain.Frame) (domain.Recognition, error) {
	start := time.Now()

	detector, _, err := s.models.Models()
	if err != nil {
		return domain.Recognition{}, err
	}
	if frame.Image == nil {
		return domain.Recognition{}, domain.ErrInvalidImage
	}

	detections, err := detector.Detect(ctx, frame)
	if err != nil {
		return domain.Recognition{}, fmt.Errorf("detect faces: %w", err)
	}

	result, err := s.matcher.Match(ctx, frame.Image, detections, s.store.Snapshot())
	if err != nil {
		return domain.Recognition{}, err
	}

	latency := time.Since(start)
	rec := domain.Recognition{
		Matches:     result.Matches,
		Detections:  len(detections),
		Skipped:     result.Skipped,
		Latency:     latency,
		LatencyMs:   latency.Milliseconds(),
		CompletedAt: time.Now().UTC(),
	}

	s.record(ctx, audit.Event{
		EventType: audit.EventFaceRecognized,
		Metadata: map[string]string{
			"detections": strconv.Itoa(rec.Detections),
			"matches":    strconv.Itoa(len(rec.Matches)),
			"skipped":    strconv.Itoa(rec.Skipped),
			"latency_ms": strconv.FormatInt(rec.LatencyMs, 10),
		},
	}, nil)

	return rec, nil
}

// Known returns the enrolled names held in memory
func (s *Service) Known() []string {
	return s.store.Names()
}

// Sync repopulates the store from the backend. progress may be nil.
func (s *Service) Sync(ctx context.Context, progress func(name string, err error)) (store.SyncReport, error) {
	report, err := store.Sync(ctx, s.store, s.backend, store.SyncOptions{
		Concurrency: s.syncConcurrency,
		Progress:    progress,
	}, s.logger)

	s.record(ctx, audit.Event{
		EventType: audit.EventStoreSynced,
		Metadata: map[string]string{
			"loaded":  strconv.Itoa(report.Loaded),
			"skipped": strconv.Itoa(len(report.Skipped)),
		},
	}, err)
	return report, err
}

func (s *Service) record(ctx context.Context, event audit.Event, err error) {
	event.Username = s.username
	event.Detector = s.detectorName
	event.Success = err == nil
	if err != nil {
		event.Error = err.Error()
	}

	if logErr := s.audit.Log(ctx, event); logErr != nil {
		s.logger.Warn("audit log failed", slog.Any("error", logErr))
	}
}
