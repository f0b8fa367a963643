// Package scheduler decides when recognition runs. At most one recognition
// is in flight; triggers arriving meanwhile are dropped.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
)

// DefaultInterval between periodic triggers
const DefaultInterval = 500 * time.Millisecond

// FrameSource yields the current camera frame
type FrameSource interface {
	Frame(ctx context.Context) (domain.Frame, error)
}

// Recognizer runs one recognition pass
type Recognizer interface {
	Recognize(ctx context.Context, frame domain.Frame) (domain.Recognition, error)
}

// Sink receives every applied recognition, in completion order
type Sink func(domain.Recognition)

// Status is a snapshot of the scheduler counters
type Status struct {
	Running     bool          `json:"running"`
	InFlight    bool          `json:"in_flight"`
	LastLatency time.Duration `json:"-"`
	LastMs      int64         `json:"last_latency_ms"`
	Completed   uint64        `json:"completed"`
	Dropped     uint64        `json:"dropped"`
	Discarded   uint64        `json:"discarded"`
	Failed      uint64        `json:"failed"`
}

// Scheduler runs recognition on a fixed interval and on demand
type Scheduler struct {
	recognizer Recognizer
	source     FrameSource
	sink       Sink
	interval   time.Duration
	logger     *slog.Logger

	inFlight    atomic.Bool
	generation  atomic.Uint64
	lastLatency atomic.Int64
	completed   atomic.Uint64
	dropped     atomic.Uint64
	discarded   atomic.Uint64
	failed      atomic.Uint64

	// sinkMu serializes the generation check with the sink call so Stop
	// never returns while a stale result is being applied
	sinkMu sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	session context.Context
	wg      sync.WaitGroup
}

// New creates a stopped scheduler. source may be nil when every recognition
// supplies its own frame.
func New(recognizer Recognizer, source FrameSource, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		recognizer: recognizer,
		source:     source,
		interval:   interval,
		logger:     logger.With("component", "scheduler"),
	}
}

// OnResult sets the sink; call before Start. The sink must not call Stop.
func (s *Scheduler) OnResult(sink Sink) {
	s.sinkMu.Lock()
	s.sink = sink
	s.sinkMu.Unlock()
}

// Start begins periodic recognition until Stop or ctx ends. Starting a
// running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.source == nil {
		return domain.ErrNoFrameSource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil
	}

	session, cancel := context.WithCancel(ctx)
	s.session = session
	s.cancel = cancel
	gen := s.generation.Add(1)

	s.wg.Add(1)
	go s.loop(session, gen)

	s.logger.Info("recognition session started", slog.Duration("interval", s.interval))
	return nil
}

// Stop ends the session. A recognition still in flight finishes in the
// background and its result is discarded. Safe to call repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.session = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	s.sinkMu.Lock()
	s.generation.Add(1)
	s.sinkMu.Unlock()
	cancel()

	s.logger.Info("recognition session stopped")
}

// Wait blocks until every goroutine started by the scheduler has returned
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, gen uint64) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.stopFromContext(gen)
			return
		case <-ticker.C:
			s.tryStart(ctx, gen)
		}
	}
}

// stopFromContext tears the session down when its parent context ends
// without an explicit Stop
func (s *Scheduler) stopFromContext(gen uint64) {
	if s.generation.Load() == gen {
		s.Stop()
	}
}

// Trigger starts one recognition in the background from the frame source.
// It reports false when dropped because another recognition is in flight.
func (s *Scheduler) Trigger() bool {
	if s.source == nil {
		return false
	}
	ctx, gen := s.current()
	return s.tryStart(ctx, gen)
}

// RecognizeNow runs one recognition synchronously through the same
// single-flight gate. frame may be nil to pull from the source. It fails
// with ErrRecognitionInFlight instead of waiting.
func (s *Scheduler) RecognizeNow(ctx context.Context, frame *domain.Frame) (domain.Recognition, error) {
	if frame == nil && s.source == nil {
		return domain.Recognition{}, domain.ErrNoFrameSource
	}
	if !s.acquire() {
		return domain.Recognition{}, domain.ErrRecognitionInFlight
	}
	defer s.inFlight.Store(false)

	_, gen := s.current()
	return s.run(ctx, gen, frame)
}

func (s *Scheduler) current() (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.session
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, s.generation.Load()
}

func (s *Scheduler) acquire() bool {
	if s.inFlight.CompareAndSwap(false, true) {
		return true
	}
	s.dropped.Add(1)
	return false
}

func (s *Scheduler) tryStart(ctx context.Context, gen uint64) bool {
	if !s.acquire() {
		s.logger.Debug("trigger dropped, recognition in flight")
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)
		_, _ = s.run(ctx, gen, nil)
	}()
	return true
}

func (s *Scheduler) run(ctx context.Context, gen uint64, frame *domain.Frame) (domain.Recognition, error) {
	var f domain.Frame
	if frame != nil {
		f = *frame
	} else {
		var err error
		f, err = s.source.Frame(ctx)
		if err != nil {
			s.fail(ctx, err)
			return domain.Recognition{}, err
		}
	}

	start := time.Now()
	rec, err := s.recognizer.Recognize(ctx, f)
	latency := time.Since(start)
	if err != nil {
		s.fail(ctx, err)
		return domain.Recognition{}, err
	}

	s.lastLatency.Store(int64(latency))
	s.completed.Add(1)
	if rec.Latency == 0 {
		rec.Latency = latency
		rec.LatencyMs = latency.Milliseconds()
	}

	s.apply(gen, rec)
	return rec, nil
}

func (s *Scheduler) apply(gen uint64, rec domain.Recognition) {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()

	if s.generation.Load() != gen {
		s.discarded.Add(1)
		s.logger.Debug("discarding recognition from a stopped session")
		return
	}
	if s.sink != nil {
		s.sink(rec)
	}
}

func (s *Scheduler) fail(ctx context.Context, err error) {
	s.failed.Add(1)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return
	}

	level := slog.LevelWarn
	if errors.Is(err, domain.ErrModelUnavailable) {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "recognition failed", slog.Any("error", err))
}

// Status returns the current counters
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	running := s.cancel != nil
	s.mu.Unlock()

	last := time.Duration(s.lastLatency.Load())
	return Status{
		Running:     running,
		InFlight:    s.inFlight.Load(),
		LastLatency: last,
		LastMs:      last.Milliseconds(),
		Completed:   s.completed.Load(),
		Dropped:     s.dropped.Load(),
		Discarded:   s.discarded.Load(),
		Failed:      s.failed.Load(),
	}
}

// LastLatency is the duration of the most recent completed recognition
func (s *Scheduler) LastLatency() time.Duration {
	return time.Duration(s.lastLatency.Load())
}
