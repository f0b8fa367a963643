// Package model owns the lifecycle of the detector and embedding session.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/provider"
)

// State of the model manager
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Loaders build the models. Each is called at most once per load.
type Loaders struct {
	Detector func(ctx context.Context) (provider.Detector, error)
	Session  func(ctx context.Context) (provider.InferenceSession, error)
}

// Manager moves Uninitialized → Loading → Ready|Failed. Ready and Failed are
// terminal until Release.
type Manager struct {
	loaders Loaders
	logger  *slog.Logger
	group   singleflight.Group

	mu         sync.RWMutex
	state      State
	err        error
	detector   provider.Detector
	session    provider.InferenceSession
	generation uint64
}

// NewManager creates a manager in the Uninitialized state
func NewManager(loaders Loaders, logger *slog.Logger) *Manager {
	return &Manager{
		loaders: loaders,
		logger:  logger.With("component", "model"),
	}
}

// Initialize loads all models, blocking until the load finishes or ctx is
// done. Concurrent callers share one load; once Ready it returns nil
// immediately and once Failed it returns ErrModelUnavailable without
// retrying. A caller giving up on ctx does not abort the shared load.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateReady:
		m.mu.Unlock()
		return nil
	case StateFailed:
		err := m.err
		m.mu.Unlock()
		return domain.ErrModelUnavailable.WithError(err)
	case StateUninitialized:
		m.state = StateLoading
		m.logger.Info("loading models")
	}
	gen := m.generation
	m.mu.Unlock()

	loadCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		return nil, m.load(loadCtx, gen)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) load(ctx context.Context, gen uint64) error {
	// a late joiner can arrive after the previous flight finished
	m.mu.RLock()
	if m.generation != gen || m.state != StateLoading {
		err := m.resultLocked()
		m.mu.RUnlock()
		return err
	}
	m.mu.RUnlock()

	start := time.Now()

	detector, err := m.loaders.Detector(ctx)
	if err != nil {
		return m.fail(gen, fmt.Errorf("load detector: %w", err))
	}

	session, err := m.loaders.Session(ctx)
	if err != nil {
		_ = detector.Close()
		return m.fail(gen, fmt.Errorf("load embedding session: %w", err))
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		_ = errors.Join(detector.Close(), session.Close())
		return domain.ErrModelUnavailable.WithError(errors.New("released during load"))
	}
	m.detector = detector
	m.session = session
	m.state = StateReady
	m.err = nil
	m.mu.Unlock()

	m.logger.Info("models ready", slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (m *Manager) fail(gen uint64, err error) error {
	m.mu.Lock()
	if m.generation == gen {
		m.state = StateFailed
		m.err = err
	}
	m.mu.Unlock()

	m.logger.Error("model load failed", slog.Any("error", err))
	return domain.ErrModelUnavailable.WithError(err)
}

func (m *Manager) resultLocked() error {
	switch m.state {
	case StateReady:
		return nil
	case StateFailed:
		return domain.ErrModelUnavailable.WithError(m.err)
	default:
		return domain.ErrModelUnavailable.WithError(fmt.Errorf("models %s", m.state))
	}
}

// Models returns the loaded detector and session, or ErrModelUnavailable
// when the manager is not Ready
func (m *Manager) Models() (provider.Detector, provider.InferenceSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != StateReady {
		return nil, nil, m.resultLocked()
	}
	return m.detector, m.session, nil
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Err returns the load failure while in the Failed state
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Release frees the models and returns to Uninitialized. A load still in
// progress is discarded when it completes. Safe to call repeatedly.
func (m *Manager) Release() error {
	m.mu.Lock()
	detector, session := m.detector, m.session
	wasState := m.state
	m.detector = nil
	m.session = nil
	m.state = StateUninitialized
	m.err = nil
	m.generation++
	m.mu.Unlock()

	var errs []error
	if detector != nil {
		errs = append(errs, detector.Close())
	}
	if session != nil {
		errs = append(errs, session.Close())
	}

	if wasState != StateUninitialized {
		m.logger.Info("models released", slog.String("previous_state", wasState.String()))
	}
	return errors.Join(errs...)
}
