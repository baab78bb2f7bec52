// Package sessions keeps the game sessions of the HTTP front-end in memory
// and serialises every call into each of them.
package sessions

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/lab-engine/internal/logger"
	"github.com/jwebster45206/lab-engine/internal/services/events"
	"github.com/jwebster45206/lab-engine/internal/storage"
	"github.com/jwebster45206/lab-engine/pkg/gameerr"
	"github.com/jwebster45206/lab-engine/pkg/state"
	"github.com/jwebster45206/lab-engine/pkg/steps"
)

const publishTimeout = 2 * time.Second

// Options configures a Manager.
type Options struct {
	TTL        time.Duration // Idle time after which a session is dropped
	TimerScale float64       // Multiplier on timed step delays; 0 means 1
	Publisher  events.Publisher
	Logger     *slog.Logger

	// Scheduler, when set, replaces the real-time scheduler. Deliveries are
	// still expected to go through the entry lock, so tests pass a
	// ManualScheduler and advance it from inside Do.
	Scheduler steps.Scheduler
	Now       func() time.Time
}

// Manager owns the live sessions. Each session sits behind its own mutex,
// which is also the dispatch path for its timer deliveries.
type Manager struct {
	catalog   storage.Catalog
	publisher events.Publisher
	logger    *slog.Logger
	ttl       time.Duration
	scale     float64
	scheduler steps.Scheduler
	now       func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
}

type entry struct {
	mu       sync.Mutex
	session  *state.Session
	closed   bool
	lastUsed atomic.Int64 // Unix nanoseconds; read by Sweep without the lock
}

func (e *entry) touch(t time.Time) {
	e.lastUsed.Store(t.UnixNano())
}

// NewManager creates a session manager backed by a scenario catalogue.
func NewManager(catalog storage.Catalog, opts Options) *Manager {
	m := &Manager{
		catalog:   catalog,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		ttl:       opts.TTL,
		scale:     opts.TimerScale,
		scheduler: opts.Scheduler,
		now:       opts.Now,
		sessions:  make(map[uuid.UUID]*entry),
	}
	if m.publisher == nil {
		m.publisher = events.NopPublisher{}
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	if m.scale <= 0 {
		m.scale = 1
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Create starts a new session of a scenario.
func (m *Manager) Create(ctx context.Context, scenarioID string) (state.Snapshot, error) {
	scen, err := m.catalog.GetScenario(ctx, scenarioID)
	if err != nil {
		return state.Snapshot{}, err
	}

	e := &entry{}
	e.touch(m.now())
	sched := m.scheduler
	if sched == nil {
		sched = steps.DeferredScheduler{Post: func(f func()) { m.deliver(e, f) }}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := state.NewSession(scen,
		state.WithScheduler(steps.Scaled(sched, m.scale)),
		state.WithLogger(m.logger),
		state.WithObserver(m.publish),
	)
	if err != nil {
		return state.Snapshot{}, err
	}
	e.session = s

	m.mu.Lock()
	m.sessions[s.ID] = e
	m.mu.Unlock()

	snap := s.Snapshot()
	logger.WithSessionID(m.logger, s.ID.String()).Info("Session created", "scenario", scenarioID)
	m.publish(snap)
	return snap, nil
}

// Get returns the current snapshot of a session.
func (m *Manager) Get(id uuid.UUID) (state.Snapshot, error) {
	return m.Do(id, func(*state.Session) error { return nil })
}

// Do runs op on a session under its lock and returns the resulting snapshot.
// The snapshot is returned even when op fails, since failed operations leave
// the session unchanged.
func (m *Manager) Do(id uuid.UUID, op func(*state.Session) error) (state.Snapshot, error) {
	e, err := m.lookup(id)
	if err != nil {
		return state.Snapshot{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return state.Snapshot{}, gameerr.NotFound("session", id.String())
	}
	e.touch(m.now())

	opErr := op(e.session)
	return e.session.Snapshot(), opErr
}

// Restart resets a session. The session gets a new id, so the old id stops
// resolving.
func (m *Manager) Restart(id uuid.UUID) (state.Snapshot, error) {
	e, err := m.lookup(id)
	if err != nil {
		return state.Snapshot{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return state.Snapshot{}, gameerr.NotFound("session", id.String())
	}

	e.session.Restart()
	e.touch(m.now())

	m.mu.Lock()
	delete(m.sessions, id)
	m.sessions[e.session.ID] = e
	m.mu.Unlock()

	return e.session.Snapshot(), nil
}

// Delete drops a session, cancelling any running timer.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return gameerr.NotFound("session", id.String())
	}

	m.close(e)
	log := logger.WithSessionID(m.logger, id.String())
	log.Info("Session deleted")
	if err := m.publisher.PublishDeleted(ctx, id); err != nil {
		logger.WithError(log, err).Warn("Failed to publish session deletion")
	}
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops every session idle for longer than the TTL and returns how
// many were dropped.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl).UnixNano()

	var expired []*entry
	m.mu.Lock()
	for id, e := range m.sessions {
		if e.lastUsed.Load() < cutoff {
			expired = append(expired, e)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, e := range expired {
		m.close(e)
	}
	if len(expired) > 0 {
		m.logger.Info("Expired idle sessions", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps expired sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Manager) lookup(id uuid.UUID) (*entry, error) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, gameerr.NotFound("session", id.String())
	}
	return e, nil
}

// close cancels the session's timer and marks the entry dead so that a
// delivery already waiting on the lock does nothing.
func (m *Manager) close(e *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.session.Close()
}

// publish is the session observer. It runs under the entry lock.
func (m *Manager) publish(snap state.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := m.publisher.PublishSnapshot(ctx, snap); err != nil {
		logger.WithError(logger.WithSessionID(m.logger, snap.SessionID.String()), err).Warn("Failed to publish snapshot")
	}
}

// deliver is the dispatch path of an entry's timer deliveries.
func (m *Manager) deliver(e *entry, f func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.touch(m.now())
	f()
}
