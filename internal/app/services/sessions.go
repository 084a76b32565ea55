package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowgraph/ivrflow/internal/app/dto"
	"github.com/flowgraph/ivrflow/internal/app/usecases"
	"github.com/flowgraph/ivrflow/internal/core/catalog"
	"github.com/flowgraph/ivrflow/internal/infrastructure/metrics"
)

// DefaultSessionTTL is how long an untouched session stays in memory
const DefaultSessionTTL = 30 * time.Minute

// draftName is used for drafts of flows that have never been named
const draftName = "Untitled flow"

// Session is one operator editing one flow
type Session struct {
	ID     string
	FlowID string
	Name   string

	mu         sync.Mutex
	controller *usecases.FlowController
	lastUsed   time.Time
}

// SessionManager hosts editing sessions, each with its own isolated flow
// controller. Operations on one session are serialized; sessions never
// share state.
// PRINCIPLES:
// - SRP: Session lifecycle only; all flow rules live in the controller
// - DIP: Repositories and the draft store are injected
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	flows    usecases.FlowRepository
	catalogs usecases.CatalogSource
	drafts   usecases.DraftStore
	draftTTL time.Duration
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// SessionOption configures a SessionManager
type SessionOption func(*SessionManager)

// WithDrafts keeps a draft of every session in store after each change
func WithDrafts(store usecases.DraftStore, ttl time.Duration) SessionOption {
	return func(m *SessionManager) {
		m.drafts = store
		m.draftTTL = ttl
	}
}

// WithSessionTTL sets the idle time after which a session is evicted
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(m *SessionManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithSessionLogger sets the logger handed to the manager and its
// controllers
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(m *SessionManager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

// NewSessionManager creates a session manager
func NewSessionManager(flows usecases.FlowRepository, catalogs usecases.CatalogSource, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		sessions: make(map[string]*Session),
		flows:    flows,
		catalogs: catalogs,
		ttl:      DefaultSessionTTL,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create opens a session, on a saved flow when req.FlowID is set
func (m *SessionManager) Create(ctx context.Context, req dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	c, err := m.catalogFor(ctx, req.Catalog)
	if err != nil {
		return nil, err
	}

	s := &Session{ID: uuid.NewString()}
	if req.FlowID != "" {
		rec, err := m.flows.Get(ctx, req.FlowID)
		if err != nil {
			return nil, fmt.Errorf("load flow %s: %w", req.FlowID, err)
		}
		fc, err := usecases.HydrateFlowController(rec.Document, c, m.controllerOptions(s.ID)...)
		if err != nil {
			return nil, fmt.Errorf("load flow %s: %w", req.FlowID, err)
		}
		s.FlowID, s.Name, s.controller = rec.ID, rec.Name, fc
	} else {
		s.controller = usecases.NewFlowController(c, m.controllerOptions(s.ID)...)
	}
	s.lastUsed = m.now()

	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.SetActiveSessions(n)

	m.logger.Info("session opened", "session", s.ID, "flow", s.FlowID)
	return m.describe(s)
}

// Get returns the state of a session, resuming it from its draft when it
// is no longer in memory
func (m *SessionManager) Get(ctx context.Context, id string) (*dto.SessionResponse, error) {
	s, err := m.session(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = m.now()
	return m.describe(s)
}

// Do runs fn with exclusive access to the session's controller. When fn
// succeeds the session draft is refreshed.
func (m *SessionManager) Do(ctx context.Context, id string, fn func(*usecases.FlowController) error) error {
	s, err := m.session(ctx, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = m.now()

	if err := fn(s.controller); err != nil {
		return err
	}
	m.saveDraft(ctx, s)
	return nil
}

// Finalize validates the session's flow and stores it. The first finalize
// allocates the flow id; later ones overwrite the same flow.
func (m *SessionManager) Finalize(ctx context.Context, id, name string) (*dto.FinalizeResponse, error) {
	s, err := m.session(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = m.now()

	doc, err := s.controller.Finalize(name)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	rec := &dto.FlowRecord{ID: s.FlowID, Name: doc.Name, Document: doc, CreatedAt: now, UpdatedAt: now}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if prev, err := m.flows.Get(ctx, rec.ID); err == nil {
		rec.CreatedAt = prev.CreatedAt
	}
	if err := m.flows.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save flow %s: %w", rec.ID, err)
	}
	s.FlowID, s.Name = rec.ID, rec.Name

	if m.drafts != nil {
		if err := m.drafts.DeleteDraft(ctx, s.ID); err != nil {
			m.logger.Warn("delete draft failed", "session", s.ID, "error", err)
		}
	}
	m.logger.Info("flow saved", "session", s.ID, "flow", rec.ID, "name", rec.Name)
	return &dto.FinalizeResponse{FlowID: rec.ID, Document: doc}, nil
}

// Close drops a session and its draft. Closing an id that is neither
// open nor stored as a draft returns dto.ErrSessionNotFound.
func (m *SessionManager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.SetActiveSessions(n)

	if m.drafts == nil {
		if !ok {
			return fmt.Errorf("%w: %s", dto.ErrSessionNotFound, id)
		}
		return nil
	}
	if !ok {
		// evicted sessions live on as drafts; anything else is unknown
		if _, err := m.drafts.LoadDraft(ctx, id); errors.Is(err, dto.ErrDraftNotFound) {
			return fmt.Errorf("%w: %s", dto.ErrSessionNotFound, id)
		}
	}
	if err := m.drafts.DeleteDraft(ctx, id); err != nil {
		return fmt.Errorf("delete draft %s: %w", id, err)
	}
	return nil
}

// Len returns the number of sessions held in memory
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// EvictIdle drops sessions untouched for longer than the TTL. Their drafts
// stay behind so they can be resumed.
func (m *SessionManager) EvictIdle() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var evicted []string
	for id, s := range m.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if s.lastUsed.Before(cutoff) {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
		s.mu.Unlock()
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if len(evicted) > 0 {
		metrics.IncEvictedSessions(len(evicted))
		metrics.SetActiveSessions(n)
		m.logger.Info("idle sessions evicted", "count", len(evicted))
	}
	return len(evicted)
}

// Run evicts idle sessions every interval until ctx is done
func (m *SessionManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle()
		}
	}
}

func (m *SessionManager) session(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, dto.ErrMissingSessionID
	}
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}
	return m.resume(ctx, id)
}

// resume rebuilds an evicted session from its draft
func (m *SessionManager) resume(ctx context.Context, id string) (*Session, error) {
	if m.drafts == nil {
		return nil, fmt.Errorf("%w: %s", dto.ErrSessionNotFound, id)
	}
	doc, err := m.drafts.LoadDraft(ctx, id)
	if errors.Is(err, dto.ErrDraftNotFound) {
		return nil, fmt.Errorf("%w: %s", dto.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", id, err)
	}
	c, err := m.catalogFor(ctx, nil)
	if err != nil {
		return nil, err
	}
	fc, err := usecases.HydrateFlowController(doc, c, m.controllerOptions(id)...)
	if err != nil {
		return nil, fmt.Errorf("resume session %s: %w", id, err)
	}
	s := &Session{ID: id, controller: fc, lastUsed: m.now()}
	if doc.Name != draftName {
		s.Name = doc.Name
	}

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.SetActiveSessions(n)

	m.logger.Info("session resumed from draft", "session", id)
	return s, nil
}

func (m *SessionManager) saveDraft(ctx context.Context, s *Session) {
	if m.drafts == nil {
		return
	}
	name := s.Name
	if name == "" {
		name = draftName
	}
	doc, err := s.controller.Draft(name)
	if err == nil {
		err = m.drafts.SaveDraft(ctx, s.ID, doc, m.draftTTL)
	}
	if err != nil {
		m.logger.Warn("save draft failed", "session", s.ID, "error", err)
	}
}

func (m *SessionManager) catalogFor(ctx context.Context, override *catalog.Catalog) (catalog.Catalog, error) {
	if override != nil {
		return *override, nil
	}
	if m.catalogs == nil {
		return catalog.Catalog{}, nil
	}
	c, err := m.catalogs.Catalog(ctx)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	return c, nil
}

func (m *SessionManager) controllerOptions(id string) []usecases.ControllerOption {
	return []usecases.ControllerOption{usecases.WithLogger(m.logger.With("session", id))}
}

func (m *SessionManager) describe(s *Session) (*dto.SessionResponse, error) {
	snap, err := dto.NewSnapshotPayload(s.controller.Snapshot())
	if err != nil {
		return nil, err
	}
	return &dto.SessionResponse{ID: s.ID, FlowID: s.FlowID, Snapshot: snap}, nil
}
