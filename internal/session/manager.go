// Package session keeps the in-memory wizard sessions an operator works in
// while assembling a solution for a client.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/terra-clan/solution-builder/internal/metrics"
	"github.com/terra-clan/solution-builder/internal/models"
	"github.com/terra-clan/solution-builder/internal/reconciler"
	"github.com/terra-clan/solution-builder/internal/wizard"
)

// Common errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
	ErrClientMismatch  = errors.New("session belongs to another client")
	ErrClientRequired  = errors.New("client id is required")
)

// Manager defines the interface for session management
type Manager interface {
	Create(ctx context.Context, clientID, createdBy string) (*Session, error)
	Get(ctx context.Context, id, clientID string) (*Session, error)
	List(ctx context.Context, clientID string) ([]*Session, error)
	Save(ctx context.Context, id, clientID string, mode models.SaveMode) (*reconciler.SaveResult, error)
	End(ctx context.Context, id string) error
	GetExpired(ctx context.Context) ([]*Session, error)
	Count() int
}

// Options configures a MemoryManager
type Options struct {
	TTL                   time.Duration
	CalculationCategories []models.CategoryRef
	Metrics               *metrics.Metrics
	Now                   func() time.Time
}

// MemoryManager implements Manager with sessions held in process memory
type MemoryManager struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	catalog      wizard.Catalog
	reconciler   *reconciler.Reconciler
	ttl          time.Duration
	calcDefaults []models.CategoryRef
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewManager creates a new MemoryManager
func NewManager(catalog wizard.Catalog, rec *reconciler.Reconciler, opts Options) *MemoryManager {
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &MemoryManager{
		sessions:     make(map[string]*Session),
		catalog:      catalog,
		reconciler:   rec,
		ttl:          opts.TTL,
		calcDefaults: opts.CalculationCategories,
		metrics:      opts.Metrics,
		now:          opts.Now,
	}
}

// Create starts a new session for a client and fetches the first candidate lists.
// A failed fetch leaves the lists empty; the session is still usable.
func (m *MemoryManager) Create(ctx context.Context, clientID, createdBy string) (*Session, error) {
	if clientID == "" {
		return nil, ErrClientRequired
	}

	s := newSession(clientID, createdBy, m.catalog, m.reconciler, m.calcDefaults, m.now)
	if err := s.Start(ctx); err != nil {
		slog.Warn("failed to fetch catalog for new session",
			"error", err,
			"session_id", s.ID,
			"client_id", clientID,
		)
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetActiveSessions(count)

	slog.Info("session created",
		"id", s.ID,
		"client_id", clientID,
		"created_by", createdBy,
	)

	return s, nil
}

// Get retrieves a live session owned by clientID
func (m *MemoryManager) Get(ctx context.Context, id, clientID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.expired(s) {
		return nil, ErrSessionExpired
	}
	if s.ClientID != clientID {
		return nil, ErrClientMismatch
	}

	return s, nil
}

// List returns the live sessions of a client, newest first
func (m *MemoryManager) List(ctx context.Context, clientID string) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Session, 0)
	for _, s := range m.sessions {
		if s.ClientID == clientID && !m.expired(s) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	return result, nil
}

// Save persists the session and ends it on success.
// A failed save leaves the session open so the operator can retry.
func (m *MemoryManager) Save(ctx context.Context, id, clientID string, mode models.SaveMode) (*reconciler.SaveResult, error) {
	s, err := m.Get(ctx, id, clientID)
	if err != nil {
		return nil, err
	}

	start := m.now()
	result, err := s.Save(ctx, mode)
	m.metrics.Save(string(mode), err, m.now().Sub(start))
	if err != nil {
		return nil, err
	}

	if err := m.End(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
		slog.Warn("failed to end saved session", "error", err, "id", id)
	}

	return result, nil
}

// End removes a session, closes its subscriptions and drops its save progress
func (m *MemoryManager) End(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.close()
	m.metrics.SetActiveSessions(count)

	if err := m.reconciler.Forget(ctx, id); err != nil {
		slog.Warn("failed to clear save progress", "error", err, "id", id)
	}

	slog.Info("session ended", "id", id, "client_id", s.ClientID)
	return nil
}

// GetExpired returns sessions idle for longer than the TTL
func (m *MemoryManager) GetExpired(ctx context.Context) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var expired []*Session
	for _, s := range m.sessions {
		if m.expired(s) {
			expired = append(expired, s)
		}
	}
	return expired, nil
}

// Count returns the number of sessions held, expired or not
func (m *MemoryManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryManager) expired(s *Session) bool {
	return m.now().Sub(s.LastActive()) > m.ttl
}
