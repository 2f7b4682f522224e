// Package session keeps per-user application state in memory: navigation,
// the chat conversation, in-flight request flags and any open camera.
// Sessions expire after a period of inactivity.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"

	"github.com/vbonduro/skintell/internal/advisor"
	"github.com/vbonduro/skintell/internal/capture"
	"github.com/vbonduro/skintell/internal/conversation"
	"github.com/vbonduro/skintell/internal/navigator"
)

var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 30 * time.Minute

// Deps are the collaborators shared by every session.
type Deps struct {
	Advisor  Advisor
	Resolver advisor.ImageResolver
	Analyzer Analyzer
	Camera   capture.Camera
	Node     *snowflake.Node
	Logger   *slog.Logger
}

type Manager struct {
	deps *Deps
	ttl  time.Duration
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(deps Deps, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{
		deps:     &deps,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session on the home tab with a greeting in its chat.
func (m *Manager) Create() *Session {
	s := &Session{
		id:       uuid.NewString(),
		deps:     m.deps,
		state:    navigator.Initial(),
		store:    conversation.NewStore(m.deps.Node),
		lastSeen: m.now(),
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.deps.Logger.Info("session created", "session_id", s.id, "active_sessions", n)
	return s
}

// Get returns the session and marks it as active.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were removed. Evicted sessions release their camera.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	var evicted []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			evicted = append(evicted, s)
		}
	}
	m.mu.Unlock()

	for _, s := range evicted {
		s.Close()
		m.deps.Logger.Info("session expired", "session_id", s.id)
	}
	return len(evicted)
}

// Run sweeps every interval until ctx is done, then closes all sessions.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.deps.Logger.Debug("session sweep complete", "evicted", n, "remaining", m.Len())
			}
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
