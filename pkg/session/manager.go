package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"muninn/pkg/config"
	"muninn/pkg/engine"
)

// Manager keeps the live sessions of a server by id
type Manager struct {
	cfg  config.Config
	log  zerolog.Logger
	opts []engine.Option

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a Manager whose sessions are built from cfg and opts
func NewManager(cfg config.Config, log zerolog.Logger, opts ...engine.Option) *Manager {
	return &Manager{
		cfg:      cfg,
		log:      log,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		return nil, ErrTooMany
	}
	s := New(m.cfg, m.log, m.opts...)
	m.sessions[s.ID] = s
	m.log.Info().Str("session", s.ID).Int("live", len(m.sessions)).Msg("session created")
	return s, nil
}

// Get returns the session with the given id
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete closes and forgets a session
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	m.log.Info().Str("session", id).Msg("session closed")
	return nil
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Reap closes every session idle for longer than maxIdle and returns how many went
func (m *Manager) Reap(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	m.mu.Lock()
	idle := lo.PickBy(m.sessions, func(_ string, s *Session) bool {
		return s.LastUsed().Before(cutoff)
	})
	for id := range idle {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, s := range idle {
		s.Close()
	}
	if len(idle) > 0 {
		m.log.Info().Int("reaped", len(idle)).Msg("closed idle sessions")
	}
	return len(idle)
}

// CloseAll closes every session
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := lo.Values(m.sessions)
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range all {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(s)
	}
	wg.Wait()
}
