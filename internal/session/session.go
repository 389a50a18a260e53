package session

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/HenryOlvera28/landing/internal/render"
	"github.com/HenryOlvera28/landing/internal/vote"
)

// DefaultLimit is the number of sessions kept by NewManager.
const DefaultLimit = 10000

// Session is the per-visitor state: its own submission flow and the last
// tally shown to it.
type Session struct {
	Flow      *vote.Flow
	Displayed *render.Snapshot
}

// Factory builds the flow of a new session. shown must be the last presenter
// of the flow so Displayed only changes once the visitor was shown a tally.
type Factory func(key string, shown *render.Snapshot) *vote.Flow

// Manager keeps at most limit sessions and evicts the least recently used.
type Manager struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *Session]
	newFlow  Factory
}

func NewManager(newFlow Factory) *Manager {
	return NewManagerSize(newFlow, DefaultLimit)
}

// NewManagerSize is NewManager with an explicit limit; limit <= 0 means
// DefaultLimit.
func NewManagerSize(newFlow Factory, limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	cache, _ := lru.New[string, *Session](limit)
	return &Manager{
		sessions: cache,
		newFlow:  newFlow,
	}
}

// Get returns the session for key, creating it if needed.
func (m *Manager) Get(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions.Get(key); ok {
		return s
	}
	s := m.build(key)
	m.sessions.Add(key, s)
	return s
}

// Lookup returns the session for key only if it already exists.
func (m *Manager) Lookup(key string) (*Session, bool) {
	return m.sessions.Get(key)
}

// Transient builds a session that is not kept. Use it to serve reads for
// visitors that have not voted yet.
func (m *Manager) Transient() *Session {
	return m.build("")
}

func (m *Manager) build(key string) *Session {
	shown := &render.Snapshot{}
	return &Session{Flow: m.newFlow(key, shown), Displayed: shown}
}

func (m *Manager) Len() int {
	return m.sessions.Len()
}
