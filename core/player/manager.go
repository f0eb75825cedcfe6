package player

import (
	"sync"

	"stillfm/logger"
)

// Manager is the process-wide registry of playback coordinators, one per
// authenticated listener. Coordinators are created lazily on first access
// and torn down only when the session ends — navigating between pages never
// touches them, which is what keeps the mini bar playing across routes.
type Manager struct {
	factory SourceFactory

	mu      sync.Mutex
	players map[int64]*Coordinator
}

// NewManager creates an empty registry building sources through factory.
func NewManager(factory SourceFactory) *Manager {
	return &Manager{
		factory: factory,
		players: make(map[int64]*Coordinator),
	}
}

// Player returns the coordinator for userID, creating it if needed.
func (m *Manager) Player(userID int64) *Coordinator {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.players[userID]
	if !ok {
		c = NewCoordinator(m.factory)
		m.players[userID] = c
	}
	return c
}

// Teardown stops playback and removes the coordinator for userID. Called on
// sign-out; this is the only lifecycle hook allowed to stop playback
// implicitly.
func (m *Manager) Teardown(userID int64) {
	m.mu.Lock()
	c, ok := m.players[userID]
	if ok {
		delete(m.players, userID)
	}
	m.mu.Unlock()

	if ok {
		c.Shutdown()
		logger.Info("player session torn down", logger.Int64("userId", userID))
	}
}

// TeardownAll stops every active coordinator. Used on server shutdown.
func (m *Manager) TeardownAll() {
	m.mu.Lock()
	players := m.players
	m.players = make(map[int64]*Coordinator)
	m.mu.Unlock()

	for userID, c := range players {
		c.Shutdown()
		logger.Info("player session torn down", logger.Int64("userId", userID))
	}
}
