// internal/lobby/store.go
package lobby

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/SimonLuis1502/UYES-CardGame/internal/models"
)

var (
	// ErrNotFound is returned when no lobby is registered under a code.
	ErrNotFound = errors.New("lobby not found")
	// ErrCodeTaken is returned when a rename targets an occupied code.
	ErrCodeTaken = errors.New("game code already in use")
)

// Store is the registry mapping game codes to lobbies.
type Store struct {
	mu      sync.Mutex
	lobbies map[string]*Lobby
	logger  *logrus.Logger
}

// NewStore creates an empty lobby registry.
func NewStore(logger *logrus.Logger) *Store {
	return &Store{
		lobbies: make(map[string]*Lobby),
		logger:  logger,
	}
}

// Get returns the lobby registered under code, or nil.
func (s *Store) Get(code string) *Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lobbies[code]
}

// Create registers a new lobby under code with the given host and
// capacity. Returns ErrCodeTaken if the code is occupied.
func (s *Store) Create(code, hostID string, capacity int, settings models.Settings) (*Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lobbies[code]; ok {
		return nil, ErrCodeTaken
	}
	l := New(code, hostID, capacity, settings, s.logger)
	l.OnEmpty = s.Delete
	s.lobbies[code] = l
	s.logger.Infof("lobby %s created (%d lobbies active)", code, len(s.lobbies))
	return l, nil
}

// Exists reports whether a lobby is registered under code.
func (s *Store) Exists(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lobbies[code]
	return ok
}

// Delete removes the lobby registered under code, if any.
func (s *Store) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lobbies[code]; !ok {
		return
	}
	delete(s.lobbies, code)
	s.logger.Infof("lobby %s removed (%d lobbies active)", code, len(s.lobbies))
}

// Rename atomically moves a lobby from oldCode to newCode. The old code
// becomes available and the new one resolves to the same lobby; members
// are told the new code afterwards.
func (s *Store) Rename(oldCode, newCode string) (*Lobby, error) {
	s.mu.Lock()
	l, ok := s.lobbies[oldCode]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if oldCode == newCode {
		s.mu.Unlock()
		return l, nil
	}
	if _, taken := s.lobbies[newCode]; taken {
		s.mu.Unlock()
		return nil, ErrCodeTaken
	}
	delete(s.lobbies, oldCode)
	s.lobbies[newCode] = l
	s.mu.Unlock()

	l.Mu.Lock()
	l.Code = newCode
	l.Mu.Unlock()
	l.AnnounceCode()

	s.logger.Infof("lobby %s renamed to %s", oldCode, newCode)
	return l, nil
}

// Count returns the number of registered lobbies.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lobbies)
}
