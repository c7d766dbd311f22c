// Package catalog serves the read-only room and team records. Until the
// first successful load every read fails with ErrUnavailable.
package catalog

import (
	"errors"
	"sync"

	"roomdesk/pkg/model"
)

var (
	ErrUnavailable  = errors.New("catalog not loaded yet")
	ErrRoomNotFound = errors.New("room not found")
	ErrTeamNotFound = errors.New("team not found")
)

// Catalog is the read side of the room and team lists. Every method fails
// with ErrUnavailable until the first load.
type Catalog interface {
	Rooms() ([]model.Room, error)
	Teams() ([]model.Team, error)
	Room(id string) (model.Room, error)
	Team(id string) (model.Team, error)
	Loaded() bool
}

// Store is an in-memory Catalog filled by a Loader.
type Store struct {
	mu     sync.RWMutex
	loaded bool
	rooms  []model.Room
	teams  []model.Team
	roomBy map[string]model.Room
	teamBy map[string]model.Team
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces the whole catalog and marks it loaded.
func (s *Store) Set(rooms []model.Room, teams []model.Team) {
	roomBy := make(map[string]model.Room, len(rooms))
	for _, r := range rooms {
		roomBy[r.ID] = r
	}
	teamBy := make(map[string]model.Team, len(teams))
	for _, t := range teams {
		teamBy[t.ID] = t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = append([]model.Room(nil), rooms...)
	s.teams = append([]model.Team(nil), teams...)
	s.roomBy = roomBy
	s.teamBy = teamBy
	s.loaded = true
}

// Loaded reports whether Set has been called.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Store) Rooms() ([]model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, ErrUnavailable
	}
	return append(make([]model.Room, 0, len(s.rooms)), s.rooms...), nil
}

func (s *Store) Teams() ([]model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, ErrUnavailable
	}
	return append(make([]model.Team, 0, len(s.teams)), s.teams...), nil
}

// Room returns ErrRoomNotFound for an unknown id.
func (s *Store) Room(id string) (model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return model.Room{}, ErrUnavailable
	}
	r, ok := s.roomBy[id]
	if !ok {
		return model.Room{}, ErrRoomNotFound
	}
	return r, nil
}

// Team returns ErrTeamNotFound for an unknown id.
func (s *Store) Team(id string) (model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return model.Team{}, ErrUnavailable
	}
	t, ok := s.teamBy[id]
	if !ok {
		return model.Team{}, ErrTeamNotFound
	}
	return t, nil
}

// TeamNames maps team ID to name. Empty before the first load.
func (s *Store) TeamNames() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.teams))
	for _, t := range s.teams {
		out[t.ID] = t.Name
	}
	return out
}
