package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"roomdesk/pkg/logger"
	"roomdesk/pkg/model"
)

func TestStore_UnavailableBeforeSet(t *testing.T) {
	s := NewStore()

	if s.Loaded() {
		t.Fatalf("new store should not be loaded")
	}
	if _, err := s.Rooms(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Rooms() err = %v, want ErrUnavailable", err)
	}
	if _, err := s.Team("t-1"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Team() err = %v, want ErrUnavailable", err)
	}
}

func TestStore_Lookups(t *testing.T) {
	s := NewStore()
	s.Set([]model.Room{{ID: "r-1", Name: "Orion"}}, []model.Team{{ID: "t-1", Name: "Platform"}})

	room, err := s.Room("r-1")
	if err != nil || room.Name != "Orion" {
		t.Errorf("Room() = %+v, %v", room, err)
	}
	if _, err := s.Room("r-9"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Room(unknown) err = %v, want ErrRoomNotFound", err)
	}
	if _, err := s.Team("t-9"); !errors.Is(err, ErrTeamNotFound) {
		t.Errorf("Team(unknown) err = %v, want ErrTeamNotFound", err)
	}
	if s.TeamNames()["t-1"] != "Platform" {
		t.Errorf("TeamNames() missing t-1")
	}
}

func TestStore_EmptyCatalogIsLoaded(t *testing.T) {
	s := NewStore()
	s.Set(nil, nil)

	rooms, err := s.Rooms()
	if err != nil {
		t.Fatalf("Rooms() error = %v", err)
	}
	if rooms == nil || len(rooms) != 0 {
		t.Errorf("Rooms() = %#v, want empty slice", rooms)
	}
}

func TestStaticSource(t *testing.T) {
	tests := []struct {
		name      string
		rooms     string
		teams     string
		wantRooms int
		wantErr   bool
	}{
		{"two rooms", "r-1=Orion; r-2 = Lyra  Hall", "t-1=Platform", 2, false},
		{"trailing separator", "r-1=Orion;", "", 1, false},
		{"empty", "", "", 0, false},
		{"missing name", "r-1=", "", 0, true},
		{"no separator", "orion", "", 0, true},
		{"duplicate", "r-1=A;r-1=B", "", 0, true},
		{"duplicate name", "r-1=Orion;r-2=orion", "", 0, true},
		{"same name across kinds", "r-1=Orion", "t-1=Orion", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewStaticSource(tt.rooms, tt.teams)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStaticSource() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			rooms, _ := src.LoadRooms(context.Background())
			if len(rooms) != tt.wantRooms {
				t.Errorf("rooms = %d, want %d", len(rooms), tt.wantRooms)
			}
		})
	}

	src, _ := NewStaticSource("r-2 = Lyra  Hall", "")
	rooms, _ := src.LoadRooms(context.Background())
	if rooms[0].ID != "r-2" || rooms[0].Name != "Lyra Hall" {
		t.Errorf("entry not normalized: %+v", rooms[0])
	}
}

type mockSource struct {
	LoadRoomsFunc func(ctx context.Context) ([]model.Room, error)
	LoadTeamsFunc func(ctx context.Context) ([]model.Team, error)
}

func (m *mockSource) LoadRooms(ctx context.Context) ([]model.Room, error) {
	return m.LoadRoomsFunc(ctx)
}

func (m *mockSource) LoadTeams(ctx context.Context) ([]model.Team, error) {
	if m.LoadTeamsFunc == nil {
		return nil, nil
	}
	return m.LoadTeamsFunc(ctx)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestLoader_RetriesUntilLoaded(t *testing.T) {
	var calls atomic.Int32
	src := &mockSource{
		LoadRoomsFunc: func(ctx context.Context) ([]model.Room, error) {
			if calls.Add(1) < 3 {
				return nil, errors.New("catalog backend down")
			}
			return []model.Room{{ID: "r-1", Name: "Orion"}}, nil
		},
	}
	store := NewStore()
	loader := NewLoader(src, store, logger.Discard(), time.Hour, time.Millisecond)

	var loads atomic.Int32
	loader.OnLoad(func() { loads.Add(1) })

	if err := loader.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer loader.Stop()

	waitFor(t, store.Loaded)
	if calls.Load() < 3 {
		t.Errorf("expected at least 3 attempts, got %d", calls.Load())
	}
	if loads.Load() != 1 {
		t.Errorf("OnLoad ran %d times, want 1", loads.Load())
	}
}

func TestLoader_StartStop(t *testing.T) {
	src := &mockSource{LoadRoomsFunc: func(ctx context.Context) ([]model.Room, error) { return nil, nil }}
	loader := NewLoader(src, NewStore(), logger.Discard(), time.Hour, time.Hour)

	loader.Stop()

	if err := loader.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := loader.Start(context.Background()); !errors.Is(err, ErrLoaderRunning) {
		t.Errorf("second Start() err = %v, want ErrLoaderRunning", err)
	}
	loader.Stop()
	loader.Stop()

	if err := loader.Start(context.Background()); err != nil {
		t.Errorf("restart after Stop() error = %v", err)
	}
	loader.Stop()
}
