package catalog

import (
	"context"
	"fmt"
	"strings"

	"roomdesk/pkg/model"
	"roomdesk/pkg/sanitizer"
)

type Source interface {
	LoadRooms(ctx context.Context) ([]model.Room, error)
	LoadTeams(ctx context.Context) ([]model.Team, error)
}

type staticSource struct {
	rooms []model.Room
	teams []model.Team
}

// NewStaticSource parses "id=Name;id=Name" lists, as read from
// CATALOG_ROOMS and CATALOG_TEAMS.
func NewStaticSource(rooms, teams string) (Source, error) {
	roomPairs, err := parsePairs(rooms)
	if err != nil {
		return nil, fmt.Errorf("rooms: %w", err)
	}
	teamPairs, err := parsePairs(teams)
	if err != nil {
		return nil, fmt.Errorf("teams: %w", err)
	}

	src := &staticSource{}
	for _, p := range roomPairs {
		src.rooms = append(src.rooms, model.Room{ID: p[0], Name: p[1]})
	}
	for _, p := range teamPairs {
		src.teams = append(src.teams, model.Team{ID: p[0], Name: p[1]})
	}
	return src, nil
}

func (s *staticSource) LoadRooms(context.Context) ([]model.Room, error) {
	return append([]model.Room(nil), s.rooms...), nil
}

func (s *staticSource) LoadTeams(context.Context) ([]model.Team, error) {
	return append([]model.Team(nil), s.teams...), nil
}

func parsePairs(raw string) ([][2]string, error) {
	var out [][2]string
	seen := make(map[string]bool)
	names := make(map[string]bool)
	for _, item := range strings.Split(raw, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		id, name, ok := strings.Cut(item, "=")
		id = sanitizer.NormalizeID(id)
		name = sanitizer.NormalizeName(name)
		if !ok || id == "" || name == "" {
			return nil, fmt.Errorf("invalid entry %q: expected id=Name", item)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate id %q", id)
		}
		key := sanitizer.NormalizeNameForComparison(name)
		if names[key] {
			return nil, fmt.Errorf("duplicate name %q", name)
		}
		seen[id] = true
		names[key] = true
		out = append(out, [2]string{id, name})
	}
	return out, nil
}
