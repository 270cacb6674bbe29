package infrastructure

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

// MemoryStore keeps stations and autoplay bindings in process memory.
// It is used when no Redis address is configured; nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	stations map[snowflake.ID][]domain.Station
	bindings map[snowflake.ID]domain.AutoplayBinding
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stations: make(map[snowflake.ID][]domain.Station),
		bindings: make(map[snowflake.ID]domain.AutoplayBinding),
	}
}

// SaveStation stores a station, replacing one with the same key.
func (s *MemoryStore) SaveStation(_ context.Context, station domain.Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.stations[station.GuildID]
	for i, existing := range list {
		if existing.Key() == station.Key() {
			list[i] = station
			return nil
		}
	}
	s.stations[station.GuildID] = append(list, station)
	return nil
}

// DeleteStation removes a station. Returns domain.ErrNotFound if absent.
func (s *MemoryStore) DeleteStation(_ context.Context, guildID snowflake.ID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.StationKey(name)
	list := s.stations[guildID]
	for i, existing := range list {
		if existing.Key() == key {
			s.stations[guildID] = slices.Delete(list, i, i+1)
			return nil
		}
	}
	return domain.ErrNotFound
}

// LoadStations returns every stored station, grouped by guild.
func (s *MemoryStore) LoadStations(_ context.Context) ([]domain.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	guildIDs := make([]snowflake.ID, 0, len(s.stations))
	for id := range s.stations {
		guildIDs = append(guildIDs, id)
	}
	slices.Sort(guildIDs)

	var stations []domain.Station
	for _, id := range guildIDs {
		stations = append(stations, s.stations[id]...)
	}
	return stations, nil
}

// SaveBinding stores the guild's autoplay binding.
func (s *MemoryStore) SaveBinding(_ context.Context, binding domain.AutoplayBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bindings[binding.GuildID] = binding
	return nil
}

// GetBinding returns the guild's autoplay binding.
func (s *MemoryStore) GetBinding(_ context.Context, guildID snowflake.ID) (domain.AutoplayBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	binding, ok := s.bindings[guildID]
	if !ok {
		return domain.AutoplayBinding{}, domain.ErrNotFound
	}
	return binding, nil
}

// DeleteBinding removes the guild's autoplay binding.
func (s *MemoryStore) DeleteBinding(_ context.Context, guildID snowflake.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bindings[guildID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.bindings, guildID)
	return nil
}

// ListBindings returns every binding ordered by guild ID.
func (s *MemoryStore) ListBindings(_ context.Context) ([]domain.AutoplayBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bindings := make([]domain.AutoplayBinding, 0, len(s.bindings))
	for _, b := range s.bindings {
		bindings = append(bindings, b)
	}
	slices.SortFunc(bindings, func(a, b domain.AutoplayBinding) int {
		return cmp.Compare(a.GuildID, b.GuildID)
	})
	return bindings, nil
}

// Ensure MemoryStore implements the store interfaces.
var (
	_ domain.StationStore  = (*MemoryStore)(nil)
	_ domain.AutoplayStore = (*MemoryStore)(nil)
)
