package infrastructure

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

// stationSnapshot is one immutable version of a guild's stations.
type stationSnapshot struct {
	order []domain.Station
	index map[string]int
}

func (s *stationSnapshot) get(key string) (domain.Station, bool) {
	i, ok := s.index[key]
	if !ok {
		return domain.Station{}, false
	}
	return s.order[i], true
}

// with returns a new snapshot with keep applied to every station and add appended.
func (s *stationSnapshot) with(keep func(domain.Station) bool, add ...domain.Station) *stationSnapshot {
	next := &stationSnapshot{
		order: make([]domain.Station, 0, len(s.order)+len(add)),
		index: make(map[string]int, len(s.order)+len(add)),
	}
	for _, st := range s.order {
		if keep(st) {
			next.index[st.Key()] = len(next.order)
			next.order = append(next.order, st)
		}
	}
	for _, st := range add {
		next.index[st.Key()] = len(next.order)
		next.order = append(next.order, st)
	}
	return next
}

var emptySnapshot = &stationSnapshot{}

// guildStations holds one guild's stations. Writers serialize on mu and
// publish a fresh snapshot; readers only load the pointer.
type guildStations struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[stationSnapshot]
}

func (g *guildStations) load() *stationSnapshot {
	if s := g.snapshot.Load(); s != nil {
		return s
	}
	return emptySnapshot
}

// MemoryStationRegistry is an in-memory implementation of domain.StationRegistry.
// Writes lock only the guild they change and reads take no lock.
type MemoryStationRegistry struct {
	guilds sync.Map // snowflake.ID -> *guildStations
}

// NewMemoryStationRegistry creates a new MemoryStationRegistry.
func NewMemoryStationRegistry() *MemoryStationRegistry {
	return &MemoryStationRegistry{}
}

func (r *MemoryStationRegistry) guild(guildID snowflake.ID) *guildStations {
	if g, ok := r.guilds.Load(guildID); ok {
		return g.(*guildStations)
	}
	g, _ := r.guilds.LoadOrStore(guildID, &guildStations{})
	return g.(*guildStations)
}

func (r *MemoryStationRegistry) lookup(guildID snowflake.ID) *stationSnapshot {
	g, ok := r.guilds.Load(guildID)
	if !ok {
		return emptySnapshot
	}
	return g.(*guildStations).load()
}

// Add stores a new station.
func (r *MemoryStationRegistry) Add(station domain.Station) error {
	g := r.guild(station.GuildID)
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.load()
	if _, exists := cur.get(station.Key()); exists {
		return domain.ErrDuplicateName
	}

	g.snapshot.Store(cur.with(func(domain.Station) bool { return true }, station))
	return nil
}

// Remove deletes a station and returns it.
func (r *MemoryStationRegistry) Remove(guildID snowflake.ID, name string) (domain.Station, error) {
	v, ok := r.guilds.Load(guildID)
	if !ok {
		return domain.Station{}, domain.ErrNotFound
	}
	g := v.(*guildStations)
	g.mu.Lock()
	defer g.mu.Unlock()

	key := domain.StationKey(name)
	cur := g.load()
	station, ok := cur.get(key)
	if !ok {
		return domain.Station{}, domain.ErrNotFound
	}

	g.snapshot.Store(cur.with(func(st domain.Station) bool { return st.Key() != key }))
	return station, nil
}

// Get returns a station by case-insensitive name.
func (r *MemoryStationRegistry) Get(guildID snowflake.ID, name string) (domain.Station, error) {
	station, ok := r.lookup(guildID).get(domain.StationKey(name))
	if !ok {
		return domain.Station{}, domain.ErrNotFound
	}
	return station, nil
}

// List returns a copy of the guild's stations in insertion order.
func (r *MemoryStationRegistry) List(guildID snowflake.ID) []domain.Station {
	order := r.lookup(guildID).order
	if len(order) == 0 {
		return nil
	}
	return slices.Clone(order)
}

// Ensure MemoryStationRegistry implements domain.StationRegistry.
var _ domain.StationRegistry = (*MemoryStationRegistry)(nil)
