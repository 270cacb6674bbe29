package usecases

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

const (
	testGuild   = snowflake.ID(42)
	testUser    = snowflake.ID(100)
	testChannel = snowflake.ID(7)
	testText    = snowflake.ID(3)
)

func mockStation(name string) domain.Station {
	return domain.Station{
		GuildID: testGuild,
		Name:    name,
		URL:     "https://radio.example.com/" + name,
		AddedBy: testUser,
	}
}

// fakeRegistry keeps stations in insertion order.
type fakeRegistry struct {
	mu       sync.Mutex
	stations []domain.Station
}

func newFakeRegistry(stations ...domain.Station) *fakeRegistry {
	return &fakeRegistry{stations: stations}
}

func (r *fakeRegistry) Add(station domain.Station) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stations {
		if s.GuildID == station.GuildID && s.Key() == station.Key() {
			return domain.ErrDuplicateName
		}
	}
	r.stations = append(r.stations, station)
	return nil
}

func (r *fakeRegistry) Remove(guildID snowflake.ID, name string) (domain.Station, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.stations {
		if s.GuildID == guildID && s.Key() == domain.StationKey(name) {
			r.stations = append(r.stations[:i], r.stations[i+1:]...)
			return s, nil
		}
	}
	return domain.Station{}, domain.ErrNotFound
}

func (r *fakeRegistry) Get(guildID snowflake.ID, name string) (domain.Station, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stations {
		if s.GuildID == guildID && s.Key() == domain.StationKey(name) {
			return s, nil
		}
	}
	return domain.Station{}, domain.ErrNotFound
}

func (r *fakeRegistry) List(guildID snowflake.ID) []domain.Station {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Station
	for _, s := range r.stations {
		if s.GuildID == guildID {
			out = append(out, s)
		}
	}
	return out
}

type mockVoiceStateProvider struct {
	channels map[snowflake.ID]snowflake.ID // userID -> channelID
	err      error
}

func (m *mockVoiceStateProvider) GetUserVoiceChannel(_, userID snowflake.ID) (snowflake.ID, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.channels[userID], nil
}

type recordingGate struct {
	suspended []snowflake.ID
	resumed   []snowflake.ID
}

func (g *recordingGate) Suspend(guildID snowflake.ID) { g.suspended = append(g.suspended, guildID) }
func (g *recordingGate) Resume(guildID snowflake.ID)  { g.resumed = append(g.resumed, guildID) }

func streamingStatus(station string, channelID snowflake.ID) domain.SessionStatus {
	s := mockStation(station)
	return domain.SessionStatus{
		GuildID:   testGuild,
		State:     domain.StateStreaming,
		Station:   &s,
		ChannelID: channelID,
	}
}

func idleStatus() domain.SessionStatus {
	return domain.IdleStatus(testGuild)
}
