package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/disgoorg/snowflake/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
	"github.com/stretchr/testify/suite"
)

type RedisStoreTestSuite struct {
	suite.Suite
	mr      *miniredis.Miniredis
	client  *redis.Client
	store   *RedisStore
	ctx     context.Context
	testNow time.Time
}

func (s *RedisStoreTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(RedisOptions(s.mr.Addr(), "", 0))
	s.ctx = context.Background()

	store, err := NewRedisStore(s.ctx, s.client)
	s.Require().NoError(err)
	s.store = store

	s.testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func (s *RedisStoreTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestRedisStoreTestSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreTestSuite))
}

func (s *RedisStoreTestSuite) station(guildID snowflake.ID, name string) domain.Station {
	return domain.Station{
		GuildID:       guildID,
		Name:          name,
		URL:           "https://radio.example.com/" + name,
		AlwaysShuffle: name == "mix",
		AddedBy:       100,
		AddedAt:       s.testNow,
	}
}

func (s *RedisStoreTestSuite) TestNewRedisStoreRejectsNilClient() {
	_, err := NewRedisStore(s.ctx, nil)
	s.Error(err)
}

func (s *RedisStoreTestSuite) TestSaveAndLoadStations() {
	for _, st := range []domain.Station{
		s.station(2, "zeta"),
		s.station(1, "Lofi"),
		s.station(2, "mix"),
		s.station(1, "jazz"),
	} {
		s.Require().NoError(s.store.SaveStation(s.ctx, st))
	}

	stations, err := s.store.LoadStations(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(stations, 4)

	// Guilds in ID order, stations in insertion order.
	s.Equal(s.station(1, "Lofi"), stations[0])
	s.Equal("jazz", stations[1].Name)
	s.Equal("zeta", stations[2].Name)
	s.Equal("mix", stations[3].Name)
	s.True(stations[3].AlwaysShuffle)
	s.True(stations[0].AddedAt.Equal(s.testNow))
}

func (s *RedisStoreTestSuite) TestSaveStationReplacesSameKey() {
	s.Require().NoError(s.store.SaveStation(s.ctx, s.station(1, "lofi")))
	s.Require().NoError(s.store.SaveStation(s.ctx, s.station(1, "jazz")))

	replacement := s.station(1, "LOFI")
	replacement.URL = "https://radio.example.com/new"
	s.Require().NoError(s.store.SaveStation(s.ctx, replacement))

	stations, err := s.store.LoadStations(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(stations, 2)
	s.Equal("jazz", stations[0].Name)
	s.Equal("https://radio.example.com/new", stations[1].URL)
}

func (s *RedisStoreTestSuite) TestDeleteStation() {
	s.Require().NoError(s.store.SaveStation(s.ctx, s.station(1, "lofi")))
	s.Require().NoError(s.store.SaveStation(s.ctx, s.station(1, "jazz")))

	s.Require().NoError(s.store.DeleteStation(s.ctx, 1, "Lofi"))
	s.ErrorIs(s.store.DeleteStation(s.ctx, 1, "lofi"), domain.ErrNotFound)
	s.ErrorIs(s.store.DeleteStation(s.ctx, 9, "lofi"), domain.ErrNotFound)

	stations, err := s.store.LoadStations(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(stations, 1)
	s.Equal("jazz", stations[0].Name)
}

func (s *RedisStoreTestSuite) TestLoadStationsSkipsDanglingOrderEntries() {
	s.Require().NoError(s.store.SaveStation(s.ctx, s.station(1, "lofi")))
	s.Require().NoError(s.client.RPush(s.ctx, stationOrderKey(1), "ghost").Err())

	stations, err := s.store.LoadStations(s.ctx)
	s.Require().NoError(err)
	s.Len(stations, 1)
}

func (s *RedisStoreTestSuite) TestLoadStationsEmpty() {
	stations, err := s.store.LoadStations(s.ctx)
	s.Require().NoError(err)
	s.Empty(stations)
}

func (s *RedisStoreTestSuite) TestBindings() {
	binding := domain.AutoplayBinding{
		GuildID:               1,
		ChannelID:             7,
		StationName:           "lofi",
		NotificationChannelID: 3,
		UpdatedBy:             100,
		UpdatedAt:             s.testNow,
	}
	other := binding
	other.GuildID = 2
	other.StationName = "jazz"

	s.Require().NoError(s.store.SaveBinding(s.ctx, other))
	s.Require().NoError(s.store.SaveBinding(s.ctx, binding))

	got, err := s.store.GetBinding(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(binding, got)

	all, err := s.store.ListBindings(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(snowflake.ID(1), all[0].GuildID)
	s.Equal(snowflake.ID(2), all[1].GuildID)

	s.Require().NoError(s.store.DeleteBinding(s.ctx, 1))
	_, err = s.store.GetBinding(s.ctx, 1)
	s.ErrorIs(err, domain.ErrNotFound)
	s.ErrorIs(s.store.DeleteBinding(s.ctx, 1), domain.ErrNotFound)
}

func (s *RedisStoreTestSuite) TestBindingOverwrite() {
	binding := domain.AutoplayBinding{GuildID: 1, ChannelID: 7, StationName: "lofi", UpdatedAt: s.testNow}
	s.Require().NoError(s.store.SaveBinding(s.ctx, binding))

	binding.ChannelID = 8
	s.Require().NoError(s.store.SaveBinding(s.ctx, binding))

	got, err := s.store.GetBinding(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(snowflake.ID(8), got.ChannelID)
}

func (s *RedisStoreTestSuite) TestCorruptBinding() {
	s.Require().NoError(s.client.HSet(s.ctx, autoplayKey, "1", "{not json").Err())

	_, err := s.store.GetBinding(s.ctx, 1)
	s.Error(err)
	_, err = s.store.ListBindings(s.ctx)
	s.Error(err)
}

func (s *RedisStoreTestSuite) TestNewRedisStoreServerDown() {
	down, err := miniredis.Run()
	s.Require().NoError(err)
	addr := down.Addr()
	down.Close()

	client := redis.NewClient(RedisOptions(addr, "", 0))
	defer client.Close()

	_, err = NewRedisStore(s.ctx, client)
	s.Error(err)
}
