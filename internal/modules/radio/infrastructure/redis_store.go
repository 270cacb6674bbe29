package infrastructure

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

// Redis key layout.
const (
	// stationsKeyPrefix + guild ID is a hash of station key to station JSON.
	stationsKeyPrefix = "sgrradio:stations:"
	// stationsKeyPrefix + guild ID + orderKeySuffix lists station keys in insertion order.
	orderKeySuffix = ":order"
	// stationGuildsKey is the set of guild IDs that have stations.
	stationGuildsKey = "sgrradio:station_guilds"
	// autoplayKey is a hash of guild ID to binding JSON.
	autoplayKey = "sgrradio:autoplay"
)

// storedStation is the JSON form of a station.
type storedStation struct {
	GuildID       snowflake.ID `json:"guild_id"`
	Name          string       `json:"name"`
	URL           string       `json:"url"`
	AlwaysShuffle bool         `json:"always_shuffle"`
	AddedBy       snowflake.ID `json:"added_by"`
	AddedAt       time.Time    `json:"added_at"`
}

// storedBinding is the JSON form of an autoplay binding.
type storedBinding struct {
	GuildID               snowflake.ID `json:"guild_id"`
	ChannelID             snowflake.ID `json:"channel_id"`
	StationName           string       `json:"station_name"`
	NotificationChannelID snowflake.ID `json:"notification_channel_id"`
	UpdatedBy             snowflake.ID `json:"updated_by"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// RedisStore persists stations and autoplay bindings in Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore and checks the connection.
func NewRedisStore(ctx context.Context, client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func stationsKey(guildID snowflake.ID) string {
	return stationsKeyPrefix + guildID.String()
}

func stationOrderKey(guildID snowflake.ID) string {
	return stationsKey(guildID) + orderKeySuffix
}

// SaveStation stores a station, replacing one with the same key.
func (s *RedisStore) SaveStation(ctx context.Context, station domain.Station) error {
	data, err := json.Marshal(storedStation{
		GuildID:       station.GuildID,
		Name:          station.Name,
		URL:           station.URL,
		AlwaysShuffle: station.AlwaysShuffle,
		AddedBy:       station.AddedBy,
		AddedAt:       station.AddedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal station: %w", err)
	}

	key := station.Key()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, stationsKey(station.GuildID), key, data)
		// LRem first so a replaced station keeps a single order entry.
		pipe.LRem(ctx, stationOrderKey(station.GuildID), 0, key)
		pipe.RPush(ctx, stationOrderKey(station.GuildID), key)
		pipe.SAdd(ctx, stationGuildsKey, station.GuildID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save station: %w", err)
	}
	return nil
}

// DeleteStation removes a station. Returns domain.ErrNotFound if absent.
func (s *RedisStore) DeleteStation(ctx context.Context, guildID snowflake.ID, name string) error {
	key := domain.StationKey(name)

	var deleted *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.HDel(ctx, stationsKey(guildID), key)
		pipe.LRem(ctx, stationOrderKey(guildID), 0, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete station: %w", err)
	}
	if deleted.Val() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// LoadStations returns every persisted station, grouped by guild in guild ID
// order and in insertion order within a guild.
func (s *RedisStore) LoadStations(ctx context.Context) ([]domain.Station, error) {
	members, err := s.client.SMembers(ctx, stationGuildsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list station guilds: %w", err)
	}

	guildIDs := make([]snowflake.ID, 0, len(members))
	for _, m := range members {
		id, err := snowflake.Parse(m)
		if err != nil {
			return nil, fmt.Errorf("failed to parse guild ID %q: %w", m, err)
		}
		guildIDs = append(guildIDs, id)
	}
	slices.Sort(guildIDs)

	var stations []domain.Station
	for _, guildID := range guildIDs {
		guildStations, err := s.loadGuildStations(ctx, guildID)
		if err != nil {
			return nil, err
		}
		stations = append(stations, guildStations...)
	}
	return stations, nil
}

func (s *RedisStore) loadGuildStations(ctx context.Context, guildID snowflake.ID) ([]domain.Station, error) {
	var (
		orderCmd *redis.StringSliceCmd
		dataCmd  *redis.MapStringStringCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		orderCmd = pipe.LRange(ctx, stationOrderKey(guildID), 0, -1)
		dataCmd = pipe.HGetAll(ctx, stationsKey(guildID))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load stations for guild %d: %w", guildID, err)
	}

	data := dataCmd.Val()
	stations := make([]domain.Station, 0, len(data))
	for _, key := range orderCmd.Val() {
		raw, ok := data[key]
		if !ok {
			// Order entry left behind by an interrupted delete.
			continue
		}

		var stored storedStation
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return nil, fmt.Errorf("failed to unmarshal station %q: %w", key, err)
		}
		stations = append(stations, domain.Station{
			GuildID:       stored.GuildID,
			Name:          stored.Name,
			URL:           stored.URL,
			AlwaysShuffle: stored.AlwaysShuffle,
			AddedBy:       stored.AddedBy,
			AddedAt:       stored.AddedAt,
		})
	}
	return stations, nil
}

// SaveBinding stores the guild's autoplay binding.
func (s *RedisStore) SaveBinding(ctx context.Context, binding domain.AutoplayBinding) error {
	data, err := json.Marshal(storedBinding(binding))
	if err != nil {
		return fmt.Errorf("failed to marshal autoplay binding: %w", err)
	}

	if err := s.client.HSet(ctx, autoplayKey, binding.GuildID.String(), data).Err(); err != nil {
		return fmt.Errorf("failed to save autoplay binding: %w", err)
	}
	return nil
}

// GetBinding returns the guild's autoplay binding.
func (s *RedisStore) GetBinding(ctx context.Context, guildID snowflake.ID) (domain.AutoplayBinding, error) {
	raw, err := s.client.HGet(ctx, autoplayKey, guildID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return domain.AutoplayBinding{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.AutoplayBinding{}, fmt.Errorf("failed to get autoplay binding: %w", err)
	}

	return decodeBinding(raw)
}

// DeleteBinding removes the guild's autoplay binding.
func (s *RedisStore) DeleteBinding(ctx context.Context, guildID snowflake.ID) error {
	n, err := s.client.HDel(ctx, autoplayKey, guildID.String()).Result()
	if err != nil {
		return fmt.Errorf("failed to delete autoplay binding: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListBindings returns every binding ordered by guild ID.
func (s *RedisStore) ListBindings(ctx context.Context) ([]domain.AutoplayBinding, error) {
	all, err := s.client.HGetAll(ctx, autoplayKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list autoplay bindings: %w", err)
	}

	bindings := make([]domain.AutoplayBinding, 0, len(all))
	for field, raw := range all {
		binding, err := decodeBinding(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode binding for guild %s: %w", field, err)
		}
		bindings = append(bindings, binding)
	}
	slices.SortFunc(bindings, func(a, b domain.AutoplayBinding) int {
		return cmp.Compare(a.GuildID, b.GuildID)
	})
	return bindings, nil
}

func decodeBinding(raw string) (domain.AutoplayBinding, error) {
	var stored storedBinding
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return domain.AutoplayBinding{}, fmt.Errorf("failed to unmarshal autoplay binding: %w", err)
	}
	return domain.AutoplayBinding(stored), nil
}

// RedisOptions builds client options from the module's connection settings.
func RedisOptions(addr, password string, db int) *redis.Options {
	return &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
}

// Ensure RedisStore implements the store interfaces.
var (
	_ domain.StationStore  = (*RedisStore)(nil)
	_ domain.AutoplayStore = (*RedisStore)(nil)
)
