package domain

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

//go:generate mockgen -source=repository.go -destination=mocks/mock_repository.go -package=mocks

// StationRegistry holds the stations of every guild.
// Names are unique per guild, compared case-insensitively, and List keeps insertion order.
type StationRegistry interface {
	// Add stores a new station. Returns ErrDuplicateName if the guild already has the name.
	Add(station Station) error

	// Remove deletes a station and returns it. Returns ErrNotFound if absent.
	Remove(guildID snowflake.ID, name string) (Station, error)

	// Get returns a station. Returns ErrNotFound if absent.
	Get(guildID snowflake.ID, name string) (Station, error)

	// List returns the guild's stations in insertion order.
	List(guildID snowflake.ID) []Station
}

// StationStore persists stations across restarts.
type StationStore interface {
	SaveStation(ctx context.Context, station Station) error
	DeleteStation(ctx context.Context, guildID snowflake.ID, name string) error
	// LoadStations returns every persisted station, each guild's in insertion order.
	LoadStations(ctx context.Context) ([]Station, error)
}

// AutoplayBinding pins a station to a voice channel so the bot rejoins it on its own.
type AutoplayBinding struct {
	GuildID               snowflake.ID
	ChannelID             snowflake.ID
	StationName           string
	NotificationChannelID snowflake.ID
	UpdatedBy             snowflake.ID
	UpdatedAt             time.Time
}

// AutoplayStore persists autoplay bindings, one per guild.
type AutoplayStore interface {
	SaveBinding(ctx context.Context, binding AutoplayBinding) error
	// GetBinding returns ErrNotFound if the guild has no binding.
	GetBinding(ctx context.Context, guildID snowflake.ID) (AutoplayBinding, error)
	// DeleteBinding returns ErrNotFound if the guild has no binding.
	DeleteBinding(ctx context.Context, guildID snowflake.ID) error
	ListBindings(ctx context.Context) ([]AutoplayBinding, error)
}
