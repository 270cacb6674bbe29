package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/disgoorg/snowflake/v2"
)

// MaxStationNameLength matches the longest value, in characters, Discord accepts
// for a choice name.
const MaxStationNameLength = 100

// Station is a named audio source scoped to a guild.
// Stations are immutable once created; an edit replaces the value wholesale.
type Station struct {
	GuildID       snowflake.ID
	Name          string
	URL           string
	AlwaysShuffle bool
	AddedBy       snowflake.ID
	AddedAt       time.Time
}

// NewStation validates its arguments and returns a Station.
func NewStation(
	guildID snowflake.ID,
	name, rawURL string,
	alwaysShuffle bool,
	addedBy snowflake.ID,
	addedAt time.Time,
) (Station, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxStationNameLength {
		return Station{}, fmt.Errorf("%w: %q", ErrInvalidStationName, name)
	}

	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Station{}, fmt.Errorf("%w: %q", ErrInvalidStationURL, rawURL)
	}

	return Station{
		GuildID:       guildID,
		Name:          name,
		URL:           rawURL,
		AlwaysShuffle: alwaysShuffle,
		AddedBy:       addedBy,
		AddedAt:       addedAt,
	}, nil
}

// Key returns the case-insensitive identity of the station within its guild.
func (s Station) Key() string {
	return StationKey(s.Name)
}

// StationKey folds a station name into its lookup key.
func StationKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
