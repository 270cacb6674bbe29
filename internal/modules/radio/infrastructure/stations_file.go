package infrastructure

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
	"gopkg.in/yaml.v3"
)

// stationsFile is the layout of a station seed file:
//
//	stations:
//	  - guild_id: 123456789012345678
//	    name: lofi
//	    url: https://radio.example.com/lofi.ogg
//	    always_shuffle: false
type stationsFile struct {
	Stations []seedStation `yaml:"stations"`
}

type seedStation struct {
	GuildID       snowflake.ID `yaml:"guild_id"`
	Name          string       `yaml:"name"`
	URL           string       `yaml:"url"`
	AlwaysShuffle bool         `yaml:"always_shuffle"`
}

// LoadStationsFile reads station seeds from a YAML file.
func LoadStationsFile(path string, addedAt time.Time) ([]domain.Station, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stations file: %w", err)
	}
	return ParseStations(data, addedAt)
}

// ParseStations decodes station seeds. Unknown keys and invalid stations are errors.
func ParseStations(data []byte, addedAt time.Time) ([]domain.Station, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file stationsFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse stations file: %w", err)
	}

	stations := make([]domain.Station, 0, len(file.Stations))
	for i, seed := range file.Stations {
		if seed.GuildID == 0 {
			return nil, fmt.Errorf("station %d: guild_id is required", i)
		}

		station, err := domain.NewStation(seed.GuildID, seed.Name, seed.URL, seed.AlwaysShuffle, 0, addedAt)
		if err != nil {
			return nil, fmt.Errorf("station %d: %w", i, err)
		}
		stations = append(stations, station)
	}
	return stations, nil
}
