package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

// maxSuggestions is the most choices Discord shows for an autocomplete.
const maxSuggestions = 25

// AddStationInput contains the input for the AddStation use case.
type AddStationInput struct {
	GuildID       snowflake.ID
	UserID        snowflake.ID
	Name          string
	URL           string
	AlwaysShuffle bool
}

// AddStationOutput contains the result of the AddStation use case.
type AddStationOutput struct {
	Station Station
}

// RemoveStationInput contains the input for the RemoveStation use case.
type RemoveStationInput struct {
	GuildID snowflake.ID
	Name    string
}

// RemoveStationOutput contains the result of the RemoveStation use case.
type RemoveStationOutput struct {
	Station Station
}

// ListStationsInput contains the input for the ListStations use case.
type ListStationsInput struct {
	GuildID snowflake.ID
}

// ListStationsOutput contains the result of the ListStations use case.
type ListStationsOutput struct {
	Stations []Station
}

// SuggestStationsInput contains the input for station name autocomplete.
type SuggestStationsInput struct {
	GuildID snowflake.ID
	Query   string
	Limit   int // Defaults to 25
}

// StationService manages the station registry and keeps the store in step with it.
type StationService struct {
	registry domain.StationRegistry
	store    domain.StationStore
	now      func() time.Time
}

// NewStationService creates a new StationService.
// store may be nil, in which case stations live only in memory.
func NewStationService(registry domain.StationRegistry, store domain.StationStore) *StationService {
	return &StationService{
		registry: registry,
		store:    store,
		now:      time.Now,
	}
}

// AddStation validates and registers a new station.
func (s *StationService) AddStation(ctx context.Context, input AddStationInput) (*AddStationOutput, error) {
	station, err := domain.NewStation(
		input.GuildID,
		input.Name,
		input.URL,
		input.AlwaysShuffle,
		input.UserID,
		s.now(),
	)
	if err != nil {
		return nil, err
	}

	if err := s.registry.Add(station); err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.SaveStation(ctx, station); err != nil {
			if _, rbErr := s.registry.Remove(station.GuildID, station.Name); rbErr != nil {
				slog.Error("failed to roll back station", "guild", station.GuildID, "station", station.Name, "error", rbErr)
			}
			return nil, fmt.Errorf("%w: %w", ErrStoreFailed, err)
		}
	}

	slog.Info("added station", "guild", station.GuildID, "station", station.Name, "url", station.URL)

	return &AddStationOutput{Station: station}, nil
}

// RemoveStation deletes a station. A session already streaming it keeps playing.
func (s *StationService) RemoveStation(ctx context.Context, input RemoveStationInput) (*RemoveStationOutput, error) {
	station, err := s.registry.Remove(input.GuildID, input.Name)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStation, input.Name)
	}
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.DeleteStation(ctx, station.GuildID, station.Name); err != nil &&
			!errors.Is(err, domain.ErrNotFound) {
			if rbErr := s.registry.Add(station); rbErr != nil {
				slog.Error("failed to roll back station removal", "guild", station.GuildID, "station", station.Name, "error", rbErr)
			}
			return nil, fmt.Errorf("%w: %w", ErrStoreFailed, err)
		}
	}

	slog.Info("removed station", "guild", station.GuildID, "station", station.Name)

	return &RemoveStationOutput{Station: station}, nil
}

// ListStations returns the guild's stations in the order they were added.
func (s *StationService) ListStations(input ListStationsInput) *ListStationsOutput {
	return &ListStationsOutput{Stations: s.registry.List(input.GuildID)}
}

// SuggestStations returns stations whose names contain the query, prefix matches first.
func (s *StationService) SuggestStations(input SuggestStationsInput) []Station {
	limit := input.Limit
	if limit <= 0 || limit > maxSuggestions {
		limit = maxSuggestions
	}
	query := domain.StationKey(input.Query)

	var prefix, contains []Station
	for _, station := range s.registry.List(input.GuildID) {
		key := station.Key()
		switch {
		case strings.HasPrefix(key, query):
			prefix = append(prefix, station)
		case strings.Contains(key, query):
			contains = append(contains, station)
		}
	}

	matches := append(prefix, contains...)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// LoadFromStore fills the registry with every persisted station and returns how many were loaded.
func (s *StationService) LoadFromStore(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}

	stations, err := s.store.LoadStations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load stations: %w", err)
	}

	loaded := 0
	for _, station := range stations {
		if err := s.registry.Add(station); err != nil {
			slog.Warn("skipped persisted station", "guild", station.GuildID, "station", station.Name, "error", err)
			continue
		}
		loaded++
	}
	return loaded, nil
}

// Seed registers stations that the guild does not have yet and persists them.
// Existing names are left alone so edits made through commands survive restarts.
func (s *StationService) Seed(ctx context.Context, stations []Station) (int, error) {
	added := 0
	var errs []error
	for _, station := range stations {
		err := s.registry.Add(station)
		if errors.Is(err, domain.ErrDuplicateName) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if s.store != nil {
			if err := s.store.SaveStation(ctx, station); err != nil {
				errs = append(errs, fmt.Errorf("failed to save seeded station %q: %w", station.Name, err))
			}
		}
		added++
	}
	return added, errors.Join(errs...)
}
