package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/ports"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
	"golang.org/x/time/rate"
)

var _ AutoplayGate = (*AutoplayService)(nil)

// SetAutoplayInput contains the input for the SetAutoplay use case.
type SetAutoplayInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	VoiceChannelID        snowflake.ID // Optional: 0 means the user's current channel
	StationName           string
	NotificationChannelID snowflake.ID
}

// SetAutoplayOutput contains the result of the SetAutoplay use case.
type SetAutoplayOutput struct {
	Binding AutoplayBinding
	// Started is true when the radio was idle and has been started right away.
	Started bool
}

// AutoplayService keeps bound guilds playing their station.
//
// Run sweeps the bindings periodically and plays the bound station in every
// guild whose session is idle: after a restart of the bot, and after a
// session gave up reconnecting. Guilds that a user stopped on purpose are
// suspended until something plays there again.
type AutoplayService struct {
	store      domain.AutoplayStore
	stations   domain.StationRegistry
	sessions   ports.SessionDispatcher
	voiceState ports.VoiceStateProvider
	limiter    *rate.Limiter
	interval   time.Duration
	now        func() time.Time

	mu        sync.Mutex
	suspended map[snowflake.ID]struct{}
}

// NewAutoplayService creates a new AutoplayService. Sweeps run every interval
// and start at most one guild per joinEvery.
func NewAutoplayService(
	store domain.AutoplayStore,
	stations domain.StationRegistry,
	sessions ports.SessionDispatcher,
	voiceState ports.VoiceStateProvider,
	interval time.Duration,
	joinEvery time.Duration,
) *AutoplayService {
	return &AutoplayService{
		store:      store,
		stations:   stations,
		sessions:   sessions,
		voiceState: voiceState,
		limiter:    rate.NewLimiter(rate.Every(joinEvery), 1),
		interval:   interval,
		now:        time.Now,
		suspended:  make(map[snowflake.ID]struct{}),
	}
}

// SetAutoplay binds a station to a voice channel. An idle guild starts playing immediately.
func (a *AutoplayService) SetAutoplay(ctx context.Context, input SetAutoplayInput) (*SetAutoplayOutput, error) {
	station, err := a.stations.Get(input.GuildID, input.StationName)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStation, input.StationName)
	}
	if err != nil {
		return nil, err
	}

	channelID := input.VoiceChannelID
	if channelID == 0 {
		userChannel, err := a.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
		if err != nil {
			return nil, err
		}
		if userChannel == 0 {
			return nil, ErrUserNotInVoice
		}
		channelID = userChannel
	}

	binding := domain.AutoplayBinding{
		GuildID:               input.GuildID,
		ChannelID:             channelID,
		StationName:           station.Name,
		NotificationChannelID: input.NotificationChannelID,
		UpdatedBy:             input.UserID,
		UpdatedAt:             a.now(),
	}
	if err := a.store.SaveBinding(ctx, binding); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	a.Resume(input.GuildID)

	slog.Info("set autoplay station",
		"guild", binding.GuildID,
		"channel", binding.ChannelID,
		"station", binding.StationName,
	)

	started := false
	if a.sessions.Status(input.GuildID).State == domain.StateIdle {
		if err := a.start(ctx, binding); err != nil {
			return nil, err
		}
		started = true
	}

	return &SetAutoplayOutput{Binding: binding, Started: started}, nil
}

// GetAutoplay returns the guild's binding.
func (a *AutoplayService) GetAutoplay(ctx context.Context, guildID snowflake.ID) (AutoplayBinding, error) {
	binding, err := a.store.GetBinding(ctx, guildID)
	if errors.Is(err, domain.ErrNotFound) {
		return AutoplayBinding{}, ErrNoAutoplayBinding
	}
	return binding, err
}

// ClearAutoplay removes the guild's binding. Whatever is playing keeps playing.
func (a *AutoplayService) ClearAutoplay(ctx context.Context, guildID snowflake.ID) error {
	err := a.store.DeleteBinding(ctx, guildID)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrNoAutoplayBinding
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}

	slog.Info("cleared autoplay station", "guild", guildID)
	return nil
}

// Suspend keeps the sweep away from the guild until Resume.
func (a *AutoplayService) Suspend(guildID snowflake.ID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.suspended[guildID] = struct{}{}
}

// Resume lets the sweep restart the guild again.
func (a *AutoplayService) Resume(guildID snowflake.ID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.suspended, guildID)
}

func (a *AutoplayService) isSuspended(guildID snowflake.ID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.suspended[guildID]
	return ok
}

// Run sweeps immediately and then every interval until ctx is cancelled.
func (a *AutoplayService) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		if _, err := a.Sweep(ctx); err != nil && ctx.Err() == nil {
			slog.Error("failed to sweep autoplay bindings", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep starts every bound guild that is idle and not suspended, and returns how many it started.
func (a *AutoplayService) Sweep(ctx context.Context) (int, error) {
	bindings, err := a.store.ListBindings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list autoplay bindings: %w", err)
	}

	started := 0
	for _, binding := range bindings {
		if a.isSuspended(binding.GuildID) {
			continue
		}
		if a.sessions.Status(binding.GuildID).State != domain.StateIdle {
			continue
		}

		if err := a.limiter.Wait(ctx); err != nil {
			return started, err
		}

		if err := a.start(ctx, binding); err != nil {
			slog.Warn("failed to start autoplay station",
				"guild", binding.GuildID,
				"station", binding.StationName,
				"error", err,
			)
			continue
		}
		started++
	}
	return started, nil
}

func (a *AutoplayService) start(ctx context.Context, binding AutoplayBinding) error {
	err := a.sessions.Dispatch(ctx, binding.GuildID, domain.Play{
		ChannelID:             binding.ChannelID,
		StationName:           binding.StationName,
		NotificationChannelID: binding.NotificationChannelID,
	})
	if err != nil {
		return err
	}

	slog.Debug("started autoplay station", "guild", binding.GuildID, "station", binding.StationName)
	return nil
}
