package usecases

import (
	"context"
	"errors"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/ports"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

// PlayInput contains the input for the Play use case.
type PlayInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	StationName           string
	VoiceChannelID        snowflake.ID // Optional: 0 means the user's current channel
	NotificationChannelID snowflake.ID
}

// PlayOutput contains the result of the Play use case.
type PlayOutput struct {
	VoiceChannelID snowflake.ID
}

// SwitchInput contains the input for the Switch use case.
type SwitchInput struct {
	GuildID     snowflake.ID
	StationName string
}

// StopInput contains the input for the Stop use case.
type StopInput struct {
	GuildID snowflake.ID
}

// RestartInput contains the input for the Restart use case.
type RestartInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
}

// RestartOutput contains the result of the Restart use case.
type RestartOutput struct {
	StationName    string
	VoiceChannelID snowflake.ID
}

// NextInput contains the input for the Next use case.
type NextInput struct {
	GuildID snowflake.ID
}

// SetVolumeInput contains the input for the SetVolume use case.
type SetVolumeInput struct {
	GuildID snowflake.ID
	Volume  int
}

// PlaybackService turns user requests into session commands.
type PlaybackService struct {
	sessions   ports.SessionDispatcher
	voiceState ports.VoiceStateProvider
	volume     ports.VolumeController
	autoplay   domain.AutoplayStore
	gate       AutoplayGate
}

// NewPlaybackService creates a new PlaybackService.
// volume, autoplay and gate may be nil.
func NewPlaybackService(
	sessions ports.SessionDispatcher,
	voiceState ports.VoiceStateProvider,
	volume ports.VolumeController,
	autoplay domain.AutoplayStore,
	gate AutoplayGate,
) *PlaybackService {
	return &PlaybackService{
		sessions:   sessions,
		voiceState: voiceState,
		volume:     volume,
		autoplay:   autoplay,
		gate:       gate,
	}
}

// Play starts streaming a station in the given channel, or in the user's channel when none is given.
func (p *PlaybackService) Play(ctx context.Context, input PlayInput) (*PlayOutput, error) {
	channelID := input.VoiceChannelID
	if channelID == 0 {
		userChannel, err := p.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
		if err != nil {
			return nil, err
		}
		if userChannel == 0 {
			return nil, ErrUserNotInVoice
		}
		channelID = userChannel
	}

	err := p.sessions.Dispatch(ctx, input.GuildID, domain.Play{
		ChannelID:             channelID,
		StationName:           input.StationName,
		NotificationChannelID: input.NotificationChannelID,
	})
	if err != nil {
		return nil, err
	}

	if p.gate != nil {
		p.gate.Resume(input.GuildID)
	}

	return &PlayOutput{VoiceChannelID: channelID}, nil
}

// Switch changes the station of a running session without rejoining voice.
func (p *PlaybackService) Switch(ctx context.Context, input SwitchInput) error {
	err := p.sessions.Dispatch(ctx, input.GuildID, domain.SwitchStation{StationName: input.StationName})
	if errors.Is(err, domain.ErrNoChannel) {
		return ErrNotPlaying
	}
	return err
}

// Stop disconnects the radio and keeps autoplay from bringing it back.
func (p *PlaybackService) Stop(ctx context.Context, input StopInput) error {
	status := p.sessions.Status(input.GuildID)
	if !status.State.IsActive() {
		return ErrNotPlaying
	}

	if p.gate != nil {
		p.gate.Suspend(input.GuildID)
	}

	return p.sessions.Dispatch(ctx, input.GuildID, domain.Stop{})
}

// Restart tears the session down and starts it again on the same station and channel.
// A guild with nothing playing falls back to its autoplay binding.
func (p *PlaybackService) Restart(ctx context.Context, input RestartInput) (*RestartOutput, error) {
	status := p.sessions.Status(input.GuildID)

	play := domain.Play{NotificationChannelID: input.NotificationChannelID}
	if status.Station != nil && status.ChannelID != 0 {
		play.StationName = status.Station.Name
		play.ChannelID = status.ChannelID
	} else if p.autoplay != nil {
		binding, err := p.autoplay.GetBinding(ctx, input.GuildID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if err == nil {
			play.StationName = binding.StationName
			play.ChannelID = binding.ChannelID
		}
	}
	if play.StationName == "" || play.ChannelID == 0 {
		return nil, ErrNothingToRestart
	}

	if status.State != domain.StateIdle {
		if err := p.sessions.Dispatch(ctx, input.GuildID, domain.Stop{}); err != nil {
			slog.Warn("restart continued after unclean stop", "guild", input.GuildID, "error", err)
		}
	}

	if err := p.sessions.Dispatch(ctx, input.GuildID, play); err != nil {
		return nil, err
	}

	if p.gate != nil {
		p.gate.Resume(input.GuildID)
	}

	return &RestartOutput{StationName: play.StationName, VoiceChannelID: play.ChannelID}, nil
}

// Next skips to the next track of a multi-track station.
func (p *PlaybackService) Next(ctx context.Context, input NextInput) error {
	if p.sessions.Status(input.GuildID).State != domain.StateStreaming {
		return ErrNotPlaying
	}
	return p.sessions.Dispatch(ctx, input.GuildID, domain.Skip{})
}

// Status returns the guild's session snapshot.
func (p *PlaybackService) Status(guildID snowflake.ID) SessionStatus {
	return p.sessions.Status(guildID)
}

// SetVolume changes the playback volume of a streaming guild.
func (p *PlaybackService) SetVolume(ctx context.Context, input SetVolumeInput) error {
	if input.Volume < MinVolume || input.Volume > MaxVolume {
		return ErrInvalidVolume
	}
	if p.volume == nil {
		return ErrVolumeUnsupported
	}
	if p.sessions.Status(input.GuildID).State != domain.StateStreaming {
		return ErrNotPlaying
	}
	return p.volume.SetVolume(ctx, input.GuildID, input.Volume)
}
