package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/ports"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

// VoiceEventSink receives the gateway voice events an audio backend needs.
type VoiceEventSink interface {
	OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate)
	OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate)
}

// EventHandlers handles Discord gateway events for the radio.
type EventHandlers struct {
	voice    VoiceEventSink
	sessions ports.SessionDispatcher
}

// NewEventHandlers creates a new EventHandlers.
func NewEventHandlers(voice VoiceEventSink, sessions ports.SessionDispatcher) *EventHandlers {
	return &EventHandlers{
		voice:    voice,
		sessions: sessions,
	}
}

// HandleVoiceStateUpdate forwards voice state updates to the audio backend.
func (h *EventHandlers) HandleVoiceStateUpdate(_ *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	h.voice.OnVoiceStateUpdate(event)
}

// HandleVoiceServerUpdate forwards voice server updates to the audio backend.
func (h *EventHandlers) HandleVoiceServerUpdate(_ *discordgo.Session, event *discordgo.VoiceServerUpdate) {
	h.voice.OnVoiceServerUpdate(event)
}

// HandleGuildDelete shuts down the session of a guild the bot was removed from.
// Outages mark the guild unavailable and leave the session alone.
func (h *EventHandlers) HandleGuildDelete(_ *discordgo.Session, event *discordgo.GuildDelete) {
	if event.Guild == nil || event.Unavailable {
		return
	}

	guildID, err := snowflake.Parse(event.ID)
	if err != nil {
		slog.Error("failed to parse guild ID in guild delete", "error", err)
		return
	}

	if err := h.sessions.Dispatch(context.Background(), guildID, domain.Shutdown{}); err != nil {
		slog.Warn("failed to shut down session of removed guild", "guild", guildID, "error", err)
		return
	}
	slog.Info("shut down session of removed guild", "guild", guildID)
}
