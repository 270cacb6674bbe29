package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/bot"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/usecases"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
	colorInfo    = 0x1ABC9C
)

// maxListedStations keeps /station list inside Discord's embed description limit.
const maxListedStations = 50

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	stations *usecases.StationService
	playback *usecases.PlaybackService
	autoplay *usecases.AutoplayService
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	stations *usecases.StationService,
	playback *usecases.PlaybackService,
	autoplay *usecases.AutoplayService,
) *CommandHandlers {
	return &CommandHandlers{
		stations: stations,
		playback: playback,
		autoplay: autoplay,
	}
}

// invocation carries the IDs every radio command needs.
type invocation struct {
	guildID   snowflake.ID
	userID    snowflake.ID
	channelID snowflake.ID
}

func parseInvocation(i *discordgo.InteractionCreate) (invocation, string) {
	if i.Member == nil || i.Member.User == nil {
		return invocation{}, "This command can only be used in a server"
	}

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return invocation{}, "Invalid guild"
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return invocation{}, "Invalid user"
	}
	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return invocation{}, "Invalid notification channel"
	}

	return invocation{guildID: guildID, userID: userID, channelID: channelID}, ""
}

// HandleStation handles the /station command.
func (h *CommandHandlers) HandleStation(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "Invalid subcommand")
	}

	inv, msg := parseInvocation(i)
	if msg != "" {
		return respondError(r, msg)
	}

	subCmd := options[0]
	switch subCmd.Name {
	case "add":
		return h.handleStationAdd(r, inv, subCmd.Options)
	case "remove":
		return h.handleStationRemove(r, inv, subCmd.Options)
	case "list":
		return h.handleStationList(r, inv)
	default:
		return respondError(r, "Unknown subcommand")
	}
}

func (h *CommandHandlers) handleStationAdd(
	r bot.Responder,
	inv invocation,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	ctx := context.Background()

	input := usecases.AddStationInput{
		GuildID: inv.guildID,
		UserID:  inv.userID,
	}
	for _, opt := range options {
		switch opt.Name {
		case optionName:
			input.Name = opt.StringValue()
		case optionURL:
			input.URL = opt.StringValue()
		case optionShuffle:
			input.AlwaysShuffle = opt.BoolValue()
		}
	}

	if err := r.Defer(); err != nil {
		return err
	}

	output, err := h.stations.AddStation(ctx, input)
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	description := fmt.Sprintf("Added station **%s**.", output.Station.Name)
	if output.Station.AlwaysShuffle {
		description = fmt.Sprintf("Added station **%s** with shuffle.", output.Station.Name)
	}
	return respondSuccess(r, description)
}

func (h *CommandHandlers) handleStationRemove(
	r bot.Responder,
	inv invocation,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	ctx := context.Background()

	var name string
	for _, opt := range options {
		if opt.Name == optionName {
			name = opt.StringValue()
		}
	}

	if err := r.Defer(); err != nil {
		return err
	}

	output, err := h.stations.RemoveStation(ctx, usecases.RemoveStationInput{
		GuildID: inv.guildID,
		Name:    name,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Removed station **%s**.", output.Station.Name))
}

func (h *CommandHandlers) handleStationList(r bot.Responder, inv invocation) error {
	output := h.stations.ListStations(usecases.ListStationsInput{GuildID: inv.guildID})
	if len(output.Stations) == 0 {
		return respondInfo(r, "Stations", "No stations yet. Add one with `/station add`.")
	}

	var sb strings.Builder
	for idx, station := range output.Stations {
		if idx == maxListedStations {
			fmt.Fprintf(&sb, "...and %d more\n", len(output.Stations)-maxListedStations)
			break
		}
		writeStationLine(&sb, idx+1, station)
	}

	return respondInfo(r, fmt.Sprintf("Stations (%d)", len(output.Stations)), sb.String())
}

// HandleRadio handles the /radio command.
func (h *CommandHandlers) HandleRadio(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "Invalid subcommand")
	}

	inv, msg := parseInvocation(i)
	if msg != "" {
		return respondError(r, msg)
	}

	subCmd := options[0]
	switch subCmd.Name {
	case "play":
		return h.handleRadioPlay(s, r, inv, subCmd.Options)
	case "switch":
		return h.handleRadioSwitch(r, inv, subCmd.Options)
	case "stop":
		return h.handleRadioStop(r, inv)
	case "restart":
		return h.handleRadioRestart(r, inv)
	case "next":
		return h.handleRadioNext(r, inv)
	case "status":
		return h.handleRadioStatus(r, inv)
	case "help":
		return respondInfo(r, "Radio Commands", helpText())
	case "volume":
		return h.handleRadioVolume(r, inv, subCmd.Options)
	case "autoplay":
		return h.handleAutoplay(s, r, inv, subCmd.Options)
	default:
		return respondError(r, "Unknown subcommand")
	}
}

func (h *CommandHandlers) handleRadioPlay(
	s *discordgo.Session,
	r bot.Responder,
	inv invocation,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	ctx := context.Background()

	input := usecases.PlayInput{
		GuildID:               inv.guildID,
		UserID:                inv.userID,
		NotificationChannelID: inv.channelID,
	}
	for _, opt := range options {
		switch opt.Name {
		case optionStation:
			input.StationName = opt.StringValue()
		case optionChannel:
			channelID, err := snowflake.Parse(opt.ChannelValue(s).ID)
			if err != nil {
				return respondError(r, "Invalid voice channel")
			}
			input.VoiceChannelID = channelID
		}
	}

	output, err := h.playback.Play(ctx, input)
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Tuning in to **%s** in <#%d>.", input.StationName, output.VoiceChannelID))
}

func (h *CommandHandlers) handleRadioSwitch(
	r bot.Responder,
	inv invocation,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	ctx := context.Background()

	var name string
	for _, opt := range options {
		if opt.Name == optionStation {
			name = opt.StringValue()
		}
	}

	err := h.playback.Switch(ctx, usecases.SwitchInput{GuildID: inv.guildID, StationName: name})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Switching to **%s**.", name))
}

func (h *CommandHandlers) handleRadioStop(r bot.Responder, inv invocation) error {
	ctx := context.Background()

	if err := r.Defer(); err != nil {
		return err
	}

	if err := h.playback.Stop(ctx, usecases.StopInput{GuildID: inv.guildID}); err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, "Stopped the radio.")
}

func (h *CommandHandlers) handleRadioRestart(r bot.Responder, inv invocation) error {
	ctx := context.Background()

	if err := r.Defer(); err != nil {
		return err
	}

	output, err := h.playback.Restart(ctx, usecases.RestartInput{
		GuildID:               inv.guildID,
		NotificationChannelID: inv.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Restarting **%s** in <#%d>.", output.StationName, output.VoiceChannelID))
}

func (h *CommandHandlers) handleRadioNext(r bot.Responder, inv invocation) error {
	ctx := context.Background()

	if err := h.playback.Next(ctx, usecases.NextInput{GuildID: inv.guildID}); err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, "Skipping to the next track.")
}

func (h *CommandHandlers) handleRadioStatus(r bot.Responder, inv invocation) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{statusEmbed(h.playback.Status(inv.guildID))},
		},
	})
}

func (h *CommandHandlers) handleRadioVolume(
	r bot.Responder,
	inv invocation,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	ctx := context.Background()

	var level int
	for _, opt := range options {
		if opt.Name == optionLevel {
			level = int(opt.IntValue())
		}
	}

	err := h.playback.SetVolume(ctx, usecases.SetVolumeInput{GuildID: inv.guildID, Volume: level})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Volume set to **%d**.", level))
}

func (h *CommandHandlers) handleAutoplay(
	s *discordgo.Session,
	r bot.Responder,
	inv invocation,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	if len(options) == 0 {
		return respondError(r, "Invalid subcommand")
	}

	subCmd := options[0]
	switch subCmd.Name {
	case "set":
		return h.handleAutoplaySet(s, r, inv, subCmd.Options)
	case "show":
		return h.handleAutoplayShow(r, inv)
	case "clear":
		return h.handleAutoplayClear(r, inv)
	default:
		return respondError(r, "Unknown subcommand")
	}
}

func (h *CommandHandlers) handleAutoplaySet(
	s *discordgo.Session,
	r bot.Responder,
	inv invocation,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	ctx := context.Background()

	input := usecases.SetAutoplayInput{
		GuildID:               inv.guildID,
		UserID:                inv.userID,
		NotificationChannelID: inv.channelID,
	}
	for _, opt := range options {
		switch opt.Name {
		case optionStation:
			input.StationName = opt.StringValue()
		case optionChannel:
			channelID, err := snowflake.Parse(opt.ChannelValue(s).ID)
			if err != nil {
				return respondError(r, "Invalid voice channel")
			}
			input.VoiceChannelID = channelID
		}
	}

	if err := r.Defer(); err != nil {
		return err
	}

	output, err := h.autoplay.SetAutoplay(ctx, input)
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	description := fmt.Sprintf(
		"Autoplay set to **%s** in <#%d>.",
		output.Binding.StationName,
		output.Binding.ChannelID,
	)
	if output.Started {
		description += " Tuning in now."
	}
	return respondSuccess(r, description)
}

func (h *CommandHandlers) handleAutoplayShow(r bot.Responder, inv invocation) error {
	ctx := context.Background()

	binding, err := h.autoplay.GetAutoplay(ctx, inv.guildID)
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	description := fmt.Sprintf("**%s** in <#%d>", binding.StationName, binding.ChannelID)
	if binding.UpdatedBy != 0 {
		description += fmt.Sprintf("\nSet by <@%d> <t:%d:R>", binding.UpdatedBy, binding.UpdatedAt.Unix())
	}
	return respondInfo(r, "Autoplay", description)
}

func (h *CommandHandlers) handleAutoplayClear(r bot.Responder, inv invocation) error {
	ctx := context.Background()

	if err := r.Defer(); err != nil {
		return err
	}

	if err := h.autoplay.ClearAutoplay(ctx, inv.guildID); err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, "Autoplay cleared. The radio keeps playing until stopped.")
}

// errorMessage turns a use case error into text for the user.
// Errors without a user-facing meaning are logged and reported generically.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownStation):
		return "Unknown station. Use `/station list` to see this server's stations."
	case errors.Is(err, domain.ErrDuplicateName):
		return "A station with that name already exists."
	case errors.Is(err, domain.ErrInvalidStationName):
		return fmt.Sprintf("Station names must be 1 to %d characters long.", domain.MaxStationNameLength)
	case errors.Is(err, domain.ErrInvalidStationURL):
		return "Station URLs must be absolute http or https URLs."
	case errors.Is(err, domain.ErrNoChannel), errors.Is(err, usecases.ErrNotPlaying):
		return "The radio is not playing."
	case errors.Is(err, domain.ErrTeardownTimeout):
		return "Timed out leaving the voice channel. Try again in a moment."
	case errors.Is(err, usecases.ErrUserNotInVoice):
		return "You must be in a voice channel, or pick one with the channel option."
	case errors.Is(err, usecases.ErrNothingToRestart):
		return "There is no station to restart."
	case errors.Is(err, usecases.ErrInvalidVolume):
		return fmt.Sprintf("Volume must be between %d and %d.", usecases.MinVolume, usecases.MaxVolume)
	case errors.Is(err, usecases.ErrVolumeUnsupported):
		return "Volume control is not available on this audio backend."
	case errors.Is(err, usecases.ErrNoAutoplayBinding):
		return "This server has no autoplay station."
	case errors.Is(err, usecases.ErrStoreFailed):
		slog.Error("failed to persist radio change", "error", err)
		return "Failed to save the change. Nothing was modified."
	default:
		slog.Error("failed to handle radio command", "error", err)
		return "Something went wrong. Please try again."
	}
}

func statusEmbed(status usecases.SessionStatus) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Radio",
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "State", Value: status.State.String(), Inline: true},
		},
	}

	if status.Station != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Station",
			Value:  fmt.Sprintf("[%s](%s)", status.Station.Name, status.Station.URL),
			Inline: true,
		})
	}
	if status.ChannelID != 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Channel",
			Value:  fmt.Sprintf("<#%d>", status.ChannelID),
			Inline: true,
		})
	}
	if np := status.NowPlaying; np != nil && status.State == domain.StateStreaming {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Now Playing",
			Value: nowPlayingLine(np),
		})
	}
	if status.State == domain.StateReconnecting {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Attempt",
			Value: fmt.Sprintf("%d", status.Attempt),
		})
	}
	if status.LastError != nil && status.State != domain.StateStreaming {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Last Error",
			Value: truncate(status.LastError.Error(), 1024),
		})
	}

	return embed
}

func nowPlayingLine(np *domain.NowPlaying) string {
	title := np.Title
	if np.URI != "" {
		title = fmt.Sprintf("[%s](%s)", np.Title, np.URI)
	}
	if np.Artist != "" {
		title += " - " + np.Artist
	}
	if !np.StartedAt.IsZero() {
		title += fmt.Sprintf(" (since <t:%d:R>)", np.StartedAt.Unix())
	}
	return title
}

// writeStationLine writes a single station line to the string builder.
// Escapes period to prevent Discord markdown list formatting.
func writeStationLine(sb *strings.Builder, displayIndex int, station usecases.Station) {
	fmt.Fprintf(sb, "%d\\. [%s](%s)", displayIndex, station.Name, station.URL)
	if station.AlwaysShuffle {
		sb.WriteString(" (shuffle)")
	}
	sb.WriteString("\n")
}

// Response helpers.

func respondSuccess(r bot.Responder, description string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: description,
					Color:       colorSuccess,
				},
			},
		},
	})
}

func respondInfo(r bot.Responder, title, description string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       title,
					Description: description,
					Color:       colorInfo,
				},
			},
		},
	})
}

func respondError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Error",
					Description: message,
					Color:       colorError,
				},
			},
		},
	})
}
