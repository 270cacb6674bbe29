package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/usecases"
)

// maxChoiceLength is the longest name Discord accepts for an autocomplete choice.
const maxChoiceLength = 100

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	stations *usecases.StationService
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(stations *usecases.StationService) *AutocompleteHandler {
	return &AutocompleteHandler{stations: stations}
}

// HandleStationName suggests the guild's stations for whichever station option is focused.
func (h *AutocompleteHandler) HandleStationName(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		slog.Warn("failed to parse guild ID in autocomplete", "error", err, "guildID", i.GuildID)
		return
	}

	query, ok := focusedValue(i.ApplicationCommandData().Options)
	if !ok {
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: h.stationChoices(guildID, query),
		},
	})
	if err != nil {
		slog.Debug("failed to respond to autocomplete", "guild", guildID, "error", err)
	}
}

func (h *AutocompleteHandler) stationChoices(
	guildID snowflake.ID,
	query string,
) []*discordgo.ApplicationCommandOptionChoice {
	stations := h.stations.SuggestStations(usecases.SuggestStationsInput{
		GuildID: guildID,
		Query:   query,
	})

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(stations))
	for _, station := range stations {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(station.Name, maxChoiceLength),
			Value: station.Name,
		})
	}
	return choices
}

// focusedValue finds the focused string option, descending into subcommands
// and subcommand groups.
func focusedValue(options []*discordgo.ApplicationCommandInteractionDataOption) (string, bool) {
	for _, opt := range options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionSubCommand, discordgo.ApplicationCommandOptionSubCommandGroup:
			if value, ok := focusedValue(opt.Options); ok {
				return value, true
			}
		case discordgo.ApplicationCommandOptionString:
			if opt.Focused {
				return opt.StringValue(), true
			}
		}
	}
	return "", false
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
