package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/usecases"
)

// Command and option names shared by the handlers and autocomplete routing.
const (
	commandStation = "station"
	commandRadio   = "radio"

	optionName    = "name"
	optionURL     = "url"
	optionShuffle = "shuffle"
	optionStation = "station"
	optionChannel = "channel"
	optionLevel   = "level"
)

// Commands returns all slash commands for the radio module.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        commandStation,
			Description: "Manage this server's radio stations",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Add a station",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        optionName,
							Description: "Station name",
							Required:    true,
							MaxLength:   100,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        optionURL,
							Description: "Stream or playlist URL",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        optionShuffle,
							Description: "Shuffle playlist stations on every pass",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a station",
					Options: []*discordgo.ApplicationCommandOption{
						stationOption(optionName, "Station to remove"),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List stations",
				},
			},
		},
		{
			Name:        commandRadio,
			Description: "Control the radio",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "play",
					Description: "Start streaming a station",
					Options: []*discordgo.ApplicationCommandOption{
						stationOption(optionStation, "Station to play"),
						voiceChannelOption("Voice channel to play in (defaults to your current channel)"),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "switch",
					Description: "Switch to another station without leaving the channel",
					Options: []*discordgo.ApplicationCommandOption{
						stationOption(optionStation, "Station to switch to"),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "stop",
					Description: "Stop the radio and leave the voice channel",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "restart",
					Description: "Reconnect and restart the current station",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "next",
					Description: "Skip to the next track of a playlist station",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "Show what the radio is doing",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "help",
					Description: "List the radio commands",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "volume",
					Description: "Change the playback volume",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        optionLevel,
							Description: "Volume level",
							Required:    true,
							MinValue:    floatPtr(usecases.MinVolume),
							MaxValue:    usecases.MaxVolume,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        "autoplay",
					Description: "Keep a station playing in a channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "set",
							Description: "Play a station here and bring it back whenever it stops",
							Options: []*discordgo.ApplicationCommandOption{
								stationOption(optionStation, "Station to keep playing"),
								voiceChannelOption("Voice channel to play in (defaults to your current channel)"),
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "show",
							Description: "Show the autoplay station",
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "clear",
							Description: "Remove the autoplay station",
						},
					},
				},
			},
		},
	}
}

// helpText lists every subcommand with its options, required ones in angle
// brackets and optional ones in square brackets.
func helpText() string {
	var sb strings.Builder
	for _, cmd := range Commands() {
		for _, opt := range cmd.Options {
			switch opt.Type {
			case discordgo.ApplicationCommandOptionSubCommand:
				writeUsageLine(&sb, "/"+cmd.Name+" "+opt.Name, opt)
			case discordgo.ApplicationCommandOptionSubCommandGroup:
				for _, sub := range opt.Options {
					writeUsageLine(&sb, "/"+cmd.Name+" "+opt.Name+" "+sub.Name, sub)
				}
			}
		}
	}
	return sb.String()
}

func writeUsageLine(sb *strings.Builder, path string, sub *discordgo.ApplicationCommandOption) {
	usage := path
	for _, o := range sub.Options {
		if o.Required {
			usage += " <" + o.Name + ">"
		} else {
			usage += " [" + o.Name + "]"
		}
	}
	fmt.Fprintf(sb, "`%s` - %s\n", usage, sub.Description)
}

func stationOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         name,
		Description:  description,
		Required:     true,
		Autocomplete: true,
	}
}

func voiceChannelOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionChannel,
		Name:        optionChannel,
		Description: description,
		Required:    false,
		ChannelTypes: []discordgo.ChannelType{
			discordgo.ChannelTypeGuildVoice,
			discordgo.ChannelTypeGuildStageVoice,
		},
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
