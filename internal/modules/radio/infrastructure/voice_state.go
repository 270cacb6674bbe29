package infrastructure

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/ports"
)

// VoiceStateProvider reads voice states from the gateway's state cache.
type VoiceStateProvider struct {
	state *discordgo.State
}

// Ensure VoiceStateProvider implements ports.VoiceStateProvider.
var _ ports.VoiceStateProvider = (*VoiceStateProvider)(nil)

// NewVoiceStateProvider creates a new VoiceStateProvider.
func NewVoiceStateProvider(state *discordgo.State) *VoiceStateProvider {
	return &VoiceStateProvider{state: state}
}

// GetUserVoiceChannel returns the voice channel ID that the user is currently in.
// Returns 0 if the user is not in a voice channel.
func (v *VoiceStateProvider) GetUserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error) {
	vs, err := v.state.VoiceState(guildID.String(), userID.String())
	if err != nil {
		if errors.Is(err, discordgo.ErrStateNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if vs.ChannelID == "" {
		return 0, nil
	}

	return snowflake.Parse(vs.ChannelID)
}
