package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// VolumeController changes a guild's playback volume.
type VolumeController interface {
	SetVolume(ctx context.Context, guildID snowflake.ID, volume int) error
}
