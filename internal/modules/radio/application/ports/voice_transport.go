package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// VoiceTransport opens voice connections.
type VoiceTransport interface {
	// Open connects to a voice channel. The generation orders attempts for the
	// same guild: closing a link whose generation has been superseded must not
	// disturb the guild's newer connection.
	Open(ctx context.Context, guildID, channelID snowflake.ID, generation uint64) (VoiceLink, error)
}

// VoiceLink is one established voice connection.
type VoiceLink interface {
	ChannelID() snowflake.ID

	// Send hands a frame to the connection. It may block until the connection
	// is ready for more audio.
	Send(ctx context.Context, frame Frame) error

	// Close disconnects. It is safe to call more than once.
	Close(ctx context.Context) error

	// Done is closed when the link ends, whether by Close or by a disconnect.
	Done() <-chan struct{}

	// Err reports why the link ended. It returns nil before Done is closed and
	// after a plain Close.
	Err() error
}
