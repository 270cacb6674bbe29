package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

// StreamProvider opens audio streams for stations.
type StreamProvider interface {
	// Open starts a stream. It fails with domain.ErrStreamUnavailable when the
	// station cannot be reached and releases everything it acquired on failure.
	Open(ctx context.Context, guildID snowflake.ID, station domain.Station) (Stream, error)
}

// Stream yields a station's audio. Brief upstream drops are retried inside
// the stream; Next only fails once audio could not be resumed.
type Stream interface {
	// Next blocks until the next frame is available. It returns io.EOF when
	// finite media has ended.
	Next(ctx context.Context) (Frame, error)

	// Close releases the stream. It is safe to call more than once.
	Close() error
}

// SkippableStream is a Stream over several tracks that can jump to the next one.
type SkippableStream interface {
	Stream
	Skip() error
}
