package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/ports"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
	"golang.org/x/time/rate"
)

// trackEventBufferSize bounds the node events queued for a stream between two Next calls.
const trackEventBufferSize = 16

var errNoTracks = errors.New("station resolved to no tracks")

// trackLoader resolves a station URL into playable tracks.
type trackLoader interface {
	loadTracks(ctx context.Context, query string) ([]ports.TrackInfo, error)
}

type trackEventKind int

const (
	trackEventStarted trackEventKind = iota
	trackEventEnded
	trackEventStuck
)

// trackEvent is a node event about one of the stream's tracks.
type trackEvent struct {
	kind    trackEventKind
	encoded string
	reason  lavalink.TrackEndReason
}

// LavalinkStream walks a station's tracks on the audio node.
//
// Each Next returns the track the link should play and then, on the following
// call, blocks until the node reports that track as ended. Playlists loop
// forever. A failing track is reloaded from the station URL for up to the
// grace period before Next gives up with domain.ErrStreamUnavailable.
type LavalinkStream struct {
	guildID snowflake.ID
	station domain.Station
	loader  trackLoader
	grace   time.Duration
	limiter *rate.Limiter
	now     func() time.Time
	shuffle func([]ports.TrackInfo)
	onClose func(*LavalinkStream)

	events    chan trackEvent
	skips     chan struct{}
	closed    chan struct{}
	closeOnce sync.Once

	// Owned by the goroutine calling Next.
	tracks       []ports.TrackInfo
	pos          int
	current      *ports.TrackInfo
	startedAt    time.Time
	failingSince time.Time
}

var _ ports.SkippableStream = (*LavalinkStream)(nil)

func newLavalinkStream(
	guildID snowflake.ID,
	station domain.Station,
	tracks []ports.TrackInfo,
	loader trackLoader,
	grace time.Duration,
	retryEvery time.Duration,
) *LavalinkStream {
	return &LavalinkStream{
		guildID: guildID,
		station: station,
		loader:  loader,
		grace:   grace,
		limiter: rate.NewLimiter(rate.Every(retryEvery), 1),
		now:     time.Now,
		shuffle: shuffleTracks,
		tracks:  tracks,
		events:  make(chan trackEvent, trackEventBufferSize),
		skips:   make(chan struct{}, 1),
		closed:  make(chan struct{}),
	}
}

func shuffleTracks(tracks []ports.TrackInfo) {
	rand.Shuffle(len(tracks), func(i, j int) {
		tracks[i], tracks[j] = tracks[j], tracks[i]
	})
}

// Next returns the next track to play.
func (s *LavalinkStream) Next(ctx context.Context) (ports.Frame, error) {
	select {
	case <-s.closed:
		return ports.Frame{}, io.EOF
	default:
	}

	if s.current == nil {
		if s.station.AlwaysShuffle {
			s.shuffle(s.tracks)
		}
		return s.play(0), nil
	}

	for {
		select {
		case <-ctx.Done():
			return ports.Frame{}, ctx.Err()
		case <-s.closed:
			return ports.Frame{}, io.EOF
		case <-s.skips:
			return s.play(s.pos + 1), nil
		case ev := <-s.events:
			if ev.encoded != s.current.Encoded {
				continue
			}

			switch ev.kind {
			case trackEventStarted:
				continue
			case trackEventEnded:
				switch ev.reason {
				case lavalink.TrackEndReasonReplaced, lavalink.TrackEndReasonStopped:
					continue
				case lavalink.TrackEndReasonFinished:
					if !s.current.IsStream {
						return s.play(s.pos + 1), nil
					}
				}
			}

			return s.recover(ctx, fmt.Errorf("track %q ended: %s", s.current.Title, describe(ev)))
		}
	}
}

// play makes tracks[i] current, wrapping (and reshuffling) past the end.
func (s *LavalinkStream) play(i int) ports.Frame {
	if i >= len(s.tracks) {
		i = 0
		if s.station.AlwaysShuffle && len(s.tracks) > 1 {
			s.shuffle(s.tracks)
		}
	}

	s.pos = i
	track := s.tracks[i]
	s.current = &track
	s.startedAt = s.now()

	out := track
	return ports.Frame{Track: &out}
}

// recover reloads the station until a track can be played again or the grace period runs out.
func (s *LavalinkStream) recover(ctx context.Context, cause error) (ports.Frame, error) {
	now := s.now()
	if s.failingSince.IsZero() || now.Sub(s.startedAt) >= s.grace {
		s.failingSince = now
	}

	for {
		if s.now().Sub(s.failingSince) > s.grace {
			return ports.Frame{}, fmt.Errorf("%w: %s: %w", domain.ErrStreamUnavailable, s.station.Name, cause)
		}

		select {
		case <-s.closed:
			return ports.Frame{}, io.EOF
		default:
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return ports.Frame{}, err
		}

		slog.Warn("reloading station after playback failure",
			"guild", s.guildID,
			"station", s.station.Name,
			"cause", cause,
		)

		tracks, err := s.loader.loadTracks(ctx, s.station.URL)
		if err == nil && len(tracks) == 0 {
			err = errNoTracks
		}
		if err != nil {
			if ctx.Err() != nil {
				return ports.Frame{}, ctx.Err()
			}
			cause = err
			continue
		}

		next := s.pos
		if !s.current.IsStream {
			next++
		}
		if s.station.AlwaysShuffle {
			s.shuffle(tracks)
			next = 0
		}
		s.tracks = tracks
		return s.play(next), nil
	}
}

// Skip advances to the next track on the following Next.
func (s *LavalinkStream) Skip() error {
	select {
	case <-s.closed:
		return io.EOF
	case s.skips <- struct{}{}:
	default:
	}
	return nil
}

// Close ends the stream. Whatever the node is playing keeps playing until the link closes.
func (s *LavalinkStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.onClose != nil {
			s.onClose(s)
		}
	})
	return nil
}

// deliver queues a node event without blocking the node's event loop.
func (s *LavalinkStream) deliver(ev trackEvent) {
	select {
	case s.events <- ev:
	default:
		slog.Warn("stream event buffer full, dropping event", "guild", s.guildID, "station", s.station.Name)
	}
}

func describe(ev trackEvent) string {
	switch ev.kind {
	case trackEventStuck:
		return "stuck"
	case trackEventEnded:
		return fmt.Sprint(ev.reason)
	default:
		return "unknown"
	}
}
