package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/ports"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

// Messages consumed by a session's loop. Everything except commandMsg is
// produced by the session's own background work and carries the generation
// or stream sequence it belongs to, so late arrivals can be recognised.
type (
	commandMsg struct {
		id      string
		cmd     domain.Command
		station *domain.Station
		done    chan error
	}

	connectResult struct {
		gen  uint64
		link ports.VoiceLink
		err  error
	}

	streamResult struct {
		gen    uint64
		seq    uint64
		stream ports.Stream
		err    error
	}

	pumpStopped struct {
		seq uint64
		err error
	}

	trackStarted struct {
		seq   uint64
		track *ports.TrackInfo
	}

	linkLost struct {
		link ports.VoiceLink
		err  error
	}

	backoffElapsed   struct{ gen uint64 }
	stabilityReached struct{ gen uint64 }

	teardownDone struct {
		gen uint64
		err error
	}
)

// stopper is the part of *time.Timer a session needs.
type stopper interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) stopper

func realAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

type transition struct {
	attempt int
	delay   time.Duration
	err     error
}

// GuildSession owns one guild's voice connection and stream.
//
// All state changes happen on a single goroutine that drains the session's
// mailbox. Slow work (connecting, opening streams, reading frames, closing
// handles, waiting out backoff) runs on other goroutines and reports back by
// posting a message, so a stuck voice server never blocks the session or any
// other guild.
type GuildSession struct {
	guildID   snowflake.ID
	cfg       Config
	transport ports.VoiceTransport
	streams   ports.StreamProvider
	publisher ports.EventPublisher
	now       func() time.Time
	after     afterFunc
	onExit    func(*GuildSession, []commandMsg)
	log       *slog.Logger

	inbox  *mailbox
	status atomic.Pointer[domain.SessionStatus]
	exited chan struct{}

	// Everything below is owned by the loop goroutine.
	state       domain.SessionState
	gen         uint64
	streamSeq   uint64
	channelID   snowflake.ID
	notifyID    snowflake.ID
	station     *domain.Station
	link        ports.VoiceLink
	stream      ports.Stream
	stopPump    context.CancelFunc
	backoff     *domain.Backoff
	attempts    int
	resumed     bool
	lastErr     error
	since       time.Time
	nowPlaying  *domain.NowPlaying
	retryTimer  stopper
	stableTimer stopper
	terminating bool
	waiters     []chan error
	deferred    []commandMsg
}

func newGuildSession(
	guildID snowflake.ID,
	cfg Config,
	transport ports.VoiceTransport,
	streams ports.StreamProvider,
	publisher ports.EventPublisher,
	now func() time.Time,
	after afterFunc,
	onExit func(*GuildSession, []commandMsg),
) *GuildSession {
	s := &GuildSession{
		guildID:   guildID,
		cfg:       cfg,
		transport: transport,
		streams:   streams,
		publisher: publisher,
		now:       now,
		after:     after,
		onExit:    onExit,
		log:       slog.Default().With("guild", guildID),
		inbox:     newMailbox(),
		exited:    make(chan struct{}),
		state:     domain.StateIdle,
		backoff:   domain.NewBackoff(cfg.BackoffBase, cfg.BackoffMax),
		since:     now(),
	}
	s.publishStatus()

	go s.run()

	return s
}

// Status returns the latest snapshot. Safe for concurrent use.
func (s *GuildSession) Status() domain.SessionStatus {
	return *s.status.Load()
}

func (s *GuildSession) enqueue(msg commandMsg) bool {
	return s.inbox.push(msg)
}

// retireIfIdle closes the session if it has been idle since before cutoff
// and has nothing left to do.
func (s *GuildSession) retireIfIdle(cutoff time.Time) bool {
	return s.inbox.closeIfQuiet(func() bool {
		st := s.Status()
		return st.State == domain.StateIdle && !st.Since.After(cutoff)
	})
}

func (s *GuildSession) run() {
	defer close(s.exited)

	for range s.inbox.signal {
		batch := s.inbox.take()
		for i, msg := range batch {
			s.handle(msg)
			if s.state == domain.StateTerminated {
				s.publishStatus()
				s.exit(batch[i+1:])
				return
			}
		}
		s.publishStatus()
		s.inbox.settle()
	}
}

// exit hands commands that arrived after Shutdown back to the supervisor and
// releases whatever late completions were still queued.
func (s *GuildSession) exit(rest []any) {
	leftovers := s.deferred
	s.deferred = nil

	for _, msg := range append(rest, s.inbox.close()...) {
		if cmd, ok := msg.(commandMsg); ok {
			leftovers = append(leftovers, cmd)
			continue
		}
		s.discard(msg)
	}

	if s.onExit != nil {
		s.onExit(s, leftovers)
	}
}

// deliver posts a message from background work, releasing any handle it
// carries if the session is already gone.
func (s *GuildSession) deliver(msg any) {
	if !s.inbox.push(msg) {
		s.discard(msg)
	}
}

func (s *GuildSession) discard(msg any) {
	switch m := msg.(type) {
	case connectResult:
		if m.link != nil {
			s.closeInBackground(nil, m.link)
		}
	case streamResult:
		if m.stream != nil {
			s.closeInBackground(m.stream, nil)
		}
	}
}

func (s *GuildSession) handle(msg any) {
	switch m := msg.(type) {
	case commandMsg:
		s.handleCommand(m)
	case connectResult:
		s.onConnected(m)
	case streamResult:
		s.onStreamOpened(m)
	case pumpStopped:
		if m.seq == s.streamSeq && s.state == domain.StateStreaming {
			s.fail(m.err)
		}
	case trackStarted:
		if m.seq == s.streamSeq && s.state == domain.StateStreaming {
			s.nowPlaying = &domain.NowPlaying{
				Title:     m.track.Title,
				Artist:    m.track.Artist,
				URI:       m.track.URI,
				IsStream:  m.track.IsStream,
				Duration:  m.track.Duration,
				StartedAt: s.now(),
			}
		}
	case linkLost:
		if m.link == s.link && s.state == domain.StateStreaming {
			err := m.err
			if err == nil {
				err = errors.New("voice connection closed")
			}
			s.fail(fmt.Errorf("%w: %w", domain.ErrTransportFailure, err))
		}
	case backoffElapsed:
		if m.gen == s.gen && s.state == domain.StateReconnecting {
			s.retryTimer = nil
			s.connect()
		}
	case stabilityReached:
		if m.gen == s.gen && s.state == domain.StateStreaming {
			s.stableTimer = nil
			if s.attempts > 0 {
				s.log.Info("voice session stable, reset reconnect backoff", "attempts", s.attempts)
			}
			s.resetRetries()
		}
	case teardownDone:
		s.onTeardownDone(m)
	}
}

func (s *GuildSession) handleCommand(m commandMsg) {
	if s.state == domain.StateStopping {
		s.deferred = append(s.deferred, m)
		return
	}

	s.log.Debug("applying command",
		"command", m.cmd.String(),
		"command_id", m.id,
		"state", s.state,
	)

	switch cmd := m.cmd.(type) {
	case domain.Play:
		s.play(cmd, *m.station)
	case domain.SwitchStation:
		s.switchTo(*m.station)
	case domain.Skip:
		s.skip()
	case domain.Stop:
		s.beginTeardown(m.done, false)
	case domain.Shutdown:
		s.beginTeardown(m.done, true)
	}
}

func (s *GuildSession) play(cmd domain.Play, station domain.Station) {
	if cmd.NotificationChannelID != 0 {
		s.notifyID = cmd.NotificationChannelID
	}

	switch s.state {
	case domain.StateIdle:
		s.station, s.channelID = &station, cmd.ChannelID
		s.resetRetries()
		s.lastErr = nil
		s.resumed = false
		s.connect()

	case domain.StateConnecting:
		s.station = &station
		s.resumed = false
		if cmd.ChannelID != s.channelID {
			s.channelID = cmd.ChannelID
			s.connect()
		}

	case domain.StateStreaming:
		if cmd.ChannelID == s.channelID {
			s.switchTo(station)
			return
		}
		s.releaseHandles()
		s.station, s.channelID = &station, cmd.ChannelID
		s.resetRetries()
		s.resumed = false
		s.connect()

	case domain.StateReconnecting:
		// The pending retry picks up the new target.
		s.station, s.channelID = &station, cmd.ChannelID
		s.resumed = false
		s.attempts = 0
	}
}

func (s *GuildSession) switchTo(station domain.Station) {
	switch s.state {
	case domain.StateStreaming:
		if s.station != nil && s.station.Key() == station.Key() && s.station.URL == station.URL {
			return
		}
		s.station = &station
		s.resumed = false
		s.openStream()

	case domain.StateConnecting, domain.StateReconnecting:
		s.station = &station
		s.resumed = false

	case domain.StateIdle:
		if s.channelID == 0 {
			s.log.Warn("ignoring station switch without a voice channel", "station", station.Name)
			s.lastErr = domain.ErrNoChannel
			return
		}
		s.station = &station
		s.resetRetries()
		s.lastErr = nil
		s.resumed = false
		s.connect()
	}
}

func (s *GuildSession) skip() {
	if s.state != domain.StateStreaming || s.stream == nil {
		s.log.Debug("ignoring skip, nothing is streaming")
		return
	}
	skippable, ok := s.stream.(ports.SkippableStream)
	if !ok {
		s.log.Debug("ignoring skip, stream has a single track")
		return
	}
	if err := skippable.Skip(); err != nil {
		s.log.Warn("failed to skip track", "error", err)
	}
}

// connect starts a new attempt lineage.
func (s *GuildSession) connect() {
	s.gen++
	gen, channelID := s.gen, s.channelID
	s.setState(domain.StateConnecting, nil)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ConnectTimeout)
		defer cancel()

		link, err := s.transport.Open(ctx, s.guildID, channelID, gen)
		if err != nil {
			err = fmt.Errorf("%w: %w", domain.ErrTransportFailure, err)
		}
		s.deliver(connectResult{gen: gen, link: link, err: err})
	}()
}

func (s *GuildSession) onConnected(r connectResult) {
	if r.gen != s.gen || s.state != domain.StateConnecting {
		if r.link != nil {
			s.log.Debug("closing connection from superseded attempt", "generation", r.gen)
			s.closeInBackground(nil, r.link)
		}
		return
	}
	if r.err != nil {
		s.fail(r.err)
		return
	}

	s.link = r.link
	go s.watchLink(r.link)

	s.setState(domain.StateStreaming, nil)
	s.armStability()
	s.openStream()
}

func (s *GuildSession) watchLink(link ports.VoiceLink) {
	<-link.Done()
	s.deliver(linkLost{link: link, err: link.Err()})
}

func (s *GuildSession) openStream() {
	s.closeStream()
	s.nowPlaying = nil
	s.streamSeq++
	gen, seq, station := s.gen, s.streamSeq, *s.station

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StreamOpenTimeout)
		defer cancel()

		stream, err := s.streams.Open(ctx, s.guildID, station)
		if err != nil && !errors.Is(err, domain.ErrStreamUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrStreamUnavailable, err)
		}
		s.deliver(streamResult{gen: gen, seq: seq, stream: stream, err: err})
	}()
}

func (s *GuildSession) onStreamOpened(r streamResult) {
	if r.gen != s.gen || r.seq != s.streamSeq || s.state != domain.StateStreaming {
		if r.stream != nil {
			s.closeInBackground(r.stream, nil)
		}
		return
	}
	if r.err != nil {
		s.fail(r.err)
		return
	}

	s.stream = r.stream
	ctx, cancel := context.WithCancel(context.Background())
	s.stopPump = cancel
	go s.pump(ctx, r.seq, r.stream, s.link)

	s.log.Info("streaming station", "station", s.station.Name, "channel", s.channelID, "resumed", s.resumed)
	s.publish(domain.StationStartedEvent{
		GuildID:               s.guildID,
		Station:               *s.station,
		ChannelID:             s.channelID,
		NotificationChannelID: s.notifyID,
		Resumed:               s.resumed,
	})
}

// pump copies frames from stream to link until either fails or ctx is cancelled.
func (s *GuildSession) pump(ctx context.Context, seq uint64, stream ports.Stream, link ports.VoiceLink) {
	for {
		frame, err := stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			switch {
			case errors.Is(err, io.EOF):
				err = fmt.Errorf("%w: stream ended", domain.ErrStreamUnavailable)
			case !errors.Is(err, domain.ErrStreamUnavailable):
				err = fmt.Errorf("%w: %w", domain.ErrStreamUnavailable, err)
			}
			s.deliver(pumpStopped{seq: seq, err: err})
			return
		}

		if frame.Track != nil {
			s.deliver(trackStarted{seq: seq, track: frame.Track})
		}

		if err := link.Send(ctx, frame); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.deliver(pumpStopped{seq: seq, err: fmt.Errorf("%w: %w", domain.ErrTransportFailure, err)})
			return
		}
	}
}

// fail tears down both halves and schedules a retry, or gives up.
func (s *GuildSession) fail(err error) {
	s.lastErr = err
	s.releaseHandles()

	if s.attempts >= s.cfg.MaxAttempts {
		s.giveUp(err)
		return
	}

	s.attempts++
	s.resumed = true
	delay := s.backoff.Next()
	gen := s.gen
	s.retryTimer = s.after(delay, func() {
		s.deliver(backoffElapsed{gen: gen})
	})

	s.log.Warn("voice session failed, reconnecting",
		"attempt", s.attempts,
		"delay", delay,
		"error", err,
	)
	s.setState(domain.StateReconnecting, &transition{attempt: s.attempts, delay: delay, err: err})
}

func (s *GuildSession) giveUp(err error) {
	attempts := s.attempts
	s.lastErr = fmt.Errorf("%w after %d attempts: %w", domain.ErrReconnectExhausted, attempts, err)
	s.resetRetries()
	s.resumed = false

	s.log.Error("gave up reconnecting voice session", "attempts", attempts, "error", err)
	s.setState(domain.StateIdle, &transition{attempt: attempts, err: s.lastErr})
	s.publish(domain.ReconnectExhaustedEvent{
		GuildID:               s.guildID,
		Station:               s.station,
		ChannelID:             s.channelID,
		NotificationChannelID: s.notifyID,
		Attempts:              attempts,
		Err:                   s.lastErr,
	})
}

func (s *GuildSession) beginTeardown(done chan error, shutdown bool) {
	if done != nil {
		s.waiters = append(s.waiters, done)
	}
	s.terminating = s.terminating || shutdown

	// Anything still in flight belongs to the old generation from here on.
	s.gen++
	gen := s.gen

	s.stopTimers()
	if s.stopPump != nil {
		s.stopPump()
		s.stopPump = nil
	}
	stream, link := s.stream, s.link
	s.stream, s.link = nil, nil
	s.nowPlaying = nil

	s.setState(domain.StateStopping, nil)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.TeardownTimeout)
		defer cancel()
		s.deliver(teardownDone{gen: gen, err: closeHandles(ctx, stream, link)})
	}()
}

func (s *GuildSession) onTeardownDone(m teardownDone) {
	if m.gen != s.gen || s.state != domain.StateStopping {
		return
	}
	if m.err != nil {
		s.log.Warn("failed to tear down voice session cleanly", "error", m.err)
	}

	s.station, s.channelID = nil, 0
	s.lastErr = m.err
	s.resetRetries()
	s.resumed = false

	if s.terminating {
		s.setState(domain.StateTerminated, nil)
	} else {
		s.setState(domain.StateIdle, nil)
	}
	s.publishStatus()

	for _, w := range s.waiters {
		w <- m.err
	}
	s.waiters = nil

	if s.state == domain.StateTerminated {
		return
	}

	deferred := s.deferred
	s.deferred = nil
	for _, cmd := range deferred {
		s.handleCommand(cmd)
	}
}

func (s *GuildSession) releaseHandles() {
	s.stopTimers()
	s.closeStream()
	if s.link != nil {
		s.closeInBackground(nil, s.link)
		s.link = nil
	}
	s.nowPlaying = nil
}

func (s *GuildSession) closeStream() {
	if s.stopPump != nil {
		s.stopPump()
		s.stopPump = nil
	}
	if s.stream != nil {
		s.closeInBackground(s.stream, nil)
		s.stream = nil
	}
}

func (s *GuildSession) closeInBackground(stream ports.Stream, link ports.VoiceLink) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.TeardownTimeout)
		defer cancel()
		if err := closeHandles(ctx, stream, link); err != nil {
			s.log.Warn("failed to release voice session handles", "error", err)
		}
	}()
}

func (s *GuildSession) armStability() {
	if s.stableTimer != nil {
		s.stableTimer.Stop()
	}
	gen := s.gen
	s.stableTimer = s.after(s.cfg.StabilityWindow, func() {
		s.deliver(stabilityReached{gen: gen})
	})
}

func (s *GuildSession) stopTimers() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	if s.stableTimer != nil {
		s.stableTimer.Stop()
		s.stableTimer = nil
	}
}

func (s *GuildSession) resetRetries() {
	s.attempts = 0
	s.backoff.Reset()
}

func (s *GuildSession) setState(to domain.SessionState, t *transition) {
	from := s.state
	s.state = to
	s.since = s.now()

	s.log.Debug("session state changed", "from", from, "to", to, "generation", s.gen)

	event := domain.SessionStateChangedEvent{
		GuildID:               s.guildID,
		From:                  from,
		To:                    to,
		Generation:            s.gen,
		Station:               s.station,
		ChannelID:             s.channelID,
		NotificationChannelID: s.notifyID,
	}
	if t != nil {
		event.Attempt = t.attempt
		event.Delay = t.delay
		event.Err = t.err
	}
	s.publish(event)
}

func (s *GuildSession) publish(event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(event); err != nil {
		s.log.Warn("failed to publish event", "event", fmt.Sprintf("%T", event), "error", err)
	}
}

func (s *GuildSession) publishStatus() {
	s.status.Store(&domain.SessionStatus{
		GuildID:               s.guildID,
		State:                 s.state,
		Station:               s.station,
		ChannelID:             s.channelID,
		NotificationChannelID: s.notifyID,
		Generation:            s.gen,
		Attempt:               s.attempts,
		LastError:             s.lastErr,
		Since:                 s.since,
		NowPlaying:            s.nowPlaying,
	})
}

// closeHandles closes stream then link, giving up once ctx expires.
func closeHandles(ctx context.Context, stream ports.Stream, link ports.VoiceLink) error {
	if stream == nil && link == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		var errs []error
		if stream != nil {
			if err := stream.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close stream: %w", err))
			}
		}
		if link != nil {
			if err := link.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("failed to close voice connection: %w", err))
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		if err != nil && ctx.Err() != nil {
			return fmt.Errorf("%w: %w", domain.ErrTeardownTimeout, err)
		}
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrTeardownTimeout, ctx.Err())
	}
}
