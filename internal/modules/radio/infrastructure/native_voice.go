package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/ports"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

// DefaultSendTimeout is how long a frame may wait for the voice connection
// before the link is considered stalled.
const DefaultSendTimeout = 5 * time.Second

// voiceConn is the part of a discordgo voice connection the transport drives.
type voiceConn interface {
	frames() chan<- []byte
	speaking(on bool) error
	disconnect() error
}

type discordVoiceConn struct {
	vc *discordgo.VoiceConnection
}

func (c discordVoiceConn) frames() chan<- []byte  { return c.vc.OpusSend }
func (c discordVoiceConn) speaking(on bool) error { return c.vc.Speaking(on) }
func (c discordVoiceConn) disconnect() error      { return c.vc.Disconnect() }

// DiscordVoiceTransport sends Opus audio through discordgo's own voice client.
//
// discordgo keeps a single voice connection per guild and reuses it across
// joins, so a link only disconnects while it is still the guild's current one.
type DiscordVoiceTransport struct {
	join        func(guildID, channelID snowflake.ID) (voiceConn, error)
	botID       snowflake.ID
	sendTimeout time.Duration

	// guildLocks orders taking over a guild against disconnecting it.
	guildLocks sync.Map // snowflake.ID -> *sync.Mutex

	mu    sync.Mutex
	links map[snowflake.ID]*nativeLink
}

var _ ports.VoiceTransport = (*DiscordVoiceTransport)(nil)

// NewDiscordVoiceTransport creates a new DiscordVoiceTransport.
func NewDiscordVoiceTransport(session *discordgo.Session, sendTimeout time.Duration) (*DiscordVoiceTransport, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	join := func(guildID, channelID snowflake.ID) (voiceConn, error) {
		vc, err := session.ChannelVoiceJoin(guildID.String(), channelID.String(), false, true)
		if err != nil {
			return nil, err
		}
		return discordVoiceConn{vc: vc}, nil
	}
	return newDiscordVoiceTransport(join, botID, sendTimeout), nil
}

func newDiscordVoiceTransport(
	join func(guildID, channelID snowflake.ID) (voiceConn, error),
	botID snowflake.ID,
	sendTimeout time.Duration,
) *DiscordVoiceTransport {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &DiscordVoiceTransport{
		join:        join,
		botID:       botID,
		sendTimeout: sendTimeout,
		links:       make(map[snowflake.ID]*nativeLink),
	}
}

type joinResult struct {
	conn voiceConn
	err  error
}

// Open joins the channel. discordgo's join is not cancellable, so when ctx
// ends first the join is left to finish in the background and its connection
// is dropped unless a newer link has taken the guild over.
func (t *DiscordVoiceTransport) Open(
	ctx context.Context,
	guildID, channelID snowflake.ID,
	generation uint64,
) (ports.VoiceLink, error) {
	link := &nativeLink{
		transport:  t,
		guildID:    guildID,
		channelID:  channelID,
		generation: generation,
		done:       make(chan struct{}),
	}

	// Waits out a superseded link still disconnecting.
	lock := t.guildLock(guildID)
	lock.Lock()
	t.mu.Lock()
	t.links[guildID] = link
	t.mu.Unlock()
	lock.Unlock()

	results := make(chan joinResult, 1)
	go func() {
		conn, err := t.join(guildID, channelID)
		results <- joinResult{conn: conn, err: err}
	}()

	select {
	case r := <-results:
		if r.err != nil {
			t.release(link)
			link.finish(nil)
			return nil, fmt.Errorf("%w: failed to join voice channel: %w", domain.ErrTransportFailure, r.err)
		}
		link.established(r.conn)
		slog.Debug("joined voice channel", "guild", guildID, "channel", channelID, "generation", generation)
		return link, nil

	case <-ctx.Done():
		t.release(link)
		link.finish(nil)
		go t.abandon(guildID, results)
		return nil, fmt.Errorf("%w: context cancelled while joining voice channel: %w", domain.ErrTransportFailure, ctx.Err())
	}
}

// abandon disconnects a join that finished after its Open gave up.
func (t *DiscordVoiceTransport) abandon(guildID snowflake.ID, results <-chan joinResult) {
	r := <-results
	if r.err != nil {
		return
	}
	lock := t.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	if t.currentLink(guildID) != nil {
		return
	}
	if err := r.conn.disconnect(); err != nil {
		slog.Warn("failed to disconnect abandoned voice connection", "guild", guildID, "error", err)
	}
}

func (t *DiscordVoiceTransport) guildLock(guildID snowflake.ID) *sync.Mutex {
	lock, _ := t.guildLocks.LoadOrStore(guildID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (t *DiscordVoiceTransport) release(link *nativeLink) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.links[link.guildID] != link {
		return false
	}
	delete(t.links, link.guildID)
	return true
}

func (t *DiscordVoiceTransport) currentLink(guildID snowflake.ID) *nativeLink {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.links[guildID]
}

// OnVoiceStateUpdate ends the guild's link when the bot leaves voice.
// This must be called from the Discord event handler.
func (t *DiscordVoiceTransport) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	if event.VoiceState == nil || event.UserID != t.botID.String() || event.ChannelID != "" {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	link := t.currentLink(guildID)
	if link == nil || link.connection() == nil {
		return
	}

	slog.Warn("voice connection lost", "guild", guildID, "generation", link.generation)
	link.finish(fmt.Errorf("%w: disconnected from voice channel", domain.ErrTransportFailure))
}

// OnVoiceServerUpdate is handled by discordgo itself.
func (t *DiscordVoiceTransport) OnVoiceServerUpdate(*discordgo.VoiceServerUpdate) {}

// nativeLink is one discordgo voice connection.
type nativeLink struct {
	transport  *DiscordVoiceTransport
	guildID    snowflake.ID
	channelID  snowflake.ID
	generation uint64

	done chan struct{}
	once sync.Once

	mu   sync.Mutex
	conn voiceConn
	err  error

	// Owned by the goroutine calling Send.
	speaking bool
	stall    *time.Timer
}

func (l *nativeLink) ChannelID() snowflake.ID { return l.channelID }

func (l *nativeLink) established(conn voiceConn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conn = conn
}

func (l *nativeLink) connection() voiceConn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn
}

// Send queues the frame's Opus packet. Frames without audio are ignored.
func (l *nativeLink) Send(ctx context.Context, frame ports.Frame) error {
	if len(frame.Opus) == 0 {
		return nil
	}

	conn := l.connection()
	if conn == nil {
		return fmt.Errorf("%w: voice connection not established", domain.ErrTransportFailure)
	}

	if !l.speaking {
		if err := conn.speaking(true); err != nil {
			return fmt.Errorf("%w: failed to set speaking: %w", domain.ErrTransportFailure, err)
		}
		l.speaking = true
	}

	if l.stall == nil {
		l.stall = time.NewTimer(l.transport.sendTimeout)
	} else {
		l.stall.Reset(l.transport.sendTimeout)
	}
	defer l.stall.Stop()

	select {
	case conn.frames() <- frame.Opus:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		if err := l.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: voice connection closed", domain.ErrTransportFailure)
	case <-l.stall.C:
		return fmt.Errorf("%w: voice connection stopped accepting audio", domain.ErrTransportFailure)
	}
}

// Close disconnects if this is still the guild's current link.
func (l *nativeLink) Close(context.Context) error {
	lock := l.transport.guildLock(l.guildID)
	lock.Lock()
	defer lock.Unlock()

	var err error
	if l.transport.release(l) {
		if conn := l.connection(); conn != nil {
			err = errors.Join(conn.speaking(false), conn.disconnect())
		}
	}
	l.finish(nil)
	return err
}

func (l *nativeLink) Done() <-chan struct{} { return l.done }

func (l *nativeLink) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *nativeLink) finish(err error) {
	l.once.Do(func() {
		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
		close(l.done)
	})
}
