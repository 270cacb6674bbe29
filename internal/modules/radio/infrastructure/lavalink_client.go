package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/ports"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

// voiceGateway sends voice state updates over the Discord gateway.
type voiceGateway interface {
	ChannelVoiceJoinManual(gID, cID string, mute, deaf bool) error
}

// pendingVoiceConnection tracks the state of a pending voice connection.
type pendingVoiceConnection struct {
	mu             sync.Mutex
	hasVoiceState  bool
	hasVoiceServer bool
	ready          chan struct{}
}

func newPendingVoiceConnection() *pendingVoiceConnection {
	return &pendingVoiceConnection{ready: make(chan struct{})}
}

// onEvent marks an event as received and signals ready if both events are present.
func (p *pendingVoiceConnection) onEvent(isVoiceState bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if isVoiceState {
		p.hasVoiceState = true
	} else {
		p.hasVoiceServer = true
	}

	if p.hasVoiceState && p.hasVoiceServer {
		select {
		case <-p.ready:
		default:
			close(p.ready)
		}
	}
}

// voiceEventBuffer holds a guild's VoiceStateUpdate and VoiceServerUpdate until
// both have arrived. The node rejects partial voice state, and Discord sends
// the two events in either order.
type voiceEventBuffer struct {
	mu sync.Mutex

	hasVoiceState bool
	channelID     *snowflake.ID
	sessionID     string

	hasVoiceServer bool
	token          string
	endpoint       string
}

// setVoiceState stores voice state data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceState(channelID *snowflake.ID, sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceState = true
	b.channelID = channelID
	b.sessionID = sessionID

	return b.hasVoiceState && b.hasVoiceServer
}

// setVoiceServer stores voice server data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceServer(token, endpoint string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceServer = true
	b.token = token
	b.endpoint = endpoint

	return b.hasVoiceState && b.hasVoiceServer
}

// take returns the buffered data and resets the buffer.
func (b *voiceEventBuffer) take() (channelID *snowflake.ID, sessionID, token, endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channelID, sessionID, token, endpoint = b.channelID, b.sessionID, b.token, b.endpoint

	b.hasVoiceState = false
	b.hasVoiceServer = false
	b.channelID = nil
	b.sessionID = ""
	b.token = ""
	b.endpoint = ""

	return
}

// LavalinkConfig contains Lavalink connection and stream settings.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool

	// StreamGracePeriod is how long a stream keeps reloading a failing station.
	StreamGracePeriod time.Duration
	// StreamRetryInterval spaces those reloads.
	StreamRetryInterval time.Duration
}

// LavalinkAdapter plays stations through a Lavalink node.
//
// It is the voice transport of the lavalink backend and, through
// StreamProvider, its stream source. Per guild it tracks the current voice
// link and stream so that node events reach the right one and superseded
// links never touch the guild's newer connection.
type LavalinkAdapter struct {
	client  disgolink.Client
	gateway voiceGateway
	botID   snowflake.ID
	cfg     LavalinkConfig

	pendingMu sync.Mutex
	pending   map[snowflake.ID]*pendingVoiceConnection

	voiceBufferMu sync.Mutex
	voiceBuffers  map[snowflake.ID]*voiceEventBuffer

	// voiceLocks orders the join and leave requests of each guild, so a
	// superseded link's leave cannot land after its successor's join.
	voiceLocks sync.Map // snowflake.ID -> *sync.Mutex

	mu      sync.Mutex
	links   map[snowflake.ID]*lavalinkLink
	streams map[snowflake.ID]*LavalinkStream
	volumes map[snowflake.ID]int
}

// Ensure LavalinkAdapter implements port interfaces.
var (
	_ ports.VoiceTransport   = (*LavalinkAdapter)(nil)
	_ ports.VolumeController = (*LavalinkAdapter)(nil)
	_ ports.StreamProvider   = (*LavalinkStreamProvider)(nil)
)

// NewLavalinkAdapter creates a LavalinkAdapter and connects to the node.
func NewLavalinkAdapter(
	ctx context.Context,
	session *discordgo.Session,
	cfg LavalinkConfig,
) (*LavalinkAdapter, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	adapter := newLavalinkAdapter(session, botID, cfg)
	adapter.client = disgolink.New(botID,
		disgolink.WithListenerFunc(adapter.onTrackStart),
		disgolink.WithListenerFunc(adapter.onTrackEnd),
		disgolink.WithListenerFunc(adapter.onTrackException),
		disgolink.WithListenerFunc(adapter.onTrackStuck),
		disgolink.WithListenerFunc(adapter.onWebSocketClosed),
	)

	node, err := adapter.client.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  cfg.Address,
		Password: cfg.Password,
		Secure:   cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", cfg.Address)

	return adapter, nil
}

func newLavalinkAdapter(gateway voiceGateway, botID snowflake.ID, cfg LavalinkConfig) *LavalinkAdapter {
	return &LavalinkAdapter{
		gateway:      gateway,
		botID:        botID,
		cfg:          cfg,
		pending:      make(map[snowflake.ID]*pendingVoiceConnection),
		voiceBuffers: make(map[snowflake.ID]*voiceEventBuffer),
		links:        make(map[snowflake.ID]*lavalinkLink),
		streams:      make(map[snowflake.ID]*LavalinkStream),
		volumes:      make(map[snowflake.ID]int),
	}
}

// Close disconnects from the node.
func (c *LavalinkAdapter) Close() {
	c.client.Close()
}

// Open joins a voice channel and returns once Discord has confirmed both the
// voice state and the voice server, or when ctx ends.
func (c *LavalinkAdapter) Open(
	ctx context.Context,
	guildID, channelID snowflake.ID,
	generation uint64,
) (ports.VoiceLink, error) {
	link := &lavalinkLink{
		adapter:    c,
		guildID:    guildID,
		channelID:  channelID,
		generation: generation,
		done:       make(chan struct{}),
	}

	if err := c.joinChannel(ctx, link); err != nil {
		if leaveErr := c.releaseAndLeave(context.WithoutCancel(ctx), link); leaveErr != nil {
			slog.Warn("failed to leave voice channel after failed join", "guild", guildID, "error", leaveErr)
		}
		link.finish(nil)
		return nil, fmt.Errorf("%w: %w", domain.ErrTransportFailure, err)
	}

	link.markEstablished()
	slog.Debug("joined voice channel", "guild", guildID, "channel", channelID, "generation", generation)
	return link, nil
}

// joinChannel makes link the guild's current link, requests its channel and
// waits for both voice events.
func (c *LavalinkAdapter) joinChannel(ctx context.Context, link *lavalinkLink) error {
	guildID := link.guildID
	pending := newPendingVoiceConnection()

	c.pendingMu.Lock()
	c.pending[guildID] = pending
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		if c.pending[guildID] == pending {
			delete(c.pending, guildID)
		}
		c.pendingMu.Unlock()
	}()

	lock := c.voiceLock(guildID)
	lock.Lock()
	c.mu.Lock()
	c.links[guildID] = link
	c.mu.Unlock()
	err := c.gateway.ChannelVoiceJoinManual(guildID.String(), link.channelID.String(), false, true)
	lock.Unlock()
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	select {
	case <-pending.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for voice connection: %w", ctx.Err())
	}
}

// leaveChannel destroys the guild's player and leaves voice.
func (c *LavalinkAdapter) leaveChannel(ctx context.Context, guildID snowflake.ID) error {
	if player := c.client.ExistingPlayer(guildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", guildID, "error", err)
		}
	}

	if err := c.gateway.ChannelVoiceJoinManual(guildID.String(), "", false, false); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

func (c *LavalinkAdapter) voiceLock(guildID snowflake.ID) *sync.Mutex {
	lock, _ := c.voiceLocks.LoadOrStore(guildID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// releaseAndLeave leaves voice if link is still the guild's current link.
func (c *LavalinkAdapter) releaseAndLeave(ctx context.Context, link *lavalinkLink) error {
	lock := c.voiceLock(link.guildID)
	lock.Lock()
	defer lock.Unlock()

	if !c.release(link) {
		return nil
	}
	return c.leaveChannel(ctx, link.guildID)
}

// release unregisters link and reports whether it was the guild's current link.
func (c *LavalinkAdapter) release(link *lavalinkLink) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.links[link.guildID] != link {
		return false
	}
	delete(c.links, link.guildID)
	return true
}

func (c *LavalinkAdapter) currentLink(guildID snowflake.ID) *lavalinkLink {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.links[guildID]
}

// dropLink ends the guild's established link with err.
func (c *LavalinkAdapter) dropLink(guildID snowflake.ID, err error) {
	link := c.currentLink(guildID)
	if link == nil || !link.isEstablished() {
		return
	}

	slog.Warn("voice connection lost", "guild", guildID, "generation", link.generation, "error", err)
	link.finish(err)
}

// play starts a track on the guild's player.
func (c *LavalinkAdapter) play(ctx context.Context, guildID snowflake.ID, track *ports.TrackInfo) error {
	player := c.client.Player(guildID)

	c.mu.Lock()
	volume, hasVolume := c.volumes[guildID]
	c.mu.Unlock()

	// Use WithEncodedTrack to avoid userData:null issue
	var err error
	if hasVolume {
		err = player.Update(ctx, lavalink.WithEncodedTrack(track.Encoded), lavalink.WithVolume(volume))
	} else {
		err = player.Update(ctx, lavalink.WithEncodedTrack(track.Encoded))
	}
	if err != nil {
		return fmt.Errorf("failed to play track: %w", err)
	}
	return nil
}

// SetVolume changes the guild's volume now and for every later track.
func (c *LavalinkAdapter) SetVolume(ctx context.Context, guildID snowflake.ID, volume int) error {
	c.mu.Lock()
	c.volumes[guildID] = volume
	c.mu.Unlock()

	if player := c.client.ExistingPlayer(guildID); player != nil {
		if err := player.Update(ctx, lavalink.WithVolume(volume)); err != nil {
			return fmt.Errorf("failed to set volume: %w", err)
		}
	}

	slog.Debug("set volume", "guild", guildID, "volume", volume)
	return nil
}

// StreamProvider returns the stream source that plays through this adapter.
func (c *LavalinkAdapter) StreamProvider() *LavalinkStreamProvider {
	return &LavalinkStreamProvider{adapter: c}
}

// loadTracks resolves a query on the best available node.
func (c *LavalinkAdapter) loadTracks(ctx context.Context, query string) ([]ports.TrackInfo, error) {
	node := c.client.BestNode()
	if node == nil {
		return nil, errors.New("no available Lavalink node")
	}

	result, err := node.LoadTracks(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}

	return convertLoadResult(result)
}

// convertLoadResult flattens a load result into the tracks a station plays.
func convertLoadResult(result *lavalink.LoadResult) ([]ports.TrackInfo, error) {
	switch data := result.Data.(type) {
	case lavalink.Track:
		return []ports.TrackInfo{convertTrack(data)}, nil

	case lavalink.Playlist:
		tracks := make([]ports.TrackInfo, len(data.Tracks))
		for i, track := range data.Tracks {
			tracks[i] = convertTrack(track)
		}
		return tracks, nil

	case lavalink.Search:
		tracks := make([]ports.TrackInfo, len(data))
		for i, track := range data {
			tracks[i] = convertTrack(track)
		}
		return tracks, nil

	case lavalink.Exception:
		return nil, fmt.Errorf("failed to load tracks: %s", data.Message)

	default:
		return nil, nil
	}
}

// convertTrack converts a Lavalink track to TrackInfo.
func convertTrack(track lavalink.Track) ports.TrackInfo {
	info := track.Info

	return ports.TrackInfo{
		Identifier: info.Identifier,
		Encoded:    track.Encoded,
		Title:      info.Title,
		Artist:     info.Author,
		Duration:   time.Duration(info.Length) * time.Millisecond,
		URI:        derefString(info.URI),
		ArtworkURL: derefString(info.ArtworkURL),
		SourceName: info.SourceName,
		IsStream:   info.IsStream,
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// OnVoiceServerUpdate handles Discord voice server updates.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	buffer := c.getOrCreateVoiceBuffer(guildID)
	if buffer.setVoiceServer(event.Token, event.Endpoint) {
		c.forwardBufferedVoiceEvents(guildID, buffer)
	}

	c.signalPending(guildID, false)
}

// OnVoiceStateUpdate handles Discord voice state updates.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	if event.VoiceState == nil || event.UserID != c.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	// An empty channel means the bot left voice, on its own or by force.
	if event.ChannelID == "" {
		c.client.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		c.clearVoiceBuffer(guildID)
		c.dropLink(guildID, fmt.Errorf("%w: disconnected from voice channel", domain.ErrTransportFailure))
		return
	}

	channelID, err := snowflake.Parse(event.ChannelID)
	if err != nil {
		slog.Error("failed to parse channel ID in voice state update", "error", err)
		return
	}

	buffer := c.getOrCreateVoiceBuffer(guildID)
	if buffer.setVoiceState(&channelID, event.SessionID) {
		c.forwardBufferedVoiceEvents(guildID, buffer)
	}

	c.signalPending(guildID, true)
}

func (c *LavalinkAdapter) signalPending(guildID snowflake.ID, isVoiceState bool) {
	c.pendingMu.Lock()
	pending := c.pending[guildID]
	c.pendingMu.Unlock()

	if pending != nil {
		pending.onEvent(isVoiceState)
	}
}

// getOrCreateVoiceBuffer returns the voice buffer for a guild, creating one if needed.
func (c *LavalinkAdapter) getOrCreateVoiceBuffer(guildID snowflake.ID) *voiceEventBuffer {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()

	buffer, exists := c.voiceBuffers[guildID]
	if !exists {
		buffer = &voiceEventBuffer{}
		c.voiceBuffers[guildID] = buffer
	}
	return buffer
}

// clearVoiceBuffer removes the voice buffer for a guild.
func (c *LavalinkAdapter) clearVoiceBuffer(guildID snowflake.ID) {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()
	delete(c.voiceBuffers, guildID)
}

// forwardBufferedVoiceEvents sends the buffered voice events to Lavalink, state first.
func (c *LavalinkAdapter) forwardBufferedVoiceEvents(guildID snowflake.ID, buffer *voiceEventBuffer) {
	channelID, sessionID, token, endpoint := buffer.take()

	slog.Debug("forwarding buffered voice events to Lavalink",
		"guild", guildID,
		"channel", channelID,
		"hasSessionID", sessionID != "",
	)

	c.client.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	c.client.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)
}

func (c *LavalinkAdapter) currentStream(guildID snowflake.ID) *LavalinkStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streams[guildID]
}

func (c *LavalinkAdapter) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)

	if stream := c.currentStream(player.GuildID()); stream != nil {
		stream.deliver(trackEvent{kind: trackEventStarted, encoded: event.Track.Encoded})
	}
}

func (c *LavalinkAdapter) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)

	if stream := c.currentStream(player.GuildID()); stream != nil {
		stream.deliver(trackEvent{kind: trackEventEnded, encoded: event.Track.Encoded, reason: event.Reason})
	}
}

func (c *LavalinkAdapter) onTrackException(player disgolink.Player, event lavalink.TrackExceptionEvent) {
	// The node follows an exception with a TrackEndEvent, which drives recovery.
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)
}

func (c *LavalinkAdapter) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)

	if stream := c.currentStream(player.GuildID()); stream != nil {
		stream.deliver(trackEvent{kind: trackEventStuck, encoded: event.Track.Encoded})
	}
}

func (c *LavalinkAdapter) onWebSocketClosed(player disgolink.Player, event lavalink.WebSocketClosedEvent) {
	slog.Warn("voice websocket closed",
		"guild", player.GuildID(),
		"code", event.Code,
		"reason", event.Reason,
		"by_remote", event.ByRemote,
	)

	c.dropLink(player.GuildID(), fmt.Errorf("%w: voice websocket closed with code %d: %s",
		domain.ErrTransportFailure, event.Code, event.Reason))
}

// LavalinkStreamProvider opens station streams on the node.
type LavalinkStreamProvider struct {
	adapter *LavalinkAdapter
}

// Open resolves the station and returns a stream over its tracks. The stream
// becomes the guild's current stream and receives its node events.
func (p *LavalinkStreamProvider) Open(
	ctx context.Context,
	guildID snowflake.ID,
	station domain.Station,
) (ports.Stream, error) {
	tracks, err := p.adapter.loadTracks(ctx, station.URL)
	if err == nil && len(tracks) == 0 {
		err = errNoTracks
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrStreamUnavailable, station.Name, err)
	}

	stream := newLavalinkStream(
		guildID,
		station,
		tracks,
		p.adapter,
		p.adapter.cfg.StreamGracePeriod,
		p.adapter.cfg.StreamRetryInterval,
	)
	stream.onClose = p.adapter.releaseStream

	p.adapter.mu.Lock()
	p.adapter.streams[guildID] = stream
	p.adapter.mu.Unlock()

	slog.Debug("opened station stream", "guild", guildID, "station", station.Name, "tracks", len(tracks))
	return stream, nil
}

func (c *LavalinkAdapter) releaseStream(stream *LavalinkStream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.streams[stream.guildID] == stream {
		delete(c.streams, stream.guildID)
	}
}

// lavalinkLink is one voice connection driven by the node.
type lavalinkLink struct {
	adapter    *LavalinkAdapter
	guildID    snowflake.ID
	channelID  snowflake.ID
	generation uint64

	done chan struct{}
	once sync.Once

	mu          sync.Mutex
	err         error
	established bool
}

func (l *lavalinkLink) ChannelID() snowflake.ID { return l.channelID }

// Send plays the frame's track. Audio itself never passes through the bot.
func (l *lavalinkLink) Send(ctx context.Context, frame ports.Frame) error {
	if frame.Track == nil {
		return errors.New("lavalink voice link only plays tracks")
	}

	select {
	case <-l.done:
		if err := l.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: voice connection closed", domain.ErrTransportFailure)
	default:
	}

	return l.adapter.play(ctx, l.guildID, frame.Track)
}

// Close leaves voice if this is still the guild's current link.
func (l *lavalinkLink) Close(ctx context.Context) error {
	err := l.adapter.releaseAndLeave(ctx, l)
	l.finish(nil)
	return err
}

func (l *lavalinkLink) Done() <-chan struct{} { return l.done }

func (l *lavalinkLink) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *lavalinkLink) finish(err error) {
	l.once.Do(func() {
		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
		close(l.done)
	})
}

func (l *lavalinkLink) markEstablished() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.established = true
}

func (l *lavalinkLink) isEstablished() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.established
}
