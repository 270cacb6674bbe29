package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pion/webrtc/v3/pkg/media/oggreader"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/ports"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
	"golang.org/x/time/rate"
)

const (
	oggPageHeaderLen = 27
	// oggMaxPacketSize bounds a packet spread over continued pages. Opus
	// packets for voice never come close.
	oggMaxPacketSize = 64 << 10
	oggReadBufSize   = 32 << 10

	defaultOggGracePeriod = 5 * time.Second
	oggDialTimeout        = 10 * time.Second
)

var (
	opusHeadMagic = []byte("OpusHead")
	opusTagsMagic = []byte("OpusTags")
)

var (
	errNotOggOpus = errors.New("stream is not Ogg/Opus")

	// errStreamStalled ends a connection that stays open without delivering audio.
	errStreamStalled = errors.New("stream stalled")
)

// oggPacketReader splits Ogg pages into the packets they carry.
type oggPacketReader struct {
	r        *bufio.Reader
	header   [oggPageHeaderLen]byte
	segments [255]byte

	pending [][]byte
	partial []byte
}

func newOggPacketReader(r *bufio.Reader) *oggPacketReader {
	return &oggPacketReader{r: r}
}

// next returns the next complete packet.
func (p *oggPacketReader) next() ([]byte, error) {
	for len(p.pending) == 0 {
		if err := p.readPage(); err != nil {
			return nil, err
		}
	}

	packet := p.pending[0]
	p.pending = p.pending[1:]
	return packet, nil
}

func (p *oggPacketReader) readPage() error {
	if _, err := io.ReadFull(p.r, p.header[:]); err != nil {
		return err
	}
	if !bytes.Equal(p.header[:4], []byte("OggS")) {
		return fmt.Errorf("%w: bad page capture pattern", errNotOggOpus)
	}

	// A packet left open by the previous page only carries on in a continued page.
	if p.header[5]&0x01 == 0 {
		p.partial = nil
	}

	segments := p.segments[:p.header[26]]
	if _, err := io.ReadFull(p.r, segments); err != nil {
		return err
	}

	size := 0
	for _, s := range segments {
		size += int(s)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(p.r, payload); err != nil {
		return err
	}

	off := 0
	for _, s := range segments {
		p.partial = append(p.partial, payload[off:off+int(s)]...)
		off += int(s)
		if len(p.partial) > oggMaxPacketSize {
			return fmt.Errorf("%w: packet exceeds %d bytes", errNotOggOpus, oggMaxPacketSize)
		}
		if s < 255 {
			p.pending = append(p.pending, p.partial)
			p.partial = nil
		}
	}
	return nil
}

// isOpusHeaderPacket reports whether packet is an identification or comment
// header. Chained streams repeat both whenever the upstream switches tracks.
func isOpusHeaderPacket(packet []byte) bool {
	return bytes.HasPrefix(packet, opusHeadMagic) || bytes.HasPrefix(packet, opusTagsMagic)
}

// OggStreamConfig contains HTTP stream settings for the native backend.
type OggStreamConfig struct {
	// GracePeriod is how long after its last frame a stream keeps trying to
	// get audio flowing again. Zero uses five seconds.
	GracePeriod time.Duration
	// RetryInterval spaces those reconnects.
	RetryInterval time.Duration
	UserAgent     string
}

// OggStreamProvider opens Ogg/Opus station streams over HTTP.
type OggStreamProvider struct {
	client *http.Client
	cfg    OggStreamConfig
}

var _ ports.StreamProvider = (*OggStreamProvider)(nil)

// NewOggStreamProvider creates a new OggStreamProvider.
// A nil client uses one without an overall timeout, which would cut live streams.
func NewOggStreamProvider(client *http.Client, cfg OggStreamConfig) *OggStreamProvider {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: oggDialTimeout}).DialContext,
				ResponseHeaderTimeout: oggDialTimeout,
				DisableCompression:    true,
				ExpectContinueTimeout: time.Second,
			},
		}
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = defaultOggGracePeriod
	}
	return &OggStreamProvider{client: client, cfg: cfg}
}

// Open connects to the station and checks that it serves Ogg/Opus.
func (p *OggStreamProvider) Open(ctx context.Context, guildID snowflake.ID, station domain.Station) (ports.Stream, error) {
	s := newOggStream(guildID, station, p.client, p.cfg)
	if err := s.connect(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrStreamUnavailable, station.Name, err)
	}
	s.lastFrame = s.now()

	slog.Debug("opened station stream", "guild", guildID, "station", station.Name, "url", station.URL)
	return s, nil
}

// OggStream yields the Opus packets of an HTTP radio stream.
// A dropped or stalled connection is reopened until the grace period after
// the last delivered frame runs out.
type OggStream struct {
	guildID   snowflake.ID
	station   domain.Station
	client    *http.Client
	userAgent string
	grace     time.Duration
	// stall is how long Next waits on a silent connection before dropping it.
	// Half the grace period, so the other half is left for reconnecting.
	stall   time.Duration
	limiter *rate.Limiter
	now     func() time.Time

	// life scopes every request; Close cancels it to unblock a pending read.
	life   context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	body io.ReadCloser

	// Owned by the goroutine calling Next.
	packets   *oggPacketReader
	announce  *ports.TrackInfo
	attempt   context.Context
	idle      *time.Timer
	lastFrame time.Time
}

var _ ports.Stream = (*OggStream)(nil)

func newOggStream(guildID snowflake.ID, station domain.Station, client *http.Client, cfg OggStreamConfig) *OggStream {
	life, cancel := context.WithCancel(context.Background())
	return &OggStream{
		guildID:   guildID,
		station:   station,
		client:    client,
		userAgent: cfg.UserAgent,
		grace:     cfg.GracePeriod,
		stall:     cfg.GracePeriod / 2,
		limiter:   rate.NewLimiter(rate.Every(cfg.RetryInterval), 1),
		now:       time.Now,
		life:      life,
		cancel:    cancel,
	}
}

// connect opens the station URL and reads the identification header.
// ctx bounds only the handshake; the body lives until Close or a stall.
func (s *OggStream) connect(ctx context.Context) error {
	attempt, cancelAttempt := context.WithCancelCause(s.life)
	stop := context.AfterFunc(ctx, func() { cancelAttempt(ctx.Err()) })

	body, reader, err := s.dial(attempt)
	if !stop() && err == nil {
		err = ctx.Err()
		_ = body.Close()
	}
	if err != nil {
		cancelAttempt(err)
		return err
	}

	s.mu.Lock()
	if s.life.Err() != nil {
		s.mu.Unlock()
		cancelAttempt(context.Canceled)
		_ = body.Close()
		return io.EOF
	}
	old := s.body
	s.body = cancelOnClose{ReadCloser: body, cancel: func() { cancelAttempt(context.Canceled) }}
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	// Armed only while Next waits for upstream data.
	if s.idle != nil {
		s.idle.Stop()
	}
	s.attempt = attempt
	s.idle = time.AfterFunc(s.stall, func() { cancelAttempt(errStreamStalled) })
	s.idle.Stop()

	title := body.name
	if title == "" {
		title = s.station.Name
	}

	s.packets = newOggPacketReader(reader)
	s.announce = &ports.TrackInfo{
		Title:      title,
		URI:        s.station.URL,
		SourceName: "http",
		IsStream:   true,
	}
	return nil
}

func (s *OggStream) dial(ctx context.Context) (*icyBody, *bufio.Reader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.station.URL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Icy-MetaData", "0")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	reader := bufio.NewReaderSize(resp.Body, oggReadBufSize)
	if _, _, err := oggreader.NewWith(reader); err != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("%w: %w", errNotOggOpus, err)
	}

	return &icyBody{ReadCloser: resp.Body, name: resp.Header.Get("Icy-Name")}, reader, nil
}

// Next returns the next Opus packet. The first packet after every
// (re)connect also names the station as the playing track.
func (s *OggStream) Next(ctx context.Context) (ports.Frame, error) {
	defer func() { s.idle.Stop() }()

	for {
		if s.life.Err() != nil {
			return ports.Frame{}, io.EOF
		}

		s.idle.Reset(s.stall)
		packet, err := s.packets.next()
		if err == nil {
			if len(packet) == 0 || isOpusHeaderPacket(packet) {
				continue
			}
			s.lastFrame = s.now()
			frame := ports.Frame{Opus: packet}
			if s.announce != nil {
				frame.Track = s.announce
				s.announce = nil
			}
			return frame, nil
		}

		if s.life.Err() != nil {
			return ports.Frame{}, io.EOF
		}
		if errors.Is(context.Cause(s.attempt), errStreamStalled) {
			err = fmt.Errorf("%w: no data for %s", errStreamStalled, s.stall)
		}
		if err := s.reconnect(ctx, err); err != nil {
			return ports.Frame{}, err
		}
	}
}

// reconnect reopens the station until it answers or the grace period after
// the last delivered frame runs out. Each dial is bounded by what is left of it.
func (s *OggStream) reconnect(ctx context.Context, cause error) error {
	deadline := s.lastFrame.Add(s.grace)

	for {
		if s.life.Err() != nil {
			return io.EOF
		}
		if !s.now().Before(deadline) {
			return fmt.Errorf("%w: %s: %w", domain.ErrStreamUnavailable, s.station.Name, cause)
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		slog.Warn("reconnecting to station", "guild", s.guildID, "station", s.station.Name, "cause", cause)

		dialCtx, cancel := context.WithDeadline(ctx, deadline)
		err := s.connect(dialCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		cause = err
	}
}

// Close cancels the request and releases the connection.
func (s *OggStream) Close() error {
	s.cancel()

	s.mu.Lock()
	body := s.body
	s.body = nil
	s.mu.Unlock()

	if body != nil {
		return body.Close()
	}
	return nil
}

// icyBody keeps the station name a SHOUTcast/Icecast server announces.
type icyBody struct {
	io.ReadCloser
	name string
}

// cancelOnClose ends the request context of a body when it is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	c.cancel()
	return c.ReadCloser.Close()
}
