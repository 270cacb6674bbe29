package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/ports"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
	"github.com/stretchr/testify/require"
)

const (
	testGuild   = snowflake.ID(42)
	testChannel = snowflake.ID(7)

	waitFor = 2 * time.Second
	tick    = 2 * time.Millisecond
)

// fakeRegistry is a minimal domain.StationRegistry.
type fakeRegistry struct {
	mu       sync.Mutex
	stations map[snowflake.ID]map[string]domain.Station
}

func newFakeRegistry(guildID snowflake.ID, names ...string) *fakeRegistry {
	r := &fakeRegistry{stations: make(map[snowflake.ID]map[string]domain.Station)}
	for _, name := range names {
		_ = r.Add(domain.Station{
			GuildID: guildID,
			Name:    name,
			URL:     "https://radio.example.com/" + name,
		})
	}
	return r
}

func (r *fakeRegistry) Add(station domain.Station) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stations[station.GuildID] == nil {
		r.stations[station.GuildID] = make(map[string]domain.Station)
	}
	if _, ok := r.stations[station.GuildID][station.Key()]; ok {
		return domain.ErrDuplicateName
	}
	r.stations[station.GuildID][station.Key()] = station
	return nil
}

func (r *fakeRegistry) Remove(guildID snowflake.ID, name string) (domain.Station, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	station, ok := r.stations[guildID][domain.StationKey(name)]
	if !ok {
		return domain.Station{}, domain.ErrNotFound
	}
	delete(r.stations[guildID], domain.StationKey(name))
	return station, nil
}

func (r *fakeRegistry) Get(guildID snowflake.ID, name string) (domain.Station, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	station, ok := r.stations[guildID][domain.StationKey(name)]
	if !ok {
		return domain.Station{}, domain.ErrNotFound
	}
	return station, nil
}

func (r *fakeRegistry) List(guildID snowflake.ID) []domain.Station {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Station
	for _, s := range r.stations[guildID] {
		out = append(out, s)
	}
	return out
}

// fakeLink is a voice connection that records what it was sent.
type fakeLink struct {
	channelID  snowflake.ID
	generation uint64
	done       chan struct{}
	once       sync.Once
	closeBlock chan struct{}

	mu     sync.Mutex
	closed bool
	err    error
	sent   int
}

func (l *fakeLink) ChannelID() snowflake.ID { return l.channelID }

func (l *fakeLink) Send(_ context.Context, _ ports.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent++
	return nil
}

func (l *fakeLink) Close(ctx context.Context) error {
	if l.closeBlock != nil {
		select {
		case <-l.closeBlock:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.once.Do(func() { close(l.done) })
	return nil
}

func (l *fakeLink) Done() <-chan struct{} { return l.done }

func (l *fakeLink) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *fakeLink) disconnect(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
	l.once.Do(func() { close(l.done) })
}

func (l *fakeLink) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *fakeLink) sentFrames() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent
}

type pendingOpen struct {
	channelID snowflake.ID
	result    chan error
}

// fakeTransport hands out fakeLinks. Opens for held channels wait until the
// test releases them.
type fakeTransport struct {
	mu         sync.Mutex
	holdAll    bool
	held       map[snowflake.ID]bool
	failures   int
	closeBlock chan struct{}
	opens      int
	pending    []*pendingOpen
	links      []*fakeLink
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{held: make(map[snowflake.ID]bool)}
}

func (t *fakeTransport) Open(
	ctx context.Context,
	_, channelID snowflake.ID,
	generation uint64,
) (ports.VoiceLink, error) {
	t.mu.Lock()
	t.opens++
	if t.failures > 0 {
		t.failures--
		t.mu.Unlock()
		return nil, errors.New("voice server unreachable")
	}
	var p *pendingOpen
	if t.holdAll || t.held[channelID] {
		p = &pendingOpen{channelID: channelID, result: make(chan error, 1)}
		t.pending = append(t.pending, p)
	}
	closeBlock := t.closeBlock
	t.mu.Unlock()

	if p != nil {
		select {
		case err := <-p.result:
			if err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	link := &fakeLink{
		channelID:  channelID,
		generation: generation,
		done:       make(chan struct{}),
		closeBlock: closeBlock,
	}
	t.mu.Lock()
	t.links = append(t.links, link)
	t.mu.Unlock()
	return link, nil
}

func (t *fakeTransport) setFailures(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures = n
}

func (t *fakeTransport) hold(channelID snowflake.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.held[channelID] = true
}

func (t *fakeTransport) holdEverything() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.holdAll = true
}

func (t *fakeTransport) pendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// release completes the i-th held open, successfully when err is nil.
func (t *fakeTransport) release(i int, err error) {
	t.mu.Lock()
	p := t.pending[i]
	t.mu.Unlock()
	p.result <- err
}

func (t *fakeTransport) openCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opens
}

func (t *fakeTransport) linkCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.links)
}

func (t *fakeTransport) link(i int) *fakeLink {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.links[i]
}

func (t *fakeTransport) linkFor(channelID snowflake.ID) *fakeLink {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, l := range t.links {
		if l.channelID == channelID {
			return l
		}
	}
	return nil
}

func (t *fakeTransport) openLinks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, l := range t.links {
		if !l.isClosed() {
			n++
		}
	}
	return n
}

// fakeStream yields whatever the test pushes into it.
type fakeStream struct {
	station string
	frames  chan ports.Frame
	fail    chan error
	closed  chan struct{}
	once    sync.Once

	mu    sync.Mutex
	skips int
}

func (s *fakeStream) Next(ctx context.Context) (ports.Frame, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case err := <-s.fail:
		return ports.Frame{}, err
	case <-s.closed:
		return ports.Frame{}, io.EOF
	case <-ctx.Done():
		return ports.Frame{}, ctx.Err()
	}
}

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skips++
	return nil
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *fakeStream) skipCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skips
}

type fakeStreams struct {
	mu       sync.Mutex
	failures int
	opened   []*fakeStream
}

func (p *fakeStreams) Open(
	_ context.Context,
	_ snowflake.ID,
	station domain.Station,
) (ports.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return nil, fmt.Errorf("%w: upstream returned 503", domain.ErrStreamUnavailable)
	}
	s := &fakeStream{
		station: station.Name,
		frames:  make(chan ports.Frame, 8),
		fail:    make(chan error, 1),
		closed:  make(chan struct{}),
	}
	p.opened = append(p.opened, s)
	return s, nil
}

func (p *fakeStreams) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.opened)
}

func (p *fakeStreams) stream(i int) *fakeStream {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opened[i]
}

func (p *fakeStreams) stations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.opened))
	for i, s := range p.opened {
		names[i] = s.station
	}
	return names
}

// recordingPublisher keeps every published event in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// trace returns the target state of every transition of the guild.
func (p *recordingPublisher) trace(guildID snowflake.ID) []domain.SessionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	var states []domain.SessionState
	for _, e := range p.events {
		if ev, ok := e.(domain.SessionStateChangedEvent); ok && ev.GuildID == guildID {
			states = append(states, ev.To)
		}
	}
	return states
}

func eventsOf[E domain.Event](p *recordingPublisher) []E {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []E
	for _, e := range p.events {
		if ev, ok := e.(E); ok {
			out = append(out, ev)
		}
	}
	return out
}

// fakeTimers records timers instead of running them.
type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	owner   *fakeTimers
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

func (ft *fakeTimers) after(d time.Duration, f func()) stopper {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{owner: ft, d: d, f: f}
	ft.timers = append(ft.timers, t)
	return t
}

func (ft *fakeTimers) nextPending(match func(time.Duration) bool) *fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	for _, t := range ft.timers {
		if !t.stopped && !t.fired && match(t.d) {
			return t
		}
	}
	return nil
}

// fireNext waits for a pending timer whose duration matches, fires it and
// returns its duration.
func (ft *fakeTimers) fireNext(t *testing.T, match func(time.Duration) bool) time.Duration {
	t.Helper()

	var timer *fakeTimer
	require.Eventually(t, func() bool {
		timer = ft.nextPending(match)
		return timer != nil
	}, waitFor, tick, "no pending timer to fire")

	ft.mu.Lock()
	timer.fired = true
	ft.mu.Unlock()

	timer.f()
	return timer.d
}

// fireAll runs every recorded callback, stopped or not.
func (ft *fakeTimers) fireAll() {
	ft.mu.Lock()
	timers := append([]*fakeTimer(nil), ft.timers...)
	ft.mu.Unlock()
	for _, t := range timers {
		t.f()
	}
}

func (ft *fakeTimers) stoppedCount(match func(time.Duration) bool) int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	n := 0
	for _, t := range ft.timers {
		if t.stopped && match(t.d) {
			n++
		}
	}
	return n
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const testStabilityWindow = time.Hour

func isBackoff(d time.Duration) bool   { return d < testStabilityWindow }
func isStability(d time.Duration) bool { return d == testStabilityWindow }

func testConfig() Config {
	return Config{
		BackoffBase:       100 * time.Millisecond,
		BackoffMax:        time.Second,
		MaxAttempts:       5,
		StabilityWindow:   testStabilityWindow,
		ConnectTimeout:    time.Second,
		StreamOpenTimeout: time.Second,
		TeardownTimeout:   time.Second,
		IdleReapAfter:     10 * time.Minute,
		ReapInterval:      time.Minute,
	}
}

type harness struct {
	t         *testing.T
	sup       *Supervisor
	registry  *fakeRegistry
	transport *fakeTransport
	streams   *fakeStreams
	publisher *recordingPublisher
	timers    *fakeTimers
	clock     *fakeClock
}

func newHarness(t *testing.T, cfg Config, stations ...string) *harness {
	t.Helper()

	if len(stations) == 0 {
		stations = []string{"lofi"}
	}

	h := &harness{
		t:         t,
		registry:  newFakeRegistry(testGuild, stations...),
		transport: newFakeTransport(),
		streams:   &fakeStreams{},
		publisher: &recordingPublisher{},
		timers:    &fakeTimers{},
		clock:     &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	h.sup = NewSupervisor(cfg, h.registry, h.transport, h.streams, h.publisher)
	h.sup.now = h.clock.Now
	h.sup.after = h.timers.after

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = h.sup.Shutdown(ctx)
	})

	return h
}

func (h *harness) dispatch(guildID snowflake.ID, cmd domain.Command) error {
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	return h.sup.Dispatch(ctx, guildID, cmd)
}

func (h *harness) waitForState(guildID snowflake.ID, want domain.SessionState) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return h.sup.Status(guildID).State == want
	}, waitFor, tick, "guild %d never reached %v (now %v)", guildID, want, h.sup.Status(guildID).State)
}
