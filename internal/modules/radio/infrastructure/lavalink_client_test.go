package infrastructure

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/ports"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
	"github.com/stretchr/testify/require"
)

const (
	testBotID   = snowflake.ID(999)
	testGuildID = snowflake.ID(42)
)

// fakeLavalinkClient records the voice updates forwarded to the node.
type fakeLavalinkClient struct {
	disgolink.Client

	mu            sync.Mutex
	stateUpdates  []*snowflake.ID
	serverUpdates int
}

func (f *fakeLavalinkClient) OnVoiceStateUpdate(_ context.Context, _ snowflake.ID, channelID *snowflake.ID, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateUpdates = append(f.stateUpdates, channelID)
}

func (f *fakeLavalinkClient) OnVoiceServerUpdate(_ context.Context, _ snowflake.ID, _ string, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.serverUpdates++
}

func (f *fakeLavalinkClient) ExistingPlayer(snowflake.ID) disgolink.Player {
	return nil
}

func (f *fakeLavalinkClient) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stateUpdates), f.serverUpdates
}

type fakePlayer struct {
	disgolink.Player
	guildID snowflake.ID
}

func (p fakePlayer) GuildID() snowflake.ID { return p.guildID }

// fakeGateway answers voice state requests the way Discord does, asynchronously.
type fakeGateway struct {
	adapter *LavalinkAdapter
	silent  bool
	err     error

	// When set, leave requests signal leaving and then wait for holdLeave
	// before they count as sent.
	leaving   chan struct{}
	holdLeave chan struct{}

	mu    sync.Mutex
	calls []string
}

func (g *fakeGateway) ChannelVoiceJoinManual(gID, cID string, _, _ bool) error {
	if cID == "" && g.holdLeave != nil {
		g.leaving <- struct{}{}
		<-g.holdLeave
	}

	g.mu.Lock()
	g.calls = append(g.calls, cID)
	g.mu.Unlock()

	if g.err != nil {
		return g.err
	}
	if g.silent {
		return nil
	}

	go func() {
		g.adapter.OnVoiceStateUpdate(&discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{
			GuildID:   gID,
			ChannelID: cID,
			UserID:    testBotID.String(),
			SessionID: "session",
		}})
		if cID != "" {
			g.adapter.OnVoiceServerUpdate(&discordgo.VoiceServerUpdate{
				GuildID:  gID,
				Token:    "token",
				Endpoint: "voice.example.com",
			})
		}
	}()
	return nil
}

func (g *fakeGateway) requests() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func newTestAdapter(t *testing.T) (*LavalinkAdapter, *fakeGateway, *fakeLavalinkClient) {
	t.Helper()
	gateway := &fakeGateway{}
	client := &fakeLavalinkClient{}
	adapter := newLavalinkAdapter(gateway, testBotID, LavalinkConfig{StreamGracePeriod: time.Second})
	adapter.client = client
	gateway.adapter = adapter
	return adapter, gateway, client
}

func openLink(t *testing.T, adapter *LavalinkAdapter, channelID snowflake.ID, gen uint64) ports.VoiceLink {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	link, err := adapter.Open(ctx, testGuildID, channelID, gen)
	require.NoError(t, err)
	return link
}

func TestLavalinkAdapter_OpenForwardsVoiceEvents(t *testing.T) {
	adapter, gateway, client := newTestAdapter(t)

	link := openLink(t, adapter, 7, 1)
	if link.ChannelID() != 7 {
		t.Errorf("ChannelID() = %d, want 7", link.ChannelID())
	}
	if got := gateway.requests(); len(got) != 1 || got[0] != "7" {
		t.Errorf("gateway requests = %v, want [7]", got)
	}

	require.Eventually(t, func() bool {
		states, servers := client.counts()
		return states == 1 && servers == 1
	}, time.Second, 5*time.Millisecond)
}

func TestLavalinkAdapter_OpenTimeoutLeaves(t *testing.T) {
	adapter, gateway, _ := newTestAdapter(t)
	gateway.silent = true

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := adapter.Open(ctx, testGuildID, 7, 1)
	if !errors.Is(err, domain.ErrTransportFailure) {
		t.Fatalf("Open() error = %v, want ErrTransportFailure", err)
	}
	if got := gateway.requests(); len(got) != 2 || got[1] != "" {
		t.Errorf("gateway requests = %v, want a join followed by a leave", got)
	}
	if adapter.currentLink(testGuildID) != nil {
		t.Error("failed link is still registered")
	}
}

func TestLavalinkAdapter_OpenGatewayError(t *testing.T) {
	adapter, gateway, _ := newTestAdapter(t)
	gateway.err = errors.New("websocket closed")

	_, err := adapter.Open(context.Background(), testGuildID, 7, 1)
	if !errors.Is(err, domain.ErrTransportFailure) {
		t.Errorf("Open() error = %v, want ErrTransportFailure", err)
	}
}

func TestLavalinkAdapter_CloseLeavesChannel(t *testing.T) {
	adapter, gateway, _ := newTestAdapter(t)
	link := openLink(t, adapter, 7, 1)

	require.NoError(t, link.Close(context.Background()))
	require.NoError(t, link.Close(context.Background()))

	select {
	case <-link.Done():
	default:
		t.Fatal("Done() not closed after Close")
	}
	if link.Err() != nil {
		t.Errorf("Err() = %v after plain Close, want nil", link.Err())
	}
	if got := gateway.requests(); len(got) != 2 || got[1] != "" {
		t.Errorf("gateway requests = %v, want one join and one leave", got)
	}
}

func TestLavalinkAdapter_SupersededLinkCloseKeepsNewerConnection(t *testing.T) {
	adapter, gateway, _ := newTestAdapter(t)

	old := openLink(t, adapter, 7, 1)
	current := openLink(t, adapter, 7, 2)

	require.NoError(t, old.Close(context.Background()))

	for _, ch := range gateway.requests() {
		if ch == "" {
			t.Fatal("closing a superseded link left the voice channel")
		}
	}
	select {
	case <-current.Done():
		t.Fatal("current link ended when a superseded link closed")
	default:
	}
}

func TestLavalinkAdapter_JoinWaitsForPreviousLeave(t *testing.T) {
	adapter, gateway, _ := newTestAdapter(t)
	old := openLink(t, adapter, 7, 1)

	gateway.leaving = make(chan struct{}, 1)
	gateway.holdLeave = make(chan struct{})

	closed := make(chan error, 1)
	go func() { closed <- old.Close(context.Background()) }()
	<-gateway.leaving

	opened := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err := adapter.Open(ctx, testGuildID, 8, 2)
		opened <- err
	}()

	// The join must not go out while the old link is still leaving.
	time.Sleep(50 * time.Millisecond)
	if got := gateway.requests(); len(got) != 1 {
		t.Errorf("gateway requests = %v while leaving, want only the first join", got)
	}

	close(gateway.holdLeave)
	require.NoError(t, <-closed)
	require.NoError(t, <-opened)

	require.Equal(t, []string{"7", "", "8"}, gateway.requests())
	require.NotNil(t, adapter.currentLink(testGuildID))
	require.Equal(t, snowflake.ID(8), adapter.currentLink(testGuildID).channelID)
}

func TestLavalinkAdapter_DisconnectEndsLink(t *testing.T) {
	adapter, _, _ := newTestAdapter(t)
	link := openLink(t, adapter, 7, 1)

	adapter.OnVoiceStateUpdate(&discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{
		GuildID: testGuildID.String(),
		UserID:  testBotID.String(),
	}})

	select {
	case <-link.Done():
	case <-time.After(time.Second):
		t.Fatal("link not ended after the bot was disconnected")
	}
	if !errors.Is(link.Err(), domain.ErrTransportFailure) {
		t.Errorf("Err() = %v, want ErrTransportFailure", link.Err())
	}
}

func TestLavalinkAdapter_IgnoresOtherUsers(t *testing.T) {
	adapter, _, client := newTestAdapter(t)
	link := openLink(t, adapter, 7, 1)
	require.Eventually(t, func() bool { s, _ := client.counts(); return s == 1 }, time.Second, 5*time.Millisecond)

	adapter.OnVoiceStateUpdate(&discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{
		GuildID: testGuildID.String(),
		UserID:  "12345",
	}})

	select {
	case <-link.Done():
		t.Fatal("another user's disconnect ended the bot's link")
	default:
	}
	if s, _ := client.counts(); s != 1 {
		t.Errorf("forwarded %d voice states, want 1", s)
	}
}

func TestLavalinkAdapter_WebSocketClosedEndsLink(t *testing.T) {
	adapter, _, _ := newTestAdapter(t)
	link := openLink(t, adapter, 7, 1)

	adapter.onWebSocketClosed(fakePlayer{guildID: testGuildID}, lavalink.WebSocketClosedEvent{
		Code:     4014,
		Reason:   "Disconnected.",
		ByRemote: true,
	})

	select {
	case <-link.Done():
	default:
		t.Fatal("link not ended after the voice websocket closed")
	}
	if !errors.Is(link.Err(), domain.ErrTransportFailure) {
		t.Errorf("Err() = %v, want ErrTransportFailure", link.Err())
	}
}

func TestLavalinkAdapter_RoutesTrackEventsToCurrentStream(t *testing.T) {
	adapter, _, _ := newTestAdapter(t)

	old := newLavalinkStream(testGuildID, testStation(testGuildID, "a"), []ports.TrackInfo{track("x")}, adapter, time.Second, 0)
	current := newLavalinkStream(testGuildID, testStation(testGuildID, "b"), []ports.TrackInfo{track("y")}, adapter, time.Second, 0)
	old.onClose = adapter.releaseStream
	current.onClose = adapter.releaseStream

	adapter.mu.Lock()
	adapter.streams[testGuildID] = current
	adapter.mu.Unlock()

	// Closing a replaced stream must not unregister the current one.
	require.NoError(t, old.Close())
	if adapter.currentStream(testGuildID) != current {
		t.Fatal("closing a replaced stream unregistered the current stream")
	}

	adapter.onTrackEnd(fakePlayer{guildID: testGuildID}, lavalink.TrackEndEvent{
		Track:  lavalink.Track{Encoded: "y"},
		Reason: lavalink.TrackEndReasonFinished,
	})

	select {
	case ev := <-current.events:
		if ev.kind != trackEventEnded || ev.encoded != "y" || ev.reason != lavalink.TrackEndReasonFinished {
			t.Errorf("delivered event = %+v", ev)
		}
	default:
		t.Fatal("track end event not delivered to the current stream")
	}

	require.NoError(t, current.Close())
	if adapter.currentStream(testGuildID) != nil {
		t.Error("closed stream still registered")
	}
}

func TestLavalinkAdapter_SetVolumeRemembersValue(t *testing.T) {
	adapter, _, _ := newTestAdapter(t)

	require.NoError(t, adapter.SetVolume(context.Background(), testGuildID, 250))

	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	if adapter.volumes[testGuildID] != 250 {
		t.Errorf("stored volume = %d, want 250", adapter.volumes[testGuildID])
	}
}

func TestLavalinkLink_SendRequiresTrack(t *testing.T) {
	adapter, _, _ := newTestAdapter(t)
	link := openLink(t, adapter, 7, 1)

	if err := link.Send(context.Background(), ports.Frame{Opus: []byte{1}}); err == nil {
		t.Error("Send() of a raw audio frame expected error")
	}
}

func TestVoiceEventBuffer(t *testing.T) {
	var b voiceEventBuffer
	channelID := snowflake.ID(7)

	if b.setVoiceServer("token", "endpoint") {
		t.Fatal("buffer ready after voice server only")
	}
	if !b.setVoiceState(&channelID, "session") {
		t.Fatal("buffer not ready after both events")
	}

	gotChannel, session, token, endpoint := b.take()
	if gotChannel == nil || *gotChannel != 7 || session != "session" || token != "token" || endpoint != "endpoint" {
		t.Errorf("take() = %v, %q, %q, %q", gotChannel, session, token, endpoint)
	}

	if b.setVoiceState(&channelID, "session") {
		t.Error("buffer still ready after take()")
	}
}

func TestPendingVoiceConnection(t *testing.T) {
	p := newPendingVoiceConnection()

	p.onEvent(true)
	p.onEvent(true)
	select {
	case <-p.ready:
		t.Fatal("ready after voice state only")
	default:
	}

	p.onEvent(false)
	p.onEvent(false)
	select {
	case <-p.ready:
	default:
		t.Fatal("not ready after both events")
	}
}

func TestConvertLoadResult(t *testing.T) {
	uri := "https://radio.example.com/a"

	tests := []struct {
		name    string
		result  *lavalink.LoadResult
		want    []string
		wantErr bool
	}{
		{
			name: "single track",
			result: &lavalink.LoadResult{Data: lavalink.Track{
				Encoded: "a",
				Info:    lavalink.TrackInfo{Title: "A", Author: "DJ", Length: 180000, URI: &uri},
			}},
			want: []string{"a"},
		},
		{
			name: "playlist",
			result: &lavalink.LoadResult{Data: lavalink.Playlist{
				Tracks: []lavalink.Track{{Encoded: "a"}, {Encoded: "b"}},
			}},
			want: []string{"a", "b"},
		},
		{
			name:   "empty",
			result: &lavalink.LoadResult{Data: lavalink.Empty{}},
			want:   nil,
		},
		{
			name:    "exception",
			result:  &lavalink.LoadResult{Data: lavalink.Exception{Message: "unknown file format"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertLoadResult(tt.result)
			if tt.wantErr {
				if err == nil {
					t.Fatal("convertLoadResult() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("convertLoadResult() unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("convertLoadResult() returned %d tracks, want %d", len(got), len(tt.want))
			}
			for i, tr := range got {
				if tr.Encoded != tt.want[i] {
					t.Errorf("track %d = %q, want %q", i, tr.Encoded, tt.want[i])
				}
			}
		})
	}

	got, err := convertLoadResult(tests[0].result)
	require.NoError(t, err)
	if got[0].Duration != 3*time.Minute || got[0].Artist != "DJ" || got[0].URI != uri {
		t.Errorf("converted track = %+v", got[0])
	}
}
