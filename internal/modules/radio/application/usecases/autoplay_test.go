package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	portmocks "github.com/sglre6355/sgrradio/internal/modules/radio/application/ports/mocks"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain/mocks"
	"go.uber.org/mock/gomock"
)

type autoplayFixture struct {
	svc      *AutoplayService
	store    *mocks.MockAutoplayStore
	sessions *portmocks.MockSessionDispatcher
}

func newAutoplayFixture(t *testing.T, voiceState *mockVoiceStateProvider) *autoplayFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &autoplayFixture{
		store:    mocks.NewMockAutoplayStore(ctrl),
		sessions: portmocks.NewMockSessionDispatcher(ctrl),
	}
	if voiceState == nil {
		voiceState = &mockVoiceStateProvider{}
	}
	f.svc = NewAutoplayService(
		f.store,
		newFakeRegistry(mockStation("lofi"), mockStation("jazz")),
		f.sessions,
		voiceState,
		time.Hour,
		0,
	)
	f.svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func binding(guildID, channelID snowflake.ID, station string) domain.AutoplayBinding {
	return domain.AutoplayBinding{
		GuildID:               guildID,
		ChannelID:             channelID,
		StationName:           station,
		NotificationChannelID: testText,
	}
}

func TestAutoplayService_SetAutoplay(t *testing.T) {
	t.Run("binds and starts idle guild", func(t *testing.T) {
		f := newAutoplayFixture(t, nil)
		f.svc.Suspend(testGuild)

		f.store.EXPECT().SaveBinding(gomock.Any(), domain.AutoplayBinding{
			GuildID:               testGuild,
			ChannelID:             testChannel,
			StationName:           "lofi",
			NotificationChannelID: testText,
			UpdatedBy:             testUser,
			UpdatedAt:             f.svc.now(),
		}).Return(nil)
		f.sessions.EXPECT().Status(testGuild).Return(idleStatus())
		f.sessions.EXPECT().Dispatch(gomock.Any(), testGuild, domain.Play{
			ChannelID:             testChannel,
			StationName:           "lofi",
			NotificationChannelID: testText,
		}).Return(nil)

		out, err := f.svc.SetAutoplay(context.Background(), SetAutoplayInput{
			GuildID:               testGuild,
			UserID:                testUser,
			VoiceChannelID:        testChannel,
			StationName:           "LOFI",
			NotificationChannelID: testText,
		})
		if err != nil {
			t.Fatalf("SetAutoplay() unexpected error: %v", err)
		}
		if !out.Started {
			t.Error("Started = false, want true")
		}
		if out.Binding.StationName != "lofi" {
			t.Errorf("StationName = %q, want canonical name %q", out.Binding.StationName, "lofi")
		}
		if f.svc.isSuspended(testGuild) {
			t.Error("guild still suspended after binding")
		}
	})

	t.Run("does not interrupt a running session", func(t *testing.T) {
		voiceState := &mockVoiceStateProvider{channels: map[snowflake.ID]snowflake.ID{testUser: 55}}
		f := newAutoplayFixture(t, voiceState)

		f.store.EXPECT().SaveBinding(gomock.Any(), gomock.Any()).Return(nil)
		f.sessions.EXPECT().Status(testGuild).Return(streamingStatus("jazz", 55))

		out, err := f.svc.SetAutoplay(context.Background(), SetAutoplayInput{
			GuildID: testGuild, UserID: testUser, StationName: "lofi",
		})
		if err != nil {
			t.Fatalf("SetAutoplay() unexpected error: %v", err)
		}
		if out.Started {
			t.Error("Started = true, want false")
		}
		if out.Binding.ChannelID != 55 {
			t.Errorf("ChannelID = %d, want user's channel 55", out.Binding.ChannelID)
		}
	})

	t.Run("unknown station", func(t *testing.T) {
		f := newAutoplayFixture(t, nil)

		_, err := f.svc.SetAutoplay(context.Background(), SetAutoplayInput{
			GuildID: testGuild, UserID: testUser, VoiceChannelID: testChannel, StationName: "rock",
		})
		if !errors.Is(err, domain.ErrUnknownStation) {
			t.Errorf("SetAutoplay() error = %v, want ErrUnknownStation", err)
		}
	})

	t.Run("user not in voice", func(t *testing.T) {
		f := newAutoplayFixture(t, nil)

		_, err := f.svc.SetAutoplay(context.Background(), SetAutoplayInput{
			GuildID: testGuild, UserID: testUser, StationName: "lofi",
		})
		if !errors.Is(err, ErrUserNotInVoice) {
			t.Errorf("SetAutoplay() error = %v, want ErrUserNotInVoice", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		f := newAutoplayFixture(t, nil)
		f.store.EXPECT().SaveBinding(gomock.Any(), gomock.Any()).Return(errors.New("READONLY"))

		_, err := f.svc.SetAutoplay(context.Background(), SetAutoplayInput{
			GuildID: testGuild, UserID: testUser, VoiceChannelID: testChannel, StationName: "lofi",
		})
		if !errors.Is(err, ErrStoreFailed) {
			t.Errorf("SetAutoplay() error = %v, want ErrStoreFailed", err)
		}
	})
}

func TestAutoplayService_GetAndClear(t *testing.T) {
	f := newAutoplayFixture(t, nil)
	want := binding(testGuild, testChannel, "lofi")

	f.store.EXPECT().GetBinding(gomock.Any(), testGuild).Return(want, nil)
	f.store.EXPECT().GetBinding(gomock.Any(), snowflake.ID(1)).Return(domain.AutoplayBinding{}, domain.ErrNotFound)
	f.store.EXPECT().DeleteBinding(gomock.Any(), testGuild).Return(nil)
	f.store.EXPECT().DeleteBinding(gomock.Any(), snowflake.ID(1)).Return(domain.ErrNotFound)

	got, err := f.svc.GetAutoplay(context.Background(), testGuild)
	if err != nil || got != want {
		t.Errorf("GetAutoplay() = %+v, %v; want %+v, nil", got, err, want)
	}
	if _, err := f.svc.GetAutoplay(context.Background(), 1); !errors.Is(err, ErrNoAutoplayBinding) {
		t.Errorf("GetAutoplay() error = %v, want ErrNoAutoplayBinding", err)
	}
	if err := f.svc.ClearAutoplay(context.Background(), testGuild); err != nil {
		t.Errorf("ClearAutoplay() unexpected error: %v", err)
	}
	if err := f.svc.ClearAutoplay(context.Background(), 1); !errors.Is(err, ErrNoAutoplayBinding) {
		t.Errorf("ClearAutoplay() error = %v, want ErrNoAutoplayBinding", err)
	}
}

func TestAutoplayService_Sweep(t *testing.T) {
	const (
		idleGuild      = snowflake.ID(1)
		streamingGuild = snowflake.ID(2)
		suspendedGuild = snowflake.ID(3)
		brokenGuild    = snowflake.ID(4)
	)

	f := newAutoplayFixture(t, nil)
	f.svc.Suspend(suspendedGuild)

	f.store.EXPECT().ListBindings(gomock.Any()).Return([]domain.AutoplayBinding{
		binding(idleGuild, 10, "lofi"),
		binding(streamingGuild, 20, "lofi"),
		binding(suspendedGuild, 30, "lofi"),
		binding(brokenGuild, 40, "gone"),
	}, nil)

	f.sessions.EXPECT().Status(idleGuild).Return(domain.IdleStatus(idleGuild))
	f.sessions.EXPECT().Status(streamingGuild).Return(domain.SessionStatus{State: domain.StateStreaming})
	f.sessions.EXPECT().Status(brokenGuild).Return(domain.IdleStatus(brokenGuild))

	f.sessions.EXPECT().Dispatch(gomock.Any(), idleGuild, domain.Play{
		ChannelID: 10, StationName: "lofi", NotificationChannelID: testText,
	}).Return(nil)
	f.sessions.EXPECT().Dispatch(gomock.Any(), brokenGuild, gomock.Any()).Return(domain.ErrUnknownStation)

	started, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() unexpected error: %v", err)
	}
	if started != 1 {
		t.Errorf("Sweep() started %d guilds, want 1", started)
	}
}

func TestAutoplayService_SweepListError(t *testing.T) {
	f := newAutoplayFixture(t, nil)
	f.store.EXPECT().ListBindings(gomock.Any()).Return(nil, errors.New("connection refused"))

	if _, err := f.svc.Sweep(context.Background()); err == nil {
		t.Error("Sweep() expected error")
	}
}

func TestAutoplayService_RunStopsWithContext(t *testing.T) {
	f := newAutoplayFixture(t, nil)
	f.store.EXPECT().ListBindings(gomock.Any()).Return(nil, nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
