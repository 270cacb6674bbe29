package application

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/sglre6355/sgrradio/internal/modules/radio/application/ports"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

// NotificationEventHandler tells a guild's notification channel what its radio is doing.
type NotificationEventHandler struct {
	notifier   ports.NotificationSender
	subscriber ports.EventSubscriber
}

// NewNotificationEventHandler creates a new NotificationEventHandler.
func NewNotificationEventHandler(
	notifier ports.NotificationSender,
	subscriber ports.EventSubscriber,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		notifier:   notifier,
		subscriber: subscriber,
	}
}

// Start registers event handlers with the subscriber.
func (h *NotificationEventHandler) Start() error {
	err := h.subscriber.Subscribe(
		reflect.TypeFor[domain.StationStartedEvent](),
		func(ctx context.Context, e domain.Event) {
			h.handleStationStarted(ctx, e.(domain.StationStartedEvent))
		},
	)
	if err != nil {
		return err
	}

	err = h.subscriber.Subscribe(
		reflect.TypeFor[domain.SessionStateChangedEvent](),
		func(ctx context.Context, e domain.Event) {
			h.handleStateChanged(ctx, e.(domain.SessionStateChangedEvent))
		},
	)
	if err != nil {
		return err
	}

	err = h.subscriber.Subscribe(
		reflect.TypeFor[domain.ReconnectExhaustedEvent](),
		func(ctx context.Context, e domain.Event) {
			h.handleReconnectExhausted(ctx, e.(domain.ReconnectExhaustedEvent))
		},
	)
	if err != nil {
		return err
	}

	slog.Debug("notification event handlers properly registered")

	return nil
}

func (h *NotificationEventHandler) handleStationStarted(_ context.Context, event domain.StationStartedEvent) {
	// Reconnects are silent; the channel already saw the station start once.
	if event.Resumed || event.NotificationChannelID == 0 {
		return
	}

	err := h.notifier.SendStationStarted(event.NotificationChannelID, &ports.StationStartedInfo{
		StationName: event.Station.Name,
		StationURL:  event.Station.URL,
		ChannelID:   event.ChannelID,
		AddedBy:     event.Station.AddedBy,
	})
	if err != nil {
		slog.Warn("failed to send station started notification", "guild", event.GuildID, "error", err)
	}
}

func (h *NotificationEventHandler) handleStateChanged(_ context.Context, event domain.SessionStateChangedEvent) {
	if event.To != domain.StateReconnecting || event.Attempt != 1 || event.NotificationChannelID == 0 {
		return
	}

	message := "Lost the radio connection, reconnecting..."
	if event.Station != nil {
		message = fmt.Sprintf("Lost the connection to **%s**, reconnecting...", event.Station.Name)
	}
	if err := h.notifier.SendError(event.NotificationChannelID, message); err != nil {
		slog.Warn("failed to send reconnect notification", "guild", event.GuildID, "error", err)
	}
}

func (h *NotificationEventHandler) handleReconnectExhausted(_ context.Context, event domain.ReconnectExhaustedEvent) {
	if event.NotificationChannelID == 0 {
		return
	}

	name := "the radio"
	if event.Station != nil {
		name = fmt.Sprintf("**%s**", event.Station.Name)
	}
	message := fmt.Sprintf("Gave up reconnecting to %s after %d attempts.", name, event.Attempts)

	if err := h.notifier.SendError(event.NotificationChannelID, message); err != nil {
		slog.Warn("failed to send reconnect failure notification", "guild", event.GuildID, "error", err)
	}
}
