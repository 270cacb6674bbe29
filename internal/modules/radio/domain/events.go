package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Event is implemented by everything published on the module's event bus.
type Event interface {
	EventGuildID() snowflake.ID
}

// SessionStateChangedEvent is published on every session state transition.
type SessionStateChangedEvent struct {
	GuildID               snowflake.ID
	From                  SessionState
	To                    SessionState
	Generation            uint64
	Station               *Station
	ChannelID             snowflake.ID
	NotificationChannelID snowflake.ID
	// Attempt and Delay are set when entering StateReconnecting.
	Attempt int
	Delay   time.Duration
	Err     error
}

// StationStartedEvent is published when a station's stream starts feeding a voice connection.
type StationStartedEvent struct {
	GuildID               snowflake.ID
	Station               Station
	ChannelID             snowflake.ID
	NotificationChannelID snowflake.ID
	// Resumed is true when the stream restarted after a reconnect rather than a user command.
	Resumed bool
}

// ReconnectExhaustedEvent is published when a session gives up and returns to idle.
type ReconnectExhaustedEvent struct {
	GuildID               snowflake.ID
	Station               *Station
	ChannelID             snowflake.ID
	NotificationChannelID snowflake.ID
	Attempts              int
	Err                   error
}

func (e SessionStateChangedEvent) EventGuildID() snowflake.ID { return e.GuildID }
func (e StationStartedEvent) EventGuildID() snowflake.ID      { return e.GuildID }
func (e ReconnectExhaustedEvent) EventGuildID() snowflake.ID  { return e.GuildID }
