package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// SessionState is the lifecycle state of a guild's voice session.
type SessionState int

const (
	// StateIdle means no connection; the initial state and the state after Stop.
	StateIdle SessionState = iota
	// StateConnecting means a voice connection attempt is in flight.
	StateConnecting
	// StateStreaming means the voice connection is up and a station is being piped into it.
	StateStreaming
	// StateReconnecting means the previous connection failed and a retry is scheduled.
	StateReconnecting
	// StateStopping means teardown is in flight.
	StateStopping
	// StateTerminated means the session was shut down and accepts no more commands.
	StateTerminated
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateReconnecting:
		return "reconnecting"
	case StateStopping:
		return "stopping"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// IsActive reports whether the session holds, or is trying to hold, a voice connection.
func (s SessionState) IsActive() bool {
	return s == StateConnecting || s == StateStreaming || s == StateReconnecting
}

// NowPlaying describes the track a stream is currently feeding into the voice connection.
type NowPlaying struct {
	Title     string
	Artist    string
	URI       string
	IsStream  bool
	Duration  time.Duration
	StartedAt time.Time
}

// SessionStatus is a point-in-time snapshot of a guild session.
type SessionStatus struct {
	GuildID               snowflake.ID
	State                 SessionState
	Station               *Station
	ChannelID             snowflake.ID
	NotificationChannelID snowflake.ID
	Generation            uint64
	Attempt               int
	LastError             error
	Since                 time.Time
	NowPlaying            *NowPlaying
}

// IdleStatus is the status reported for a guild without a session.
func IdleStatus(guildID snowflake.ID) SessionStatus {
	return SessionStatus{GuildID: guildID, State: StateIdle}
}

// StationName returns the name of the session's station, or "" if it has none.
func (s SessionStatus) StationName() string {
	if s.Station == nil {
		return ""
	}
	return s.Station.Name
}
