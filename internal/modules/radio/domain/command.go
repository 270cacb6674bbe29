package domain

import (
	"fmt"

	"github.com/disgoorg/snowflake/v2"
)

// Command is an instruction for a guild session. Commands are immutable values
// applied one at a time in arrival order.
type Command interface {
	fmt.Stringer
	command()
}

// Play connects to ChannelID and streams the named station.
type Play struct {
	ChannelID   snowflake.ID
	StationName string
	// NotificationChannelID is the text channel that receives session notices.
	// Zero keeps the channel the session already reports to.
	NotificationChannelID snowflake.ID
}

// SwitchStation swaps the station without touching the voice connection.
type SwitchStation struct {
	StationName string
}

// Skip advances a multi-track station to its next track.
type Skip struct{}

// Stop tears the session down to idle.
type Stop struct{}

// Shutdown tears the session down and terminates it.
type Shutdown struct{}

func (Play) command()          {}
func (SwitchStation) command() {}
func (Skip) command()          {}
func (Stop) command()          {}
func (Shutdown) command()      {}

func (c Play) String() string {
	return fmt.Sprintf("play(channel=%d, station=%q)", c.ChannelID, c.StationName)
}

func (c SwitchStation) String() string {
	return fmt.Sprintf("switch(station=%q)", c.StationName)
}

func (Skip) String() string     { return "skip" }
func (Stop) String() string     { return "stop" }
func (Shutdown) String() string { return "shutdown" }

// IsTerminal reports whether the command ends the session's activity.
// Callers dispatching a terminal command wait for teardown to complete.
func IsTerminal(c Command) bool {
	switch c.(type) {
	case Stop, Shutdown:
		return true
	default:
		return false
	}
}
