package usecases

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

// Re-export domain types for presentation layer use.

// Station is an alias for domain.Station.
type Station = domain.Station

// SessionStatus is an alias for domain.SessionStatus.
type SessionStatus = domain.SessionStatus

// SessionState is an alias for domain.SessionState.
type SessionState = domain.SessionState

// AutoplayBinding is an alias for domain.AutoplayBinding.
type AutoplayBinding = domain.AutoplayBinding

// Volume bounds accepted by SetVolume.
const (
	MinVolume = 1
	MaxVolume = 1000
)

// AutoplayGate lets playback commands pause and re-arm a guild's autoplay.
type AutoplayGate interface {
	Suspend(guildID snowflake.ID)
	Resume(guildID snowflake.ID)
}
