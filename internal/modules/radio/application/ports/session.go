package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

//go:generate mockgen -source=session.go -destination=mocks/mock_session.go -package=mocks

// SessionDispatcher routes commands to guild sessions and reports their status.
type SessionDispatcher interface {
	// Dispatch hands cmd to the guild's session. Stop and Shutdown block until
	// the session has released its voice connection.
	Dispatch(ctx context.Context, guildID snowflake.ID, cmd domain.Command) error

	// Status returns the current snapshot of the guild's session.
	Status(guildID snowflake.ID) domain.SessionStatus
}
