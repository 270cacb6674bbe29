package ports

import "github.com/sglre6355/sgrradio/internal/modules/radio/domain"

// EventPublisher defines the interface for publishing events asynchronously.
type EventPublisher interface {
	Publish(event domain.Event) error
}
