package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

//go:generate mockgen -source=notification.go -destination=mocks/mock_notification.go -package=mocks

// StationStartedInfo contains what the "Now Streaming" notification shows.
type StationStartedInfo struct {
	StationName string
	StationURL  string
	ChannelID   snowflake.ID
	AddedBy     snowflake.ID
}

// NotificationSender defines the interface for sending notifications to Discord channels.
type NotificationSender interface {
	// SendStationStarted announces that a station started streaming.
	SendStationStarted(channelID snowflake.ID, info *StationStartedInfo) error

	// SendError sends an error message embed to the channel.
	SendError(channelID snowflake.ID, message string) error
}
