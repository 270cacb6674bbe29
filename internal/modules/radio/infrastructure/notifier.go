package infrastructure

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/ports"
)

// Embed colors.
const (
	colorRed  = 0xE74C3C
	colorTeal = 0x1ABC9C
)

// messageSender is the part of discordgo.Session the notifier needs.
type messageSender interface {
	ChannelMessageSendEmbed(
		channelID string,
		embed *discordgo.MessageEmbed,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
}

// Notifier sends notifications to Discord channels.
type Notifier struct {
	sender messageSender
	now    func() time.Time
}

// Ensure Notifier implements ports.NotificationSender.
var _ ports.NotificationSender = (*Notifier)(nil)

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session) *Notifier {
	return newNotifier(session)
}

func newNotifier(sender messageSender) *Notifier {
	return &Notifier{sender: sender, now: time.Now}
}

// SendStationStarted sends a "Now Streaming" embed to the channel.
func (n *Notifier) SendStationStarted(channelID snowflake.ID, info *ports.StationStartedInfo) error {
	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name: "Now Streaming",
		},
		Title:     info.StationName,
		URL:       info.StationURL,
		Color:     colorTeal,
		Timestamp: n.now().UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Channel",
				Value:  fmt.Sprintf("<#%d>", info.ChannelID),
				Inline: true,
			},
		},
	}

	// Seeded stations have no author.
	if info.AddedBy != 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Added by",
			Value:  fmt.Sprintf("<@%d>", info.AddedBy),
			Inline: true,
		})
	}

	_, err := n.sender.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

// SendError sends an error message embed to the channel.
func (n *Notifier) SendError(channelID snowflake.ID, message string) error {
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       colorRed,
	}

	_, err := n.sender.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}
