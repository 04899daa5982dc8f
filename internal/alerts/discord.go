package alerts

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo methods we use, enabling test mocks.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts alerts to one Discord channel over the REST API.
// No gateway connection is opened; message sends do not need one.
type DiscordNotifier struct {
	sess    discordSession
	channel string
}

// NewDiscord creates a DiscordNotifier from a bot token and channel ID.
func NewDiscord(token, channel string) (*DiscordNotifier, error) {
	if token == "" || channel == "" {
		return nil, fmt.Errorf("alerts: discord token and channel are required")
	}
	sess, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("alerts: discord session: %w", err)
	}
	return &DiscordNotifier{sess: sess, channel: channel}, nil
}

// Name identifies the destination in dispatcher logs.
func (d *DiscordNotifier) Name() string { return "discord" }

// Notify posts one message.
func (d *DiscordNotifier) Notify(ctx context.Context, subject, body string) error {
	content := fmt.Sprintf("**%s**\n%s", subject, body)
	_, err := d.sess.ChannelMessageSend(d.channel, content, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("alerts: discord send: %w", err)
	}
	return nil
}
