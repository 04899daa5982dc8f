package alerts

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackNotifier posts alerts to one Slack channel.
type SlackNotifier struct {
	client  slackClient
	channel string
}

// NewSlack creates a SlackNotifier from a bot token and channel ID.
func NewSlack(token, channel string) (*SlackNotifier, error) {
	if token == "" || channel == "" {
		return nil, fmt.Errorf("alerts: slack token and channel are required")
	}
	return &SlackNotifier{client: slackapi.New(token), channel: channel}, nil
}

// Name identifies the destination in dispatcher logs.
func (s *SlackNotifier) Name() string { return "slack" }

// Notify posts one message. The subject renders bold above the body.
func (s *SlackNotifier) Notify(ctx context.Context, subject, body string) error {
	text := fmt.Sprintf("*%s*\n%s", subject, body)
	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("alerts: slack post: %w", err)
	}
	return nil
}
