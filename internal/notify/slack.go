package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackNotifier posts events to a Slack channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
	logger  *zap.Logger
}

// NewSlack creates a Slack notifier. botToken is the Bot User OAuth Token
// (xoxb-...), channel the target channel ID or name.
func NewSlack(botToken, channel string, logger *zap.Logger) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(botToken),
		channel: channel,
		logger:  logger,
	}
}

func (s *SlackNotifier) BigRewardClaimed(ctx context.Context, usuarioID, premio string) error {
	text := fmt.Sprintf(":tada: Premio grande del día reclamado por `%s`: %s", usuarioID, premio)
	return s.post(ctx, text)
}

func (s *SlackNotifier) CatalogReplaced(ctx context.Context, count int) error {
	text := fmt.Sprintf(":arrows_counterclockwise: Lista de cajeros reemplazada (%d cajeros)", count)
	return s.post(ctx, text)
}

func (s *SlackNotifier) post(ctx context.Context, text string) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	s.logger.Debug("slack notification sent", zap.String("channel", s.channel))
	return nil
}
