package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordNotifier posts events to a Discord channel. The session is used for
// REST calls only, no gateway connection is opened.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
	logger    *zap.Logger
}

// NewDiscord creates a Discord notifier from a bot token and channel ID.
func NewDiscord(botToken, channelID string, logger *zap.Logger) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordNotifier{session: session, channelID: channelID, logger: logger}, nil
}

func (d *DiscordNotifier) BigRewardClaimed(ctx context.Context, usuarioID, premio string) error {
	text := fmt.Sprintf("🎉 Premio grande del día reclamado por `%s`: %s", usuarioID, premio)
	return d.send(ctx, text)
}

func (d *DiscordNotifier) CatalogReplaced(ctx context.Context, count int) error {
	return d.send(ctx, fmt.Sprintf("🔄 Lista de cajeros reemplazada (%d cajeros)", count))
}

func (d *DiscordNotifier) send(ctx context.Context, text string) error {
	_, err := d.session.ChannelMessageSend(d.channelID, text, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	d.logger.Debug("discord notification sent", zap.String("channel", d.channelID))
	return nil
}
