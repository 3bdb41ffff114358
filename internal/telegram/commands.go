package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"
)

// handleBotCommand handles /start, /stop and /help. Unknown commands are
// ignored so the bot stays quiet in groups with other bots.
func (c *Channel) handleBotCommand(ctx context.Context, msg *telego.Message) {
	// Strip arguments and the @botname suffix used in groups.
	cmd := strings.SplitN(msg.Text, " ", 2)[0]
	cmd = strings.SplitN(cmd, "@", 2)[0]
	cmd = strings.ToLower(cmd)

	chatID := msg.Chat.ID

	switch cmd {
	case "/start":
		if err := c.activations.Activate(ctx, chatID); err != nil {
			slog.Error("activate chat failed", "chat_id", chatID, "error", err)
		}
		slog.Info("chat activated", "chat_id", chatID, "user_id", senderID(msg))
		c.reply(ctx, chatID, 0, fmt.Sprintf(msgStartFmt, senderName(msg)))

	case "/stop":
		if err := c.activations.Deactivate(ctx, chatID); err != nil {
			slog.Error("deactivate chat failed", "chat_id", chatID, "error", err)
		}
		slog.Info("chat deactivated", "chat_id", chatID, "user_id", senderID(msg))
		c.reply(ctx, chatID, 0, msgStop)

	case "/help":
		slog.Info("help requested", "chat_id", chatID, "user_id", senderID(msg))
		c.reply(ctx, chatID, 0, msgHelp)

	default:
		slog.Debug("unknown command ignored", "chat_id", chatID, "command", cmd)
	}
}

func senderName(msg *telego.Message) string {
	if msg.From == nil {
		return "друг"
	}
	name := msg.From.FirstName
	if msg.From.LastName != "" {
		name += " " + msg.From.LastName
	}
	return name
}

func senderID(msg *telego.Message) int64 {
	if msg.From == nil {
		return 0
	}
	return msg.From.ID
}
