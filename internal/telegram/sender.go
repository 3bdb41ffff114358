package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/qzbx-cloud/avision/internal/pipeline"
)

// SendPresence shows a working indicator in the chat: "recording voice" for
// voice transcription, "typing" otherwise. Best-effort by contract; callers
// swallow the error.
func (c *Channel) SendPresence(ctx context.Context, chatID int64, kind pipeline.Kind) error {
	action := telego.ChatActionTyping
	if kind == pipeline.KindVoice {
		action = telego.ChatActionRecordVoice
	}
	return c.bot.SendChatAction(ctx, tu.ChatAction(tu.ID(chatID), action))
}

// SendText delivers one message, threading it as a reply when replyTo is
// set. The shared limiter keeps the bot under the Bot API's global send
// quota; chunk pacing within one result is the dispatcher's concern.
func (c *Channel) SendText(ctx context.Context, chatID int64, replyTo int, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	msg := tu.Message(tu.ID(chatID), text)
	if replyTo > 0 {
		msg.ReplyParameters = &telego.ReplyParameters{MessageID: replyTo}
	}

	if _, err := c.bot.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	return nil
}

// reply is SendText with the error reduced to a log record, for command and
// notice replies where there is nothing better to do on failure.
func (c *Channel) reply(ctx context.Context, chatID int64, replyTo int, text string) {
	if err := c.SendText(ctx, chatID, replyTo, text); err != nil {
		slog.Error("reply failed", "chat_id", chatID, "error", err)
	}
}
