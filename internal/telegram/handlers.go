package telegram

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/qzbx-cloud/avision/internal/pipeline"
)

// handleMessage routes one incoming message: commands first, then supported
// media into the pipeline, then the fixed reply for unsupported attachments.
func (c *Channel) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg.Text != "" && strings.HasPrefix(msg.Text, "/") {
		c.handleBotCommand(ctx, msg)
		return
	}

	ev, found := classifyMedia(msg)
	if !found {
		if hasUnsupportedMedia(msg) && c.activations.IsActive(ctx, msg.Chat.ID) {
			c.reply(ctx, msg.Chat.ID, msg.MessageID, msgUnsupported)
		}
		return
	}

	if !c.activations.IsActive(ctx, msg.Chat.ID) {
		slog.Debug("chat inactive, ignoring media", "chat_id", msg.Chat.ID)
		return
	}

	if ev.GroupID != "" {
		c.aggregator.Ingest(ev)
		return
	}

	// Ungrouped events skip the debounce entirely. Each one runs as its own
	// task so a slow describe call never blocks the update loop.
	go c.dispatcher.Process(c.pollCtx, []pipeline.MediaEvent{ev})
}

// classifyMedia extracts a MediaEvent from a message carrying a supported
// media kind. Photos use the highest-resolution size (last element).
func classifyMedia(msg *telego.Message) (pipeline.MediaEvent, bool) {
	ev := pipeline.MediaEvent{
		ChatID:  msg.Chat.ID,
		GroupID: msg.MediaGroupID,
		Seq:     msg.MessageID,
	}

	switch {
	case len(msg.Photo) > 0:
		ev.Kind = pipeline.KindPhoto
		ev.FileRef = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Video != nil:
		ev.Kind = pipeline.KindVideo
		ev.FileRef = msg.Video.FileID
	case msg.Voice != nil:
		ev.Kind = pipeline.KindVoice
		ev.FileRef = msg.Voice.FileID
	default:
		return pipeline.MediaEvent{}, false
	}
	return ev, true
}

// hasUnsupportedMedia reports whether the message carries media the bot
// declines with a fixed reply. Stickers, contacts and the like are ignored
// silently instead.
func hasUnsupportedMedia(msg *telego.Message) bool {
	return msg.Audio != nil || msg.Document != nil
}

// handleMyChatMember sends the group welcome once the bot has been promoted
// to administrator, which is what lets it see and answer media in groups.
func (c *Channel) handleMyChatMember(ctx context.Context, event *telego.ChatMemberUpdated) {
	oldStatus := event.OldChatMember.MemberStatus()
	newStatus := event.NewChatMember.MemberStatus()

	slog.Info("bot chat member status changed",
		"chat_id", event.Chat.ID,
		"old_status", oldStatus,
		"new_status", newStatus,
	)

	if newStatus == telego.MemberStatusAdministrator && oldStatus != telego.MemberStatusAdministrator {
		c.reply(ctx, event.Chat.ID, 0, msgGroupWelcome)
	}
}
