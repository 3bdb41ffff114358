package telegram

import (
	"testing"

	"github.com/mymmrac/telego"

	"github.com/qzbx-cloud/avision/internal/pipeline"
)

// TestClassifyMedia verifies kind detection, file reference extraction and
// the chat/group/sequence metadata carried into the pipeline.
func TestClassifyMedia(t *testing.T) {
	tests := []struct {
		name     string
		msg      *telego.Message
		wantKind pipeline.Kind
		wantRef  string
		found    bool
	}{
		{
			name: "photo picks highest resolution",
			msg: &telego.Message{
				MessageID: 11,
				Chat:      telego.Chat{ID: 5},
				Photo: []telego.PhotoSize{
					{FileID: "thumb", Width: 90},
					{FileID: "medium", Width: 320},
					{FileID: "full", Width: 1280},
				},
			},
			wantKind: pipeline.KindPhoto,
			wantRef:  "full",
			found:    true,
		},
		{
			name: "video",
			msg: &telego.Message{
				MessageID: 12,
				Chat:      telego.Chat{ID: 5},
				Video:     &telego.Video{FileID: "vid-1"},
			},
			wantKind: pipeline.KindVideo,
			wantRef:  "vid-1",
			found:    true,
		},
		{
			name: "voice",
			msg: &telego.Message{
				MessageID: 13,
				Chat:      telego.Chat{ID: 5},
				Voice:     &telego.Voice{FileID: "voice-1"},
			},
			wantKind: pipeline.KindVoice,
			wantRef:  "voice-1",
			found:    true,
		},
		{
			name:  "plain text",
			msg:   &telego.Message{MessageID: 14, Chat: telego.Chat{ID: 5}, Text: "привет"},
			found: false,
		},
		{
			name:  "document is not a pipeline kind",
			msg:   &telego.Message{MessageID: 15, Chat: telego.Chat{ID: 5}, Document: &telego.Document{FileID: "doc"}},
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, found := classifyMedia(tt.msg)
			if found != tt.found {
				t.Fatalf("found = %t, want %t", found, tt.found)
			}
			if !found {
				return
			}
			if ev.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", ev.Kind, tt.wantKind)
			}
			if ev.FileRef != tt.wantRef {
				t.Errorf("FileRef = %q, want %q", ev.FileRef, tt.wantRef)
			}
			if ev.ChatID != tt.msg.Chat.ID || ev.Seq != tt.msg.MessageID {
				t.Errorf("metadata = chat %d seq %d, want chat %d seq %d",
					ev.ChatID, ev.Seq, tt.msg.Chat.ID, tt.msg.MessageID)
			}
		})
	}
}

// TestClassifyMedia_CarriesGroupID verifies that album membership flows into
// the event so the router can choose aggregation over direct dispatch.
func TestClassifyMedia_CarriesGroupID(t *testing.T) {
	msg := &telego.Message{
		MessageID:    20,
		Chat:         telego.Chat{ID: 1},
		MediaGroupID: "album-7",
		Photo:        []telego.PhotoSize{{FileID: "p"}},
	}
	ev, found := classifyMedia(msg)
	if !found {
		t.Fatal("photo not classified")
	}
	if ev.GroupID != "album-7" {
		t.Errorf("GroupID = %q, want album-7", ev.GroupID)
	}
}

// TestHasUnsupportedMedia verifies which attachments get the fixed
// "supported formats" reply versus silent ignore.
func TestHasUnsupportedMedia(t *testing.T) {
	tests := []struct {
		name string
		msg  *telego.Message
		want bool
	}{
		{name: "audio", msg: &telego.Message{Audio: &telego.Audio{FileID: "a"}}, want: true},
		{name: "document", msg: &telego.Message{Document: &telego.Document{FileID: "d"}}, want: true},
		{name: "sticker ignored silently", msg: &telego.Message{Sticker: &telego.Sticker{FileID: "s"}}, want: false},
		{name: "text", msg: &telego.Message{Text: "hi"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasUnsupportedMedia(tt.msg); got != tt.want {
				t.Errorf("hasUnsupportedMedia = %t, want %t", got, tt.want)
			}
		})
	}
}
