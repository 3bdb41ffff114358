package gemini

import (
	"fmt"

	"github.com/qzbx-cloud/avision/internal/pipeline"
)

// mediaPrompt asks for a plain, friendly description aimed at a visually
// impaired reader.
const mediaPrompt = `Опиши это изображение/видео для человека с нарушением зрения. Будь максимально точен, простой и дружелюбный. Укажи:
- Кто или что изображено;
- Где это расположено;
- Какого цвета и формы предметы;
- Что написано на фото, если есть текст.
Твой ответ не должен содержать элементы форматирования текста.
Твой ответ - описание, никаких технических деталей
`

// voicePrompt requests a verbatim transcription with no commentary.
const voicePrompt = "Твоя задача — дословно транскрибировать это голосовое сообщение. Ответ должен содержать только текст из сообщения, без каких-либо дополнительных фраз или форматирования."

// selectPrompt is pure and evaluated once per request: a single voice item
// gets the transcription prompt verbatim; an album gets the description
// prompt plus an item count instructing one consolidated answer; a single
// photo or video gets the description prompt verbatim.
func selectPrompt(media []pipeline.ResolvedMedia) string {
	if len(media) == 1 && media[0].Kind == pipeline.KindVoice {
		return voicePrompt
	}
	if len(media) > 1 {
		return fmt.Sprintf("%s\n\nНиже %d медиафайлов. Опиши их все вместе в одном ответе.", mediaPrompt, len(media))
	}
	return mediaPrompt
}
