package pipeline

// DefaultChunkLimit matches the Telegram message length cap.
const DefaultChunkLimit = 4096

// Split breaks text into ordered segments of at most limit characters each,
// preferring to cut at the last line break within the limit, then at the last
// space, and falling back to a hard cut so that pathological input (one long
// run with no breaks) still terminates. Leading whitespace of each remainder
// is trimmed. Text that already fits is returned as the sole chunk.
//
// Limits count runes, not bytes: the platform cap is in characters and a cut
// must never land inside a multi-byte sequence.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > limit {
		cut := lastIndexBefore(runes, limit, '\n')
		if cut < 0 {
			cut = lastIndexBefore(runes, limit, ' ')
		}
		if cut < 0 {
			cut = limit
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = trimLeadingSpace(runes[cut:])
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// lastIndexBefore returns the index of the last occurrence of sep within
// runes[1:limit+1], or -1 when absent. A cut at index i keeps runes[:i] in
// the current chunk; index 0 is excluded so a chunk is never empty.
func lastIndexBefore(runes []rune, limit int, sep rune) int {
	end := limit
	if end >= len(runes) {
		end = len(runes) - 1
	}
	for i := end; i >= 1; i-- {
		if runes[i] == sep {
			return i
		}
	}
	return -1
}

func trimLeadingSpace(runes []rune) []rune {
	i := 0
	for i < len(runes) && (runes[i] == ' ' || runes[i] == '\n' || runes[i] == '\t' || runes[i] == '\r') {
		i++
	}
	return runes[i:]
}
