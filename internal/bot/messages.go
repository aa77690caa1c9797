package bot

import (
	"strings"
	"unicode/utf8"
)

// messageLimit is Telegram's maximum message length in characters.
const messageLimit = 4096

// splitMessage cuts text into chunks of at most limit characters, breaking
// at line ends where possible.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0
	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		lineLen := utf8.RuneCountInString(line)
		if currentLen+lineLen > limit {
			flush()
		}
		for lineLen > limit {
			runes := []rune(line)
			chunks = append(chunks, string(runes[:limit]))
			line = string(runes[limit:])
			lineLen -= limit
		}
		current.WriteString(line)
		currentLen += lineLen
	}
	flush()
	return chunks
}
