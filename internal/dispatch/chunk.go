package dispatch

// DefaultMessageLimit is used for adapters that do not report a limit.
const DefaultMessageLimit = 2000

// chunkMessage splits text into pieces of at most maxLen runes, breaking at
// a newline in the second half of a piece when there is one. The newline
// at a break is dropped.
func chunkMessage(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMessageLimit
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(runes) > 0 {
		if len(runes) <= maxLen {
			chunks = append(chunks, string(runes))
			break
		}

		breakAt := -1
		for i := maxLen - 1; i >= maxLen/2; i-- {
			if runes[i] == '\n' {
				breakAt = i
				break
			}
		}

		if breakAt >= 0 {
			chunks = append(chunks, string(runes[:breakAt]))
			runes = runes[breakAt+1:]
		} else {
			chunks = append(chunks, string(runes[:maxLen]))
			runes = runes[maxLen:]
		}
	}
	return chunks
}
