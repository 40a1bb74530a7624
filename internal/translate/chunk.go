package translate

import (
	"fmt"
	"regexp"
	"strings"
)

const placeholderPrefix = "CODE_BLOCK_"

var (
	fencePattern    = regexp.MustCompile("```[\\s\\S]*?```")
	sentencePattern = regexp.MustCompile(`[.!?]\s+`)
)

// protectCode replaces fenced code blocks with numbered placeholders.
func protectCode(text string) (string, []string) {
	var blocks []string
	replaced := fencePattern.ReplaceAllStringFunc(text, func(match string) string {
		blocks = append(blocks, match)
		return fmt.Sprintf("%s%d", placeholderPrefix, len(blocks)-1)
	})
	return replaced, blocks
}

// restoreCode swaps placeholders back in descending index order so
// CODE_BLOCK_1 never clobbers the prefix of CODE_BLOCK_10.
func restoreCode(text string, blocks []string) string {
	for i := len(blocks) - 1; i >= 0; i-- {
		text = strings.ReplaceAll(text, fmt.Sprintf("%s%d", placeholderPrefix, i), blocks[i])
	}
	return text
}

// splitSentences breaks text after terminal punctuation followed by whitespace.
func splitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, loc := range sentencePattern.FindAllStringIndex(text, -1) {
		sentences = append(sentences, text[last:loc[0]+1])
		last = loc[1]
	}
	if last < len(text) {
		sentences = append(sentences, text[last:])
	}
	return sentences
}

// chunkText groups sentences into chunks no longer than maxLen bytes.
// Sentences longer than maxLen are split on word boundaries, and single
// words longer than maxLen are cut.
func chunkText(text string, maxLen int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxLen <= 0 || len(text) <= maxLen {
		return []string{text}
	}
	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	add := func(piece string) {
		if current.Len() > 0 && current.Len()+1+len(piece) > maxLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(piece)
	}
	for _, sentence := range splitSentences(text) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if len(sentence) <= maxLen {
			add(sentence)
			continue
		}
		for _, word := range strings.Fields(sentence) {
			for len(word) > maxLen {
				flush()
				cut := runeBoundary(word, maxLen)
				chunks = append(chunks, word[:cut])
				word = word[cut:]
			}
			add(word)
		}
	}
	flush()
	return chunks
}

// runeBoundary returns the largest index <= limit that does not split a rune.
func runeBoundary(s string, limit int) int {
	for limit > 0 && limit < len(s) && !isRuneStart(s[limit]) {
		limit--
	}
	if limit == 0 {
		return 1
	}
	return limit
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
