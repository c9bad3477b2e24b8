package source

import "strings"

// Wrap splits text into lines of at most width characters, breaking on
// whitespace and splitting words that are longer than a whole line.
func Wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, string(cur))
			cur = cur[:0]
		}
	}

	for _, w := range words {
		word := []rune(w)

		if len(cur) > 0 && len(cur)+1+len(word) <= width {
			cur = append(cur, ' ')
			cur = append(cur, word...)
			continue
		}

		flush()
		for len(word) > width {
			lines = append(lines, string(word[:width]))
			word = word[width:]
		}
		cur = append(cur, word...)
	}
	flush()

	return lines
}
