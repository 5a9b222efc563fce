package markdown

import (
	"github.com/mattn/go-runewidth"
)

// fragment is a word followed by the run of spaces separating it from the
// next one.
type fragment struct {
	start, end int // word boundaries in the source text
	width      int
	spaces     int
}

func splitWords(text string) []fragment {
	var words []fragment
	for pos := 0; pos < len(text); {
		f := fragment{start: pos}
		for pos < len(text) && text[pos] != ' ' {
			pos++
		}
		f.end = pos
		for pos < len(text) && text[pos] == ' ' {
			pos++
			f.spaces++
		}
		f.width = runewidth.StringWidth(text[f.start:f.end])
		words = append(words, f)
	}
	return words
}

// Wrap breaks text into lines no wider than width columns (measured as
// terminal display width, prefixes included). Words are separated by ASCII
// spaces only, lines are packed greedily and words are never split or
// hyphenated, so a single word wider than available space overflows its line.
// First line is prefixed with first, all following lines with rest.
func Wrap(text string, width int, first, rest string) []string {
	words := splitWords(text)
	if len(words) == 0 {
		return nil
	}

	limits := [2]int{
		max(width-runewidth.StringWidth(first), 0),
		max(width-runewidth.StringWidth(rest), 0),
	}

	var (
		lines []string
		start int
		used  int
	)
	emit := func(from, to int) {
		prefix := rest
		if len(lines) == 0 {
			prefix = first
		}
		lines = append(lines, prefix+text[words[from].start:words[to-1].end])
	}
	for i, w := range words {
		limit := limits[min(len(lines), 1)]
		if used+w.width > limit && i > start {
			emit(start, i)
			start, used = i, 0
		}
		used += w.width + w.spaces
	}
	emit(start, len(words))
	return lines
}
