// Package markdown keeps rendering state of a Markdown document being
// produced line by line: pending inline text, block prefixes and blank line
// bookkeeping.
package markdown

import (
	"io"
	"strings"
)

// DefaultWidth is the column budget used when wrapping paragraphs.
const DefaultWidth = 80

const fence = "```"

// Writer renders blocks of text into the underlying io.Writer.
//
// Every block line starts with a prefix. The first line after a list marker
// has been pushed uses the "current" prefix which contains the marker, all
// following lines use the "continuation" prefix which keeps text aligned
// under the first one. Both prefixes always have the same length.
type Writer struct {
	w     io.Writer
	width int

	text strings.Builder

	current      string
	continuation string
	marker       bool

	needBlank    bool
	lastNonBlank bool
}

// NewWriter returns Writer wrapping paragraphs at width columns. Non-positive
// width selects DefaultWidth.
func NewWriter(w io.Writer, width int) *Writer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Writer{w: w, width: width}
}

// WriteString appends inline text to the pending buffer.
func (w *Writer) WriteString(s string) {
	w.text.WriteString(s)
}

// Pending returns accumulated inline text.
func (w *Writer) Pending() string {
	return w.text.String()
}

// RequestBlank asks for a single blank line before the next line written.
func (w *Writer) RequestBlank() {
	w.needBlank = true
}

// Prefixes returns current and continuation prefixes.
func (w *Writer) Prefixes() (string, string) {
	return w.current, w.continuation
}

func (w *Writer) emit(line string) error {
	_, err := io.WriteString(w.w, line+"\n")
	return err
}

func (w *Writer) consumeMarker() {
	if w.marker {
		w.marker = false
		w.current = w.continuation
	}
}

func (w *Writer) blank() error {
	if !w.needBlank {
		return nil
	}
	w.needBlank = false
	return w.WriteLine("")
}

// WriteLine writes a single line using current prefix. Empty line outside of
// prefixed block is only written when previous line was not blank, inside of
// a prefixed block it becomes the prefix itself (for example ">").
func (w *Writer) WriteLine(s string) error {
	if err := w.blank(); err != nil {
		return err
	}
	s = strings.TrimRight(s, " \t")
	switch prefix := strings.TrimRight(w.current, " "); {
	case s != "":
		if err := w.emit(w.current + s); err != nil {
			return err
		}
		w.lastNonBlank = true
	case prefix != "":
		if err := w.emit(prefix); err != nil {
			return err
		}
		w.lastNonBlank = true
	case w.lastNonBlank:
		w.lastNonBlank = false
		if err := w.emit(""); err != nil {
			return err
		}
	}
	w.consumeMarker()
	return nil
}

// Flush writes pending text as a wrapped paragraph, or as fenced code block
// when code is set, and clears the buffer.
func (w *Writer) Flush(code bool) error {
	if err := w.blank(); err != nil {
		return err
	}
	if code {
		if err := w.WriteLine(fence); err != nil {
			return err
		}
	}
	text := strings.TrimSpace(w.text.String())
	w.text.Reset()
	if text != "" {
		for _, line := range Wrap(text, w.width, w.current, w.continuation) {
			if err := w.emit(line); err != nil {
				return err
			}
			w.lastNonBlank = true
			w.consumeMarker()
		}
	}
	if code {
		if err := w.WriteLine(fence); err != nil {
			return err
		}
	}
	return nil
}

// Indent pushes marker followed by a space onto the line prefixes for the
// duration of fn. Quote markers are repeated on every line, other markers
// (list bullets, ordinals) appear on the first line only and continuation
// lines are aligned with spaces.
func (w *Writer) Indent(marker string, quote bool, fn func() error) error {
	if err := w.blank(); err != nil {
		return err
	}
	saved := len(w.current)
	w.marker = true
	w.current += marker + " "
	if quote {
		w.continuation += marker + " "
	} else {
		w.continuation += strings.Repeat(" ", len(w.current)-len(w.continuation))
	}
	if err := fn(); err != nil {
		return err
	}
	w.current = w.current[:saved]
	w.continuation = w.continuation[:saved]
	return nil
}
