// Package debug has helpers producing human readable dumps for debug reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TreeWriter accumulates indented tree, one node per line.
type TreeWriter struct {
	b      *strings.Builder
	indent string
	limit  int
}

// NewTreeWriter returns writer indenting every level with indent. Text values
// longer than limit runes are shortened, zero limit keeps them intact.
func NewTreeWriter(indent string, limit int) *TreeWriter {
	return &TreeWriter{
		b:      &strings.Builder{},
		indent: indent,
		limit:  limit,
	}
}

func (tw *TreeWriter) String() string {
	return tw.b.String()
}

func (tw *TreeWriter) pad(depth int) {
	for range max(depth, 0) {
		tw.b.WriteString(tw.indent)
	}
}

// Node writes label followed by name=value pairs taken from attrs.
func (tw *TreeWriter) Node(depth int, label string, attrs ...string) {
	tw.pad(depth)
	tw.b.WriteString(label)
	for i := 0; i+1 < len(attrs); i += 2 {
		fmt.Fprintf(tw.b, " %s=%s", attrs[i], strconv.Quote(attrs[i+1]))
	}
	tw.b.WriteByte('\n')
}

// Text writes label and quoted value.
func (tw *TreeWriter) Text(depth int, label, value string) {
	tw.pad(depth)
	tw.b.WriteString(label)
	tw.b.WriteString(": ")
	tw.b.WriteString(tw.encodeText(value))
	tw.b.WriteByte('\n')
}

func (tw *TreeWriter) encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	if tw.limit > 0 && utf8.RuneCountInString(raw) > tw.limit {
		raw = string([]rune(raw)[:tw.limit])
		return strconv.Quote(raw) + "..."
	}
	return strconv.Quote(raw)
}
