package docbook

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by this package wraps exactly one of them.
var (
	ErrMalformedInput      = errors.New("malformed input")
	ErrUnrecognizedElement = errors.New("unrecognized element")
	ErrMissingAttribute    = errors.New("missing attribute")
	ErrUnresolvableLink    = errors.New("unresolvable link")
	ErrUnmappedReference   = errors.New("unmapped reference")
)

// Error describes a single conversion failure and the place in the source
// document where it was detected.
type Error struct {
	Kind    error
	Element string
	Parent  string
	Detail  string
	Line    int
	Col     int
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Element != "" {
		fmt.Fprintf(&b, " %q", e.Element)
	}
	if e.Parent != "" {
		fmt.Fprintf(&b, " in <%s>", e.Parent)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at %d:%d", e.Line, e.Col)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Kind
}
