package docbook

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
	"golang.org/x/net/html"
)

// EventKind identifies what a single Event carries.
type EventKind int

const (
	EventEOF EventKind = iota
	EventStart
	EventEnd
	EventEmpty
	EventText
	EventDeclaration
	EventDoctype
	EventEntityRef
)

var eventKindNames = [...]string{"eof", "start", "end", "empty", "text", "declaration", "doctype", "entity"}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Attr is a single element attribute with its value already decoded.
type Attr struct {
	Name  string
	Value string
}

// Event is one step of the pull stream produced by Source.
//
// For element events Name is the raw (prefixed) element name. For text
// events Text holds raw source text which never contains entity references:
// those are split into separate EventEntityRef events with the entity name
// in Name.
type Event struct {
	Kind   EventKind
	Name   string
	Text   string
	Attrs  []Attr
	Offset int

	entities map[string]string
}

// Attr returns decoded value of the named attribute.
func (e Event) Attr(name string) (string, error) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, nil
		}
	}
	return "", &Error{Kind: ErrMissingAttribute, Element: e.Name, Detail: name}
}

// IsBlank reports whether event is a text event containing only whitespace.
func (e Event) IsBlank() bool {
	return e.Kind == EventText && strings.TrimSpace(e.Text) == ""
}

// Decoded returns the replacement text of an entity reference event and the
// raw text for everything else.
func (e Event) Decoded() string {
	if e.Kind == EventEntityRef {
		return decodeEntity(e.Name, e.entities)
	}
	return e.Text
}

func (e Event) String() string {
	switch e.Kind {
	case EventStart:
		return "<" + e.Name + ">"
	case EventEnd:
		return "</" + e.Name + ">"
	case EventEmpty:
		return "<" + e.Name + "/>"
	case EventText:
		return "#text"
	case EventEntityRef:
		return "&" + e.Name + ";"
	case EventDeclaration:
		return "<?" + e.Name + "?>"
	case EventDoctype:
		return "<!DOCTYPE>"
	default:
		return "#eof"
	}
}

// Source turns in-memory XML document into a stream of events. It checks
// enough of well-formedness to guarantee balanced element events.
type Source struct {
	data     []byte
	in       *parse.Input
	lex      *xml.Lexer
	open     []string
	queue    []Event
	entities map[string]string
	rootDone bool
	done     bool

	lastClose xml.TokenType
}

// NewSource prepares event stream over data. Additional named entities may be
// supplied, they take precedence over HTML named character references.
func NewSource(data []byte, entities map[string]string) *Source {
	in := parse.NewInputBytes(data)
	return &Source{
		data:     data,
		in:       in,
		lex:      xml.NewLexer(in),
		entities: entities,
	}
}

// Position converts byte offset into 1-based line and column.
func (s *Source) Position(offset int) (int, int) {
	line, col, _ := parse.Position(bytes.NewReader(s.data), offset)
	return line, col
}

// Depth returns number of currently open elements.
func (s *Source) Depth() int {
	return len(s.open)
}

func (s *Source) malformed(offset int, format string, args ...any) error {
	line, col := s.Position(offset)
	return &Error{Kind: ErrMalformedInput, Line: line, Col: col, Detail: fmt.Sprintf(format, args...)}
}

// Next returns the next event. After EventEOF is returned all subsequent calls
// return EventEOF as well.
func (s *Source) Next() (Event, error) {
	if len(s.queue) > 0 {
		ev := s.queue[0]
		s.queue = s.queue[1:]
		return ev, nil
	}
	if s.done {
		return Event{Kind: EventEOF, Offset: len(s.data)}, nil
	}

	for {
		offset := s.in.Offset()
		tt, data := s.lex.Next()
		switch tt {
		case xml.ErrorToken:
			if err := s.lex.Err(); err != io.EOF {
				return Event{}, s.malformed(offset, "%v", err)
			}
			if len(s.open) > 0 {
				return Event{}, s.malformed(offset, "unexpected end of input, <%s> is not closed", s.open[len(s.open)-1])
			}
			if !s.rootDone {
				return Event{}, s.malformed(offset, "document has no root element")
			}
			s.done = true
			return Event{Kind: EventEOF, Offset: offset}, nil

		case xml.CommentToken:
			continue

		case xml.DOCTYPEToken:
			if len(s.open) > 0 || s.rootDone {
				return Event{}, s.malformed(offset, "unexpected DOCTYPE")
			}
			return Event{Kind: EventDoctype, Text: string(s.lex.Text()), Offset: offset}, nil

		case xml.CDATAToken:
			if len(s.open) == 0 {
				return Event{}, s.malformed(offset, "CDATA section outside of root element")
			}
			raw := string(data)
			if !strings.HasPrefix(raw, "<![CDATA[") || !strings.HasSuffix(raw, "]]>") {
				return Event{}, s.malformed(offset, "unterminated CDATA section")
			}
			return Event{Kind: EventText, Text: raw[len("<![CDATA[") : len(raw)-len("]]>")], Offset: offset}, nil

		case xml.StartTagPIToken:
			name := string(s.lex.Text())
			if _, err := s.attributes(offset, xml.StartTagClosePIToken); err != nil {
				return Event{}, err
			}
			return Event{Kind: EventDeclaration, Name: name, Offset: offset}, nil

		case xml.StartTagToken:
			name := string(s.lex.Text())
			if name == "" {
				return Event{}, s.malformed(offset, "element without name")
			}
			if s.rootDone {
				return Event{}, s.malformed(offset, "element <%s> after document root", name)
			}
			attrs, err := s.attributes(offset, xml.StartTagCloseToken, xml.StartTagCloseVoidToken)
			if err != nil {
				return Event{}, err
			}
			ev := Event{Kind: EventStart, Name: name, Attrs: attrs, Offset: offset, entities: s.entities}
			if s.lastClose == xml.StartTagCloseVoidToken {
				ev.Kind = EventEmpty
				if len(s.open) == 0 {
					s.rootDone = true
				}
			} else {
				s.open = append(s.open, name)
			}
			return ev, nil

		case xml.EndTagToken:
			name := string(s.lex.Text())
			if len(s.open) == 0 {
				return Event{}, s.malformed(offset, "unexpected end tag </%s>", name)
			}
			if top := s.open[len(s.open)-1]; top != name {
				return Event{}, s.malformed(offset, "end tag </%s> does not match <%s>", name, top)
			}
			s.open = s.open[:len(s.open)-1]
			if len(s.open) == 0 {
				s.rootDone = true
			}
			return Event{Kind: EventEnd, Name: name, Offset: offset}, nil

		case xml.TextToken:
			raw := string(data)
			if len(s.open) == 0 {
				if strings.TrimSpace(raw) != "" {
					return Event{}, s.malformed(offset, "text outside of root element")
				}
				return Event{Kind: EventText, Text: raw, Offset: offset}, nil
			}
			events, err := s.splitText(raw, offset)
			if err != nil {
				return Event{}, err
			}
			s.queue = append(s.queue, events[1:]...)
			return events[0], nil

		default:
			return Event{}, s.malformed(offset, "unexpected token %q", data)
		}
	}
}

// attributes collects attribute tokens up to one of the closing tokens and
// remembers which one terminated the tag.
func (s *Source) attributes(offset int, closers ...xml.TokenType) ([]Attr, error) {
	var attrs []Attr
	for {
		tt, data := s.lex.Next()
		switch tt {
		case xml.AttributeToken:
			name := string(s.lex.Text())
			val := s.lex.AttrVal()
			if len(val) < 2 || (val[0] != '"' && val[0] != '\'') || val[len(val)-1] != val[0] {
				return nil, s.malformed(offset, "attribute %q must have quoted value", name)
			}
			value, err := s.unescape(string(val[1:len(val)-1]), offset)
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, Attr{Name: name, Value: value})
		case xml.ErrorToken:
			if err := s.lex.Err(); err != io.EOF {
				return nil, s.malformed(offset, "%v", err)
			}
			return nil, s.malformed(offset, "unexpected end of input inside tag")
		default:
			for _, c := range closers {
				if tt == c {
					s.lastClose = tt
					return attrs, nil
				}
			}
			return nil, s.malformed(offset, "unexpected token %q inside tag", data)
		}
	}
}

// splitText separates raw text into text and entity reference events.
func (s *Source) splitText(raw string, offset int) ([]Event, error) {
	var events []Event
	pos := 0
	for {
		i := strings.IndexByte(raw[pos:], '&')
		if i < 0 {
			break
		}
		start := pos + i
		name, ok := entityName(raw[start:])
		if !ok {
			return nil, s.malformed(offset+start, "invalid entity reference")
		}
		if start > pos {
			events = append(events, Event{Kind: EventText, Text: raw[pos:start], Offset: offset + pos})
		}
		events = append(events, Event{Kind: EventEntityRef, Name: name, Offset: offset + start, entities: s.entities})
		pos = start + len(name) + 2
	}
	if pos < len(raw) || len(events) == 0 {
		events = append(events, Event{Kind: EventText, Text: raw[pos:], Offset: offset + pos})
	}
	return events, nil
}

func (s *Source) unescape(raw string, offset int) (string, error) {
	if !strings.Contains(raw, "&") {
		return raw, nil
	}
	var b strings.Builder
	for {
		i := strings.IndexByte(raw, '&')
		if i < 0 {
			b.WriteString(raw)
			return b.String(), nil
		}
		b.WriteString(raw[:i])
		name, ok := entityName(raw[i:])
		if !ok {
			return "", s.malformed(offset, "invalid entity reference in attribute value")
		}
		b.WriteString(decodeEntity(name, s.entities))
		raw = raw[i+len(name)+2:]
	}
}

// entityName extracts name from "&name;..." prefix.
func entityName(s string) (string, bool) {
	end := strings.IndexByte(s, ';')
	if end < 2 {
		return "", false
	}
	name := s[1:end]
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
		case r >= '0' && r <= '9', r == '-', r == '.':
			if i == 0 {
				return "", false
			}
		case r == '#':
			if i != 0 {
				return "", false
			}
		default:
			return "", false
		}
	}
	return name, true
}

// decodeEntity resolves entity name. Unknown names are returned verbatim.
func decodeEntity(name string, entities map[string]string) string {
	if v, ok := entities[name]; ok {
		return v
	}
	ref := "&" + name + ";"
	return html.UnescapeString(ref)
}
