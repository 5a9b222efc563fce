package docbook

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"dbmd/markdown"
)

// Options controls conversion of a single document.
type Options struct {
	// Width is wrapping column budget, markdown.DefaultWidth when not set.
	Width int
	// Entities supplements HTML named character references.
	Entities map[string]string
	Log      *zap.Logger
}

type titleKind int

const (
	titleChapter titleKind = iota
	titleSection
	titleBold
)

// converter walks chapter document in a single pass, every handler consumes
// events up to and including the end tag of the element it was called for.
type converter struct {
	src    *Source
	out    *markdown.Writer
	log    *zap.Logger
	offset int
}

// ConvertChapter renders chapter or preface document as Markdown. Output is
// written while walking, on error w will contain partial result which should
// be discarded.
func ConvertChapter(data []byte, w io.Writer, opts Options) error {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	c := &converter{
		src: NewSource(data, opts.Entities),
		out: markdown.NewWriter(w, opts.Width),
		log: log,
	}
	return c.document()
}

func (c *converter) next() (Event, error) {
	ev, err := c.src.Next()
	if err != nil {
		return Event{}, err
	}
	c.offset = ev.Offset
	return ev, nil
}

// within adds handler name to the error context.
func within(name string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// locate fills position and enclosing element of the error if it has none.
func (c *converter) locate(err error, parent string) error {
	var de *Error
	if errors.As(err, &de) && de.Line == 0 {
		de.Line, de.Col = c.src.Position(c.offset)
		if de.Parent == "" {
			de.Parent = parent
		}
	}
	return err
}

func (c *converter) unexpected(parent string, ev Event) error {
	name := ev.Name
	switch ev.Kind {
	case EventEnd:
		name = "/" + ev.Name
	case EventText:
		name = "#text"
	case EventStart, EventEmpty:
	default:
		name = ev.String()
	}
	line, col := c.src.Position(ev.Offset)
	return &Error{Kind: ErrUnrecognizedElement, Element: name, Parent: parent, Line: line, Col: col}
}

func (c *converter) attr(ev Event, name string) (string, error) {
	v, err := ev.Attr(name)
	if err != nil {
		return "", c.locate(err, "")
	}
	return v, nil
}

// elements calls fn for every child event of the element up to its end tag,
// whitespace text between children is skipped.
func (c *converter) elements(name string, fn func(ev Event) error) error {
	return c.content(name, func(ev Event) error {
		if ev.IsBlank() {
			return nil
		}
		return fn(ev)
	})
}

// content calls fn for every child event of the element up to its end tag.
func (c *converter) content(name string, fn func(ev Event) error) error {
	for {
		ev, err := c.next()
		if err != nil {
			return err
		}
		if ev.Kind == EventEnd && ev.Name == name {
			return nil
		}
		if ev.Kind == EventEOF {
			return c.unexpected(name, ev)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

// skip drops everything up to the end of the current element.
func (c *converter) skip() error {
	depth := c.src.Depth()
	for {
		ev, err := c.next()
		if err != nil {
			return err
		}
		switch {
		case ev.Kind == EventEOF:
			return c.unexpected("", ev)
		case ev.Kind == EventEnd && c.src.Depth() < depth:
			return nil
		}
	}
}

func (c *converter) document() error {
	for {
		ev, err := c.next()
		if err != nil {
			return err
		}
		switch ev.Kind {
		case EventEOF:
			return nil
		case EventDeclaration, EventDoctype:
			continue
		case EventText:
			if ev.IsBlank() {
				continue
			}
		case EventStart:
			if ev.Name == "chapter" || ev.Name == "preface" {
				c.log.Debug("Converting document", zap.String("root", ev.Name))
				if err := within(ev.Name, c.chapter(ev.Name)); err != nil {
					return err
				}
				continue
			}
		}
		return c.unexpected("", ev)
	}
}

func (c *converter) chapter(name string) error {
	return c.elements(name, func(ev Event) error {
		if ev.Kind == EventEmpty && ev.Name == "xi:include" {
			return nil
		}
		if ev.Kind == EventStart {
			switch ev.Name {
			case "title":
				return within("title", c.title(titleChapter, 0))
			case "para", "literallayout":
				return within(ev.Name, c.para(ev.Name, false))
			case "section":
				return within("section", c.section(0))
			}
		}
		return c.unexpected(name, ev)
	})
}

func (c *converter) section(depth int) error {
	return c.elements("section", func(ev Event) error {
		if ev.Kind != EventStart {
			return c.unexpected("section", ev)
		}
		switch ev.Name {
		case "section":
			return within("section", c.section(depth+1))
		case "title":
			return within("title", c.title(titleSection, depth))
		case "synopsis":
			return within("synopsis", c.para("synopsis", true))
		case "para":
			return within("para", c.para("para", false))
		case "orderedlist", "itemizedlist", "variablelist":
			return within(ev.Name, c.list(ev.Name))
		case "figure":
			return within("figure", c.figure())
		case "mediaobject", "mediaobjectco":
			return within(ev.Name, c.mediaObject(ev.Name))
		}
		return c.unexpected("section", ev)
	})
}

func (c *converter) title(kind titleKind, depth int) error {
	var b strings.Builder
	err := c.content("title", func(ev Event) error {
		switch ev.Kind {
		case EventText, EventEntityRef:
			b.WriteString(ev.Decoded())
			return nil
		}
		return c.unexpected("title", ev)
	})
	if err != nil {
		return err
	}

	text := strings.TrimSpace(collapse(b.String()))
	switch kind {
	case titleChapter:
		text = "# " + text
	case titleSection:
		text = strings.Repeat("#", depth+2) + " " + text
	case titleBold:
		text = "**" + text + "**"
	}
	if err := c.out.WriteLine(text); err != nil {
		return err
	}
	c.out.RequestBlank()
	return nil
}

// para renders text block and separates it from whatever follows.
func (c *converter) para(name string, code bool) error {
	if err := c.textBlock(name, code); err != nil {
		return err
	}
	c.out.RequestBlank()
	return nil
}

// textBlock accumulates running text of the element and flushes it as a
// single paragraph (or fenced block when code is set). Nested lists and
// synopses break the paragraph.
func (c *converter) textBlock(name string, code bool) error {
	err := c.content(name, func(ev Event) error {
		switch ev.Kind {
		case EventText:
			c.out.WriteString(collapse(ev.Text))
			return nil
		case EventEntityRef:
			c.out.WriteString(ev.Decoded())
			return nil
		case EventEmpty:
			if ev.Name == "xref" {
				return within("xref", c.xref(ev))
			}
		case EventStart:
			switch ev.Name {
			case "synopsis":
				if err := c.breakText(code); err != nil {
					return err
				}
				return within("synopsis", c.para("synopsis", true))
			case "itemizedlist", "orderedlist", "variablelist":
				if err := c.breakText(code); err != nil {
					return err
				}
				return within(ev.Name, c.list(ev.Name))
			}
			if ok, err := c.inline(ev); ok {
				return within(ev.Name, err)
			}
		}
		return c.unexpected(name, ev)
	})
	if err != nil {
		return err
	}
	return c.out.Flush(code)
}

func (c *converter) breakText(code bool) error {
	if err := c.out.Flush(code); err != nil {
		return err
	}
	c.out.RequestBlank()
	return nil
}

func (c *converter) list(name string) error {
	switch name {
	case "itemizedlist":
		return c.elements(name, func(ev Event) error {
			if ev.Kind == EventStart && ev.Name == "listitem" {
				return within("listitem", c.listItem("-"))
			}
			return c.unexpected(name, ev)
		})
	case "orderedlist":
		n := 0
		return c.elements(name, func(ev Event) error {
			if ev.Kind == EventStart && ev.Name == "listitem" {
				n++
				return within("listitem", c.listItem(strconv.Itoa(n)+"."))
			}
			return c.unexpected(name, ev)
		})
	case "variablelist":
		return c.elements(name, func(ev Event) error {
			if ev.Kind == EventStart {
				switch ev.Name {
				case "title":
					return within("title", c.title(titleBold, 0))
				case "varlistentry":
					return within("varlistentry", c.varListEntry())
				}
			}
			return c.unexpected(name, ev)
		})
	}
	return fmt.Errorf("unknown list kind %q", name)
}

func (c *converter) listItem(marker string) error {
	return c.out.Indent(marker, false, func() error {
		return c.elements("listitem", func(ev Event) error {
			if ev.Kind == EventStart {
				switch ev.Name {
				case "para", "simpara":
					return within(ev.Name, c.para(ev.Name, false))
				case "note", "warning":
					return within(ev.Name, c.admonition(ev.Name))
				case "variablelist", "itemizedlist", "orderedlist":
					return within(ev.Name, c.list(ev.Name))
				}
			}
			return c.unexpected("listitem", ev)
		})
	})
}

func (c *converter) admonition(name string) error {
	return c.out.Indent(">", true, func() error {
		if err := c.out.WriteLine("[!" + strings.ToUpper(name) + "]"); err != nil {
			return err
		}
		return c.elements(name, func(ev Event) error {
			if ev.Kind == EventStart && (ev.Name == "para" || ev.Name == "simpara") {
				return within(ev.Name, c.para(ev.Name, false))
			}
			return c.unexpected(name, ev)
		})
	})
}

// varListEntry expects exactly one term followed by exactly one listitem.
func (c *converter) varListEntry() error {
	seen := 0
	err := c.elements("varlistentry", func(ev Event) error {
		if ev.Kind == EventStart {
			switch {
			case ev.Name == "term" && seen == 0:
				seen++
				return within("term", c.term())
			case ev.Name == "listitem" && seen == 1:
				seen++
				return within("listitem", c.listItem("  :"))
			}
		}
		return c.unexpected("varlistentry", ev)
	})
	if err != nil {
		return err
	}
	if seen != 2 {
		line, col := c.src.Position(c.offset)
		return &Error{
			Kind: ErrUnrecognizedElement, Element: "/varlistentry", Parent: "varlistentry",
			Line: line, Col: col, Detail: "term and listitem are required",
		}
	}
	return nil
}

// term renders as its own paragraph. Synopsis inside of a term is kept as
// running text and is not fenced.
func (c *converter) term() error {
	err := c.content("term", func(ev Event) error {
		switch ev.Kind {
		case EventText:
			c.out.WriteString(collapse(ev.Text))
			return nil
		case EventEntityRef:
			c.out.WriteString(ev.Decoded())
			return nil
		case EventStart:
			if ev.Name == "synopsis" {
				return within("synopsis", c.textBlock("synopsis", false))
			}
			if ok, err := c.inline(ev); ok {
				return within(ev.Name, err)
			}
		}
		return c.unexpected("term", ev)
	})
	if err != nil {
		return err
	}
	return c.out.Flush(false)
}

func (c *converter) figure() error {
	return c.elements("figure", func(ev Event) error {
		if ev.Kind == EventStart {
			switch ev.Name {
			case "title":
				return within("title", c.title(titleBold, 0))
			case "mediaobject", "mediaobjectco":
				return within(ev.Name, c.mediaObject(ev.Name))
			}
		}
		return c.unexpected("figure", ev)
	})
}

func (c *converter) mediaObject(name string) error {
	return c.elements(name, func(ev Event) error {
		if ev.Kind == EventStart {
			switch ev.Name {
			case "textobject":
				return within("textobject", c.skip())
			case "imageobject":
				return within("imageobject", c.imageObject())
			case "imageobjectco":
				return within("imageobjectco", c.imageObjectCo())
			case "caption":
				return within("caption", c.caption())
			}
		}
		return c.unexpected(name, ev)
	})
}

func (c *converter) imageObject() error {
	return c.elements("imageobject", func(ev Event) error {
		switch {
		case ev.Kind == EventStart && ev.Name == "areaspec":
			return within("areaspec", c.skip())
		case ev.Kind == EventEmpty && ev.Name == "imagedata":
			return within("imagedata", c.imageData(ev))
		}
		return c.unexpected("imageobject", ev)
	})
}

func (c *converter) imageObjectCo() error {
	return c.elements("imageobjectco", func(ev Event) error {
		if ev.Kind == EventStart {
			switch ev.Name {
			case "areaspec":
				return within("areaspec", c.skip())
			case "imageobject":
				return within("imageobject", c.imageObject())
			}
		}
		return c.unexpected("imageobjectco", ev)
	})
}

func (c *converter) imageData(ev Event) error {
	ref, err := c.attr(ev, "fileref")
	if err != nil {
		return err
	}
	if err := c.out.WriteLine("![](" + ref + ")"); err != nil {
		return err
	}
	c.out.RequestBlank()
	return nil
}

func (c *converter) caption() error {
	return c.elements("caption", func(ev Event) error {
		if ev.Kind == EventStart && ev.Name == "para" {
			return within("para", c.para("para", false))
		}
		return c.unexpected("caption", ev)
	})
}
