package docbook

import (
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`[\n\t ]+`)

// collapse replaces every run of whitespace with single space, source line
// breaks are not significant.
func collapse(s string) string {
	return whitespace.ReplaceAllLiteralString(s, " ")
}

// inline renders inline markup started by ev into pending text. It returns
// false when ev does not start inline element.
func (c *converter) inline(ev Event) (bool, error) {
	switch ev.Name {
	case "emphasis", "firstterm":
		return true, c.span(ev.Name, "_")
	case "code", "literal", "varname", "userinput", "type", "function", "systemitem":
		return true, c.span(ev.Name, "`")
	case "filename":
		return true, c.filename()
	case "ulink":
		return true, c.ulink(ev)
	case "link":
		return true, c.link(ev)
	}
	return false, nil
}

// spanText collects text content of inline element.
func (c *converter) spanText(name string) (string, error) {
	var b strings.Builder
	err := c.content(name, func(ev Event) error {
		switch ev.Kind {
		case EventText:
			b.WriteString(collapse(ev.Text))
		case EventEntityRef:
			b.WriteString(ev.Decoded())
		default:
			return c.unexpected(name, ev)
		}
		return nil
	})
	return b.String(), err
}

func (c *converter) span(name, mark string) error {
	text, err := c.spanText(name)
	if err != nil {
		return err
	}
	c.out.WriteString(mark + text + mark)
	return nil
}

func (c *converter) filename() error {
	text, err := c.spanText("filename")
	if err != nil {
		return err
	}
	c.out.WriteString(SourceLink(strings.TrimSpace(text)).Markdown(""))
	return nil
}

func (c *converter) ulink(ev Event) error {
	url, err := c.attr(ev, "url")
	if err != nil {
		return err
	}
	text, err := c.spanText("ulink")
	if err != nil {
		return err
	}
	label := strings.TrimSpace(text)
	if label == "" {
		label = url
	}
	c.out.WriteString(Link{Name: label, Target: url, Kind: TargetURL}.Markdown(""))
	return nil
}

func (c *converter) resolve(ev Event) (Link, error) {
	id, err := c.attr(ev, "linkend")
	if err != nil {
		return Link{}, err
	}
	link, err := Resolve(id)
	if err != nil {
		return Link{}, c.locate(err, ev.Name)
	}
	return link, nil
}

// link takes its label from element text, falling back to the resolved name.
func (c *converter) link(ev Event) error {
	target, err := c.resolve(ev)
	if err != nil {
		return err
	}
	text, err := c.spanText("link")
	if err != nil {
		return err
	}
	c.out.WriteString(target.Markdown(strings.TrimSpace(text)))
	return nil
}

func (c *converter) xref(ev Event) error {
	target, err := c.resolve(ev)
	if err != nil {
		return err
	}
	c.out.WriteString(target.Markdown(""))
	return nil
}
