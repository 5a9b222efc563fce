package docbook

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"
)

// TargetKind tells where resolved link points to.
type TargetKind int

const (
	TargetAnchor TargetKind = iota // heading in the same chapter
	TargetFile                     // another chapter
	TargetURL                      // external resource
)

const (
	protocolURL = "https://wayland.app/protocols/wayland#"
	upstreamURL = "https://gitlab.freedesktop.org/wayland/wayland"
	sourceURL   = upstreamURL + "/-/blob/main/"
)

// Link is a resolved cross reference.
type Link struct {
	Name   string
	Target string
	Kind   TargetKind
}

// Markdown renders link with given label, empty label selects link name.
func (l Link) Markdown(label string) string {
	if label == "" {
		label = l.Name
	}
	return "[" + label + "](" + l.Target + ")"
}

// sections maps chapter name to known section slugs and their headings.
var sections = map[string]map[string]string{
	"Protocol": {
		"Wire-Format":          "Wire Format",
		"data-sharing-devices": "Data devices",
	},
	"MessageXML": {
		"tag-interface": "interface",
		"tag-arg":       "arg",
	},
	"Compositors": {
		"System-Compositor":  "System Compositor",
		"Session-Compositor": "Session Compositor",
	},
}

// chapterTitles maps chapter document names to their headings in the book.
var chapterTitles = map[string]string{
	"Introduction.xml":    "Introduction",
	"Compositors.xml":     "Types of Compositors",
	"Architecture.xml":    "Wayland Architecture",
	"Protocol.xml":        "Wayland Protocol and Model of Operation",
	"Message_XML.xml":     "Message Definition Language",
	"Xwayland.xml":        "X11 Application Support",
	"Content_Updates.xml": "Content Updates",
	"Color.xml":           "Color management",
}

// ChapterTitle returns book heading of a chapter document.
func ChapterTitle(document string) (string, bool) {
	title, ok := chapterTitles[document]
	return title, ok
}

// Anchor returns mdBook heading identifier for heading text.
func Anchor(heading string) string {
	return "#" + slug.Make(heading)
}

func unresolvable(id, format string, args ...any) error {
	return &Error{Kind: ErrUnresolvableLink, Element: id, Detail: fmt.Sprintf(format, args...)}
}

// Resolve maps DocBook link identifier to its Markdown target.
func Resolve(id string) (Link, error) {
	switch {
	case strings.HasPrefix(id, "sect-"):
		chapter, name, ok := strings.Cut(strings.TrimPrefix(id, "sect-"), "-")
		if !ok {
			return Link{}, unresolvable(id, "section identifier without chapter")
		}
		if chapter == "Library" {
			return Link{Name: name, Target: upstreamURL, Kind: TargetURL}, nil
		}
		known, ok := sections[chapter]
		if !ok {
			return Link{}, unresolvable(id, "unknown chapter %q", chapter)
		}
		heading, ok := known[name]
		if !ok {
			return Link{}, unresolvable(id, "unknown section %q in chapter %q", name, chapter)
		}
		return Link{Name: heading, Target: Anchor(heading), Kind: TargetAnchor}, nil

	case strings.HasPrefix(id, "chap-"):
		name := strings.TrimPrefix(id, "chap-")
		title, ok := ChapterTitle(name + ".xml")
		if !ok {
			return Link{}, unresolvable(id, "unknown chapter %q", name)
		}
		return Link{Name: title, Target: name + ".md", Kind: TargetFile}, nil

	case strings.HasPrefix(id, "protocol-spec-"):
		rest := strings.TrimPrefix(id, "protocol-spec-")
		if iface, tail, ok := strings.Cut(rest, "-"); ok {
			if kind, message, ok := strings.Cut(tail, "-"); ok {
				return Link{
					Name:   iface + "." + message,
					Target: protocolURL + iface + ":" + kind + ":" + message,
					Kind:   TargetURL,
				}, nil
			}
		}
		return Link{Name: rest, Target: protocolURL + rest, Kind: TargetURL}, nil
	}
	return Link{}, unresolvable(id, "unknown link format")
}

// SourceLink returns link to a file in upstream source repository.
func SourceLink(name string) Link {
	return Link{Name: name, Target: sourceURL + name, Kind: TargetURL}
}
