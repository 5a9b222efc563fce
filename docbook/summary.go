package docbook

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// ForewordDocument is always the first, unnumbered, page of the book.
const ForewordDocument = "Foreword.xml"

// skipped includes of the root document which are not part of the book
// body.
var skipped = map[string]bool{
	"Book_Info.xml":    true,
	ForewordDocument:   true,
	"ProtocolSpec.xml": true,
	"Client.xml":       true,
	"Server.xml":       true,
}

// Entry is a single numbered chapter of the book.
type Entry struct {
	Title    string
	Document string // source document name as referenced by root document
}

// Page returns name of the produced Markdown page.
func (e Entry) Page() string {
	return MarkdownName(e.Document)
}

// MarkdownName maps source document name to name of the Markdown page.
func MarkdownName(document string) string {
	return strings.TrimSuffix(document, ".xml") + ".md"
}

// ParseSummary walks root document of the book and returns its chapters in
// declaration order.
func ParseSummary(data []byte, opts Options) ([]Entry, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		Entity: opts.Entities,
	}
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, &Error{Kind: ErrMalformedInput, Detail: err.Error()}
	}

	root := doc.Root()
	if root == nil {
		return nil, &Error{Kind: ErrMalformedInput, Detail: "document has no root element"}
	}
	if root.FullTag() != "book" {
		return nil, &Error{Kind: ErrUnrecognizedElement, Element: root.FullTag()}
	}

	var entries []Entry
	for _, node := range root.Child {
		switch t := node.(type) {
		case *etree.CharData:
			if !t.IsWhitespace() {
				return nil, &Error{Kind: ErrUnrecognizedElement, Element: "#text", Parent: "book"}
			}
		case *etree.Comment:
		case *etree.Element:
			entry, ok, err := includeEntry(t)
			if err != nil {
				return nil, fmt.Errorf("book: %w", err)
			}
			if !ok {
				log.Debug("Skipping include", zap.String("href", t.SelectAttrValue("href", "")))
				continue
			}
			entries = append(entries, entry)
		default:
			return nil, &Error{Kind: ErrUnrecognizedElement, Element: fmt.Sprintf("%T", node), Parent: "book"}
		}
	}
	return entries, nil
}

func includeEntry(el *etree.Element) (Entry, bool, error) {
	if el.FullTag() != "xi:include" || len(el.Child) > 0 {
		return Entry{}, false, &Error{Kind: ErrUnrecognizedElement, Element: el.FullTag(), Parent: "book"}
	}
	attr := el.SelectAttr("href")
	if attr == nil {
		return Entry{}, false, &Error{Kind: ErrMissingAttribute, Element: el.FullTag(), Detail: "href"}
	}
	href := attr.Value
	if skipped[href] {
		return Entry{}, false, nil
	}
	title, ok := ChapterTitle(href)
	if !ok {
		return Entry{}, false, &Error{Kind: ErrUnmappedReference, Element: href, Parent: "book"}
	}
	return Entry{Title: title, Document: href}, true, nil
}

// WriteSummary renders mdBook SUMMARY.md for given chapters.
func WriteSummary(w io.Writer, entries []Entry) error {
	var b strings.Builder
	b.WriteString("# Summary\n\n")
	fmt.Fprintf(&b, "[Foreword](%s)\n\n", MarkdownName(ForewordDocument))
	for _, e := range entries {
		fmt.Fprintf(&b, "- [%s](./%s)\n", e.Title, e.Page())
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// BuildSummary renders SUMMARY.md from root document of the book.
func BuildSummary(data []byte, w io.Writer, opts Options) error {
	entries, err := ParseSummary(data, opts)
	if err != nil {
		return err
	}
	return WriteSummary(w, entries)
}
