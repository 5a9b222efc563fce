// Package verify checks produced mdBook tree for broken structure: unbalanced
// code fences and local links pointing nowhere.
package verify

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"github.com/samber/lo"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Problem is a single defect found in a Markdown page.
type Problem struct {
	File    string
	Line    int
	Message string
}

func (p Problem) String() string {
	if p.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", p.File, p.Line, p.Message)
	}
	return fmt.Sprintf("%s: %s", p.File, p.Message)
}

type link struct {
	dest string
	line int
}

type page struct {
	name    string
	anchors map[string]bool
	links   []link
	blocks  int // fenced code blocks recognized by parser
	fences  int // fence lines in the source
}

var fenceLine = regexp.MustCompile(`^[ \t>]*(?:(?:[-*+]|\d+\.)[ \t]+)*` + "```")

func newEngine() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
}

// lineOf returns 1-based line number of the byte offset.
func lineOf(src []byte, offset int) int {
	return bytes.Count(src[:min(offset, len(src))], []byte{'\n'}) + 1
}

// blockLine finds line of the closest enclosing block which has source
// segments.
func blockLine(n ast.Node, src []byte) int {
	for ; n != nil; n = n.Parent() {
		if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
			return lineOf(src, n.Lines().At(0).Start)
		}
	}
	return 0
}

func parsePage(md goldmark.Markdown, name string, src []byte) (*page, error) {
	p := &page{name: name, anchors: make(map[string]bool)}

	doc := md.Parser().Parse(text.NewReader(src))
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if id, ok := node.AttributeString("id"); ok {
				if b, ok := id.([]byte); ok {
					p.anchors[string(b)] = true
				}
			}
		case *ast.FencedCodeBlock:
			p.blocks++
		case *ast.Link:
			p.links = append(p.links, link{dest: string(node.Destination), line: blockLine(node, src)})
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	for line := range bytes.Lines(src) {
		if fenceLine.Match(line) {
			p.fences++
		}
	}
	return p, nil
}

// Tree checks Markdown files (paths relative to dir) against each other.
func Tree(dir string, files []string) ([]Problem, error) {
	md := newEngine()

	pages := make(map[string]*page, len(files))
	for _, name := range files {
		src, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			return nil, fmt.Errorf("unable to read page: %w", err)
		}
		p, err := parsePage(md, filepath.ToSlash(name), src)
		if err != nil {
			return nil, fmt.Errorf("unable to parse page %q: %w", name, err)
		}
		pages[p.name] = p
	}

	var problems []Problem
	for _, p := range pages {
		problems = append(problems, p.check(pages)...)
	}
	sort.SliceStable(problems, func(i, j int) bool {
		if problems[i].File != problems[j].File {
			return natural.Less(problems[i].File, problems[j].File)
		}
		return problems[i].Line < problems[j].Line
	})
	return problems, nil
}

// Pages returns names of all Markdown files under dir in natural order.
func Pages(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(p), ".md") {
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Sort(natural.StringSlice(files))
	return files, nil
}

func (p *page) check(pages map[string]*page) []Problem {
	var problems []Problem
	if p.fences != p.blocks*2 {
		problems = append(problems, Problem{File: p.name, Message: fmt.Sprintf("unbalanced code fences: %d fence lines for %d blocks", p.fences, p.blocks)})
	}

	local := lo.Filter(p.links, func(l link, _ int) bool {
		u, err := url.Parse(l.dest)
		return err == nil && u.Scheme == "" && u.Host == ""
	})
	for _, l := range local {
		file, anchor, _ := strings.Cut(l.dest, "#")
		target := p
		if file != "" {
			if !strings.EqualFold(path.Ext(file), ".md") {
				continue
			}
			name := path.Clean(path.Join(path.Dir(p.name), file))
			var ok bool
			if target, ok = pages[name]; !ok {
				problems = append(problems, Problem{File: p.name, Line: l.line, Message: fmt.Sprintf("link to missing page %q", l.dest)})
				continue
			}
		}
		if anchor != "" && !target.anchors[anchor] {
			problems = append(problems, Problem{File: p.name, Line: l.line, Message: fmt.Sprintf("link to missing anchor %q", l.dest)})
		}
	}
	return problems
}
