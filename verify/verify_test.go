package verify

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writePages(t *testing.T, pages map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range pages {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestTreeClean(t *testing.T) {
	dir := writePages(t, map[string]string{
		"SUMMARY.md": "# Summary\n\n[Foreword](Foreword.md)\n\n- [Protocol](./Protocol.md)\n",
		"Foreword.md": "# Foreword\n\nSee [wire format](Protocol.md#wire-format).\n",
		"Protocol.md": "# Protocol\n\n## Wire Format\n\nText, see [above](#wire-format) and [site](https://wayland.app/protocols/wayland#wl_surface).\n\n" +
			"- item\n\n  ```\n  code\n  ```\n\n> [!NOTE]\n> quoted\n\n![](images/x.png)\n",
	})
	files, err := Pages(dir)
	if err != nil {
		t.Fatalf("Pages() unexpected error: %v", err)
	}
	if want := []string{"Foreword.md", "Protocol.md", "SUMMARY.md"}; !slices.Equal(files, want) {
		t.Fatalf("Pages() = %v, want %v", files, want)
	}
	problems, err := Tree(dir, files)
	if err != nil {
		t.Fatalf("Tree() unexpected error: %v", err)
	}
	if len(problems) != 0 {
		t.Errorf("Tree() reported problems: %v", problems)
	}
}

func TestTreeProblems(t *testing.T) {
	dir := writePages(t, map[string]string{
		"SUMMARY.md": "# Summary\n\n- [Missing](./Missing.md)\n",
		"A.md":       "# A\n\n```\nopen fence\n",
		"B.md":       "# B\n\nline\n\n[x](#nowhere)\n\n[y](A.md#nowhere)\n",
	})
	problems, err := Tree(dir, []string{"SUMMARY.md", "A.md", "B.md"})
	if err != nil {
		t.Fatalf("Tree() unexpected error: %v", err)
	}

	var got []string
	for _, p := range problems {
		got = append(got, p.String())
	}
	want := []string{
		"A.md: unbalanced code fences: 1 fence lines for 1 blocks",
		"B.md:5: link to missing anchor \"#nowhere\"",
		"B.md:7: link to missing anchor \"A.md#nowhere\"",
		"SUMMARY.md:3: link to missing page \"./Missing.md\"",
	}
	if !slices.Equal(got, want) {
		t.Errorf("Tree() problems\ngot:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestTreeUnreadable(t *testing.T) {
	if _, err := Tree(t.TempDir(), []string{"absent.md"}); err == nil {
		t.Error("Tree() expected error for missing file")
	}
}

func TestPagesNaturalOrder(t *testing.T) {
	dir := writePages(t, map[string]string{
		"ch10.md":     "",
		"ch2.md":      "",
		"ch1.md":      "",
		"notes.txt":   "",
		"sub/ch3.md":  "",
		"images/a.md": "",
	})
	files, err := Pages(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"ch1.md", "ch2.md", "ch10.md", "images/a.md", "sub/ch3.md"}
	if !slices.Equal(files, want) {
		t.Errorf("Pages() = %v, want %v", files, want)
	}
}
