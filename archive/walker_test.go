package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

type zipEntry struct {
	name    string
	content string
	nonUTF8 bool
}

func createZip(t *testing.T, entries []zipEntry) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	for _, e := range entries {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate, NonUTF8: e.nonUTF8})
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", e.name, err)
		}
		if _, err := fw.Write([]byte(e.content)); err != nil {
			t.Fatalf("Failed to write content for %s: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return zipPath
}

func TestWalk(t *testing.T) {
	zipPath := createZip(t, []zipEntry{
		{name: "publican/en-US/Protocol.xml", content: "protocol"},
		{name: "publican/en-US/Color.xml", content: "color"},
		{name: "publican/en-US/images/"},
		{name: "publican/en-US/images/icon.png", content: "png"},
		{name: "publican/Makefile", content: "make"},
		{name: "README", content: "readme"},
	})

	tests := []struct {
		name string
		dir  string
		want []string
	}{
		{name: "root", dir: "", want: []string{"README"}},
		{name: "publican", dir: "publican", want: []string{"publican/Makefile"}},
		{name: "chapters", dir: "publican/en-US/", want: []string{"publican/en-US/Color.xml", "publican/en-US/Protocol.xml"}},
		{name: "absolute looking", dir: "/publican/en-US", want: []string{"publican/en-US/Color.xml", "publican/en-US/Protocol.xml"}},
		{name: "absent", dir: "nothing", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var visited []string
			err := Walk(zipPath, tt.dir, nil, func(name string, file *zip.File) error {
				if name != file.Name {
					t.Errorf("name = %q, entry %q", name, file.Name)
				}
				visited = append(visited, name)
				return nil
			})
			if err != nil {
				t.Fatalf("Walk() error = %v", err)
			}
			if !slices.Equal(visited, tt.want) {
				t.Errorf("Walk() visited %v, want %v", visited, tt.want)
			}
		})
	}
}

func TestWalk_NaturalOrder(t *testing.T) {
	zipPath := createZip(t, []zipEntry{
		{name: "ch10.xml"}, {name: "ch2.xml"}, {name: "ch1.xml"},
	})
	var visited []string
	if err := Walk(zipPath, "", nil, func(name string, _ *zip.File) error {
		visited = append(visited, name)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if want := []string{"ch1.xml", "ch2.xml", "ch10.xml"}; !slices.Equal(visited, want) {
		t.Errorf("Walk() visited %v, want %v", visited, want)
	}
}

func TestWalk_CodePage(t *testing.T) {
	// "Глава.xml" in cp866
	raw, err := charmap.CodePage866.NewEncoder().String("Глава.xml")
	if err != nil {
		t.Fatal(err)
	}
	zipPath := createZip(t, []zipEntry{{name: raw, content: "x", nonUTF8: true}})

	var got string
	if err := Walk(zipPath, "", charmap.CodePage866, func(name string, _ *zip.File) error {
		got = name
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if got != "Глава.xml" {
		t.Errorf("decoded name = %q", got)
	}
}

func TestWalk_UnsafePath(t *testing.T) {
	zipPath := createZip(t, []zipEntry{{name: "../evil.xml", content: "x"}})
	if err := Walk(zipPath, "", nil, func(string, *zip.File) error { return nil }); err == nil {
		t.Error("Walk() expected error for path traversal")
	}
}

func TestWalk_InvalidArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.zip")
	if err := os.WriteFile(path, []byte("not a zip file"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Walk(path, "", nil, func(string, *zip.File) error { return nil }); err == nil {
		t.Error("Walk() expected error for invalid archive")
	}
	if err := Walk(filepath.Join(t.TempDir(), "absent.zip"), "", nil, func(string, *zip.File) error { return nil }); err == nil {
		t.Error("Walk() expected error for missing archive")
	}
}

func TestWalk_EarlyTermination(t *testing.T) {
	zipPath := createZip(t, []zipEntry{{name: "a.xml"}, {name: "b.xml"}, {name: "c.xml"}})
	stop := errors.New("stop")
	count := 0
	err := Walk(zipPath, "", nil, func(string, *zip.File) error {
		count++
		if count == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("Walk() error = %v, want stop", err)
	}
	if count != 2 {
		t.Errorf("visited %d files, want 2", count)
	}
}

func TestLocate(t *testing.T) {
	zipPath := createZip(t, []zipEntry{
		{name: "old/en-US/Wayland.xml"},
		{name: "doc/publican/Wayland.xml"},
		{name: "doc/publican/Protocol.xml"},
		{name: "top.xml"},
	})
	tests := []struct {
		name  string
		want  string
		found bool
	}{
		{name: "Wayland.xml", want: "doc/publican", found: true},
		{name: "top.xml", want: "", found: true},
		{name: "Absent.xml", want: "", found: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, found, err := Locate(zipPath, tt.name, nil)
			if err != nil {
				t.Fatalf("Locate() error = %v", err)
			}
			if dir != tt.want || found != tt.found {
				t.Errorf("Locate() = (%q, %v), want (%q, %v)", dir, found, tt.want, tt.found)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	zipPath := createZip(t, []zipEntry{{name: "a.xml", content: "<chapter/>"}})
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	data, err := ReadFile(r.File[0])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "<chapter/>" {
		t.Errorf("ReadFile() = %q", data)
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"doc/publican/Wayland.xml", true},
		{"..", false},
		{"a/../../b", false},
		{"/etc/passwd", false},
		{`\windows\system32`, false},
		{"a..b/c", true},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.name); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
