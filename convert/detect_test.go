package convert

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestIsArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	validZip := filepath.Join(tmpDir, "book.zip")
	zf, err := os.Create(validZip)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(zf)
	if _, err := w.Create("Wayland.xml"); err != nil {
		t.Fatal(err)
	}
	w.Close()
	zf.Close()

	renamed := filepath.Join(tmpDir, "book.bin")
	data, err := os.ReadFile(validZip)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(renamed, data, 0644); err != nil {
		t.Fatal(err)
	}

	for name, content := range map[string]string{
		"test.txt":  "not a zip",
		"fake.zip":  "not a real zip file",
		"empty.zip": "",
	} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		file string
		want bool
	}{
		{name: "non-zip extension", file: "test.txt", want: false},
		{name: "zip extension but invalid content", file: "fake.zip", want: false},
		{name: "empty file", file: "empty.zip", want: false},
		{name: "valid zip", file: "book.zip", want: true},
		{name: "zip content with other extension", file: "book.bin", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := isArchiveFile(filepath.Join(tmpDir, tt.file))
			if err != nil {
				t.Fatalf("isArchiveFile() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("isArchiveFile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsArchiveFile_NonExistent(t *testing.T) {
	if _, err := isArchiveFile("/nonexistent/file.zip"); err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestIsXMLFile(t *testing.T) {
	tests := map[string]bool{
		"Protocol.xml":    true,
		"WAYLAND.XML":     true,
		"Wayland.ent":     false,
		"images/logo.png": false,
		"xml":             false,
	}
	for name, want := range tests {
		if got := isXMLFile(name); got != want {
			t.Errorf("isXMLFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestToUTF8(t *testing.T) {
	latin, err := charmap.ISO8859_1.NewEncoder().String("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<para>café</para>")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "no prolog", in: "<para>x</para>", want: "<para>x</para>"},
		{name: "utf-8", in: "<?xml version='1.0' encoding='utf-8' ?><para>é</para>", want: "<?xml version='1.0' encoding='utf-8' ?><para>é</para>"},
		{name: "latin1", in: latin, want: "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<para>café</para>"},
		{name: "unknown", in: "<?xml version='1.0' encoding='x-unknown' ?><para/>", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toUTF8([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Error("toUTF8() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("toUTF8() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("toUTF8() = %q, want %q", got, tt.want)
			}
		})
	}
}
