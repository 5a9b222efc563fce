package convert

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "Protocol.md")

	if err := writeAtomic(out, false, func(w io.Writer) error {
		_, err := io.WriteString(w, "# Protocol\n")
		return err
	}); err != nil {
		t.Fatalf("writeAtomic() error = %v", err)
	}
	if data, _ := os.ReadFile(out); string(data) != "# Protocol\n" {
		t.Errorf("output = %q", data)
	}

	t.Run("exists", func(t *testing.T) {
		err := writeAtomic(out, false, func(w io.Writer) error { return nil })
		if !errors.Is(err, ErrDestinationExists) {
			t.Errorf("writeAtomic() error = %v, want ErrDestinationExists", err)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		if err := writeAtomic(out, true, func(w io.Writer) error {
			_, err := io.WriteString(w, "# New\n")
			return err
		}); err != nil {
			t.Fatalf("writeAtomic() error = %v", err)
		}
		if data, _ := os.ReadFile(out); string(data) != "# New\n" {
			t.Errorf("output = %q", data)
		}
	})

	t.Run("failure keeps previous state", func(t *testing.T) {
		boom := errors.New("boom")
		err := writeAtomic(out, true, func(w io.Writer) error {
			io.WriteString(w, "partial")
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("writeAtomic() error = %v, want boom", err)
		}
		if data, _ := os.ReadFile(out); string(data) != "# New\n" {
			t.Errorf("output = %q, previous content expected", data)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("temporary files left behind: %v", entries)
		}
	})

	t.Run("failure leaves nothing", func(t *testing.T) {
		fresh := filepath.Join(dir, "Color.md")
		if err := writeAtomic(fresh, false, func(w io.Writer) error { return errors.New("boom") }); err == nil {
			t.Fatal("writeAtomic() expected error")
		}
		if _, err := os.Stat(fresh); !os.IsNotExist(err) {
			t.Errorf("output must not exist after failure: %v", err)
		}
	})
}
