package convert

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/net/html/charset"
)

// isArchiveFile checks extension first and then content signature.
func isArchiveFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}

	// filetype needs first 262 bytes at most
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}

func isXMLFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xml")
}

var xmlEncoding = regexp.MustCompile(`^\s*<\?xml[^>]*\sencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

// toUTF8 transcodes document declaring legacy encoding in its prolog.
// Documents without declaration are expected to be UTF-8.
func toUTF8(data []byte) ([]byte, error) {
	m := xmlEncoding.FindSubmatch(data)
	if m == nil {
		return data, nil
	}
	label := strings.ToLower(string(m[1]))
	if label == "utf-8" || label == "utf8" {
		return data, nil
	}
	r, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unsupported document encoding %q: %w", label, err)
	}
	return io.ReadAll(r)
}
