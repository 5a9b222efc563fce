// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"golang.org/x/text/encoding"
)

// MaxEntrySize limits uncompressed size of a single document read from
// archive.
const MaxEntrySize = 64 << 20

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The name argument is the entry name, decoded when archive
// was created with legacy code page. If an error is returned, processing
// stops.
type WalkFunc func(name string, file *zip.File) error

// Walk walks files of the archive located directly in the directory dir
// (empty for archive root) in natural order of their names. Names of entries
// not flagged as UTF-8 are decoded with cp when it is not nil. Entries with
// path traversal components ("..") or absolute paths fail the walk to prevent
// Zip Slip attacks.
func Walk(archive, dir string, cp encoding.Encoding, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	dir = strings.Trim(path.Clean("/"+dir), "/")

	type item struct {
		name string
		file *zip.File
	}
	var items []item
	for _, f := range r.File {
		name := f.FileHeader.Name
		if cp != nil && f.FileHeader.NonUTF8 {
			decoded, err := cp.NewDecoder().String(name)
			if err != nil {
				return fmt.Errorf("zip entry %q: unable to decode name: %w", name, err)
			}
			name = decoded
		}
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || path.Dir(path.Clean(name)) != cleanDir(dir) {
			continue
		}
		items = append(items, item{name: name, file: f})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return natural.Less(items[i].name, items[j].name)
	})

	for _, it := range items {
		if err := walkFn(it.name, it.file); err != nil {
			return err
		}
	}
	return nil
}

// Locate returns directory of the first (in natural order) entry with base
// name equal to name.
func Locate(archive, name string, cp encoding.Encoding) (string, bool, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return "", false, err
	}
	defer r.Close()

	var found []string
	for _, f := range r.File {
		n := f.FileHeader.Name
		if cp != nil && f.FileHeader.NonUTF8 {
			if decoded, err := cp.NewDecoder().String(n); err == nil {
				n = decoded
			}
		}
		if !f.FileInfo().IsDir() && isSafePath(n) && path.Base(n) == name {
			found = append(found, n)
		}
	}
	if len(found) == 0 {
		return "", false, nil
	}
	sort.Sort(natural.StringSlice(found))
	dir := path.Dir(found[0])
	if dir == "." {
		dir = ""
	}
	return dir, true, nil
}

// ReadFile reads complete content of the archive entry refusing entries
// larger than MaxEntrySize.
func ReadFile(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > MaxEntrySize {
		return nil, fmt.Errorf("zip entry %q is too large (%d bytes)", f.Name, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxEntrySize {
		return nil, fmt.Errorf("zip entry %q is too large", f.Name)
	}
	return data, nil
}

func cleanDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
