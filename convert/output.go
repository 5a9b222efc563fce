package convert

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrDestinationExists is returned when output is present and overwriting was
// not requested.
var ErrDestinationExists = errors.New("destination already exists")

// writeAtomic produces file at path through temporary file in the same
// directory, so path either keeps its old state or receives complete result.
func writeAtomic(path string, overwrite bool, fn func(w io.Writer) error) (err error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrDestinationExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create output: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = fn(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	if err = tmp.Chmod(0644); err != nil {
		return fmt.Errorf("unable to set output permissions: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("unable to close output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("unable to commit output: %w", err)
	}
	return nil
}
