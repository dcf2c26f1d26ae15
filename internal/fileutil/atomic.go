// Package fileutil holds small filesystem helpers.
package fileutil

import (
	"os"
	"path/filepath"
)

// WriteAtomic writes data to path through a temporary file in the same
// directory that is renamed into place. Readers see either the old content or
// the new content, and concurrent writers never interleave.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}

	name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)

		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)

		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(name)

		return err
	}

	if err := os.Chmod(name, perm); err != nil {
		os.Remove(name)

		return err
	}

	if err := os.Rename(name, path); err != nil {
		os.Remove(name)

		return err
	}

	return nil
}
