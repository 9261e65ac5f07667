package fs

import (
	"errors"
	"io/fs"
	"os"
)

// ContainsFiles returns true if the given fs.FS contains any regular files.
func ContainsFiles(fsys fs.FS) (bool, error) {
	// errFound is a sentinel error used to stop the walk on the first file.
	errFound := os.ErrExist

	err := fs.WalkDir(fsys, ".", func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return errFound
		}
		return nil
	})
	if err == errFound {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return false, err
}
