package iox

import (
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temporary file in the same directory,
// then renames it over dstFilename. The rename is atomic on POSIX filesystems,
// so a crash mid-write never leaves a truncated file at dstFilename.
func WriteFileAtomic(dstFilename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(dstFilename)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dstFilename); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
