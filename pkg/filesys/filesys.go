// Package filesys provides the file system primitives ignite's storage
// manager and REPL config loader build on: directory creation and atomic
// whole-file replacement.
package filesys

import (
	"bytes"
	"errors"
	"os"

	natomic "github.com/natefinch/atomic"
)

var ErrIsNotDir = errors.New("path isn't a directory")

// CreateDir creates a directory at the specified path with the given permissions.
//
// If the directory already exists:
//   - If 'force' is true, it proceeds without error.
//   - If 'force' is false, it returns an error.
//
// It also returns an error if the existing path is a file (not a directory).
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	stat, err := os.Stat(dirPath)
	if !force && !os.IsNotExist(err) {
		if err != nil {
			return err
		}
		if stat.IsDir() {
			return &os.PathError{Op: "mkdir", Path: dirPath, Err: os.ErrExist}
		}
	}

	if stat != nil && !stat.IsDir() {
		return ErrIsNotDir
	}

	if err := os.MkdirAll(dirPath, permission); err != nil {
		return err
	}

	return os.Chmod(dirPath, permission)
}

// WriteFileAtomic replaces filePath's contents with contents without ever
// exposing a partially-written file to a concurrent reader: it writes to a
// temp file in the same directory and renames it over the destination.
// Used by the REPL's config saver, where a crash mid-write must never leave
// a truncated, unparseable config file behind.
func WriteFileAtomic(filePath string, contents []byte) error {
	return natomic.WriteFile(filePath, bytes.NewReader(contents))
}
