// Package logfile wraps a single on-disk file with the id, path, and
// optional append-mode writer shared by the WAL, sorted runs, and hint
// files: every file ignite writes is, at bottom, one of these.
package logfile

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ignite-kv/ignite/pkg/errors"
	"github.com/ignite-kv/ignite/pkg/idfmt"
)

// File is a path + numeric id + optional appending writer. A File opened
// read-only (writeable=false) has no writer; calling Writer on it returns
// a NotWriteable error.
type File struct {
	path      string
	id        uint64
	writeable bool
	writer    *os.File
}

// Open opens path for the file named by id. When writeable is true the
// file is created if missing and opened append-only/read-write; when
// false no writer is allocated at all and only Reader/Size are usable.
func Open(path string, writeable bool) (*File, error) {
	id, err := idfmt.ParseID(path)
	if err != nil {
		return nil, errors.NewTimestampExtractionError(filepath.Base(path), err)
	}

	f := &File{path: path, id: id, writeable: writeable}

	if writeable {
		writer, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
		if err != nil {
			return nil, errors.ClassifyFileOpenError(err, path, filepath.Base(path))
		}
		f.writer = writer
	}

	return f, nil
}

// Path returns the file's on-disk path.
func (f *File) Path() string {
	return f.path
}

// ID returns the file's numeric id, parsed from its basename.
func (f *File) ID() uint64 {
	return f.id
}

// Writer returns the underlying writable file handle, or a NotWriteable
// error if this File was opened read-only.
func (f *File) Writer() (*os.File, error) {
	if f.writer == nil {
		return nil, errors.NewStorageError(nil, errors.ErrorCodeNotWriteable, "file is not open for writing").
			WithPath(f.path)
	}
	return f.writer, nil
}

// Append writes p to the end of the file and returns the offset at which
// it was written, i.e. the file's length just before this write.
func (f *File) Append(p []byte) (offset int64, err error) {
	w, err := f.Writer()
	if err != nil {
		return 0, err
	}

	offset, err = w.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek to end of file").WithPath(f.path)
	}

	if _, err := w.Write(p); err != nil {
		return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to append to file").WithPath(f.path)
	}

	return offset, nil
}

// Sync flushes the writer's data and metadata to stable storage.
func (f *File) Sync() error {
	w, err := f.Writer()
	if err != nil {
		return err
	}
	if err := w.Sync(); err != nil {
		size, _ := f.Size()
		return errors.ClassifySyncError(err, filepath.Base(f.path), f.path, int(size))
	}
	return nil
}

// Truncate seeks to offset, sets the file length to offset, and syncs.
// Used both to discard a torn WAL tail after recovery and to truncate the
// WAL to zero after a successful flush.
func (f *File) Truncate(offset int64) error {
	w, err := f.Writer()
	if err != nil {
		return err
	}

	if _, err := w.Seek(offset, io.SeekStart); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek for truncate").
			WithPath(f.path).WithOffset(int(offset))
	}
	if err := w.Truncate(offset); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to truncate file").
			WithPath(f.path).WithOffset(int(offset))
	}
	return w.Sync()
}

// Reader opens an independent read-only handle onto the file, positioned
// at its start. Callers own the returned handle and must close it.
func (f *File) Reader() (*os.File, error) {
	r, err := os.Open(f.path)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to open file for reading").WithPath(f.path)
	}
	return r, nil
}

// Size returns the file's current length on disk.
func (f *File) Size() (int64, error) {
	stat, err := os.Stat(f.path)
	if err != nil {
		return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat file").WithPath(f.path)
	}
	return stat.Size(), nil
}

// Close releases the writer handle, if any. Read-only Files have nothing
// to close.
func (f *File) Close() error {
	if f.writer == nil {
		return nil
	}
	return f.writer.Close()
}
