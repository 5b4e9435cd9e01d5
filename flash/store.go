package flash

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Medium is an open handle on the backing store. Handles are short lived:
// the device opens one per operation and closes it before returning.
type Medium interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
}

// Store owns the persistent bytes behind a device.
type Store interface {
	// Open returns a handle on the existing medium. A missing medium is
	// reported with an error matching os.ErrNotExist.
	Open(write bool) (Medium, error)
	// Create discards any existing medium and allocates size bytes.
	// The content of the new medium is unspecified until formatted.
	Create(size int64) (Medium, error)
	// Size returns the current size of the medium.
	Size() (int64, error)
	// String names the store for logs.
	String() string
}

// FileStore keeps the medium in a regular file or block device.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Open(write bool) (Medium, error) {
	flag := os.O_RDONLY
	if write {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(s.Path, flag, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FileStore) Create(size int64) (Medium, error) {
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	f, err := os.OpenFile(s.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := preallocate(f, size); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("preallocate %s: %w", s.Path, err)
	}
	return f, nil
}

func (s *FileStore) Size() (int64, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return getMediumSize(f)
}

func (s *FileStore) String() string {
	return "file:" + s.Path
}

// syncMedium flushes the handle when the medium supports it.
func syncMedium(m Medium) error {
	if sw, ok := any(m).(interface{ Sync() error }); ok {
		return sw.Sync()
	}
	return nil
}
