package flash

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
)

// MappedStore keeps the medium in a file that is memory mapped for the
// duration of each operation. The mapping is shared, so every handle sees
// the file's latest contents.
type MappedStore struct {
	FileStore
}

func NewMappedStore(path string) *MappedStore {
	return &MappedStore{FileStore: FileStore{Path: path}}
}

func (s *MappedStore) Open(write bool) (Medium, error) {
	flag, prot := os.O_RDONLY, mmap.RDONLY
	if write {
		flag, prot = os.O_RDWR, mmap.RDWR
	}
	f, err := os.OpenFile(s.Path, flag, 0)
	if err != nil {
		return nil, err
	}
	return mapFile(f, prot, write)
}

func (s *MappedStore) Create(size int64) (Medium, error) {
	m, err := s.FileStore.Create(size)
	if err != nil {
		return nil, err
	}
	return mapFile(m.(*os.File), mmap.RDWR, true)
}

func (s *MappedStore) String() string {
	return "mmap:" + s.Path
}

func mapFile(f *os.File, prot int, writable bool) (Medium, error) {
	size, err := getMediumSize(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if size == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: empty medium %s", ErrMediumCorrupt, f.Name())
	}
	mm, err := mmap.Map(f, prot, 0)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error mapping file: %w", err)
	}
	return &mappedMedium{file: f, mmap: mm, writable: writable}, nil
}

type mappedMedium struct {
	file     *os.File
	mmap     mmap.MMap
	writable bool
}

func (m *mappedMedium) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.mmap)) {
		return 0, io.EOF
	}
	n := copy(b, m.mmap[off:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

func (m *mappedMedium) WriteAt(b []byte, off int64) (int, error) {
	if !m.writable {
		return 0, errors.New("mapping is read-only")
	}
	if off < 0 || off >= int64(len(m.mmap)) {
		return 0, io.ErrShortWrite
	}
	n := copy(m.mmap[off:], b)
	if n < len(b) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (m *mappedMedium) Sync() error {
	if !m.writable {
		return nil
	}
	return m.mmap.Flush()
}

func (m *mappedMedium) Close() error {
	var flushErr error
	if m.writable {
		flushErr = m.mmap.Flush()
	}
	mmapErr := m.mmap.Unmap()
	closeErr := m.file.Close()

	return errors.Join(flushErr, mmapErr, closeErr)
}
