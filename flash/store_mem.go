package flash

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// MemStore keeps the medium in memory. It is meant for unit tests of
// firmware code that do not need the bytes to outlive the process.
type MemStore struct {
	data []byte
	ok   bool
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Open(write bool) (Medium, error) {
	if !s.ok {
		return nil, &os.PathError{Op: "open", Path: s.String(), Err: os.ErrNotExist}
	}
	return &memMedium{s: s, writable: write}, nil
}

func (s *MemStore) Create(size int64) (Medium, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative size %d", size)
	}
	s.data = make([]byte, size)
	s.ok = true
	return &memMedium{s: s, writable: true}, nil
}

func (s *MemStore) Size() (int64, error) {
	if !s.ok {
		return 0, &os.PathError{Op: "stat", Path: s.String(), Err: os.ErrNotExist}
	}
	return int64(len(s.data)), nil
}

func (s *MemStore) String() string {
	return "mem"
}

// Remove drops the medium as if its file had been deleted.
func (s *MemStore) Remove() {
	s.data = nil
	s.ok = false
}

// Truncate shortens the medium as if it had been cut by another program.
func (s *MemStore) Truncate(size int) {
	if size < len(s.data) {
		s.data = s.data[:size]
	}
}

// Bytes returns the live backing slice.
func (s *MemStore) Bytes() []byte {
	return s.data
}

type memMedium struct {
	s        *MemStore
	writable bool
}

func (m *memMedium) ReadAt(b []byte, off int64) (int, error) {
	data := m.s.data
	if off < 0 || off >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(b, data[off:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt extends the medium like a file would.
func (m *memMedium) WriteAt(b []byte, off int64) (int, error) {
	if !m.writable {
		return 0, errors.New("medium opened read-only")
	}
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	end := off + int64(len(b))
	if end > int64(len(m.s.data)) {
		grown := make([]byte, end)
		copy(grown, m.s.data)
		m.s.data = grown
	}
	return copy(m.s.data[off:], b), nil
}

func (m *memMedium) Close() error {
	return nil
}
