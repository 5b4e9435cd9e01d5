//go:build !linux

package flash

import (
	"io"
	"os"
)

// getMediumSize returns the size of a regular file in bytes. Block devices
// are only sized on Linux.
func getMediumSize(f *os.File) (int64, error) {
	st, err := f.Stat()
	if err == nil && st.Mode().IsRegular() {
		return st.Size(), nil
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	_, _ = f.Seek(0, io.SeekStart)
	return size, nil
}
