//go:build linux

package flash

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// getMediumSize returns the size of a regular file or block device in bytes.
func getMediumSize(f *os.File) (int64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return 0, fmt.Errorf("fstat %s: %w", f.Name(), err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFBLK {
		return st.Size, nil
	}

	// Block devices report zero in st_size.
	sz, err := unix.IoctlGetInt(int(f.Fd()), unix.BLKGETSIZE64)
	if err != nil {
		return 0, fmt.Errorf("cannot determine device size: %w", err)
	}
	return int64(sz), nil
}
