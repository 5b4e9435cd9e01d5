package flash

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// snapshot reads the whole medium without going through the region bound
// check and without formatting a missing medium.
func (d *Device) snapshot() (data []byte, err error) {
	m, err := d.store.Open(false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMediumUnavailable, err)
	}
	defer closeMedium(m, &err)

	buf := make([]byte, d.geo.TotalSize)
	n, rerr := m.ReadAt(buf, 0)
	if n != len(buf) {
		return nil, fmt.Errorf("%w: snapshot got %d/%d bytes: %v", ErrMediumCorrupt, n, len(buf), rerr)
	}
	return buf, nil
}

// Export writes a hex grid of the whole device to w. Each column is a
// sector, headed by its base address; each row holds BytesPerRow bytes at
// the same offset within every sector.
func (d *Device) Export(w io.Writer) error {
	data, err := d.snapshot()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := d.renderGrid(w, data); err != nil {
		return fmt.Errorf("export: write report: %w", err)
	}
	return nil
}

// ExportFile writes the grid produced by Export to path, replacing it.
func (d *Device) ExportFile(path string) (err error) {
	data, err := d.snapshot()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create report: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if err := d.renderGrid(f, data); err != nil {
		return fmt.Errorf("export: write report: %w", err)
	}
	return nil
}

func (d *Device) renderGrid(w io.Writer, data []byte) error {
	g := d.geo
	bw := bufio.NewWriter(w)
	col := int(2*g.BytesPerRow + 1)

	fmt.Fprint(bw, "         ")
	for s := uint32(0); s < g.SectorCount(); s++ {
		fmt.Fprintf(bw, "%-*X", col, s*g.SectorSize)
	}
	fmt.Fprint(bw, "\n")

	for off := uint32(0); off < g.SectorSize; off += g.BytesPerRow {
		fmt.Fprintf(bw, "%08X ", off)
		for s := uint32(0); s < g.SectorCount(); s++ {
			start := s*g.SectorSize + off
			fmt.Fprintf(bw, "%X ", data[start:start+g.BytesPerRow])
		}
		fmt.Fprint(bw, "\n")
	}
	return bw.Flush()
}
