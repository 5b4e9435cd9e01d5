package flash

import "fmt"

const (
	KiB = 1024
	MiB = KiB * KiB
)

// Geometry describes the size parameters of an emulated chip.
type Geometry struct {
	TotalSize   uint32 // bytes
	SectorSize  uint32 // minimum erase unit, divides TotalSize
	Blank       byte   // erased-state value
	BytesPerRow uint32 // exporter row width, divides SectorSize
}

// DefaultGeometry is an 8 MiB chip with 4 KiB sectors.
func DefaultGeometry() Geometry {
	return Geometry{
		TotalSize:   8 * MiB,
		SectorSize:  4 * KiB,
		Blank:       0xFF,
		BytesPerRow: 8,
	}
}

// Validate reports ErrInvalidGeometry when the parameters are inconsistent.
func (g Geometry) Validate() error {
	if g.TotalSize == 0 || g.SectorSize == 0 {
		return fmt.Errorf("%w: total=%d sector=%d", ErrInvalidGeometry, g.TotalSize, g.SectorSize)
	}
	if g.TotalSize%g.SectorSize != 0 {
		return fmt.Errorf("%w: total size %d is not a multiple of sector size %d",
			ErrInvalidGeometry, g.TotalSize, g.SectorSize)
	}
	if g.BytesPerRow == 0 || g.SectorSize%g.BytesPerRow != 0 {
		return fmt.Errorf("%w: row width %d does not divide sector size %d",
			ErrInvalidGeometry, g.BytesPerRow, g.SectorSize)
	}
	return nil
}

func (g Geometry) SectorCount() uint32 {
	return g.TotalSize / g.SectorSize
}

// SectorIndex returns the index of the sector holding addr.
func (g Geometry) SectorIndex(addr uint32) uint32 {
	return addr / g.SectorSize
}

// SectorBase rounds addr down to the start of its sector.
func (g Geometry) SectorBase(addr uint32) uint32 {
	return addr - addr%g.SectorSize
}

// CheckRegion validates a read/write region. The end bound is exclusive of
// the last byte: a region with addr+length == TotalSize is rejected unless
// inclusiveEnd is set.
func (g Geometry) CheckRegion(addr uint32, length uint64, inclusiveEnd bool) error {
	if addr >= g.TotalSize {
		return fmt.Errorf("%w: %#08x", ErrAddressOutOfRange, addr)
	}
	end := uint64(addr) + length
	limit := uint64(g.TotalSize)
	if end > limit || (end == limit && !inclusiveEnd) {
		return fmt.Errorf("%w: %#08x+%d", ErrSizeOutOfRange, addr, length)
	}
	return nil
}
