package flash

import (
	"fmt"

	"go.uber.org/zap"
)

// EraseSector resets the sector containing addr to the blank value.
// Erasing an already blank sector still rewrites it. A medium whose size
// differs from the geometry is reported as ErrMediumCorrupt and left as is;
// only Format may recreate it.
func (d *Device) EraseSector(addr uint32) (err error) {
	if addr >= d.geo.TotalSize {
		return fmt.Errorf("erase %#08x: %w", addr, ErrAddressOutOfRange)
	}
	m, err := d.store.Open(true)
	if err != nil {
		return fmt.Errorf("erase %#08x: %w: %w", addr, ErrMediumUnavailable, err)
	}
	defer closeMedium(m, &err)

	size, err := d.store.Size()
	if err != nil {
		return fmt.Errorf("erase %#08x: %w: %w", addr, ErrMediumUnavailable, err)
	}
	if size != int64(d.geo.TotalSize) {
		return fmt.Errorf("erase %#08x: %w: medium is %d bytes, want %d", addr, ErrMediumCorrupt, size, d.geo.TotalSize)
	}

	if err := d.eraseAt(m, addr); err != nil {
		return err
	}
	if err := syncMedium(m); err != nil {
		return fmt.Errorf("erase %#08x: %w: sync: %w", addr, ErrMediumCorrupt, err)
	}
	return nil
}

// eraseAt is the single erase routine shared by EraseSector and Format.
func (d *Device) eraseAt(m Medium, addr uint32) error {
	base := d.geo.SectorBase(addr)
	d.log.Debug("erase sector",
		zap.Uint32("sector", d.geo.SectorIndex(addr)),
		zap.String("address", fmt.Sprintf("%08X", base)),
	)
	n, err := m.WriteAt(d.blank, int64(base))
	if n != len(d.blank) {
		return fmt.Errorf("%w: erase %#08x wrote %d/%d bytes: %v", ErrMediumCorrupt, base, n, len(d.blank), err)
	}
	if err != nil {
		return fmt.Errorf("%w: erase %#08x: %w", ErrMediumCorrupt, base, err)
	}
	return nil
}
