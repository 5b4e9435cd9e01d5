package flash

import (
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"
)

// Read returns length bytes starting at addr, exactly as stored.
//
// A missing medium is formatted and reopened once. If it is still
// unavailable the device's fatal handler runs; by default that ends the
// process.
func (d *Device) Read(addr, length uint32) (data []byte, err error) {
	if err := d.geo.CheckRegion(addr, uint64(length), d.inclusiveEnd); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	m, err := d.openOrFormat("read", false)
	if err != nil {
		return nil, err
	}
	defer closeMedium(m, &err)

	buf := make([]byte, length)
	n, rerr := m.ReadAt(buf, int64(addr))
	if n != len(buf) {
		return nil, fmt.Errorf("%w: read %#08x got %d/%d bytes: %v", ErrMediumCorrupt, addr, n, length, rerr)
	}

	if ce := d.log.Check(zap.DebugLevel, "read"); ce != nil {
		ce.Write(
			zap.String("address", fmt.Sprintf("%08X", addr)),
			zap.Uint32("length", length),
			zap.String("data", hex.EncodeToString(buf)),
		)
	}
	return buf, nil
}
