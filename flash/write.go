package flash

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"
)

// Write programs src at addr and returns the number of bytes committed.
//
// Programming can only clear bits, so each committed byte is the AND of the
// byte already stored and the requested one. Bytes that were not blank and
// bytes that could not take the requested value are reported as anomalies;
// neither makes the write fail. Callers that care whether the data landed
// as requested should compare it with a subsequent Read.
//
// A missing medium is handled like in Read.
func (d *Device) Write(addr uint32, src []byte) (n int, err error) {
	if err := d.geo.CheckRegion(addr, uint64(len(src)), d.inclusiveEnd); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	m, err := d.openOrFormat("write", true)
	if err != nil {
		return 0, err
	}
	defer closeMedium(m, &err)

	if ce := d.log.Check(zap.DebugLevel, "data to write"); ce != nil {
		ce.Write(
			zap.String("address", fmt.Sprintf("%08X", addr)),
			zap.String("data", hex.EncodeToString(src)),
		)
	}

	buf := make([]byte, len(src))
	if rn, rerr := m.ReadAt(buf, int64(addr)); rn != len(buf) {
		return 0, fmt.Errorf("%w: write %#08x read %d/%d bytes: %v", ErrMediumCorrupt, addr, rn, len(buf), rerr)
	}

	for i, cur := range buf {
		at := addr + uint32(i)
		if cur != d.geo.Blank {
			d.report(Anomaly{Kind: UnformattedWrite, Address: at, Index: i, Expected: d.geo.Blank, Actual: cur})
		}
		buf[i] = cur & src[i]
		if buf[i] != src[i] {
			d.report(Anomaly{Kind: LossyWrite, Address: at, Index: i, Expected: src[i], Actual: buf[i]})
		}
	}

	wn, werr := m.WriteAt(buf, int64(addr))
	if wn != len(buf) {
		return 0, fmt.Errorf("%w: write %#08x wrote %d/%d bytes: %v", ErrMediumCorrupt, addr, wn, len(buf), werr)
	}
	if err := syncMedium(m); err != nil {
		return 0, fmt.Errorf("%w: write %#08x: sync: %w", ErrMediumCorrupt, addr, err)
	}

	written := make([]byte, len(buf))
	if vn, verr := m.ReadAt(written, int64(addr)); vn != len(written) {
		return 0, fmt.Errorf("%w: write %#08x verify read %d/%d bytes: %v", ErrMediumCorrupt, addr, vn, len(written), verr)
	}
	if !bytes.Equal(written, buf) {
		return 0, fmt.Errorf("%w: write %#08x verify mismatch", ErrMediumCorrupt, addr)
	}

	if ce := d.log.Check(zap.DebugLevel, "written"); ce != nil {
		ce.Write(
			zap.String("address", fmt.Sprintf("%08X", addr)),
			zap.String("data", hex.EncodeToString(written)),
		)
	}
	return len(buf), nil
}

func (d *Device) report(a Anomaly) {
	d.log.Warn("write anomaly", zap.Object("anomaly", a))
	if d.onAnomaly != nil {
		d.onAnomaly(a)
	}
}
