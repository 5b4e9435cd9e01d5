package flash

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// AnomalyKind classifies a suspicious byte seen during a write.
type AnomalyKind int

const (
	// UnformattedWrite: the target byte was not blank before the write.
	UnformattedWrite AnomalyKind = iota + 1
	// LossyWrite: the committed byte differs from the requested byte because
	// the request tried to set a bit that only an erase can set.
	LossyWrite
)

func (k AnomalyKind) String() string {
	switch k {
	case UnformattedWrite:
		return "unformatted-write"
	case LossyWrite:
		return "lossy-write"
	default:
		return fmt.Sprintf("anomaly(%d)", int(k))
	}
}

// Anomaly describes one byte of a write that did not behave like a write to
// freshly erased flash. For UnformattedWrite, Expected is the blank value and
// Actual the byte found on the medium. For LossyWrite, Expected is the
// requested byte and Actual the committed one.
type Anomaly struct {
	Kind     AnomalyKind
	Address  uint32 // absolute device address
	Index    int    // offset into the source buffer
	Expected byte
	Actual   byte
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s at %#08x[%d]: expected %02X, got %02X",
		a.Kind, a.Address, a.Index, a.Expected, a.Actual)
}

func (a Anomaly) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("kind", a.Kind.String())
	enc.AddString("address", fmt.Sprintf("%#08x", a.Address))
	enc.AddInt("index", a.Index)
	enc.AddString("expected", fmt.Sprintf("%02X", a.Expected))
	enc.AddString("actual", fmt.Sprintf("%02X", a.Actual))
	return nil
}

// AnomalyHandler receives anomalies as they are detected. Returning does
// not affect the write in progress.
type AnomalyHandler func(Anomaly)
