package flash

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Device emulates a NOR flash chip on top of a Store.
//
// A Device keeps no copy of the flash contents. Every operation opens the
// medium, transfers and closes it again, so callers always observe the
// latest persisted state. Device does no locking: concurrent callers, in
// this process or another one sharing the medium, must serialize access
// themselves or risk a torn read-modify-write.
type Device struct {
	geo   Geometry
	store Store
	log   *zap.Logger
	id    uuid.UUID
	blank []byte

	inclusiveEnd bool
	onAnomaly    AnomalyHandler
	onFatal      func(*FatalError)
	onProgress   func(sector, count uint32) error
}

type Option func(*Device)

func WithLogger(log *zap.Logger) Option {
	return func(d *Device) {
		if log != nil {
			d.log = log
		}
	}
}

// WithAnomalyHandler registers h to receive every write anomaly.
func WithAnomalyHandler(h AnomalyHandler) Option {
	return func(d *Device) {
		d.onAnomaly = h
	}
}

// WithFatalHandler replaces the default fatal handler, which logs at fatal
// level and exits the process. Without WithLogger the default handler still
// writes the failure to stderr before exiting. If h returns, the failing operation returns
// the *FatalError to its caller.
func WithFatalHandler(h func(*FatalError)) Option {
	return func(d *Device) {
		d.onFatal = h
	}
}

// WithFormatProgress registers fn to be called after each sector erased by
// Format. A non-nil error from fn stops the format before the next sector
// and is returned by Format; the medium is then only partly erased.
func WithFormatProgress(fn func(sector, count uint32) error) Option {
	return func(d *Device) {
		d.onProgress = fn
	}
}

// WithInclusiveEnd accepts read and write regions ending exactly on the last
// byte of the device. By default such regions are rejected with
// ErrSizeOutOfRange, matching the reference driver's bound check.
func WithInclusiveEnd() Option {
	return func(d *Device) {
		d.inclusiveEnd = true
	}
}

// New returns a device over store. The medium is not touched until the
// first operation; call EnsureReady to create it eagerly.
func New(store Store, geo Geometry, opts ...Option) (*Device, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrMediumUnavailable)
	}
	d := &Device{
		geo:   geo,
		store: store,
		id:    uuid.New(),
		blank: bytes.Repeat([]byte{geo.Blank}, int(geo.SectorSize)),
	}
	for _, opt := range opts {
		opt(d)
	}
	fatalLog := d.log
	if d.log == nil {
		d.log = zap.NewNop()
		fatalLog = stderrLogger()
	}
	fields := []zap.Field{
		zap.String("device.id", d.id.String()),
		zap.String("device.store", store.String()),
	}
	d.log = d.log.With(fields...)
	if d.onFatal == nil {
		fatalLog = fatalLog.With(fields...)
		d.onFatal = func(fe *FatalError) {
			fatalLog.Fatal("flash medium unavailable, aborting", zap.String("op", fe.Op), zap.Error(fe.Err))
		}
	}
	return d, nil
}

// stderrLogger only carries errors and fatal exits for devices built without
// a logger.
func stderrLogger() *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stderr), zap.ErrorLevel)
	return zap.New(core)
}

func (d *Device) Geometry() Geometry {
	return d.geo
}

// ID identifies this device instance in logs.
func (d *Device) ID() uuid.UUID {
	return d.id
}

func (d *Device) Store() Store {
	return d.store
}

// EnsureReady creates and formats the medium when it does not exist. An
// existing medium of the right size is left untouched; one of the wrong size
// is reported as ErrMediumCorrupt and never wiped.
func (d *Device) EnsureReady() error {
	size, err := d.store.Size()
	switch {
	case errors.Is(err, os.ErrNotExist):
		d.log.Info("medium absent, formatting")
		return d.Format()
	case err != nil:
		return fmt.Errorf("%w: %w", ErrMediumUnavailable, err)
	case size != int64(d.geo.TotalSize):
		return fmt.Errorf("%w: medium is %d bytes, want %d", ErrMediumCorrupt, size, d.geo.TotalSize)
	}
	return nil
}

// Format recreates the medium and erases every sector in ascending order.
// The first failing sector aborts the format.
func (d *Device) Format() (err error) {
	m, err := d.store.Create(int64(d.geo.TotalSize))
	if err != nil {
		return fmt.Errorf("format: %w: %w", ErrMediumUnavailable, err)
	}
	defer closeMedium(m, &err)

	count := d.geo.SectorCount()
	for i := uint32(0); i < count; i++ {
		if err := d.eraseAt(m, i*d.geo.SectorSize); err != nil {
			return fmt.Errorf("format sector %d: %w", i, err)
		}
		if d.onProgress != nil {
			if err := d.onProgress(i, count); err != nil {
				return fmt.Errorf("format stopped after sector %d: %w", i, err)
			}
		}
	}
	if err := syncMedium(m); err != nil {
		return fmt.Errorf("format: %w: sync: %w", ErrMediumCorrupt, err)
	}
	d.log.Info("medium formatted",
		zap.Uint32("size", d.geo.TotalSize),
		zap.Uint32("sectors", count),
	)
	return nil
}

// openOrFormat opens the medium for a read or write. A missing medium is
// formatted once and reopened; if it still cannot be opened the failure is
// fatal.
func (d *Device) openOrFormat(op string, write bool) (Medium, error) {
	m, err := d.store.Open(write)
	if err == nil {
		return m, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		d.log.Info("medium absent, formatting", zap.String("op", op))
		if ferr := d.Format(); ferr != nil {
			d.log.Error("lazy format failed", zap.String("op", op), zap.Error(ferr))
		}
		m, err = d.store.Open(write)
		if err == nil {
			return m, nil
		}
	}
	return nil, d.fatal(op, fmt.Errorf("%w: %w", ErrMediumUnavailable, err))
}

func (d *Device) fatal(op string, err error) error {
	fe := &FatalError{Op: op, Err: err}
	d.onFatal(fe)
	return fe
}

func closeMedium(m Medium, err *error) {
	if cerr := m.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("%w: close: %w", ErrMediumCorrupt, cerr)
	}
}
