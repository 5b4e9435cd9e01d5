package flash

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type testWriter struct {
	t *testing.T
}

func (w *testWriter) Write(p []byte) (n int, err error) {
	w.t.Log(string(p))

	return len(p), nil
}

func newTestLogger(t *testing.T) *zap.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = ""
	encoderCfg.CallerKey = zapcore.OmitKey
	encoderCfg.ConsoleSeparator = "  "

	encoder := zapcore.NewConsoleEncoder(encoderCfg)
	core := zapcore.NewCore(encoder, zapcore.AddSync(&testWriter{t}), zap.DebugLevel)

	return zap.New(core)
}

// smallGeometry is a 16 byte chip with two 8 byte sectors.
func smallGeometry() Geometry {
	return Geometry{TotalSize: 16, SectorSize: 8, Blank: 0xFF, BytesPerRow: 4}
}

// panicOnFatal makes fatal conditions observable in tests instead of exiting.
func panicOnFatal(fe *FatalError) {
	panic(fe)
}

type anomalyRecorder struct {
	got []Anomaly
}

func (r *anomalyRecorder) handle(a Anomaly) {
	r.got = append(r.got, a)
}

func (r *anomalyRecorder) kinds(k AnomalyKind) []Anomaly {
	var out []Anomaly
	for _, a := range r.got {
		if a.Kind == k {
			out = append(out, a)
		}
	}
	return out
}

func newMemDevice(t *testing.T, geo Geometry, opts ...Option) (*Device, *MemStore) {
	t.Helper()
	store := NewMemStore()
	opts = append([]Option{WithLogger(newTestLogger(t)), WithFatalHandler(panicOnFatal)}, opts...)
	dev, err := New(store, geo, opts...)
	require.NoError(t, err)
	return dev, store
}

func newFileDevice(t *testing.T, geo Geometry, opts ...Option) (*Device, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.bin")
	opts = append([]Option{WithLogger(newTestLogger(t)), WithFatalHandler(panicOnFatal)}, opts...)
	dev, err := New(NewFileStore(path), geo, opts...)
	require.NoError(t, err)
	return dev, path
}

func blanks(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
