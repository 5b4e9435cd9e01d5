package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashemu/flash"
)

func TestParse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) { //nolint:paralleltest // siblings set env
		config, err := Parse()
		require.NoError(t, err)

		assert.Equal(t, "memory.bin", config.File)
		assert.Equal(t, "pretty.txt", config.Report)
		assert.False(t, config.Mmap)

		g, err := config.Geometry()
		require.NoError(t, err)
		assert.Equal(t, flash.DefaultGeometry(), g)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("FLASHEMU_FILE", "/tmp/chip.bin")
		t.Setenv("FLASHEMU_SIZE", "64k")
		t.Setenv("FLASHEMU_SECTOR_SIZE", "1k")
		t.Setenv("FLASHEMU_BLANK", "0")
		t.Setenv("FLASHEMU_ROW", "16")
		t.Setenv("FLASHEMU_MMAP", "true")

		config, err := Parse()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/chip.bin", config.File)
		assert.True(t, config.Mmap)

		g, err := config.Geometry()
		require.NoError(t, err)
		assert.Equal(t, flash.Geometry{TotalSize: 64 * 1024, SectorSize: 1024, Blank: 0x00, BytesPerRow: 16}, g)
	})

	t.Run("bad size", func(t *testing.T) {
		t.Setenv("FLASHEMU_SIZE", "lots")

		_, err := Parse()
		require.Error(t, err)
	})

	t.Run("inconsistent geometry", func(t *testing.T) {
		t.Setenv("FLASHEMU_SIZE", "10k")
		t.Setenv("FLASHEMU_SECTOR_SIZE", "4k")

		config, err := Parse()
		require.NoError(t, err)
		_, err = config.Geometry()
		require.ErrorIs(t, err, flash.ErrInvalidGeometry)
	})
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{in: "4096", want: 4096},
		{in: "4k", want: 4096},
		{in: " 8M ", want: 8 << 20},
		{in: "1g", want: 1 << 30},
		{in: "512b", want: 512},
		{in: "1.5k", want: 1536},
		{in: "", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-1k", wantErr: true},
		{in: "0.3", wantErr: true},
		{in: "8g", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBlank(t *testing.T) {
	b, err := ParseBlank("0xFF")
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), b)

	b, err = ParseBlank("0")
	require.NoError(t, err)
	assert.Equal(t, byte(0), b)

	_, err = ParseBlank("0x100")
	require.Error(t, err)
	_, err = ParseBlank("ff")
	require.Error(t, err)
}
