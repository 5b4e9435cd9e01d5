package flash

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportGrid(t *testing.T) {
	dev, _ := newMemDevice(t, smallGeometry())
	require.NoError(t, dev.Format())
	_, err := dev.Write(2, []byte{0x0F, 0xF0})
	require.NoError(t, err)
	_, err = dev.Write(13, []byte{0x01})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, dev.Export(&out))

	want := strings.Join([]string{
		"         0        8        ",
		"00000000 FFFF0FF0 FFFFFFFF ",
		"00000004 FFFFFFFF FF01FFFF ",
		"",
	}, "\n")
	assert.Equal(t, want, out.String())
}

func TestExportDefaultRowWidth(t *testing.T) {
	geo := Geometry{TotalSize: 64, SectorSize: 32, Blank: 0xFF, BytesPerRow: 8}
	dev, _ := newMemDevice(t, geo)
	require.NoError(t, dev.Format())

	var out bytes.Buffer
	require.NoError(t, dev.Export(&out))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 1+32/8)
	assert.Equal(t, "         "+fmt.Sprintf("%-17s%-17s", "0", "20"), lines[0])
	assert.Equal(t, "00000018 FFFFFFFFFFFFFFFF FFFFFFFFFFFFFFFF ", lines[4])
}

func TestExportFile(t *testing.T) {
	dev, _ := newFileDevice(t, smallGeometry())
	require.NoError(t, dev.EnsureReady())

	report := filepath.Join(t.TempDir(), "pretty.txt")
	require.NoError(t, dev.ExportFile(report))

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "         0        8        \n00000000 FFFFFFFF FFFFFFFF \n"))
}

func TestExportMissingMedium(t *testing.T) {
	dev, store := newMemDevice(t, smallGeometry())

	err := dev.Export(&bytes.Buffer{})
	require.ErrorIs(t, err, ErrMediumUnavailable)
	assert.Nil(t, store.Bytes(), "export must not format")
}

func TestExportTruncatedMedium(t *testing.T) {
	dev, store := newMemDevice(t, smallGeometry())
	require.NoError(t, dev.Format())
	store.Truncate(12)

	err := dev.Export(&bytes.Buffer{})
	require.ErrorIs(t, err, ErrMediumCorrupt)
}

func TestExportFileDestinationFailure(t *testing.T) {
	dev, _ := newMemDevice(t, smallGeometry())
	require.NoError(t, dev.Format())

	err := dev.ExportFile(filepath.Join(t.TempDir(), "missing", "pretty.txt"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMediumUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
