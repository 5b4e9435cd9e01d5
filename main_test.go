package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashemu/flash"
	"flashemu/internal/cfg"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansi.ReplaceAllString(s, "")
}

// small appends the flags for a 16 byte device with two 8 byte sectors.
func small(args ...string) []string {
	return append(args, "--size", "16", "--sector-size", "8", "--row", "4")
}

func run(t *testing.T, file string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	conf, err := cfg.Parse()
	require.NoError(t, err)
	conf.File = file

	cmd := newRootCmd(conf)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return stripANSI(out.String()), errOut.String(), err
}

func tempFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "memory.bin")
}

func TestInitCreatesBlankMedium(t *testing.T) {
	file := tempFile(t)

	out, _, err := run(t, file, small("init")...)
	require.NoError(t, err)
	assert.Contains(t, out, "ready: 16B, 2 sectors")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 16), data)

	_, _, err = run(t, file, "init", "--size", "32", "--sector-size", "8")
	require.ErrorIs(t, err, flash.ErrMediumCorrupt, "init must not wipe a medium of another size")
}

func TestWriteReadScenario(t *testing.T) {
	file := tempFile(t)
	_, _, err := run(t, file, small("format")...)
	require.NoError(t, err)

	out, stderr, err := run(t, file, small("write", "2", "--hex", "0f f0")...)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 bytes at 00000002")
	assert.NotContains(t, out, "WARN")
	assert.NotContains(t, stderr, "write anomaly")

	out, stderr, err = run(t, file, small("write", "0x2", "--hex", "ff00")...)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "lossy-write"))
	assert.Equal(t, 2, strings.Count(out, "unformatted-write"))
	assert.Contains(t, stderr, "write anomaly")

	raw := filepath.Join(t.TempDir(), "raw.bin")
	_, _, err = run(t, file, small("read", "2", "2", "--out", raw)...)
	require.NoError(t, err)
	got, err := os.ReadFile(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0F, 0x00}, got)

	out, _, err = run(t, file, small("read", "0", "4")...)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "00000000  FF FF 0F 00"), out)
	assert.Contains(t, out, "|....|")
}

func TestWriteFromFile(t *testing.T) {
	file := tempFile(t)
	in := filepath.Join(t.TempDir(), "payload")
	require.NoError(t, os.WriteFile(in, []byte("hi"), 0o644))

	_, _, err := run(t, file, small("write", "8", "--in", in)...)
	require.NoError(t, err)

	out, _, err := run(t, file, small("read", "8", "2")...)
	require.NoError(t, err)
	assert.Contains(t, out, "|hi|")
}

func TestWriteRejectsBadInput(t *testing.T) {
	file := tempFile(t)

	_, _, err := run(t, file, small("write", "0")...)
	require.Error(t, err)

	_, _, err = run(t, file, small("write", "0", "--hex", "zz")...)
	require.Error(t, err)

	_, _, err = run(t, file, small("write", "nope", "--hex", "00")...)
	require.Error(t, err)

	_, _, err = run(t, file, small("write", "15", "--hex", "00")...)
	require.ErrorIs(t, err, flash.ErrSizeOutOfRange)

	_, _, err = run(t, file, small("write", "15", "--hex", "00", "--inclusive-end")...)
	require.NoError(t, err)
}

func TestEraseCommand(t *testing.T) {
	file := tempFile(t)
	_, _, err := run(t, file, small("write", "2", "--hex", "00 00")...)
	require.NoError(t, err)
	_, _, err = run(t, file, small("write", "9", "--hex", "00")...)
	require.NoError(t, err)

	out, _, err := run(t, file, small("erase", "0x5")...)
	require.NoError(t, err)
	assert.Contains(t, out, "erased sector 0 at 00000000")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 8), data[:8])
	assert.Equal(t, byte(0x00), data[9])

	_, _, err = run(t, file, small("erase", "16")...)
	require.ErrorIs(t, err, flash.ErrAddressOutOfRange)
}

func TestPrettyCommand(t *testing.T) {
	file := tempFile(t)
	_, _, err := run(t, file, small("write", "2", "--hex", "0ff0")...)
	require.NoError(t, err)

	out, _, err := run(t, file, small("pretty", "--out", "-")...)
	require.NoError(t, err)
	want := "         0        8        \n" +
		"00000000 FFFF0FF0 FFFFFFFF \n" +
		"00000004 FFFFFFFF FFFFFFFF \n"
	assert.Equal(t, want, out)

	report := filepath.Join(t.TempDir(), "pretty.txt")
	_, _, err = run(t, file, small("pretty", "--out", report)...)
	require.NoError(t, err)
	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Equal(t, want, string(data))
}

func TestPrettyReportFromEnv(t *testing.T) {
	report := filepath.Join(t.TempDir(), "env-report.txt")
	t.Setenv("FLASHEMU_REPORT", report)
	file := tempFile(t)
	_, _, err := run(t, file, small("init")...)
	require.NoError(t, err)

	out, _, err := run(t, file, small("pretty")...)
	require.NoError(t, err)
	assert.Contains(t, out, report)
	assert.FileExists(t, report)
}

func TestInfoCommand(t *testing.T) {
	file := tempFile(t)

	out, _, err := run(t, file, small("info")...)
	require.NoError(t, err)
	assert.Contains(t, out, "medium absent")
	assert.NoFileExists(t, file, "info must not create the medium")

	_, _, err = run(t, file, small("write", "1", "--hex", "00")...)
	require.NoError(t, err)
	_, _, err = run(t, file, small("write", "8", "--hex", "0000000000000000", "--inclusive-end")...)
	require.NoError(t, err)

	out, _, err = run(t, file, small("info")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Sectors: 2")
	assert.Contains(t, out, "Blank: 0   Partial: 1   Full: 1")
	assert.Contains(t, out, "Programmed: 9 bytes")
	assert.Contains(t, out, "In use: 0-1")
}

func TestInfoReportsUnreachableMedium(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(parent, nil, 0o644))
	file := filepath.Join(parent, "memory.bin")

	out, _, err := run(t, file, small("info")...)
	require.ErrorIs(t, err, flash.ErrMediumUnavailable)
	assert.NotErrorIs(t, err, os.ErrNotExist)
	assert.NotContains(t, out, "medium absent")
}

func TestMmapBackend(t *testing.T) {
	file := tempFile(t)
	_, _, err := run(t, file, small("init", "--mmap")...)
	require.NoError(t, err)
	_, _, err = run(t, file, small("write", "3", "--hex", "a5", "--mmap")...)
	require.NoError(t, err)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, byte(0xA5), data[3])
}

func TestEnvGeometry(t *testing.T) {
	t.Setenv("FLASHEMU_SIZE", "32")
	t.Setenv("FLASHEMU_SECTOR_SIZE", "16")
	t.Setenv("FLASHEMU_BLANK", "0x00")
	file := tempFile(t)

	_, _, err := run(t, file, "init")
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), data)

	_, _, err = run(t, file, "init", "--size", "30")
	require.ErrorIs(t, err, flash.ErrInvalidGeometry)
}

func TestVerboseLogsData(t *testing.T) {
	file := tempFile(t)
	_, stderr, err := run(t, file, small("write", "0", "--hex", "12", "-v", "--log-json")...)
	require.NoError(t, err)
	assert.Contains(t, stderr, `"message":"data to write"`)
	assert.Contains(t, stderr, `"data":"12"`)
}

func TestParseAddress(t *testing.T) {
	for in, want := range map[string]uint32{"0": 0, "4096": 4096, "0x1000": 0x1000, " 0X10 ": 16} {
		got, err := parseAddress(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "-1", "0x100000000", "abc"} {
		_, err := parseAddress(in)
		assert.Error(t, err, in)
	}
}

func TestParseHexBytes(t *testing.T) {
	for _, in := range []string{"0ff0", "0f f0", "0f:f0", "0F,F0"} {
		got, err := parseHexBytes(in)
		require.NoError(t, err, in)
		assert.Equal(t, []byte{0x0F, 0xF0}, got, in)
	}
	_, err := parseHexBytes("0f0")
	assert.Error(t, err)
}

func TestSizeStringRoundTrip(t *testing.T) {
	for _, n := range []uint32{16, 1000, 4096, 8 << 20, 3 << 10} {
		got, err := cfg.ParseSize(sizeString(n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestSectorRanges(t *testing.T) {
	in := map[uint32]bool{0: true, 1: true, 2: true, 5: true, 7: true, 8: true}
	assert.Equal(t, "0-2, 5, 7-8", sectorRanges(10, func(s uint32) bool { return in[s] }))
	assert.Equal(t, "none", sectorRanges(4, func(uint32) bool { return false }))
}

func TestHuman(t *testing.T) {
	assert.Equal(t, "8M", human(8<<20))
	assert.Equal(t, "4K", human(4096))
	assert.Equal(t, "1536K", human(1536*1024))
	assert.Equal(t, "16B", human(16))
}
