package cfg

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"

	"flashemu/flash"
)

// Size is a byte count written with an optional k, m, g or b suffix.
type Size uint32

// Blank is the erased byte value, written in decimal or with a 0x prefix.
type Blank byte

type Config struct {
	File        string `env:"FLASHEMU_FILE"        envDefault:"memory.bin"`
	Report      string `env:"FLASHEMU_REPORT"      envDefault:"pretty.txt"`
	TotalSize   Size   `env:"FLASHEMU_SIZE"        envDefault:"8m"`
	SectorSize  Size   `env:"FLASHEMU_SECTOR_SIZE" envDefault:"4k"`
	Blank       Blank  `env:"FLASHEMU_BLANK"       envDefault:"0xFF"`
	BytesPerRow uint32 `env:"FLASHEMU_ROW"         envDefault:"8"`
	Mmap        bool   `env:"FLASHEMU_MMAP"`
	Debug       bool   `env:"FLASHEMU_DEBUG"`
	LogJSON     bool   `env:"FLASHEMU_LOG_JSON"`
}

func Parse() (Config, error) {
	return env.ParseAsWithOptions[Config](env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(Size(0)): func(v string) (interface{}, error) {
				n, err := ParseSize(v)
				return Size(n), err
			},
			reflect.TypeOf(Blank(0)): func(v string) (interface{}, error) {
				b, err := ParseBlank(v)
				return Blank(b), err
			},
		},
	})
}

// Geometry returns the validated flash geometry described by c.
func (c Config) Geometry() (flash.Geometry, error) {
	g := flash.Geometry{
		TotalSize:   uint32(c.TotalSize),
		SectorSize:  uint32(c.SectorSize),
		Blank:       byte(c.Blank),
		BytesPerRow: c.BytesPerRow,
	}
	if err := g.Validate(); err != nil {
		return flash.Geometry{}, err
	}
	return g, nil
}

// ParseSize parses sizes such as 4096, 4k, 8m or 1.5k.
func ParseSize(s string) (uint32, error) {
	ss := strings.TrimSpace(strings.ToLower(s))
	if ss == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := float64(1)
	switch {
	case strings.HasSuffix(ss, "k"):
		mult = 1024
		ss = strings.TrimSuffix(ss, "k")
	case strings.HasSuffix(ss, "m"):
		mult = 1024 * 1024
		ss = strings.TrimSuffix(ss, "m")
	case strings.HasSuffix(ss, "g"):
		mult = 1024 * 1024 * 1024
		ss = strings.TrimSuffix(ss, "g")
	case strings.HasSuffix(ss, "b"):
		ss = strings.TrimSuffix(ss, "b")
	}
	v, err := strconv.ParseFloat(ss, 64)
	if err != nil {
		return 0, fmt.Errorf("size %q: %w", s, err)
	}
	n := v * mult
	if n <= 0 || n > math.MaxUint32 || n != math.Trunc(n) {
		return 0, fmt.Errorf("size %q is not a whole number of bytes in 1..%d", s, uint64(math.MaxUint32))
	}
	return uint32(n), nil
}

// ParseBlank parses an erased byte value such as 0xFF, 255 or 0.
func ParseBlank(s string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("blank value %q: %w", s, err)
	}
	return byte(v), nil
}
