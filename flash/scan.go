package flash

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Usage summarizes how much of a sector has been programmed since its last
// erase.
type Usage int

const (
	Blank Usage = iota
	Partial
	Full
)

func (u Usage) String() string {
	switch u {
	case Blank:
		return "blank"
	case Partial:
		return "partial"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("usage(%d)", int(u))
	}
}

// SectorMap is a point-in-time view of which sectors hold data.
type SectorMap struct {
	geo        Geometry
	blank      *bitset.BitSet
	programmed []uint32
}

// Scan reads the whole medium and counts the non-blank bytes of every
// sector. Like Export it does not format a missing medium.
func (d *Device) Scan() (*SectorMap, error) {
	data, err := d.snapshot()
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return newSectorMap(d.geo, data), nil
}

func newSectorMap(g Geometry, data []byte) *SectorMap {
	count := g.SectorCount()
	sm := &SectorMap{
		geo:        g,
		blank:      bitset.New(uint(count)),
		programmed: make([]uint32, count),
	}
	for s := uint32(0); s < count; s++ {
		sector := data[s*g.SectorSize : (s+1)*g.SectorSize]
		var n uint32
		for _, b := range sector {
			if b != g.Blank {
				n++
			}
		}
		sm.programmed[s] = n
		if n == 0 {
			sm.blank.Set(uint(s))
		}
	}
	return sm
}

func (sm *SectorMap) SectorCount() uint32 {
	return uint32(len(sm.programmed))
}

func (sm *SectorMap) IsBlank(sector uint32) bool {
	return sm.blank.Test(uint(sector))
}

// BlankSectors returns how many sectors are fully erased.
func (sm *SectorMap) BlankSectors() uint32 {
	return uint32(sm.blank.Count())
}

// Programmed returns the number of non-blank bytes in sector.
func (sm *SectorMap) Programmed(sector uint32) uint32 {
	if sector >= uint32(len(sm.programmed)) {
		return 0
	}
	return sm.programmed[sector]
}

// ProgrammedBytes returns the number of non-blank bytes on the device.
func (sm *SectorMap) ProgrammedBytes() uint64 {
	var total uint64
	for _, n := range sm.programmed {
		total += uint64(n)
	}
	return total
}

func (sm *SectorMap) Usage(sector uint32) Usage {
	switch n := sm.Programmed(sector); {
	case n == 0:
		return Blank
	case n == sm.geo.SectorSize:
		return Full
	default:
		return Partial
	}
}
