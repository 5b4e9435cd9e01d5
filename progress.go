package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/gdamore/tcell/v2"

	"flashemu/flash"
	"flashemu/retrodfrg"
)

const (
	glyphBlank   = '░'
	glyphPartial = '▒'
	glyphFull    = '█'
	glyphPending = '■'
)

var glyphStyles = map[rune]tcell.Style{
	glyphBlank:   tcell.StyleDefault.Foreground(tcell.ColorGray),
	glyphPartial: tcell.StyleDefault.Foreground(tcell.ColorYellow),
	glyphFull:    tcell.StyleDefault.Foreground(tcell.ColorGreen),
	glyphPending: tcell.StyleDefault.Foreground(tcell.ColorBlue),
}

// progressTracker records which sectors a format has erased so far.
type progressTracker struct {
	done       *bitset.BitSet
	total      uint32
	currentPos uint32
	start      time.Time
}

func newProgressTracker(total uint32) *progressTracker {
	return &progressTracker{
		done:  bitset.New(uint(total)),
		total: total,
		start: time.Now(),
	}
}

func (pt *progressTracker) mark(sector uint32) {
	if sector >= pt.total {
		return
	}
	pt.done.Set(uint(sector))
	pt.currentPos = sector
}

func (pt *progressTracker) doneCount() uint32 {
	return uint32(pt.done.Count())
}

func (pt *progressTracker) glyph(sector uint32) rune {
	if pt.done.Test(uint(sector)) {
		return glyphBlank
	}
	return glyphPending
}

func usageGlyph(sm *flash.SectorMap) func(uint32) rune {
	return func(sector uint32) rune {
		switch sm.Usage(sector) {
		case flash.Full:
			return glyphFull
		case flash.Partial:
			return glyphPartial
		default:
			return glyphBlank
		}
	}
}

// sectorMapLines lays out one glyph per sector in rows of w cells. When the
// device has more sectors than fit, the window scrolls to keep focus visible.
func sectorMapLines(total, focus uint32, glyph func(uint32) rune, w, rows int) []string {
	if total == 0 || w <= 0 || rows <= 0 {
		return nil
	}
	cells := uint32(w * rows)

	start := uint32(0)
	if total > cells && focus >= cells {
		start = focus - (cells - 1)
		if start+cells > total {
			start = total - cells
		}
	}

	var lines []string
	for row := 0; row < rows; row++ {
		var b strings.Builder
		for col := 0; col < w; col++ {
			abs := start + uint32(row*w+col)
			if abs >= total {
				break
			}
			b.WriteRune(glyph(abs))
		}
		if b.Len() == 0 {
			break
		}
		lines = append(lines, b.String())
	}
	return lines
}

func summaryLines(dev *flash.Device) []string {
	g := dev.Geometry()
	return []string{
		fmt.Sprintf("Medium: %s", dev.Store()),
		fmt.Sprintf("Size: %-6s  Sector: %-5s  Sectors: %-5d  Blank: %02X", human(int64(g.TotalSize)), human(int64(g.SectorSize)), g.SectorCount(), g.Blank),
	}
}

const headerLines = 4 // title, two summary lines, legend

func updateFormatStatus(ui *retrodfrg.UI, pt *progressTracker, currentOp string) {
	w, h := ui.Size()
	if w > 0 && h > 0 {
		ui.SetSectorMap(sectorMapLines(pt.total, pt.currentPos, pt.glyph, w, retrodfrg.MapRows(h, headerLines)))
	}
	elapsed := time.Since(pt.start).Truncate(time.Millisecond)
	ui.SetStatusLines([]string{
		fmt.Sprintf("Sector: %06d", pt.currentPos),
		fmt.Sprintf("Erased: %d / %d sectors", pt.doneCount(), pt.total),
		fmt.Sprintf("Elapsed: %s", elapsed),
		"Current op: " + currentOp,
	})
}

func updateViewStatus(ui *retrodfrg.UI, sm *flash.SectorMap, focus uint32) {
	w, h := ui.Size()
	if w > 0 && h > 0 {
		ui.SetSectorMap(sectorMapLines(sm.SectorCount(), focus, usageGlyph(sm), w, retrodfrg.MapRows(h, headerLines)))
	}
	ui.SetStatusLines([]string{
		fmt.Sprintf("Blank sectors: %d / %d", sm.BlankSectors(), sm.SectorCount()),
		fmt.Sprintf("Programmed: %d bytes", sm.ProgrammedBytes()),
		"Updated: " + time.Now().Format("15:04:05"),
	})
}

// lastProgrammed is the highest sector holding data, used to keep the view
// scrolled to the interesting part of large devices.
func lastProgrammed(sm *flash.SectorMap) uint32 {
	for s := sm.SectorCount(); s > 0; s-- {
		if !sm.IsBlank(s - 1) {
			return s - 1
		}
	}
	return 0
}
