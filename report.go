package main

import (
	"fmt"
	"io"
	"strings"

	"flashemu/flash"
)

const dumpWidth = 16

// hexDump prints data as address, hex and ASCII columns, 16 bytes a line.
// Blank bytes are dimmed so programmed data stands out.
func (a *app) hexDump(w io.Writer, addr uint32, data []byte) {
	for off := 0; off < len(data); off += dumpWidth {
		end := off + dumpWidth
		if end > len(data) {
			end = len(data)
		}
		line := data[off:end]

		var hexCol, ascii strings.Builder
		for i, b := range line {
			if i > 0 {
				hexCol.WriteByte(' ')
			}
			cell := fmt.Sprintf("%02X", b)
			if b == a.geo.Blank {
				hexCol.WriteString(a.st.blank.Render(cell))
			} else {
				hexCol.WriteString(a.st.data.Render(cell))
			}
			if b >= 0x20 && b < 0x7f {
				ascii.WriteByte(b)
			} else {
				ascii.WriteByte('.')
			}
		}
		pad := strings.Repeat(" ", (dumpWidth-len(line))*3)
		fmt.Fprintf(w, "%s  %s%s  %s\n",
			a.st.addr.Render(fmt.Sprintf("%08X", addr+uint32(off))),
			hexCol.String(), pad,
			a.st.ascii.Render("|"+ascii.String()+"|"))
	}
}

// sectorRanges compresses the sectors matching keep into "0-3, 7".
func sectorRanges(count uint32, keep func(uint32) bool) string {
	var parts []string
	for s := uint32(0); s < count; s++ {
		if !keep(s) {
			continue
		}
		end := s
		for end+1 < count && keep(end+1) {
			end++
		}
		if end == s {
			parts = append(parts, fmt.Sprintf("%d", s))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", s, end))
		}
		s = end
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// printInfo prints the geometry block and, when the medium exists, a usage
// summary. A nil sm means the medium is absent.
func (a *app) printInfo(w io.Writer, dev *flash.Device, sm *flash.SectorMap) {
	g := dev.Geometry()
	lineWidth := 79
	barHeavy := strings.Repeat("═", lineWidth)
	barLight := strings.Repeat("─", lineWidth)

	lines := []string{
		barHeavy,
		a.st.header.Render(" GEOMETRY"),
		barLight,
		fmt.Sprintf(" %s %s", a.st.label.Render("Medium:"), dev.Store()),
		fmt.Sprintf(" %s %s", a.st.label.Render("Session:"), dev.ID()),
		fmt.Sprintf(" %s %s (%d bytes)   %s %s   %s %d",
			a.st.label.Render("Size:"), human(int64(g.TotalSize)), g.TotalSize,
			a.st.label.Render("Sector:"), human(int64(g.SectorSize)),
			a.st.label.Render("Sectors:"), g.SectorCount()),
		fmt.Sprintf(" %s %02X   %s %d bytes", a.st.label.Render("Blank value:"), g.Blank, a.st.label.Render("Report row:"), g.BytesPerRow),
		barLight,
		a.st.header.Render(" USAGE"),
		barLight,
	}

	if sm == nil {
		lines = append(lines, " "+a.st.warn.Render("medium absent")+" (run init or format)")
	} else {
		var partial, full uint32
		for s := uint32(0); s < sm.SectorCount(); s++ {
			switch sm.Usage(s) {
			case flash.Partial:
				partial++
			case flash.Full:
				full++
			}
		}
		lines = append(lines,
			fmt.Sprintf(" %s %d   %s %d   %s %d", a.st.label.Render("Blank:"), sm.BlankSectors(),
				a.st.label.Render("Partial:"), partial, a.st.label.Render("Full:"), full),
			fmt.Sprintf(" %s %d bytes", a.st.label.Render("Programmed:"), sm.ProgrammedBytes()),
			fmt.Sprintf(" %s %s", a.st.label.Render("In use:"),
				sectorRanges(sm.SectorCount(), func(s uint32) bool { return !sm.IsBlank(s) })),
		)
	}
	lines = append(lines, barHeavy)

	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
