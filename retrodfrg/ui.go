// Package retrodfrg draws a full screen, defrag style sector map in the
// terminal. It knows nothing about flash: callers hand it pre-rendered lines
// and it lays them out under a title with optional phases and status.
package retrodfrg

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// ErrInterrupted is returned when the user asks to stop.
var ErrInterrupted = errors.New("interrupted")

// statusReserve is the number of rows kept free below the sector map for the
// phase and status blocks.
const statusReserve = 7

// UI is a terminal screen showing a sector map plus free form text blocks.
// All setters are safe to call while the event loop is running.
type UI struct {
	s        tcell.Screen
	stopChan chan struct{}
	once     sync.Once
	mu       sync.Mutex
	restore  bool

	title        string
	phases       []string
	phaseDoneMap map[string]bool
	summaryLines []string
	legendLines  []string
	statusLines  []string

	sectorMapLines []string
	glyphStyles    map[rune]tcell.Style
}

// NewUI takes over the controlling terminal.
func NewUI() (*UI, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	u, err := NewUIWithScreen(s)
	if err != nil {
		return nil, err
	}
	u.restore = true
	return u, nil
}

// NewUIWithScreen runs the UI on an existing screen, such as a
// tcell.SimulationScreen. The screen is initialized here.
func NewUIWithScreen(s tcell.Screen) (*UI, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.DisableMouse()
	u := &UI{
		s:            s,
		stopChan:     make(chan struct{}),
		phaseDoneMap: make(map[string]bool),
	}
	go u.eventLoop(s)
	return u, nil
}

// Close releases the screen. It is safe to call more than once.
func (u *UI) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.s == nil {
		return
	}
	u.s.Fini()
	u.s = nil
	if u.restore {
		fmt.Print("\033[?1049l\033[?25h")
	}
}

// RequestStop signals that the user wants the current operation to end.
func (u *UI) RequestStop() {
	u.once.Do(func() {
		close(u.stopChan)
		u.mu.Lock()
		if u.s != nil {
			_ = u.s.PostEvent(tcell.NewEventInterrupt(nil))
		}
		u.mu.Unlock()
	})
}

func (u *UI) IsStopped() bool {
	select {
	case <-u.stopChan:
		return true
	default:
		return false
	}
}

// Done is closed once a stop has been requested.
func (u *UI) Done() <-chan struct{} {
	return u.stopChan
}

// Size returns the screen width and height, or zeros after Close.
func (u *UI) Size() (width, height int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.s == nil {
		return 0, 0
	}
	return u.s.Size()
}

// MapRows returns how many rows are left for the sector map on a screen of
// height h once lines of text have been placed above it.
func MapRows(h, lines int) int {
	avail := h - lines - statusReserve
	if avail < 1 {
		avail = 1
	}
	return avail
}

func putStr(s tcell.Screen, x, y int, str string, styleOf func(rune) tcell.Style) {
	w, _ := s.Size()
	for i, r := range []rune(str) {
		pos := x + i
		if pos >= w {
			break
		}
		if pos < 0 {
			continue
		}
		st := tcell.StyleDefault
		if styleOf != nil {
			st = styleOf(r)
		}
		s.SetContent(pos, y, r, nil, st)
	}
}

// LayoutAndDraw redraws the whole screen from the current state.
func (u *UI) LayoutAndDraw() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.s == nil {
		return
	}
	u.s.Clear()
	w, h := u.s.Size()
	y := 0

	if u.title != "" {
		putStr(u.s, 0, y, strings.Repeat("═", w), nil)
		putStr(u.s, (w-len([]rune(u.title)))/2, y, u.title, nil)
		y++
	}
	for _, line := range append(append([]string(nil), u.summaryLines...), u.legendLines...) {
		if y >= h {
			break
		}
		putStr(u.s, 0, y, line, nil)
		y++
	}

	if len(u.sectorMapLines) > 0 {
		rows := h - y - statusReserve
		if rows < 1 {
			rows = 1
		}
		if rows > len(u.sectorMapLines) {
			rows = len(u.sectorMapLines)
		}
		for i := 0; i < rows && y < h; i++ {
			putStr(u.s, 0, y, u.sectorMapLines[i], u.glyphStyle)
			y++
		}
	}

	if len(u.phases) > 0 && y < h {
		putStr(u.s, 0, y, strings.Repeat("─", w), nil)
		putStr(u.s, 2, y, " Phase ", nil)
		y++
		var b strings.Builder
		for i, p := range u.phases {
			if i > 0 {
				b.WriteByte(' ')
			}
			mark := ' '
			if u.phaseDoneMap[strings.ToLower(p)] {
				mark = '✓'
			}
			fmt.Fprintf(&b, "[%c]%s", mark, p)
		}
		putStr(u.s, 0, y, b.String(), nil)
		y++
	}

	if len(u.statusLines) > 0 && y < h {
		putStr(u.s, 0, y, strings.Repeat("─", w), nil)
		putStr(u.s, 2, y, " Status ", nil)
		y++
		for _, line := range u.statusLines {
			if y >= h {
				break
			}
			putStr(u.s, 0, y, line, nil)
			y++
		}
	}

	u.s.Show()
}

func (u *UI) glyphStyle(r rune) tcell.Style {
	if st, ok := u.glyphStyles[r]; ok {
		return st
	}
	return tcell.StyleDefault
}

// SetPhaseDone marks phase p as completed. Names are case-insensitive.
func (u *UI) SetPhaseDone(p string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.phaseDoneMap[strings.ToLower(p)] = true
}

func (u *UI) SetPhases(labels []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.phases = append([]string(nil), labels...)
}

func (u *UI) SetTitle(t string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.title = t
}

func (u *UI) SetSummaryLines(lines []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.summaryLines = append([]string(nil), lines...)
}

func (u *UI) SetLegend(lines []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.legendLines = append([]string(nil), lines...)
}

func (u *UI) SetStatusLines(lines []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.statusLines = append([]string(nil), lines...)
}

// SetSectorMap replaces the map rows. One rune is one sector; the UI only
// clips what it is given.
func (u *UI) SetSectorMap(lines []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sectorMapLines = append([]string(nil), lines...)
}

// SetGlyphStyles colours map runes, e.g. blank sectors dim and full ones
// bright.
func (u *UI) SetGlyphStyles(styles map[rune]tcell.Style) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.glyphStyles = make(map[rune]tcell.Style, len(styles))
	for r, st := range styles {
		u.glyphStyles[r] = st
	}
}

func (u *UI) eventLoop(s tcell.Screen) {
	for {
		select {
		case <-u.stopChan:
			return
		default:
		}
		switch ev := s.PollEvent().(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyCtrlC,
				ev.Key() == tcell.KeyEscape,
				ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
				u.RequestStop()
			}
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventInterrupt:
			return
		case nil:
			return
		}
	}
}
