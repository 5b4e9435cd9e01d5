package retrodfrg

import (
	"time"
)

// Watch calls refresh and redraws the screen every interval until the user
// stops the UI or refresh fails. A user stop is not an error.
func Watch(u *UI, every time.Duration, refresh func() error) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if err := refresh(); err != nil {
			return err
		}
		u.LayoutAndDraw()
		select {
		case <-u.stopChan:
			return nil
		case <-ticker.C:
		}
	}
}

// WaitWithStop keeps the final screen up for d, or until the user quits.
func WaitWithStop(u *UI, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-u.stopChan:
		return ErrInterrupted
	case <-timer.C:
		return nil
	}
}

// Redraw reports whether step i of n should trigger a redraw when drawing
// every nth step. The first and last steps always redraw.
func Redraw(i, n, every uint32) bool {
	if every <= 1 || i == 0 || i+1 >= n {
		return true
	}
	return i%every == 0
}
