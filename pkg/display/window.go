package display

import (
	"gocv.io/x/gocv"
)

// Keys that close the bare window
const (
	KeyQuit   = 'q'
	KeyEscape = 27
)

// Window is a plain OpenCV highgui window. All calls must come from the
// goroutine that created it.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a window with the given title
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Show blits frame and pumps window events for delay milliseconds.
// It reports whether the user asked to quit.
func (w *Window) Show(frame gocv.Mat, delay int) bool {
	w.win.IMShow(frame)
	return IsQuitKey(w.win.WaitKey(delay)) || !w.win.IsOpen()
}

// IsQuitKey reports whether a WaitKey result means quit
func IsQuitKey(key int) bool {
	if key < 0 {
		return false
	}
	key &= 0xFF
	return key == KeyQuit || key == 'Q' || key == KeyEscape
}

// Close destroys the window
func (w *Window) Close() error {
	return w.win.Close()
}
