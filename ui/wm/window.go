package wm

import "retros/device/kbd"

// WindowID names an open window. Ids increase monotonically and are never
// reused, so a stale id held by application code can never alias a window
// opened later.
type WindowID uint32

// Rect places a window frame on the console surface in character cells.
// X and Y locate the top-left corner with (0,0) being the top-left cell of
// the surface; W and H span the frame including its border.
type Rect struct {
	X, Y, W, H int
}

const (
	// A window frame needs two cells per axis for its border plus at
	// least one content cell.
	minWindowSize = 3

	// windowTabWidth defines the number of spaces that tabs expand to.
	windowTabWidth = 4
)

// window holds the per-window state: the frame placement, the heap block
// backing the content cells and the terminal cursor used when text is
// written into the window.
//
// Content cells use the text mode framebuffer packing (attribute high byte,
// character low byte) with logical colors; the active theme remaps them to
// console colors when the window is composited.
type window struct {
	id     WindowID
	title  string
	bounds Rect

	// bufAddr and bufSize describe the heap block that cells overlays.
	// Close must hand the exact same pair back to the allocator.
	bufAddr uintptr
	bufSize uintptr
	cells   []uint16

	// Terminal state for writes into the content area.
	cursorX, cursorY int
	fg, bg           uint8

	// handler receives the key events dispatched to this window while it
	// is focused. Windows without a handler echo printable runes.
	handler func(kbd.KeyEvent)

	dirty bool
}

func (win *window) contentWidth() int  { return win.bounds.W - 2 }
func (win *window) contentHeight() int { return win.bounds.H - 2 }

// writeByte interprets b as terminal input: \r returns the cursor to the
// line start, \n advances a line scrolling the content when the cursor is
// on the last one, \b rubs out the cell left of the cursor, \t expands to
// spaces and \f clears the window. Anything else is written at the cursor
// which advances and wraps.
func (win *window) writeByte(b byte) {
	switch b {
	case '\r':
		win.cursorX = 0
	case '\n':
		win.lineFeed()
	case '\b':
		if win.cursorX > 0 {
			win.cursorX--
			win.setCell(win.cursorX, win.cursorY, ' ')
		}
	case '\t':
		for i := 0; i < windowTabWidth; i++ {
			win.putChar(' ')
		}
	case '\f':
		win.clear()
	default:
		win.putChar(b)
	}

	win.dirty = true
}

func (win *window) putChar(b byte) {
	win.setCell(win.cursorX, win.cursorY, b)
	win.cursorX++
	if win.cursorX == win.contentWidth() {
		win.lineFeed()
	}
}

func (win *window) setCell(x, y int, b byte) {
	win.cells[y*win.contentWidth()+x] = win.attr() | uint16(b)
}

// attr packs the current colors into the attribute byte of a content cell.
func (win *window) attr() uint16 {
	return uint16(win.bg&0xf)<<12 | uint16(win.fg&0xf)<<8
}

// lineFeed moves the cursor to the start of the next line, scrolling the
// window contents up by one line when the cursor is already on the last
// one.
func (win *window) lineFeed() {
	win.cursorX = 0
	if win.cursorY+1 < win.contentHeight() {
		win.cursorY++
		return
	}

	width := win.contentWidth()
	copy(win.cells, win.cells[width:])

	blank := win.attr() | uint16(' ')
	for i := len(win.cells) - width; i < len(win.cells); i++ {
		win.cells[i] = blank
	}
}

// clear resets the content area to blanks using the current colors and
// homes the cursor.
func (win *window) clear() {
	blank := win.attr() | uint16(' ')
	for i := range win.cells {
		win.cells[i] = blank
	}

	win.cursorX, win.cursorY = 0, 0
}
