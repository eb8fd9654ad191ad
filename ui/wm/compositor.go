// Package wm implements the text mode window compositor: a fixed table of
// heap-backed windows stacked in z-order over a themed desktop, composited
// cell by cell onto the active console.
//
// The compositor is only ever driven from the foreground control flow.
// Interrupt handlers feed the keyboard event queue and nothing else; by the
// time an event reaches Dispatch it has already left interrupt context.
package wm

import (
	"io"
	"reflect"
	"retros/device/kbd"
	"retros/device/video/console"
	"retros/kernel"
	"retros/kernel/mm/heap"
	"unsafe"
)

var (
	allocFn = heap.Allocate
	freeFn  = heap.Free

	errBadBounds     = &kernel.Error{Module: "wm", Message: "window bounds outside the usable surface"}
	errNoSpace       = &kernel.Error{Module: "wm", Message: "window table is full"}
	errInvalidWindow = &kernel.Error{Module: "wm", Message: "no window with this id"}
	errUnknownTheme  = &kernel.Error{Module: "wm", Message: "unknown theme name"}
)

const (
	// maxWindows bounds the window table so compositor memory use stays
	// fixed no matter what runs on top of it.
	maxWindows = 8

	// statusRows is the number of chrome rows reserved at the bottom of
	// the surface. Windows cannot be placed over them.
	statusRows = 1
)

// Compositor owns the window table, the z-order and the active theme. All
// methods must be called from the foreground flow.
type Compositor struct {
	cons console.Device

	surfaceW int
	surfaceH int

	theme *theme

	// windows is the window arena; a zero id marks a free slot.
	windows [maxWindows]window

	// zOrder lists the ids of the open windows bottom first.
	zOrder [maxWindows]WindowID
	zCount int

	// focused is the id of the window receiving key events, zero when no
	// window has focus.
	focused WindowID

	nextID WindowID

	chromeDirty bool
}

// New creates a compositor drawing to cons using the default theme. The
// console palette is left untouched until the first SetTheme call.
func New(cons console.Device) *Compositor {
	consW, consH := cons.Dimensions()

	return &Compositor{
		cons:        cons,
		surfaceW:    int(consW),
		surfaceH:    int(consH),
		theme:       themes[0],
		nextID:      1,
		chromeDirty: true,
	}
}

// Open creates a window titled title at bounds and focuses it. The bottom
// console row is reserved for the status bar; the frame must fit inside the
// remaining surface and be large enough for its border plus one content
// cell. The content buffer is carved out of the kernel heap. A full window
// table or a failed allocation leaves the compositor unchanged and is
// reported to the caller.
func (c *Compositor) Open(title string, bounds Rect) (WindowID, *kernel.Error) {
	if bounds.W < minWindowSize || bounds.H < minWindowSize ||
		bounds.X < 0 || bounds.Y < 0 ||
		bounds.X+bounds.W > c.surfaceW ||
		bounds.Y+bounds.H > c.surfaceH-statusRows {
		return 0, errBadBounds
	}

	slot := -1
	for i := range c.windows {
		if c.windows[i].id == 0 {
			slot = i
			break
		}
	}
	if slot == -1 {
		return 0, errNoSpace
	}

	var (
		contentW = bounds.W - 2
		contentH = bounds.H - 2
		bufSize  = uintptr(contentW*contentH) * 2
	)

	bufAddr, err := allocFn(bufSize, 2)
	if err != nil {
		return 0, err
	}

	win := &c.windows[slot]
	*win = window{
		id:      c.nextID,
		title:   title,
		bounds:  bounds,
		bufAddr: bufAddr,
		bufSize: bufSize,
		fg:      c.theme.windowFg,
		bg:      c.theme.windowBg,
		dirty:   true,
	}

	sliceHdr := (*reflect.SliceHeader)(unsafe.Pointer(&win.cells))
	sliceHdr.Data = bufAddr
	sliceHdr.Len = contentW * contentH
	sliceHdr.Cap = sliceHdr.Len

	win.clear()

	c.nextID++
	c.zOrder[c.zCount] = win.id
	c.zCount++
	c.focused = win.id
	c.chromeDirty = true

	return win.id, nil
}

// Close removes the window and returns its content buffer to the heap. If
// the window held focus, the topmost remaining window becomes focused, or
// none when it was the last one.
func (c *Compositor) Close(id WindowID) *kernel.Error {
	win := c.lookup(id)
	if win == nil {
		return errInvalidWindow
	}

	if err := freeFn(win.bufAddr, win.bufSize); err != nil {
		return err
	}

	for i := 0; i < c.zCount; i++ {
		if c.zOrder[i] == id {
			copy(c.zOrder[i:c.zCount-1], c.zOrder[i+1:c.zCount])
			c.zCount--
			break
		}
	}

	*win = window{}

	if c.focused == id {
		c.focused = 0
		if c.zCount > 0 {
			c.focused = c.zOrder[c.zCount-1]
		}
	}

	c.chromeDirty = true
	return nil
}

// Focus raises the window to the top of the z-order and makes it the sole
// recipient of dispatched key events.
func (c *Compositor) Focus(id WindowID) *kernel.Error {
	win := c.lookup(id)
	if win == nil {
		return errInvalidWindow
	}

	for i := 0; i < c.zCount; i++ {
		if c.zOrder[i] == id {
			copy(c.zOrder[i:c.zCount-1], c.zOrder[i+1:c.zCount])
			c.zOrder[c.zCount-1] = id
			break
		}
	}

	if c.focused != id {
		c.focused = id
		c.chromeDirty = true
	}

	win.dirty = true
	return nil
}

// Dispatch delivers ev to the focused window. Events arrive in queue order
// and reach exactly one window; with no focused window the event is
// dropped. A window without a handler echoes printable runes into its
// content area.
func (c *Compositor) Dispatch(ev kbd.KeyEvent) {
	win := c.lookup(c.focused)
	if win == nil {
		return
	}

	if win.handler != nil {
		win.handler(ev)
		return
	}

	if ev.Pressed && ev.Rune != 0 {
		win.writeByte(byte(ev.Rune))
	}
}

// SetHandler installs handler as the key event sink for the window,
// replacing the default echo behavior. The handler runs in the foreground
// flow and may write back into the window.
func (c *Compositor) SetHandler(id WindowID, handler func(kbd.KeyEvent)) *kernel.Error {
	win := c.lookup(id)
	if win == nil {
		return errInvalidWindow
	}

	win.handler = handler
	return nil
}

// SetTextColor selects the logical foreground color used by subsequent
// writes into the window content area. The background keeps the theme's
// window color.
func (c *Compositor) SetTextColor(id WindowID, fg uint8) *kernel.Error {
	win := c.lookup(id)
	if win == nil {
		return errInvalidWindow
	}

	win.fg = fg & 0xf
	return nil
}

// ResetTextColor restores the window text colors to the active theme's
// window colors.
func (c *Compositor) ResetTextColor(id WindowID) *kernel.Error {
	win := c.lookup(id)
	if win == nil {
		return errInvalidWindow
	}

	win.fg, win.bg = c.theme.windowFg, c.theme.windowBg
	return nil
}

// Writer returns an io.Writer that feeds the window content area with
// terminal semantics (see window.writeByte). Writes to a window that has
// been closed fail with an error.
func (c *Compositor) Writer(id WindowID) io.Writer {
	return &windowWriter{c: c, id: id}
}

type windowWriter struct {
	c  *Compositor
	id WindowID
}

// Write implements io.Writer.
func (w *windowWriter) Write(data []byte) (int, error) {
	win := w.c.lookup(w.id)
	if win == nil {
		return 0, errInvalidWindow
	}

	for _, b := range data {
		win.writeByte(b)
	}

	return len(data), nil
}

// SetTheme activates the named theme, programs its color ramp into the
// console palette and schedules a full repaint. An unknown name leaves the
// active theme in place.
func (c *Compositor) SetTheme(name string) *kernel.Error {
	t := findTheme(name)
	if t == nil {
		return errUnknownTheme
	}

	c.theme = t
	for i := range t.dac {
		c.cons.SetPaletteColor(uint8(i), t.dac[i])
	}

	for i := range c.windows {
		if c.windows[i].id != 0 {
			c.windows[i].dirty = true
		}
	}

	c.chromeDirty = true
	return nil
}

// ThemeName returns the name of the active theme.
func (c *Compositor) ThemeName() string {
	return c.theme.name
}

// ThemeNames returns the selectable theme names in table order.
func (c *Compositor) ThemeNames() []string {
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.name
	}

	return names
}

// WindowCount returns the number of open windows.
func (c *Compositor) WindowCount() int {
	return c.zCount
}

// SurfaceSize returns the console surface dimensions in character cells.
func (c *Compositor) SurfaceSize() (int, int) {
	return c.surfaceW, c.surfaceH
}

// Redraw repaints the surface if any window or the chrome is dirty: the
// desktop first, then every window from the bottom of the z-order up so
// overlapping windows occlude the ones beneath them, then the status bar.
// All dirty flags are cleared. With nothing dirty the surface is not
// touched, which makes a second call right after a first one bytewise
// identical.
//
// Repaints always cover the full surface. Compositing only the dirty
// windows would require tracking which lower windows shine through at the
// overlaps; on a 80x25 cell surface repainting everything is cheaper than
// that bookkeeping.
func (c *Compositor) Redraw() {
	dirty := c.chromeDirty
	for i := range c.windows {
		if c.windows[i].id != 0 && c.windows[i].dirty {
			dirty = true
		}
	}
	if !dirty {
		return
	}

	c.paintDesktop()
	for i := 0; i < c.zCount; i++ {
		c.paintWindow(c.lookup(c.zOrder[i]))
	}
	c.paintStatusBar()

	for i := range c.windows {
		c.windows[i].dirty = false
	}
	c.chromeDirty = false
}

func (c *Compositor) paintDesktop() {
	glyph := byte(0xb0)
	if c.theme.crt {
		glyph = 0xb1
	}

	var (
		fg = c.paletteColor(c.theme.desktopFg)
		bg = c.paletteColor(c.theme.desktopBg)
	)

	for y := 0; y < c.surfaceH-statusRows; y++ {
		for x := 0; x < c.surfaceW; x++ {
			c.putCell(x, y, glyph, fg, bg)
		}
	}
}

func (c *Compositor) paintWindow(win *window) {
	var (
		t       = c.theme
		frameFg = c.paletteColor(t.borderFg)
		frameBg = c.paletteColor(win.bg)
	)
	if win.id == c.focused {
		frameFg = c.paletteColor(t.focusFg)
	}

	var (
		left   = win.bounds.X
		top    = win.bounds.Y
		right  = win.bounds.X + win.bounds.W - 1
		bottom = win.bounds.Y + win.bounds.H - 1
	)

	c.putCell(left, top, t.border.topLeft, frameFg, frameBg)
	c.putCell(right, top, t.border.topRight, frameFg, frameBg)
	c.putCell(left, bottom, t.border.bottomLeft, frameFg, frameBg)
	c.putCell(right, bottom, t.border.bottomRight, frameFg, frameBg)
	for x := left + 1; x < right; x++ {
		c.putCell(x, top, t.border.horiz, frameFg, frameBg)
		c.putCell(x, bottom, t.border.horiz, frameFg, frameBg)
	}
	for y := top + 1; y < bottom; y++ {
		c.putCell(left, y, t.border.vert, frameFg, frameBg)
		c.putCell(right, y, t.border.vert, frameFg, frameBg)
	}

	c.paintTitle(win, frameFg, frameBg)

	width := win.contentWidth()
	for y := 0; y < win.contentHeight(); y++ {
		for x := 0; x < width; x++ {
			cell := win.cells[y*width+x]
			c.putCell(left+1+x, top+1+y, byte(cell),
				c.paletteColor(uint8(cell>>8)),
				c.paletteColor(uint8(cell>>12)))
		}
	}

	if t.shadow {
		c.paintShadow(win)
	}
}

// paintTitle overlays the window title on the top border padded by one
// space on each side, clipped to the frame width.
func (c *Compositor) paintTitle(win *window, fg, bg uint8) {
	if win.title == "" || win.bounds.W < 5 {
		return
	}

	title := win.title
	if max := win.bounds.W - 4; len(title) > max {
		title = title[:max]
	}

	x := c.putString(win.bounds.X+1, win.bounds.Y, " ", fg, bg)
	x = c.putString(x, win.bounds.Y, title, fg, bg)
	c.putString(x, win.bounds.Y, " ", fg, bg)
}

// paintShadow darkens the cells one column right of and one row below the
// frame, clipped to the window area of the surface.
func (c *Compositor) paintShadow(win *window) {
	var (
		right  = win.bounds.X + win.bounds.W
		bottom = win.bounds.Y + win.bounds.H
		fg     = c.paletteColor(8)
		bg     = c.paletteColor(0)
	)

	if right < c.surfaceW {
		for y := win.bounds.Y + 1; y < bottom && y < c.surfaceH-statusRows; y++ {
			c.putCell(right, y, 0xb0, fg, bg)
		}
	}

	if bottom < c.surfaceH-statusRows {
		for x := win.bounds.X + 1; x <= right && x < c.surfaceW; x++ {
			c.putCell(x, bottom, 0xb0, fg, bg)
		}
	}
}

// paintStatusBar renders the reserved bottom row: the system name on the
// left, the focused window title beside it and the active theme name on
// the right.
func (c *Compositor) paintStatusBar() {
	var (
		y  = c.surfaceH - 1
		fg = c.paletteColor(c.theme.chromeFg)
		bg = c.paletteColor(c.theme.chromeBg)
	)

	x := c.putString(0, y, " RetrOS ", fg, bg)
	if win := c.lookup(c.focused); win != nil {
		x = c.putString(x, y, "| ", fg, bg)
		x = c.putString(x, y, win.title, fg, bg)
		x = c.putString(x, y, " ", fg, bg)
	}

	for ; x < c.surfaceW-len(c.theme.name)-1; x++ {
		c.putCell(x, y, ' ', fg, bg)
	}
	x = c.putString(x, y, c.theme.name, fg, bg)
	c.putString(x, y, " ", fg, bg)
}

// putString writes s left to right starting at cell (x,y), clipping at the
// right surface edge, and returns the x coordinate after the last cell
// written.
func (c *Compositor) putString(x, y int, s string, fg, bg uint8) int {
	for i := 0; i < len(s) && x < c.surfaceW; i, x = i+1, x+1 {
		c.putCell(x, y, s[i], fg, bg)
	}

	return x
}

// putCell writes one cell through the console interface, converting the
// compositor's 0-based coordinates to the console's 1-based ones.
func (c *Compositor) putCell(x, y int, glyph byte, fg, bg uint8) {
	c.cons.Write(glyph, fg, bg, uint32(x+1), uint32(y+1))
}

// paletteColor remaps a logical cell color to a console color through the
// active theme.
func (c *Compositor) paletteColor(logical uint8) uint8 {
	return c.theme.palette[logical&0xf]
}

func (c *Compositor) lookup(id WindowID) *window {
	if id == 0 {
		return nil
	}

	for i := range c.windows {
		if c.windows[i].id == id {
			return &c.windows[i]
		}
	}

	return nil
}
