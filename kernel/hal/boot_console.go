package hal

import "retros/device/video/console"

const bootTabWidth = 4

// bootConsole renders kernel log output directly on the active console. It
// carries just enough terminal state for boot and panic messages: a cursor,
// newline and tab handling and scrolling at the bottom of the screen.
type bootConsole struct {
	cons console.Device

	width, height uint32
	curX, curY    uint32
	fg, bg        uint8
}

// attachTo binds the writer to cons and clears the screen.
func (bc *bootConsole) attachTo(cons console.Device) {
	bc.cons = cons
	bc.width, bc.height = cons.Dimensions()
	bc.fg, bc.bg = cons.DefaultColors()
	bc.curX, bc.curY = 1, 1

	cons.Fill(1, 1, bc.width, bc.height, bc.fg, bc.bg)
}

// Write implements io.Writer so the boot console can serve as the kfmt
// output sink.
func (bc *bootConsole) Write(data []byte) (int, error) {
	for _, b := range data {
		bc.writeByte(b)
	}

	return len(data), nil
}

func (bc *bootConsole) writeByte(b byte) {
	switch b {
	case '\r':
		bc.curX = 1
	case '\n':
		bc.curX = 1
		bc.lineFeed()
	case '\b':
		if bc.curX > 1 {
			bc.curX--
			bc.cons.Write(' ', bc.fg, bc.bg, bc.curX, bc.curY)
		}
	case '\t':
		for i := 0; i < bootTabWidth; i++ {
			bc.putChar(' ')
		}
	default:
		bc.putChar(b)
	}
}

func (bc *bootConsole) putChar(b byte) {
	bc.cons.Write(b, bc.fg, bc.bg, bc.curX, bc.curY)
	bc.curX++
	if bc.curX > bc.width {
		bc.curX = 1
		bc.lineFeed()
	}
}

// lineFeed moves the cursor one row down, scrolling the console contents
// once the cursor sits on the last row.
func (bc *bootConsole) lineFeed() {
	if bc.curY < bc.height {
		bc.curY++
		return
	}

	bc.cons.Scroll(console.ScrollDirUp, 1)
	bc.cons.Fill(1, bc.height, bc.width, 1, bc.fg, bc.bg)
}
