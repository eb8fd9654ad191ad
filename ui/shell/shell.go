// Package shell implements the interactive command interpreter that runs in
// the window opened at boot. Key events arrive through the compositor
// dispatch path, line editing happens in place on the bottom input line and
// completed lines are matched against a fixed command table.
package shell

import (
	"io"
	"retros/device/kbd"
	"retros/kernel"
	"retros/kernel/kfmt"
	"retros/ui/wm"
)

const (
	kernelName    = "RetrOS"
	kernelVersion = "0.1.0"

	// maxLineLen keeps the edit line on a single window row so a
	// backspace can always rub out the rightmost character.
	maxLineLen = 64

	// historySize bounds the number of remembered command lines.
	historySize = 16

	promptText = "> "
)

// Desktop is the windowing surface the shell runs on. It is implemented by
// *wm.Compositor.
type Desktop interface {
	Open(title string, bounds wm.Rect) (wm.WindowID, *kernel.Error)
	SetHandler(id wm.WindowID, handler func(kbd.KeyEvent)) *kernel.Error
	Writer(id wm.WindowID) io.Writer
	SetTextColor(id wm.WindowID, fg uint8) *kernel.Error
	ResetTextColor(id wm.WindowID) *kernel.Error
	SetTheme(name string) *kernel.Error
	ThemeName() string
	ThemeNames() []string
	WindowCount() int
	SurfaceSize() (int, int)
}

// Shell interprets key events as line input and runs the entered commands.
// All methods must be called from the foreground flow.
type Shell struct {
	desktop Desktop
	win     wm.WindowID
	out     io.Writer

	echoBuf [1]byte

	line    [maxLineLen]byte
	lineLen int

	// history is a ring of past command lines; histHead indexes the slot
	// the next line will be stored in.
	history   [historySize]string
	histHead  int
	histCount int

	// histPos tracks history browsing: -1 while editing a fresh line,
	// otherwise the number of entries stepped back from the newest one.
	histPos int
}

// New opens the shell window on desktop, inset by one cell from the
// desktop edges, and installs the shell as its key event handler. The
// window stays open for the lifetime of the system.
func New(desktop Desktop) (*Shell, *kernel.Error) {
	surfaceW, surfaceH := desktop.SurfaceSize()

	bounds := wm.Rect{X: 1, Y: 1, W: surfaceW - 2, H: surfaceH - 3}
	id, err := desktop.Open(kernelName+" shell", bounds)
	if err != nil {
		return nil, err
	}

	sh := &Shell{
		desktop: desktop,
		win:     id,
		out:     desktop.Writer(id),
		histPos: -1,
	}

	if err = desktop.SetHandler(id, sh.handleKey); err != nil {
		return nil, err
	}

	return sh, nil
}

// Banner draws the DOS style startup banner into the shell window. The boot
// code skips it when the kernel command line carries consoleBanner=off.
func (sh *Shell) Banner() {
	sh.desktop.SetTextColor(sh.win, 15)
	sh.rule(0xc9, 0xcd, 0xbb)
	sh.bannerLine(kernelName + " " + kernelVersion)
	sh.bannerLine("a retro windowing kernel")
	sh.bannerLine("type help to get started")
	sh.rule(0xc8, 0xcd, 0xbc)
	sh.desktop.ResetTextColor(sh.win)
	sh.echoByte('\n')
}

// Prompt prints the input prompt.
func (sh *Shell) Prompt() {
	kfmt.Fprintf(sh.out, promptText)
}

// handleKey is the window event handler. The shell acts on presses only.
func (sh *Shell) handleKey(ev kbd.KeyEvent) {
	if !ev.Pressed {
		return
	}

	switch ev.Key {
	case kbd.KeyEnter:
		sh.execute()
	case kbd.KeyBackspace:
		if sh.lineLen > 0 {
			sh.lineLen--
			sh.echoByte('\b')
		}
	case kbd.KeyTab:
		sh.complete()
	case kbd.KeyUp:
		sh.historyStep(1)
	case kbd.KeyDown:
		sh.historyStep(-1)
	default:
		if ev.Rune == 0 || ev.Rune == '\x1b' || sh.lineLen == len(sh.line) {
			return
		}
		sh.line[sh.lineLen] = byte(ev.Rune)
		sh.lineLen++
		sh.echoByte(byte(ev.Rune))
	}
}

// execute runs the entered line and prints the next prompt.
func (sh *Shell) execute() {
	sh.echoByte('\n')

	line := string(sh.line[:sh.lineLen])
	sh.lineLen = 0
	sh.histPos = -1

	name, args := splitLine(line)
	if name != "" {
		sh.pushHistory(line)
		if cmd := findCommand(name); cmd != nil {
			cmd.run(sh, args)
		} else {
			sh.printError("unknown command: %s (try help)\n", name)
		}
	}

	sh.Prompt()
}

// complete expands the edit line when it forms a unique prefix of a command
// word. With several candidates they are listed and the line is reprinted.
// Completion only applies while the line holds a single word.
func (sh *Shell) complete() {
	if sh.lineLen == 0 {
		return
	}
	for i := 0; i < sh.lineLen; i++ {
		if sh.line[i] == ' ' {
			return
		}
	}

	prefix := string(sh.line[:sh.lineLen])

	var (
		matches   int
		candidate string
	)
	for i := range commands {
		if hasPrefix(commands[i].name, prefix) {
			matches++
			candidate = commands[i].name
		}
		if commands[i].alias != "" && hasPrefix(commands[i].alias, prefix) {
			matches++
			candidate = commands[i].alias
		}
	}

	switch {
	case matches == 1:
		sh.replaceLine(candidate)
		if sh.lineLen < len(sh.line) {
			sh.line[sh.lineLen] = ' '
			sh.lineLen++
			sh.echoByte(' ')
		}
	case matches > 1:
		sh.echoByte('\n')
		for i := range commands {
			if hasPrefix(commands[i].name, prefix) {
				kfmt.Fprintf(sh.out, "%s  ", commands[i].name)
			}
			if commands[i].alias != "" && hasPrefix(commands[i].alias, prefix) {
				kfmt.Fprintf(sh.out, "%s  ", commands[i].alias)
			}
		}
		sh.echoByte('\n')
		sh.Prompt()
		for i := 0; i < sh.lineLen; i++ {
			sh.echoByte(sh.line[i])
		}
	}
}

// historyStep moves through the history ring replacing the edit line, one
// entry older for each positive step. Stepping forward past the newest
// entry restores an empty line.
func (sh *Shell) historyStep(dir int) {
	next := sh.histPos + dir
	if next >= sh.histCount {
		return
	}

	if next < 0 {
		if sh.histPos != -1 {
			sh.histPos = -1
			sh.replaceLine("")
		}
		return
	}

	sh.histPos = next
	sh.replaceLine(sh.historyAt(next))
}

// pushHistory stores line as the newest history entry unless it repeats
// the previous one. The oldest entry is dropped once the ring is full.
func (sh *Shell) pushHistory(line string) {
	if sh.histCount > 0 && sh.historyAt(0) == line {
		return
	}

	sh.history[sh.histHead] = line
	sh.histHead = (sh.histHead + 1) % historySize
	if sh.histCount < historySize {
		sh.histCount++
	}
}

// historyAt returns the entry back steps behind the newest one.
func (sh *Shell) historyAt(back int) string {
	return sh.history[(sh.histHead-1-back+2*historySize)%historySize]
}

// replaceLine rubs out the current edit line and types line in its place.
func (sh *Shell) replaceLine(line string) {
	for ; sh.lineLen > 0; sh.lineLen-- {
		sh.echoByte('\b')
	}

	n := len(line)
	if n > len(sh.line) {
		n = len(sh.line)
	}
	for i := 0; i < n; i++ {
		sh.line[i] = line[i]
		sh.echoByte(line[i])
	}
	sh.lineLen = n
}

// printError prints a command error line in the alert color.
func (sh *Shell) printError(format string, args ...interface{}) {
	sh.desktop.SetTextColor(sh.win, 12)
	kfmt.Fprintf(sh.out, format, args...)
	sh.desktop.ResetTextColor(sh.win)
}

func (sh *Shell) echoByte(b byte) {
	sh.echoBuf[0] = b
	sh.out.Write(sh.echoBuf[:])
}

const bannerWidth = 40

func (sh *Shell) rule(left, fill, right byte) {
	sh.echoByte(left)
	for i := 0; i < bannerWidth-2; i++ {
		sh.echoByte(fill)
	}
	sh.echoByte(right)
	sh.echoByte('\n')
}

// bannerLine centers text between the banner box edges.
func (sh *Shell) bannerLine(text string) {
	pad := (bannerWidth - 2 - len(text)) / 2

	sh.echoByte(0xba)
	for i := 0; i < pad; i++ {
		sh.echoByte(' ')
	}
	for i := 0; i < len(text); i++ {
		sh.echoByte(text[i])
	}
	for i := pad + len(text); i < bannerWidth-2; i++ {
		sh.echoByte(' ')
	}
	sh.echoByte(0xba)
	sh.echoByte('\n')
}

// splitLine splits the entered line into the command word and its argument
// string, trimming the surrounding spaces.
func splitLine(line string) (string, string) {
	start := 0
	for start < len(line) && line[start] == ' ' {
		start++
	}

	end := start
	for end < len(line) && line[end] != ' ' {
		end++
	}

	argStart := end
	for argStart < len(line) && line[argStart] == ' ' {
		argStart++
	}

	argEnd := len(line)
	for argEnd > argStart && line[argEnd-1] == ' ' {
		argEnd--
	}

	return line[start:end], line[argStart:argEnd]
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
