package shell

import (
	"bytes"
	"io"
	"reflect"
	"retros/device/kbd"
	"retros/kernel"
	"retros/kernel/mm/heap"
	"retros/ui/wm"
	"strings"
	"testing"
)

func TestShellNew(t *testing.T) {
	d := newTestDesktop()

	sh, err := New(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.title != "RetrOS shell" {
		t.Errorf("expected the shell window title to be %q; got %q", "RetrOS shell", d.title)
	}
	if exp := (wm.Rect{X: 1, Y: 1, W: 78, H: 22}); d.bounds != exp {
		t.Errorf("expected the shell window bounds to be %v; got %v", exp, d.bounds)
	}
	if d.handler == nil {
		t.Error("expected the shell to install a key handler")
	}
	if sh.win != 1 {
		t.Errorf("expected the shell to run in window 1; got %d", sh.win)
	}

	expErr := &kernel.Error{Module: "test", Message: "no window slots"}
	d = newTestDesktop()
	d.openErr = expErr
	if _, err = New(d); err != expErr {
		t.Fatalf("expected the window open error to propagate; got %v", err)
	}
}

func TestShellPromptAndEcho(t *testing.T) {
	sh, d := newTestShell(t)

	sh.Prompt()
	typeString(sh, "hi")

	if got := d.out.String(); got != "> hi" {
		t.Fatalf("expected output %q; got %q", "> hi", got)
	}
}

func TestShellUnknownCommand(t *testing.T) {
	sh, d := newTestShell(t)

	typeLine(sh, "frobnicate")

	exp := "frobnicate\nunknown command: frobnicate (try help)\n> "
	if got := d.out.String(); got != exp {
		t.Fatalf("expected output %q; got %q", exp, got)
	}

	// Error lines switch to the alert color and back.
	if !reflect.DeepEqual(d.colorSets, []uint8{12}) || d.resets != 1 {
		t.Fatalf("expected one alert color set and one reset; got %v, %d", d.colorSets, d.resets)
	}
}

func TestShellBackspace(t *testing.T) {
	sh, d := newTestShell(t)

	typeString(sh, "ab")
	pressKey(sh, kbd.KeyBackspace, '\b')
	pressKey(sh, kbd.KeyBackspace, '\b')
	// Backspace on an empty line has no effect.
	pressKey(sh, kbd.KeyBackspace, '\b')
	typeString(sh, "x")

	if got := d.out.String(); got != "ab\b\bx" {
		t.Fatalf("expected output %q; got %q", "ab\b\bx", got)
	}
	if got := string(sh.line[:sh.lineLen]); got != "x" {
		t.Fatalf("expected the edit line to hold %q; got %q", "x", got)
	}
}

func TestShellCommandOutput(t *testing.T) {
	specs := []struct {
		line   string
		expOut string
	}{
		{"version", "RetrOS 0.1.0\n"},
		// Aliases resolve to the same command.
		{"ver", "RetrOS 0.1.0\n"},
		{"cls", "\f"},
		{"clear", "\f"},
		// Surrounding spaces are ignored.
		{"  version  ", "RetrOS 0.1.0\n"},
		// Inner argument spacing is preserved.
		{"echo hello  world", "hello  world\n"},
		{"echo", "\n"},
		{"theme", "themes: dos amber (active: dos)\n"},
		{
			"about",
			"RetrOS 0.1.0, a retro windowing kernel written in Go.\n" +
				"It draws DOS style windows on the VGA text console\n" +
				"and runs entirely in ring 0.\n",
		},
		// A blank line just prints a fresh prompt.
		{"", ""},
	}

	for specIndex, spec := range specs {
		sh, d := newTestShell(t)

		typeLine(sh, spec.line)

		exp := spec.line + "\n" + spec.expOut + promptText
		if got := d.out.String(); got != exp {
			t.Errorf("[spec %d] expected output %q; got %q", specIndex, exp, got)
		}
	}
}

func TestShellThemeCommand(t *testing.T) {
	sh, d := newTestShell(t)

	typeLine(sh, "theme amber")
	if d.theme != "amber" {
		t.Fatalf("expected the active theme to be amber; got %s", d.theme)
	}
	if exp := "theme amber\n> "; d.out.String() != exp {
		t.Fatalf("expected output %q; got %q", exp, d.out.String())
	}

	d.out.Reset()
	typeLine(sh, "theme neon")
	if d.theme != "amber" {
		t.Fatalf("expected the active theme to stay amber; got %s", d.theme)
	}
	if exp := "theme neon\nneon: unknown theme name\n> "; d.out.String() != exp {
		t.Fatalf("expected output %q; got %q", exp, d.out.String())
	}
}

func TestShellSysinfo(t *testing.T) {
	restore := swapStatSeams()
	defer restore()

	sh, d := newTestShell(t)
	typeLine(sh, "sysinfo")

	exp := "sysinfo\n" +
		"kernel:  RetrOS 0.1.0\n" +
		"console: 80x25 cells\n" +
		"heap:    1536 of 102400 bytes used\n" +
		"uptime:  350 ticks\n" +
		"windows: 1\n" +
		"theme:   dos\n" +
		"> "
	if got := d.out.String(); got != exp {
		t.Fatalf("expected output %q; got %q", exp, got)
	}
}

func TestShellMemory(t *testing.T) {
	restore := swapStatSeams()
	defer restore()

	sh, d := newTestShell(t)
	typeLine(sh, "memory")

	exp := "memory\n" +
		"heap total:   102400 bytes\n" +
		"heap used:    1536 bytes\n" +
		"heap free:    100864 bytes\n" +
		"largest free: 100864 bytes\n" +
		"free blocks:  1\n" +
		"> "
	if got := d.out.String(); got != exp {
		t.Fatalf("expected output %q; got %q", exp, got)
	}
}

func TestShellUptime(t *testing.T) {
	restore := swapStatSeams()
	defer restore()

	sh, d := newTestShell(t)
	typeLine(sh, "uptime")

	exp := "uptime\nup 3 seconds (350 ticks at 100 hz)\n> "
	if got := d.out.String(); got != exp {
		t.Fatalf("expected output %q; got %q", exp, got)
	}
}

func TestShellReboot(t *testing.T) {
	origReboot := rebootFn
	defer func() { rebootFn = origReboot }()

	rebootCalls := 0
	rebootFn = func() { rebootCalls++ }

	sh, d := newTestShell(t)
	typeLine(sh, "reboot")

	if rebootCalls != 1 {
		t.Fatalf("expected one reset line pulse; got %d", rebootCalls)
	}
	if exp := "reboot\npulsing the reset line...\n> "; d.out.String() != exp {
		t.Fatalf("expected output %q; got %q", exp, d.out.String())
	}
}

func TestShellHelp(t *testing.T) {
	sh, d := newTestShell(t)

	typeLine(sh, "help")

	out := d.out.String()
	for _, exp := range []string{"clear (cls)", "version (ver)", "reboot", "theme"} {
		if !strings.Contains(out, exp) {
			t.Errorf("expected the help output to mention %q; got:\n%s", exp, out)
		}
	}
}

func TestShellHistory(t *testing.T) {
	sh, d := newTestShell(t)

	typeLine(sh, "version")
	typeLine(sh, "echo a")
	if sh.histCount != 2 {
		t.Fatalf("expected 2 history entries; got %d", sh.histCount)
	}
	d.out.Reset()

	editLine := func() string { return string(sh.line[:sh.lineLen]) }

	pressKey(sh, kbd.KeyUp, 0)
	if got := editLine(); got != "echo a" {
		t.Fatalf("expected the first step back to recall %q; got %q", "echo a", got)
	}
	if got := d.out.String(); got != "echo a" {
		t.Fatalf("expected the recalled line to be echoed; got %q", got)
	}

	pressKey(sh, kbd.KeyUp, 0)
	if got := editLine(); got != "version" {
		t.Fatalf("expected the second step back to recall %q; got %q", "version", got)
	}

	// There is nothing older.
	pressKey(sh, kbd.KeyUp, 0)
	if got := editLine(); got != "version" {
		t.Fatalf("expected the oldest entry to stay put; got %q", got)
	}

	pressKey(sh, kbd.KeyDown, 0)
	if got := editLine(); got != "echo a" {
		t.Fatalf("expected the step forward to recall %q; got %q", "echo a", got)
	}

	// Stepping past the newest entry restores a fresh line.
	pressKey(sh, kbd.KeyDown, 0)
	if got := editLine(); got != "" {
		t.Fatalf("expected a fresh line; got %q", got)
	}

	// Consecutive duplicates collapse into one entry.
	typeLine(sh, "version")
	typeLine(sh, "version")
	if sh.histCount != 3 {
		t.Fatalf("expected 3 history entries after a duplicate; got %d", sh.histCount)
	}
}

func TestShellHistoryOverflow(t *testing.T) {
	sh, _ := newTestShell(t)

	for i := 0; i < historySize+4; i++ {
		sh.pushHistory(string([]byte{'a' + byte(i)}))
	}

	if sh.histCount != historySize {
		t.Fatalf("expected the ring to cap at %d entries; got %d", historySize, sh.histCount)
	}
	if got, exp := sh.historyAt(0), string([]byte{'a' + byte(historySize+3)}); got != exp {
		t.Fatalf("expected the newest entry to be %q; got %q", exp, got)
	}
	if got, exp := sh.historyAt(historySize-1), string([]byte{'a' + 4}); got != exp {
		t.Fatalf("expected the oldest kept entry to be %q; got %q", exp, got)
	}
}

func TestShellCompletion(t *testing.T) {
	// A unique prefix is completed in place.
	sh, d := newTestShell(t)
	typeString(sh, "ab")
	pressKey(sh, kbd.KeyTab, '\t')

	if got := string(sh.line[:sh.lineLen]); got != "about " {
		t.Fatalf("expected the line to complete to %q; got %q", "about ", got)
	}
	if got := d.out.String(); got != "ab\b\babout " {
		t.Fatalf("expected output %q; got %q", "ab\b\babout ", got)
	}

	// An ambiguous prefix lists the candidates and reprints the line.
	sh, d = newTestShell(t)
	typeString(sh, "c")
	pressKey(sh, kbd.KeyTab, '\t')

	if got := string(sh.line[:sh.lineLen]); got != "c" {
		t.Fatalf("expected the line to stay %q; got %q", "c", got)
	}
	if exp := "c\nclear  cls  \n> c"; d.out.String() != exp {
		t.Fatalf("expected output %q; got %q", exp, d.out.String())
	}

	// No match leaves the line alone.
	sh, d = newTestShell(t)
	typeString(sh, "zz")
	pressKey(sh, kbd.KeyTab, '\t')
	if got := d.out.String(); got != "zz" {
		t.Fatalf("expected output %q; got %q", "zz", got)
	}

	// Completion never applies past the command word.
	sh, d = newTestShell(t)
	typeString(sh, "echo x")
	pressKey(sh, kbd.KeyTab, '\t')
	if got := d.out.String(); got != "echo x" {
		t.Fatalf("expected output %q; got %q", "echo x", got)
	}
}

func TestShellBanner(t *testing.T) {
	sh, d := newTestShell(t)

	sh.Banner()
	out := d.out.Bytes()

	expTop := append([]byte{0xc9}, bytes.Repeat([]byte{0xcd}, bannerWidth-2)...)
	expTop = append(expTop, 0xbb, '\n')
	if !bytes.HasPrefix(out, expTop) {
		t.Fatal("expected the banner to start with a double line rule")
	}
	if !bytes.Contains(out, []byte("RetrOS 0.1.0")) {
		t.Fatal("expected the banner to carry the kernel name and version")
	}

	// Two rules, three text lines and the trailing blank line.
	if expLen := 5*(bannerWidth+1) + 1; len(out) != expLen {
		t.Fatalf("expected the banner to measure %d bytes; got %d", expLen, len(out))
	}

	if !reflect.DeepEqual(d.colorSets, []uint8{15}) || d.resets != 1 {
		t.Fatalf("expected the banner to set and reset the text color; got %v, %d", d.colorSets, d.resets)
	}
}

func TestSplitLine(t *testing.T) {
	specs := []struct {
		line    string
		expName string
		expArgs string
	}{
		{"", "", ""},
		{"   ", "", ""},
		{"help", "help", ""},
		{"  help  ", "help", ""},
		{"theme amber", "theme", "amber"},
		{"echo  a  b  ", "echo", "a  b"},
	}

	for specIndex, spec := range specs {
		name, args := splitLine(spec.line)
		if name != spec.expName || args != spec.expArgs {
			t.Errorf("[spec %d] expected (%q, %q); got (%q, %q)",
				specIndex, spec.expName, spec.expArgs, name, args)
		}
	}
}

func newTestShell(t *testing.T) (*Shell, *testDesktop) {
	d := newTestDesktop()

	sh, err := New(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return sh, d
}

// pressKey feeds a single key press to the shell handler. The key code
// only matters for the editing keys; printable input is carried by the
// rune.
func pressKey(sh *Shell, key kbd.Key, r rune) {
	sh.handleKey(kbd.KeyEvent{Key: key, Pressed: true, Rune: r})
}

func typeString(sh *Shell, s string) {
	for _, r := range s {
		pressKey(sh, kbd.KeyA, r)
	}
}

func typeLine(sh *Shell, line string) {
	typeString(sh, line)
	pressKey(sh, kbd.KeyEnter, '\n')
}

// swapStatSeams points the tick and heap stat seams at fixed values and
// returns a function restoring the real ones.
func swapStatSeams() func() {
	origTicks, origStats := ticksFn, readStatsFn

	ticksFn = func() uint64 { return 350 }
	readStatsFn = func() heap.Stats {
		return heap.Stats{
			TotalBytes:  102400,
			UsedBytes:   1536,
			FreeBytes:   100864,
			LargestFree: 100864,
			FreeBlocks:  1,
		}
	}

	return func() {
		ticksFn, readStatsFn = origTicks, origStats
	}
}

var errTestUnknownTheme = &kernel.Error{Module: "test", Message: "unknown theme name"}

// testDesktop implements Desktop recording the calls the shell makes.
type testDesktop struct {
	out bytes.Buffer

	title   string
	bounds  wm.Rect
	handler func(kbd.KeyEvent)
	openErr *kernel.Error

	theme   string
	windows int

	colorSets []uint8
	resets    int
}

func newTestDesktop() *testDesktop {
	return &testDesktop{theme: "dos"}
}

func (d *testDesktop) Open(title string, bounds wm.Rect) (wm.WindowID, *kernel.Error) {
	if d.openErr != nil {
		return 0, d.openErr
	}

	d.title, d.bounds = title, bounds
	d.windows++
	return wm.WindowID(d.windows), nil
}

func (d *testDesktop) SetHandler(_ wm.WindowID, handler func(kbd.KeyEvent)) *kernel.Error {
	d.handler = handler
	return nil
}

func (d *testDesktop) Writer(_ wm.WindowID) io.Writer {
	return &d.out
}

func (d *testDesktop) SetTextColor(_ wm.WindowID, fg uint8) *kernel.Error {
	d.colorSets = append(d.colorSets, fg)
	return nil
}

func (d *testDesktop) ResetTextColor(_ wm.WindowID) *kernel.Error {
	d.resets++
	return nil
}

func (d *testDesktop) SetTheme(name string) *kernel.Error {
	for _, known := range d.ThemeNames() {
		if known == name {
			d.theme = name
			return nil
		}
	}

	return errTestUnknownTheme
}

func (d *testDesktop) ThemeName() string       { return d.theme }
func (d *testDesktop) ThemeNames() []string    { return []string{"dos", "amber"} }
func (d *testDesktop) WindowCount() int        { return d.windows }
func (d *testDesktop) SurfaceSize() (int, int) { return 80, 25 }
