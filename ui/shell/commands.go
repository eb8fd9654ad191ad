package shell

import (
	"retros/device/kbd"
	"retros/device/timer"
	"retros/kernel/kfmt"
	"retros/kernel/mm/heap"
)

var (
	ticksFn     = timer.Ticks
	readStatsFn = heap.ReadStats
	rebootFn    = kbd.PulseResetLine
)

// command binds a name and an optional alias to an implementation. The
// table is the complete command set; the shell never grows commands at
// runtime.
type command struct {
	name    string
	alias   string
	summary string
	run     func(*Shell, string)
}

var commands []command

// The table is assigned in init instead of via the initializer expression so
// that cmdHelp, which ranges over the table, does not form an initialization
// cycle with it.
func init() {
	commands = []command{
		{"about", "", "describe this system", (*Shell).cmdAbout},
		{"clear", "cls", "clear the shell window", (*Shell).cmdClear},
		{"echo", "", "print the arguments", (*Shell).cmdEcho},
		{"help", "", "list the available commands", (*Shell).cmdHelp},
		{"memory", "", "show kernel heap usage", (*Shell).cmdMemory},
		{"reboot", "", "reset the machine", (*Shell).cmdReboot},
		{"sysinfo", "", "show system information", (*Shell).cmdSysinfo},
		{"theme", "", "list or switch the color theme", (*Shell).cmdTheme},
		{"uptime", "", "show time since boot", (*Shell).cmdUptime},
		{"version", "ver", "show the kernel version", (*Shell).cmdVersion},
	}
}

func findCommand(name string) *command {
	for i := range commands {
		if commands[i].name == name || commands[i].alias == name {
			return &commands[i]
		}
	}

	return nil
}

func (sh *Shell) cmdAbout(_ string) {
	kfmt.Fprintf(sh.out, "%s %s, a retro windowing kernel written in Go.\n", kernelName, kernelVersion)
	kfmt.Fprintf(sh.out, "It draws DOS style windows on the VGA text console\n")
	kfmt.Fprintf(sh.out, "and runs entirely in ring 0.\n")
}

func (sh *Shell) cmdClear(_ string) {
	sh.echoByte('\f')
}

func (sh *Shell) cmdEcho(args string) {
	kfmt.Fprintf(sh.out, "%s\n", args)
}

func (sh *Shell) cmdHelp(_ string) {
	for i := range commands {
		cmd := &commands[i]

		kfmt.Fprintf(sh.out, "  %s", cmd.name)
		pos := 2 + len(cmd.name)
		if cmd.alias != "" {
			kfmt.Fprintf(sh.out, " (%s)", cmd.alias)
			pos += 3 + len(cmd.alias)
		}
		for ; pos < 18; pos++ {
			sh.echoByte(' ')
		}
		kfmt.Fprintf(sh.out, "%s\n", cmd.summary)
	}
}

func (sh *Shell) cmdMemory(_ string) {
	stats := readStatsFn()
	kfmt.Fprintf(sh.out, "heap total:   %d bytes\n", stats.TotalBytes)
	kfmt.Fprintf(sh.out, "heap used:    %d bytes\n", stats.UsedBytes)
	kfmt.Fprintf(sh.out, "heap free:    %d bytes\n", stats.FreeBytes)
	kfmt.Fprintf(sh.out, "largest free: %d bytes\n", stats.LargestFree)
	kfmt.Fprintf(sh.out, "free blocks:  %d\n", stats.FreeBlocks)
}

// cmdReboot pulses the keyboard controller reset line. When the controller
// honors the request the machine resets and this never returns.
func (sh *Shell) cmdReboot(_ string) {
	kfmt.Fprintf(sh.out, "pulsing the reset line...\n")
	rebootFn()
}

func (sh *Shell) cmdSysinfo(_ string) {
	var (
		surfaceW, surfaceH = sh.desktop.SurfaceSize()
		stats              = readStatsFn()
	)

	kfmt.Fprintf(sh.out, "kernel:  %s %s\n", kernelName, kernelVersion)
	kfmt.Fprintf(sh.out, "console: %dx%d cells\n", surfaceW, surfaceH)
	kfmt.Fprintf(sh.out, "heap:    %d of %d bytes used\n", stats.UsedBytes, stats.TotalBytes)
	kfmt.Fprintf(sh.out, "uptime:  %d ticks\n", ticksFn())
	kfmt.Fprintf(sh.out, "windows: %d\n", sh.desktop.WindowCount())
	kfmt.Fprintf(sh.out, "theme:   %s\n", sh.desktop.ThemeName())
}

func (sh *Shell) cmdTheme(args string) {
	if args == "" {
		kfmt.Fprintf(sh.out, "themes:")
		for _, name := range sh.desktop.ThemeNames() {
			kfmt.Fprintf(sh.out, " %s", name)
		}
		kfmt.Fprintf(sh.out, " (active: %s)\n", sh.desktop.ThemeName())
		return
	}

	if err := sh.desktop.SetTheme(args); err != nil {
		sh.printError("%s: %s\n", args, err.Message)
	}
}

func (sh *Shell) cmdUptime(_ string) {
	ticks := ticksFn()
	kfmt.Fprintf(sh.out, "up %d seconds (%d ticks at %d hz)\n",
		ticks/timer.TickRate, ticks, timer.TickRate)
}

func (sh *Shell) cmdVersion(_ string) {
	kfmt.Fprintf(sh.out, "%s %s\n", kernelName, kernelVersion)
}
