// Package kmain contains the kernel entry point and the steady-state event
// loop. It brings up the descriptor tables, the memory managers and the
// device drivers, opens the shell window and then services keyboard events
// until the machine is reset.
package kmain

import (
	"retros/device/kbd"
	"retros/kernel"
	"retros/kernel/cpu"
	"retros/kernel/gate"
	"retros/kernel/goruntime"
	"retros/kernel/hal"
	"retros/kernel/kfmt"
	"retros/kernel/mm/heap"
	"retros/kernel/mm/pmm"
	"retros/kernel/mm/vmm"
	"retros/multiboot"
	"retros/ui/shell"
	"retros/ui/wm"
)

const (
	// physMemOffset is the virtual address where the rt0 assembly maps the
	// whole physical address space before entering Kmain.
	physMemOffset = uintptr(0xffff800000000000)

	// heapStart and heapSize fix the virtual region handed to the heap
	// allocator. 100 KiB covers the window content buffers with room to
	// spare.
	heapStart = uintptr(0x444444440000)
	heapSize  = uintptr(100 << 10)
)

var (
	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
	errNoConsole     = &kernel.Error{Module: "kmain", Message: "no console device detected"}
)

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. This function is invoked by the rt0 assembly code
// after setting up a minimal g0 struct that allows Go code to use the 4K
// stack allocated by the assembly code.
//
// The rt0 code passes the address of the multiboot info payload provided by
// the bootloader as well as the physical addresses for the kernel start/end.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the
// CPU.
//
//go:noinline
func Kmain(multibootInfoPtr, kernelStart, kernelEnd uintptr) {
	multiboot.SetInfoPtr(multibootInfoPtr)

	var err *kernel.Error
	if err = gate.Init(); err != nil {
		panic(err)
	} else if err = pmm.Init(kernelStart, kernelEnd); err != nil {
		panic(err)
	} else if err = vmm.Init(physMemOffset); err != nil {
		panic(err)
	} else if err = goruntime.Init(); err != nil {
		panic(err)
	}

	hal.DetectHardware()

	if err = heap.Init(heapStart, heapSize); err != nil {
		panic(err)
	}

	heapSelfCheck()

	cons := hal.ActiveConsole()
	if cons == nil {
		kfmt.Panic(errNoConsole)
	}

	desktop := wm.New(cons)
	applyBootTheme(desktop)

	sh, err := shell.New(desktop)
	if err != nil {
		panic(err)
	}

	if multiboot.GetBootCmdLine()["consoleBanner"] != "off" {
		sh.Banner()
	}
	sh.Prompt()
	desktop.Redraw()

	cpu.EnableInterrupts()
	eventLoop(desktop)

	// Use kfmt.Panic instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	kfmt.Panic(errKmainReturned)
}

// eventLoop drains the keyboard queue into the compositor, repaints and
// halts until the next interrupt wakes the CPU. All window and heap
// mutation happens here in the foreground flow; the interrupt handlers only
// feed the queue.
func eventLoop(desktop *wm.Compositor) {
	for {
		for {
			ev, ok := kbd.NextEvent()
			if !ok {
				break
			}

			desktop.Dispatch(ev)
		}

		desktop.Redraw()
		cpu.Halt()
	}
}

// heapSelfCheck exercises an allocate/free round trip right after heap
// bring-up so a broken allocator stops the boot instead of corrupting
// window state later.
func heapSelfCheck() {
	const checkSize = 256

	addr, err := heap.Allocate(checkSize, 16)
	if err != nil {
		kfmt.Panic(err)
	}

	kernel.Memset(addr, 0xa5, checkSize)

	if err = heap.Free(addr, checkSize); err != nil {
		kfmt.Panic(err)
	}

	kfmt.Printf("[kmain] heap self-check passed\n")
}

// applyBootTheme activates the theme named by the theme= boot argument.
// Unknown names are reported and leave the default theme active.
func applyBootTheme(desktop *wm.Compositor) {
	name := multiboot.GetBootCmdLine()["theme"]
	if name == "" {
		return
	}

	if err := desktop.SetTheme(name); err != nil {
		kfmt.Printf("[kmain] theme %s: %s\n", name, err.Message)
	}
}
