package gate

import (
	"encoding/binary"
	"unsafe"
)

// The CPU loads descriptor table locations from a packed 10-byte value
// containing a 16-bit limit followed by the 64-bit table base address.
const tableRegisterSize = 10

// segmentDescriptor describes a 64-bit GDT entry. It uses a uint64 as its
// underlying type to force 8-byte alignment.
type segmentDescriptor uint64

// Segment selector indices. The boot code enters long mode through a far
// jump that hardcodes the kernel code selector so the relative order of
// these entries must not change.
const (
	// Mandatory null selector.
	_ = iota

	// Ring 0 code (64-bit).
	segmentKernelCode

	// Ring 0 data.
	segmentKernelData

	// TSS. 64-bit TSS descriptors span two GDT slots with the upper
	// address bits in the second slot.
	segmentTSS
	segmentTSSHigh

	// End sentinel for determining the table limit.
	segmentCount
)

type segmentFlag uint32

const (
	segFlagAccessed segmentFlag = 1 << 8
	segFlagWritable segmentFlag = 1 << 9
	segFlagCode     segmentFlag = 1 << 11
	segFlagSystem   segmentFlag = 1 << 12
	segFlagPresent  segmentFlag = 1 << 15
	segFlagLongMode segmentFlag = 1 << 21
)

// privLevel describes a descriptor privilege level.
type privLevel uint32

const (
	ring0 privLevel = 0
	ring3 privLevel = 3
)

// Interrupt stack table slots. Slot 0 means "do not switch stacks"; the
// double fault handler gets a dedicated stack so it remains functional even
// when the fault was caused by a corrupted or overflowed kernel stack.
const (
	istNone        = 0
	istDoubleFault = 1
)

// tss describes the 64-bit task state segment. Hardware task switching is not
// available in long mode but a TSS is still required as it holds the
// interrupt stack table.
type tss [26]uint32

// setIST sets the address for the 1-based interrupt stack table slot idx.
func (t *tss) setIST(idx int, rsp uint64) {
	t[7+idx*2] = uint32(rsp)
	t[7+idx*2+1] = uint32(rsp >> 32)
}

// setIOPermOffset sets the 16-bit offset to the I/O permission bitmap.
// Pointing it past the TSS limit blocks all ports from ring 3.
func (t *tss) setIOPermOffset(offset uint16) {
	t[25] = uint32(offset) << 16
}

// gateDescriptor describes a 16-byte IDT entry. It uses a [2]uint64 as its
// underlying type to force 8-byte alignment.
type gateDescriptor [2]uint64

// setHandler encodes an interrupt gate that transfers control to the code at
// handlerAddr using the kernel code segment. Interrupt gates automatically
// mask interrupts on entry; they are unmasked again by the IRETQ at the end
// of the assembly entry code.
func (d *gateDescriptor) setHandler(handlerAddr uintptr, priv privLevel, istOffset uint8) {
	const interruptGateType = 0xe

	selector := uint32(segmentKernelCode << 3)
	w0 := selector<<16 | uint32(handlerAddr&0xffff)
	w1 := uint32(handlerAddr&0xffff0000) |
		uint32(segFlagPresent) |
		uint32(priv)<<13 |
		interruptGateType<<8 |
		uint32(istOffset&0x7)

	d[0] = uint64(w1)<<32 | uint64(w0)
	d[1] = uint64(handlerAddr >> 32)
}

// handlerAddress extracts the handler address encoded in the descriptor.
func (d gateDescriptor) handlerAddress() uintptr {
	return uintptr(d[0]&0xffff) | uintptr((d[0]>>32)&0xffff0000) | uintptr(d[1])<<32
}

// istOffset extracts the interrupt stack table slot encoded in the descriptor.
func (d gateDescriptor) istOffset() uint8 {
	return uint8(d[0] >> 32 & 0x7)
}

// present returns true if the gate has been populated with a handler.
func (d gateDescriptor) present() bool {
	return d[0]&(uint64(segFlagPresent)<<32) != 0
}

// newSegmentDescriptor encodes a GDT entry for the given base, limit,
// flags and privilege level.
func newSegmentDescriptor(base, limit uint32, flags segmentFlag, priv privLevel) segmentDescriptor {
	flags |= segFlagPresent
	w0 := base<<16 | limit&0xffff
	w1 := base&0xff000000 |
		limit&0xf0000 |
		uint32(flags) |
		uint32(priv)<<13 |
		(base>>16)&0xff

	return segmentDescriptor(uint64(w1)<<32 | uint64(w0))
}

var (
	gdt [segmentCount]segmentDescriptor
	idt [256]gateDescriptor

	taskState tss

	// doubleFaultStack provides the dedicated stack the CPU switches to
	// when a double fault occurs. The stack grows downwards from its end.
	doubleFaultStack [16384]byte
)

// installGDT populates the GDT with the kernel code/data segments and the
// TSS, loads it and reloads the segment registers and the task register.
func installGDT() {
	tssBase := uintptr(unsafe.Pointer(&taskState))
	tssLimit := uint32(unsafe.Sizeof(taskState) - 1)

	taskState.setIST(istDoubleFault, uint64(stackTop(doubleFaultStack[:])))
	taskState.setIOPermOffset(uint16(tssLimit + 1))

	gdt[segmentKernelCode] = newSegmentDescriptor(0, 0, segFlagSystem|segFlagCode|segFlagLongMode, ring0)
	gdt[segmentKernelData] = newSegmentDescriptor(0, 0, segFlagSystem|segFlagWritable, ring0)
	gdt[segmentTSS] = newSegmentDescriptor(uint32(tssBase), tssLimit, segFlagAccessed|segFlagCode, ring0)
	gdt[segmentTSSHigh] = segmentDescriptor(tssBase >> 32)

	var reg [tableRegisterSize]byte
	binary.LittleEndian.PutUint16(reg[0:2], uint16(unsafe.Sizeof(gdt)-1))
	binary.LittleEndian.PutUint64(reg[2:], uint64(uintptr(unsafe.Pointer(&gdt))))
	loadGDT(uintptr(unsafe.Pointer(&reg[0])))

	reloadSegments(uint16(segmentKernelCode<<3), uint16(segmentKernelData<<3))
	loadTaskRegister(uint16(segmentTSS << 3))
}

// installIDT loads the interrupt descriptor table. Gate entries are initially
// marked as non-present and become active via calls to HandleInterrupt.
func installIDT() {
	var reg [tableRegisterSize]byte
	binary.LittleEndian.PutUint16(reg[0:2], uint16(unsafe.Sizeof(idt)-1))
	binary.LittleEndian.PutUint64(reg[2:], uint64(uintptr(unsafe.Pointer(&idt))))
	loadIDT(uintptr(unsafe.Pointer(&reg[0])))
}

// stackTop returns the address of the last 16-byte aligned slot in stack.
func stackTop(stack []byte) uintptr {
	return (uintptr(unsafe.Pointer(&stack[0])) + uintptr(len(stack))) &^ 0xf
}

// loadGDT loads the global descriptor table register from the packed
// limit/base value at regAddr.
func loadGDT(regAddr uintptr)

// loadIDT loads the interrupt descriptor table register from the packed
// limit/base value at regAddr.
func loadIDT(regAddr uintptr)

// loadTaskRegister loads the task register with the given TSS selector.
func loadTaskRegister(selector uint16)

// reloadSegments reloads the CS register via a far return and points DS, ES
// and SS at the kernel data segment. FS and GS are left untouched as their
// base registers hold the TLS address the boot code hands to the Go runtime.
func reloadSegments(codeSelector, dataSelector uint16)

// trampolineBase returns the address of the first entry in the interrupt
// trampoline table. The table contains one trampolineStride-sized stub per
// interrupt vector; each stub pushes its vector number and jumps to
// interruptGateEntry.
func trampolineBase() uintptr

// interruptGateEntry is the common entry point shared by all interrupt
// trampolines. It pairs the error code pushed by the CPU (or the dummy value
// pushed by the trampoline) with a snapshot of the register state and invokes
// dispatchInterrupt. It must never be called from Go code.
func interruptGateEntry()

// trampolineStride is the size in bytes of each interrupt trampoline stub.
const trampolineStride = 16
