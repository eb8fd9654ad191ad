package gate

import (
	"io"
	"retros/kernel"
	"retros/kernel/kfmt"
)

var (
	// interruptHandlers contains the currently registered handler for
	// each interrupt vector. Entries are populated via HandleInterrupt
	// before interrupts are enabled and are read-only afterwards.
	interruptHandlers [256]func(*Registers)

	// trampolineBaseFn is mocked by tests and is automatically inlined
	// by the compiler.
	trampolineBaseFn = trampolineBase

	errUnhandledInterrupt = &kernel.Error{Module: "gate", Message: "unhandled interrupt/exception"}
	errDoubleFault        = &kernel.Error{Module: "gate", Message: "double fault"}
	errDivideByZero       = &kernel.Error{Module: "gate", Message: "divide error"}
)

// Registers contains a snapshot of all register values when an exception,
// interrupt or syscall occurs.
type Registers struct {
	RAX uint64
	RBX uint64
	RCX uint64
	RDX uint64
	RSI uint64
	RDI uint64
	RBP uint64
	R8  uint64
	R9  uint64
	R10 uint64
	R11 uint64
	R12 uint64
	R13 uint64
	R14 uint64
	R15 uint64

	// Info contains the exception code for exceptions, the syscall number
	// for syscall entries or the IRQ number for HW interrupts.
	Info uint64

	// The return frame used by IRETQ
	RIP    uint64
	CS     uint64
	RFlags uint64
	RSP    uint64
	SS     uint64
}

// DumpTo outputs the register contents to w.
func (r *Registers) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "RAX = %16x RBX = %16x\n", r.RAX, r.RBX)
	kfmt.Fprintf(w, "RCX = %16x RDX = %16x\n", r.RCX, r.RDX)
	kfmt.Fprintf(w, "RSI = %16x RDI = %16x\n", r.RSI, r.RDI)
	kfmt.Fprintf(w, "RBP = %16x\n", r.RBP)
	kfmt.Fprintf(w, "R8  = %16x R9  = %16x\n", r.R8, r.R9)
	kfmt.Fprintf(w, "R10 = %16x R11 = %16x\n", r.R10, r.R11)
	kfmt.Fprintf(w, "R12 = %16x R13 = %16x\n", r.R12, r.R13)
	kfmt.Fprintf(w, "R14 = %16x R15 = %16x\n", r.R14, r.R15)
	kfmt.Fprintf(w, "\n")
	kfmt.Fprintf(w, "RIP = %16x CS  = %16x\n", r.RIP, r.CS)
	kfmt.Fprintf(w, "RSP = %16x SS  = %16x\n", r.RSP, r.SS)
	kfmt.Fprintf(w, "RFL = %16x\n", r.RFlags)
}

// InterruptNumber describes an x86 interrupt/exception/trap slot.
type InterruptNumber uint8

const (
	// DivideByZero occurs when dividing any number by 0 using the DIV or
	// IDIV instruction.
	DivideByZero = InterruptNumber(0)

	// NMI (non-maskable-interrupt) is a hardware interrupt that indicates
	// issues with RAM or unrecoverable hardware problems. It may also be
	// raised by the CPU when a watchdog timer is enabled.
	NMI = InterruptNumber(2)

	// Breakpoint occurs when the CPU executes an INT3 instruction.
	Breakpoint = InterruptNumber(3)

	// Overflow occurs when an overflow occurs (e.g result of division
	// cannot fit into the registers used).
	Overflow = InterruptNumber(4)

	// BoundRangeExceeded occurs when the BOUND instruction is invoked with
	// an index out of range.
	BoundRangeExceeded = InterruptNumber(5)

	// InvalidOpcode occurs when the CPU attempts to execute an invalid or
	// undefined instruction opcode.
	InvalidOpcode = InterruptNumber(6)

	// DeviceNotAvailable occurs when the CPU attempts to execute an
	// FPU/MMX/SSE instruction while no FPU is available or while
	// FPU/MMX/SSE support has been disabled by manipulating the CR0
	// register.
	DeviceNotAvailable = InterruptNumber(7)

	// DoubleFault occurs when an unhandled exception occurs or when an
	// exception occurs within a running exception handler.
	DoubleFault = InterruptNumber(8)

	// InvalidTSS occurs when the TSS points to an invalid task segment
	// selector.
	InvalidTSS = InterruptNumber(10)

	// SegmentNotPresent occurs when the CPU attempts to invoke a present
	// gate with an invalid stack segment selector.
	SegmentNotPresent = InterruptNumber(11)

	// StackSegmentFault occurs when attempting to push/pop from a
	// non-canonical stack address or when the stack base/limit (set in
	// GDT) checks fail.
	StackSegmentFault = InterruptNumber(12)

	// GPFException occurs when a general protection fault occurs.
	GPFException = InterruptNumber(13)

	// PageFaultException occurs when a page directory table (PDT) or one
	// of its entries is not present or when a privilege and/or RW
	// protection check fails.
	PageFaultException = InterruptNumber(14)

	// FloatingPointException occurs while invoking an FP instruction while:
	//  - CR0.NE = 1 OR
	//  - an unmasked FP exception is pending
	FloatingPointException = InterruptNumber(16)

	// AlignmentCheck occurs when alignment checks are enabled and an
	// unaligmed memory access is performed.
	AlignmentCheck = InterruptNumber(17)

	// MachineCheck occurs when the CPU detects internal errors such as
	// memory-, bus- or cache-related errors.
	MachineCheck = InterruptNumber(18)

	// SIMDFloatingPointException occurs when an unmasked SSE exception
	// occurs while CR4.OSXMMEXCPT is set to 1. If the OSXMMEXCPT bit is
	// not set, SIMD FP exceptions cause InvalidOpcode exceptions instead.
	SIMDFloatingPointException = InterruptNumber(19)

	// IRQBase is the vector that the first hardware IRQ line is remapped
	// to. Vectors 0 to 31 are reserved for CPU exceptions.
	IRQBase = InterruptNumber(32)
)

// Init installs the descriptor tables and registers handlers for the CPU
// exceptions the kernel always expects to field: divide errors, breakpoints
// and double faults. The double fault handler runs on its own interrupt
// stack so it stays functional even after kernel stack corruption.
func Init() *kernel.Error {
	installGDT()
	installIDT()

	HandleInterrupt(DivideByZero, istNone, divideByZeroHandler)
	HandleInterrupt(Breakpoint, istNone, breakpointHandler)
	HandleInterrupt(DoubleFault, istDoubleFault, doubleFaultHandler)

	return nil
}

// HandleInterrupt ensures that the provided handler will be invoked when a
// particular interrupt number occurs. The value of the istOffset argument
// specifies the offset in the interrupt stack table (if 0 then IST is not
// used).
func HandleInterrupt(intNumber InterruptNumber, istOffset uint8, handler func(*Registers)) {
	interruptHandlers[intNumber] = handler
	idt[intNumber].setHandler(
		trampolineBaseFn()+uintptr(intNumber)*trampolineStride,
		ring0,
		istOffset,
	)
}

// dispatchInterrupt is invoked by the common assembly entry code with the
// vector number and captured register state of an incoming interrupt. It
// routes the interrupt to the registered handler. Vectors without a handler
// indicate a kernel bug or unexpected hardware behavior; as no isolation
// layer exists that could contain them, they are fatal.
func dispatchInterrupt(vector uint64, regs *Registers) {
	if handler := interruptHandlers[uint8(vector)]; handler != nil {
		handler(regs)
		return
	}

	kfmt.Printf("\nunexpected interrupt/exception: vector %d\n\nRegisters:\n", vector)
	regs.DumpTo(kfmt.GetOutputSink())
	panic(errUnhandledInterrupt)
}

// divideByZeroHandler fields divide errors. Without a process to terminate
// there is no recovery strategy; report the context and halt.
func divideByZeroHandler(regs *Registers) {
	kfmt.Printf("\ndivide error at RIP 0x%16x\n\nRegisters:\n", regs.RIP)
	regs.DumpTo(kfmt.GetOutputSink())
	panic(errDivideByZero)
}

// breakpointHandler logs the INT3 location and resumes execution.
func breakpointHandler(regs *Registers) {
	kfmt.Printf("[gate] breakpoint at RIP 0x%16x\n", regs.RIP)
}

// doubleFaultHandler fields double faults on the dedicated IST stack. It
// must not allocate memory or acquire locks: the fault may have originated
// inside any critical section. It reports the context and halts.
func doubleFaultHandler(regs *Registers) {
	kfmt.Printf("\ndouble fault (error code %d)\n\nRegisters:\n", regs.Info)
	regs.DumpTo(kfmt.GetOutputSink())
	panic(errDoubleFault)
}
