// Package intc provides drivers for the interrupt controllers found on
// x86_64 systems together with a line-oriented API for attaching IRQ
// handlers on top of the vector-oriented gate package.
package intc

import (
	"io"
	"retros/device"
	"retros/kernel"
	"retros/kernel/cpu"
	"retros/kernel/gate"
	"retros/kernel/kfmt"
)

// IRQ describes a hardware interrupt request line. The PC keeps the
// legacy wiring: line 0 is the PIT, line 1 the keyboard and line 2
// cascades the slave chip into the master.
type IRQ uint8

const (
	// numIRQs is the total number of IRQ lines driven by the 8259A pair.
	numIRQs = 16

	// linesPerChip is the number of IRQ lines attached to each chip.
	linesPerChip = 8

	// cascadeIRQ is the master chip line wired to the slave chip.
	cascadeIRQ = IRQ(2)
)

// Port and command word assignments for the 8259A pair. Each chip
// exposes a command and a data port; writes to the unused port 0x80
// give the chips time to settle between initialization words.
const (
	masterCmdPort  = uint16(0x20)
	masterDataPort = uint16(0x21)
	slaveCmdPort   = uint16(0xa0)
	slaveDataPort  = uint16(0xa1)
	ioWaitPort     = uint16(0x80)

	icw1Init     = uint8(0x10)
	icw1NeedICW4 = uint8(0x01)
	icw3Cascade  = uint8(1 << cascadeIRQ)
	icw3SlaveID  = uint8(0x02)
	icw48086Mode = uint8(0x01)

	ocw2EOI = uint8(0x20)
)

var (
	portWriteByteFn   = cpu.PortWriteByte
	handleInterruptFn = gate.HandleInterrupt

	// activePIC tracks the interrupt controller instance selected by
	// the hal package during hardware detection.
	activePIC *pic8259

	errNotInitialized = &kernel.Error{Module: "intc", Message: "no interrupt controller has been initialized"}
)

// pic8259 is a driver for the chained pair of 8259A interrupt
// controllers present on PC-compatible systems.
type pic8259 struct {
	// masks mirrors the interrupt mask register of the master (index 0)
	// and slave (index 1) chip. A set bit inhibits delivery of the
	// corresponding IRQ line.
	masks [2]uint8
}

// DriverName returns the name of this driver.
func (p *pic8259) DriverName() string {
	return "pic_8259"
}

// DriverVersion returns the version of this driver.
func (p *pic8259) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit initializes this driver.
func (p *pic8259) DriverInit(w io.Writer) *kernel.Error {
	// Each chip expects four initialization words: begin initialization,
	// vector offset, cascade wiring and 8086 mode. The offsets move the
	// IRQ vectors above the range reserved for CPU exceptions.
	writeWait(masterCmdPort, icw1Init|icw1NeedICW4)
	writeWait(slaveCmdPort, icw1Init|icw1NeedICW4)
	writeWait(masterDataPort, uint8(gate.IRQBase))
	writeWait(slaveDataPort, uint8(gate.IRQBase)+linesPerChip)
	writeWait(masterDataPort, icw3Cascade)
	writeWait(slaveDataPort, icw3SlaveID)
	writeWait(masterDataPort, icw48086Mode)
	writeWait(slaveDataPort, icw48086Mode)

	// Inhibit all lines until a handler is attached via HandleIRQ.
	p.masks[0] = 0xff
	p.masks[1] = 0xff
	portWriteByteFn(masterDataPort, p.masks[0])
	portWriteByteFn(slaveDataPort, p.masks[1])

	activePIC = p

	kfmt.Fprintf(w, "remapped IRQ lines [0, %d) to interrupt vectors [%d, %d)\n",
		numIRQs,
		uint8(gate.IRQBase),
		uint8(gate.IRQBase)+numIRQs,
	)

	return nil
}

// ack signals end-of-interrupt for the given IRQ line. Lines attached
// to the slave chip require an EOI to both chips as their requests are
// forwarded through the cascade line on the master.
func (p *pic8259) ack(irq IRQ) {
	if irq >= linesPerChip {
		portWriteByteFn(slaveCmdPort, ocw2EOI)
	}

	portWriteByteFn(masterCmdPort, ocw2EOI)
}

// unmaskLine enables delivery of the given IRQ line. Lines attached to
// the slave chip also require the cascade line on the master to be
// open.
func (p *pic8259) unmaskLine(irq IRQ) {
	if irq >= linesPerChip {
		p.masks[1] &^= 1 << (irq - linesPerChip)
		portWriteByteFn(slaveDataPort, p.masks[1])
		irq = cascadeIRQ
	}

	p.masks[0] &^= 1 << irq
	portWriteByteFn(masterDataPort, p.masks[0])
}

// writeWait writes val to the given port followed by a write to an
// unused port. The second write gives older chips enough time to settle
// before the next initialization word arrives.
func writeWait(port uint16, val uint8) {
	portWriteByteFn(port, val)
	portWriteByteFn(ioWaitPort, 0)
}

// Acknowledge signals the active interrupt controller that the current
// interrupt on the given IRQ line has been serviced. Handlers attached
// via HandleIRQ are acknowledged automatically and must not invoke
// Acknowledge themselves.
func Acknowledge(irq IRQ) {
	if activePIC == nil {
		return
	}

	activePIC.ack(irq)
}

// HandleIRQ registers a handler for the given IRQ line and unmasks the
// line on the active interrupt controller. Once handler returns, an
// end-of-interrupt is sent to the controller so that each delivered
// interrupt gets acknowledged exactly once.
func HandleIRQ(irq IRQ, handler func(*gate.Registers)) *kernel.Error {
	pic := activePIC
	if pic == nil {
		return errNotInitialized
	}

	handleInterruptFn(gate.IRQBase+gate.InterruptNumber(irq), 0, func(regs *gate.Registers) {
		handler(regs)
		pic.ack(irq)
	})

	pic.unmaskLine(irq)

	return nil
}

// probeForPIC8259 checks for the presence of the 8259A controller pair.
// The pair is part of the chipset on every PC-compatible system so the
// probe always succeeds.
func probeForPIC8259() device.Driver {
	return &pic8259{}
}

// HWProbes returns a slice of device.DriverInfo entries that can be
// used by the hal package to probe for interrupt controller hardware.
func HWProbes() []*device.DriverInfo {
	return []*device.DriverInfo{
		{Order: device.DetectOrderIntController, Probe: probeForPIC8259},
	}
}
