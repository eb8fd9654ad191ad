// Package timer provides drivers for the system timer chips that
// generate the periodic interrupts behind the kernel tick counter.
package timer

import (
	"io"
	"retros/device"
	"retros/device/intc"
	"retros/kernel"
	"retros/kernel/cpu"
	"retros/kernel/gate"
	"retros/kernel/kfmt"
)

const (
	// TickRate is the rate in Hz at which PIT channel 0 raises IRQ 0.
	TickRate = 100

	// baseRateHz is the fixed oscillator frequency feeding the chip.
	baseRateHz = 1193182

	// timerIRQ is the interrupt controller line wired to channel 0.
	timerIRQ = intc.IRQ(0)

	channel0Port = uint16(0x40)
	commandPort  = uint16(0x43)

	// initChannel0 selects channel 0, lo/hi byte access and the
	// periodic square-wave mode with binary counting.
	initChannel0 = uint8(0x36)
)

var (
	portWriteByteFn = cpu.PortWriteByte
	handleIRQFn     = intc.HandleIRQ

	// tickCount tracks the number of timer interrupts since boot. The
	// interrupt handler is the only writer; aligned 64-bit loads on
	// amd64 cannot observe a partial increment.
	tickCount uint64
)

// Ticks returns the number of timer interrupts raised since boot.
func Ticks() uint64 {
	return tickCount
}

// pit8254 is a driver for the 8254 programmable interval timer. Channel
// 0 is programmed as a periodic tick source; channels 1 and 2 (DRAM
// refresh, PC speaker) are left untouched.
type pit8254 struct{}

// DriverName returns the name of this driver.
func (p *pit8254) DriverName() string {
	return "pit_8254"
}

// DriverVersion returns the version of this driver.
func (p *pit8254) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit initializes this driver.
func (p *pit8254) DriverInit(w io.Writer) *kernel.Error {
	// The chip divides its base oscillator rate by a 16-bit reload
	// value written one byte at a time.
	divisor := uint16(baseRateHz / TickRate)
	portWriteByteFn(commandPort, initChannel0)
	portWriteByteFn(channel0Port, uint8(divisor&0xff))
	portWriteByteFn(channel0Port, uint8(divisor>>8))

	if err := handleIRQFn(timerIRQ, onTick); err != nil {
		return err
	}

	kfmt.Fprintf(w, "channel 0 generating %d ticks/sec\n", TickRate)

	return nil
}

func onTick(_ *gate.Registers) {
	tickCount++
}

// probeForPIT8254 checks for the presence of the 8254 timer. The chip
// is part of the chipset on every PC-compatible system so the probe
// always succeeds.
func probeForPIT8254() device.Driver {
	return &pit8254{}
}

// HWProbes returns a slice of device.DriverInfo entries that can be
// used by the hal package to probe for timer hardware.
func HWProbes() []*device.DriverInfo {
	return []*device.DriverInfo{
		{Order: device.DetectOrderNormal, Probe: probeForPIT8254},
	}
}
