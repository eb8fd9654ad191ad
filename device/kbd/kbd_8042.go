// Package kbd provides the driver for the 8042 keyboard controller together
// with the set 1 scancode decoder and the bounded event queue that feeds the
// UI layer.
package kbd

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
	keyboardIRQ = intc.IRQ(1)

	dataPort      = uint16(0x60)
	statusCmdPort = uint16(0x64)

	// Status register bit set while the controller output buffer holds a
	// byte that has not been read yet.
	statusOutBufferFull = uint8(0x01)

	// Command pulsing the CPU reset line.
	cmdPulseResetLine = uint8(0xfe)
)

var (
	portReadByteFn  = cpu.PortReadByte
	portWriteByteFn = cpu.PortWriteByte
	handleIRQFn     = intc.HandleIRQ
)

// kbd8042 is a driver for the 8042 keyboard controller found on all PC
// compatible hardware.
type kbd8042 struct {
	dec decoder
}

// DriverName returns the name of this driver.
func (*kbd8042) DriverName() string {
	return "kbd_8042"
}

// DriverVersion returns the version of this driver.
func (*kbd8042) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit drains any stale bytes out of the controller output buffer and
// attaches the scancode handler to the keyboard IRQ line.
func (drv *kbd8042) DriverInit(w io.Writer) *kernel.Error {
	for portReadByteFn(statusCmdPort)&statusOutBufferFull != 0 {
		portReadByteFn(dataPort)
	}

	if err := handleIRQFn(keyboardIRQ, drv.onScancode); err != nil {
		return err
	}

	kfmt.Fprintf(w, "decoding set 1 scancodes; event queue depth %d\n", queueCapacity)
	return nil
}

// onScancode reads one scancode byte off the controller and pushes any event
// it completes. It runs in interrupt context and must not allocate or block.
func (drv *kbd8042) onScancode(_ *gate.Registers) {
	code := portReadByteFn(dataPort)
	if ev, ok := drv.dec.feed(code); ok {
		pendingEvents.push(ev)
	}
}

// PulseResetLine asks the keyboard controller to pulse the CPU reset line.
// On success the machine reboots and this call never returns.
func PulseResetLine() {
	portWriteByteFn(statusCmdPort, cmdPulseResetLine)
}

func probeForKbd8042() device.Driver {
	return &kbd8042{}
}

// HWProbes returns the probes used to detect keyboard controllers.
func HWProbes() []*device.DriverInfo {
	return []*device.DriverInfo{
		{Order: device.DetectOrderNormal, Probe: probeForKbd8042},
	}
}
