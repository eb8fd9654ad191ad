// Package hal knits the device drivers into the rest of the kernel. It
// collects the probe lists exported by the driver packages, runs them in
// detection order and routes kernel log output to the first console that
// comes up.
package hal

import (
	"bytes"
	"retros/device"
	"retros/device/intc"
	"retros/device/kbd"
	"retros/device/timer"
	"retros/device/video/console"
	"retros/kernel/kfmt"
	"sort"
)

// managedDevices contains the devices discovered by the HAL.
type managedDevices struct {
	activeConsole console.Device

	// activeDrivers tracks all initialized device drivers.
	activeDrivers []device.Driver
}

var (
	devices managedDevices
	strBuf  bytes.Buffer

	bootCons bootConsole
)

// ActiveConsole returns the console device selected during hardware
// detection or nil when no console hardware was found.
func ActiveConsole() console.Device {
	return devices.activeConsole
}

// DetectHardware registers the probes exported by the driver packages, then
// probes for hardware devices and initializes the appropriate drivers.
func DetectHardware() {
	for _, probes := range [][]*device.DriverInfo{
		console.HWProbes(),
		intc.HWProbes(),
		timer.HWProbes(),
		kbd.HWProbes(),
	} {
		for _, info := range probes {
			device.RegisterDriver(info)
		}
	}

	// Get driver list and sort by detection priority
	drivers := device.DriverList()
	sort.Sort(drivers)

	probe(drivers)
}

// probe executes the probe function for each driver and invokes
// onDriverInit for each successfully initialized driver.
func probe(driverInfoList device.DriverInfoList) {
	var w kfmt.PrefixWriter

	for _, info := range driverInfoList {
		drv := info.Probe()
		if drv == nil {
			continue
		}

		// The early console probe swaps the output sink mid-loop.
		w.Sink = kfmt.GetOutputSink()

		strBuf.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		w.Prefix = strBuf.Bytes()

		if err := drv.DriverInit(&w); err != nil {
			kfmt.Fprintf(&w, "init failed: %s\n", err.Message)
			continue
		}

		kfmt.Fprintf(&w, "initialized\n")
		onDriverInit(info, drv)
		devices.activeDrivers = append(devices.activeDrivers, drv)
	}
}

// onDriverInit is invoked by probe() whenever a piece of hardware is detected
// and successfully initialized.
func onDriverInit(info *device.DriverInfo, drv device.Driver) {
	if cons, ok := drv.(console.Device); ok {
		onConsoleInit(cons)
	}
}

// onConsoleInit is invoked whenever a console is initialized. The first
// console found becomes the active console and the kernel log output gets
// redirected to it, flushing anything held in the early print buffer.
func onConsoleInit(cons console.Device) {
	if devices.activeConsole != nil {
		return
	}

	devices.activeConsole = cons
	bootCons.attachTo(cons)
	kfmt.SetOutputSink(&bootCons)
}
