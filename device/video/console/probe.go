package console

import (
	"retros/device"
	"retros/kernel/cpu"
	"retros/kernel/mm/vmm"
	"retros/multiboot"
)

var (
	mapRegionFn          = vmm.MapRegion
	portWriteByteFn      = cpu.PortWriteByte
	getFramebufferInfoFn = multiboot.GetFramebufferInfo
)

// HWProbes returns the probes used to detect console hardware. The console
// is probed before every other driver so boot output gets a sink as early as
// possible.
func HWProbes() []*device.DriverInfo {
	return []*device.DriverInfo{
		{Order: device.DetectOrderEarly, Probe: probeForVgaTextConsole},
	}
}
