// Package device defines the driver interface implemented by all hardware
// drivers and the registry the hal package probes when detecting hardware.
package device

import (
	"io"
	"retros/kernel"
)

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver. If the driver init code
	// needs to log some output, it can use the supplied io.Writer in
	// conjunction with a call to kfmt.Fprintf.
	DriverInit(io.Writer) *kernel.Error
}

// ProbeFn is a function that scans for the presence of a particular piece of
// hardware and returns a driver for it. Probe functions return nil when the
// hardware is not present.
type ProbeFn func() Driver

// DetectOrder specifies when a driver probe function gets invoked relative
// to the other registered drivers.
type DetectOrder int

const (
	// DetectOrderEarly drivers are probed before anything else.
	DetectOrderEarly DetectOrder = -128

	// DetectOrderIntController drivers bring up interrupt controllers.
	// They must be probed before any driver that registers an interrupt
	// handler with the controller.
	DetectOrderIntController DetectOrder = -64

	// DetectOrderNormal is the default detection order.
	DetectOrderNormal DetectOrder = 0

	// DetectOrderLast drivers are probed after every other driver.
	DetectOrderLast DetectOrder = 127
)

// DriverInfo describes a registered driver and its detection order.
type DriverInfo struct {
	// Order specifies when the Probe function runs relative to the other
	// registered drivers.
	Order DetectOrder

	// Probe checks for the presence of the hardware that this driver
	// manages and returns an initialized Driver instance for it.
	Probe ProbeFn
}

// DriverInfoList is a sortable list of registered drivers.
type DriverInfoList []*DriverInfo

// Len returns the number of entries in the list.
func (l DriverInfoList) Len() int { return len(l) }

// Swap exchanges the list entries at indices i and j.
func (l DriverInfoList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

// Less reports whether the driver at index i gets probed before the driver
// at index j.
func (l DriverInfoList) Less(i, j int) bool { return l[i].Order < l[j].Order }

var registeredDrivers DriverInfoList

// RegisterDriver appends the supplied driver info to the list of drivers
// that the hal package probes during hardware detection.
func RegisterDriver(info *DriverInfo) {
	registeredDrivers = append(registeredDrivers, info)
}

// DriverList returns the list of registered drivers.
func DriverList() DriverInfoList {
	return registeredDrivers
}
