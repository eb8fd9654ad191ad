package vmm

import (
	"retros/kernel"
	"retros/kernel/cpu"
)

var (
	// readCR2Fn is mocked by tests and is automatically inlined by the
	// compiler.
	readCR2Fn = cpu.ReadCR2

	errUnrecoverableFault = &kernel.Error{Module: "vmm", Message: "page/gpf fault"}
)

// Init prepares the virtual memory system for use. The bootstrap code has
// already mapped all usable physical memory at physMemOffset; Init records
// that offset so page table walks can access the tables through it and
// installs the paging-related exception handlers.
func Init(physMemOffset uintptr) *kernel.Error {
	SetTranslationOffset(physMemOffset)
	installFaultHandlers()
	return nil
}
