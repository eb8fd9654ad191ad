// Package goruntime contains code for bootstrapping Go runtime features such
// as the memory allocator. The runtime normally obtains memory from the host
// OS; the redirected sys functions below stand in for the OS and feed it
// kernel memory instead.
package goruntime

import (
	"retros/kernel"
	"retros/kernel/mm"
	"retros/kernel/mm/vmm"
	"unsafe"
)

var (
	mapFn                = vmm.Map
	earlyReserveRegionFn = vmm.EarlyReserveRegion
	frameAllocFn         = mm.AllocFrame
	memsetFn             = kernel.Memset
	mallocInitFn         = mallocInit
	algInitFn            = algInit
	modulesInitFn        = modulesInit
	typeLinksInitFn      = typeLinksInit
	itabsInitFn          = itabsInit

	// A seed for the pseudo-random number generator used by getRandomData
	prngSeed = 0xdeadc0de

	// nanotimeTicks provides a monotonically increasing value for the
	// clock reads performed by the runtime.
	nanotimeTicks int64
)

//go:linkname algInit runtime.alginit
func algInit()

//go:linkname modulesInit runtime.modulesinit
func modulesInit()

//go:linkname typeLinksInit runtime.typelinksinit
func typeLinksInit()

//go:linkname itabsInit runtime.itabsinit
func itabsInit()

//go:linkname mallocInit runtime.mallocinit
func mallocInit()

//go:linkname mSysStatInc runtime.mSysStatInc
func mSysStatInc(*uint64, uintptr)

// sysReserve reserves address space without allocating any memory or
// establishing any page mappings. The address hint supplied by the runtime
// is ignored; reservations are always carved out of the kernel address space
// managed by vmm.EarlyReserveRegion.
//
// This function replaces runtime.sysReserve and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysReserve
//go:nosplit
func sysReserve(_ unsafe.Pointer, size uintptr) unsafe.Pointer {
	regionSize := (size + (mm.PageSize - 1)) & ^(mm.PageSize - 1)
	regionStartAddr, err := earlyReserveRegionFn(regionSize)
	if err != nil {
		panic(err)
	}

	return unsafe.Pointer(regionStartAddr)
}

// sysMap backs a memory region previously obtained via sysReserve with
// physical frames. Page faults are always fatal for the kernel so the frames
// are mapped and zeroed eagerly instead of lazily through a shared zero
// page; any allocation or mapping failure while growing the runtime heap is
// unrecoverable.
//
// This function replaces runtime.sysMap and is required for initializing the
// Go allocator.
//
//go:redirect-from runtime.sysMap
//go:nosplit
func sysMap(virtAddr unsafe.Pointer, size uintptr, sysStat *uint64) {
	var (
		regionStartAddr = (uintptr(virtAddr) + (mm.PageSize - 1)) & ^(mm.PageSize - 1)
		regionSize      = (size + (mm.PageSize - 1)) & ^(mm.PageSize - 1)
		pageCount       = regionSize >> mm.PageShift
		mapFlags        = vmm.FlagPresent | vmm.FlagNoExecute | vmm.FlagRW
	)

	for page := mm.PageFromAddress(regionStartAddr); pageCount > 0; pageCount, page = pageCount-1, page+1 {
		frame, err := frameAllocFn()
		if err != nil {
			panic(err)
		}

		if err = mapFn(page, frame, mapFlags); err != nil {
			panic(err)
		}

		memsetFn(page.Address(), 0, mm.PageSize)
	}

	mSysStatInc(sysStat, regionSize)
}

// sysAlloc reserves enough physical frames to satisfy the allocation request
// and establishes a contiguous virtual page mapping for them returning back
// the pointer to the virtual region start. The mapped frames are zeroed as
// the runtime expects pristine memory from the OS.
//
// This function replaces runtime.sysAlloc and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysAlloc
//go:nosplit
func sysAlloc(size uintptr, sysStat *uint64) unsafe.Pointer {
	regionSize := (size + (mm.PageSize - 1)) & ^(mm.PageSize - 1)
	regionStartAddr, err := earlyReserveRegionFn(regionSize)
	if err != nil {
		return unsafe.Pointer(uintptr(0))
	}

	mapFlags := vmm.FlagPresent | vmm.FlagNoExecute | vmm.FlagRW
	pageCount := regionSize >> mm.PageShift
	for page := mm.PageFromAddress(regionStartAddr); pageCount > 0; pageCount, page = pageCount-1, page+1 {
		frame, err := frameAllocFn()
		if err != nil {
			return unsafe.Pointer(uintptr(0))
		}

		if err = mapFn(page, frame, mapFlags); err != nil {
			return unsafe.Pointer(uintptr(0))
		}

		memsetFn(page.Address(), 0, mm.PageSize)
	}

	mSysStatInc(sysStat, regionSize)
	return unsafe.Pointer(regionStartAddr)
}

// nanotime returns a monotonically increasing clock value. The kernel has no
// calibrated time source by the time the allocator first runs so a simple
// counter stands in for the clock.
//
// This function replaces runtime.nanotime and is invoked by the Go allocator
// when a span allocation is performed.
//
//go:redirect-from runtime.nanotime
//go:nosplit
func nanotime() int64 {
	nanotimeTicks += 1000
	return nanotimeTicks
}

// getRandomData populates the given slice with random data. The
// implementation in the runtime package reads a random stream from
// /dev/random but since this is not available, we use a prng instead.
//
//go:redirect-from runtime.getRandomData
func getRandomData(r []byte) {
	for i := 0; i < len(r); i++ {
		prngSeed = (prngSeed * 58321) + 11113
		r[i] = byte((prngSeed >> 16) & 255)
	}
}

// Init enables support for various Go runtime features. After a call to init
// the following runtime features become available for use:
//  - heap memory allocation (new, make e.t.c)
//  - map primitives
//  - interfaces
func Init() *kernel.Error {
	mallocInitFn()
	algInitFn()       // setup hash implementation for map keys
	modulesInitFn()   // provides activeModules
	typeLinksInitFn() // uses maps, activeModules
	itabsInitFn()     // uses activeModules

	return nil
}

func init() {
	// Dummy calls so the compiler does not optimize away the functions in
	// this file.
	var (
		stat    uint64
		zeroPtr = unsafe.Pointer(uintptr(0))
	)

	sysReserve(zeroPtr, 0)
	sysMap(zeroPtr, 0, &stat)
	sysAlloc(0, &stat)
	getRandomData(nil)
	nanotime()
}
