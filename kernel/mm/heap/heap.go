// Package heap implements the kernel's dynamic memory allocator. The
// allocator owns a fixed virtual region which gets backed by physical frames
// when Init runs and serves allocation requests out of an intrusive free
// list: the list headers live inside the free regions themselves so no
// memory outside the heap is needed for bookkeeping.
//
// The allocator is only ever entered from the foreground control flow;
// interrupt handlers never allocate. This keeps the free list single-owner
// and removes the need for a lock around list mutations.
package heap

import (
	"retros/kernel"
	"retros/kernel/kfmt"
	"retros/kernel/mm"
	"retros/kernel/mm/vmm"
	"unsafe"
)

var (
	// mapFn is used by tests and is automatically inlined by the compiler.
	mapFn = vmm.Map

	errOutOfMemory    = &kernel.Error{Module: "heap", Message: "out of memory"}
	errNotInitialized = &kernel.Error{Module: "heap", Message: "allocator not initialized"}
	errInvalidAlign   = &kernel.Error{Module: "heap", Message: "alignment must be a non-zero power of 2"}
	errBlockRange     = &kernel.Error{Module: "heap", Message: "block lies outside the heap region"}
	errBlockAlign     = &kernel.Error{Module: "heap", Message: "block address is not aligned to a header boundary"}
	errBlockOverlap   = &kernel.Error{Module: "heap", Message: "block overlaps a free region; double free or corrupted bookkeeping"}
)

// freeBlock describes a free heap region. The header is stored at the start
// of the region it describes.
type freeBlock struct {
	size uintptr
	next *freeBlock
}

// blockHeaderSize is the minimum allocation granularity. Allocation sizes
// and the heap bounds are always multiples of it which guarantees that any
// remainder produced by splitting a free block can hold a header of its own.
const blockHeaderSize = unsafe.Sizeof(freeBlock{})

var (
	heapStart uintptr
	heapEnd   uintptr

	// freeList contains the free blocks ordered by ascending address so
	// that adjacent blocks can be coalesced when a block is freed.
	freeList *freeBlock

	usedBytes uintptr
)

// Init maps the virtual region [start, start+size) using freshly allocated
// physical frames and initializes the free list with a single block spanning
// the whole region. The size is always rounded up to the nearest page
// boundary; start must be page-aligned.
func Init(start, size uintptr) *kernel.Error {
	size = (size + (mm.PageSize - 1)) & ^(mm.PageSize - 1)

	for page, pageCount := mm.PageFromAddress(start), size>>mm.PageShift; pageCount > 0; pageCount, page = pageCount-1, page+1 {
		frame, err := mm.AllocFrame()
		if err != nil {
			return err
		}

		if err = mapFn(page, frame, vmm.FlagPresent|vmm.FlagRW); err != nil {
			return err
		}
	}

	heapStart, heapEnd = start, start+size
	usedBytes = 0

	block := (*freeBlock)(unsafe.Pointer(start))
	block.size = size
	block.next = nil
	freeList = block

	kfmt.Printf("[heap] initialized %d kb heap at 0x%16x\n", size>>10, start)
	return nil
}

// Allocate returns the address of a heap region which is at least size bytes
// long and aligned to align (a non-zero power of 2). The region is carved
// out of the first free block that can satisfy the request, splitting the
// block when parts of it remain free. Failed requests return errOutOfMemory
// and leave the free list untouched.
//
// The caller owns [addr, addr+size) until it passes the same address and
// size back to Free.
func Allocate(size, align uintptr) (uintptr, *kernel.Error) {
	if heapEnd == 0 {
		return 0, errNotInitialized
	}

	if align == 0 || align&(align-1) != 0 {
		return 0, errInvalidAlign
	}

	size = blockSize(size)

	var prev *freeBlock
	for block := freeList; block != nil; prev, block = block, block.next {
		var (
			blockAddr = uintptr(unsafe.Pointer(block))
			allocAddr = alignUp(blockAddr, align)
			allocEnd  = allocAddr + size
			blockEnd  = blockAddr + block.size
		)

		if allocEnd > blockEnd {
			continue
		}

		// Return the unused front and tail parts of the block to the
		// free list. Both are guaranteed to be either empty or large
		// enough for a header (see blockHeaderSize).
		next := block.next

		if tailSize := blockEnd - allocEnd; tailSize != 0 {
			tail := (*freeBlock)(unsafe.Pointer(allocEnd))
			tail.size = tailSize
			tail.next = next
			next = tail
		}

		if frontSize := allocAddr - blockAddr; frontSize != 0 {
			front := (*freeBlock)(unsafe.Pointer(blockAddr))
			front.size = frontSize
			front.next = next
			next = front
		}

		if prev == nil {
			freeList = next
		} else {
			prev.next = next
		}

		usedBytes += size
		return allocAddr, nil
	}

	return 0, errOutOfMemory
}

// Free returns the size bytes starting at addr to the free list, coalescing
// with adjacent free blocks to bound fragmentation. The addr and size values
// must match a previous Allocate call.
//
// Free validates the block boundaries before touching the list; a block that
// lies outside the heap, is misaligned or overlaps a region that is already
// free indicates a double free or corrupted caller bookkeeping and is
// rejected without mutating the allocator state.
func Free(addr, size uintptr) *kernel.Error {
	if heapEnd == 0 {
		return errNotInitialized
	}

	size = blockSize(size)

	if addr < heapStart || addr+size > heapEnd {
		return errBlockRange
	}

	if addr&(blockHeaderSize-1) != 0 {
		return errBlockAlign
	}

	// Locate the insertion point that keeps the list sorted by address.
	var prev *freeBlock
	next := freeList
	for next != nil && uintptr(unsafe.Pointer(next)) < addr {
		prev, next = next, next.next
	}

	if prev != nil && uintptr(unsafe.Pointer(prev))+prev.size > addr {
		return errBlockOverlap
	}

	if next != nil && addr+size > uintptr(unsafe.Pointer(next)) {
		return errBlockOverlap
	}

	block := (*freeBlock)(unsafe.Pointer(addr))
	block.size = size
	block.next = next

	// Merge with the following block when contiguous.
	if next != nil && addr+size == uintptr(unsafe.Pointer(next)) {
		block.size += next.size
		block.next = next.next
	}

	// Merge with the preceding block when contiguous.
	switch {
	case prev == nil:
		freeList = block
	case uintptr(unsafe.Pointer(prev))+prev.size == addr:
		prev.size += block.size
		prev.next = block.next
	default:
		prev.next = block
	}

	usedBytes -= size
	return nil
}

// Stats describes the allocator state at a single point in time.
type Stats struct {
	TotalBytes  uintptr
	UsedBytes   uintptr
	FreeBytes   uintptr
	LargestFree uintptr
	FreeBlocks  int
}

// ReadStats returns a snapshot of the allocator state.
func ReadStats() Stats {
	stats := Stats{
		TotalBytes: heapEnd - heapStart,
		UsedBytes:  usedBytes,
	}

	for block := freeList; block != nil; block = block.next {
		stats.FreeBytes += block.size
		stats.FreeBlocks++
		if block.size > stats.LargestFree {
			stats.LargestFree = block.size
		}
	}

	return stats
}

// blockSize returns the effective size of an allocation request: sizes are
// rounded up to a multiple of the block header size. Combined with the
// page-aligned heap bounds this keeps every block address and size a header
// multiple so splits never produce a remainder too small for a header.
func blockSize(size uintptr) uintptr {
	if size < blockHeaderSize {
		return blockHeaderSize
	}

	return (size + blockHeaderSize - 1) & ^(blockHeaderSize - 1)
}

func alignUp(addr, align uintptr) uintptr {
	return (addr + align - 1) &^ (align - 1)
}
