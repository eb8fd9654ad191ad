package sync

import "retros/kernel/cpu"

var (
	disableInterruptsFn = cpu.DisableInterrupts
	enableInterruptsFn  = cpu.EnableInterrupts
)

// Uninterruptible runs fn with hardware interrupts masked and unmasks them
// again before returning. It is the mutual exclusion discipline for state
// shared between the foreground control flow and interrupt handlers on a
// single core: a blocking lock cannot be used for such state because an
// interrupt handler spinning on a lock held by the foreground it preempted
// would never make progress.
//
// Uninterruptible must only be called from the foreground control flow and
// must not be nested. Interrupt handlers already run with interrupts masked
// and access the shared state directly.
func Uninterruptible(fn func()) {
	disableInterruptsFn()
	fn()
	enableInterruptsFn()
}
