package main

import "retros/kernel/kmain"

var multibootInfoPtr uintptr

// main works as a trampoline into the real kernel entrypoint. It is invoked
// by the rt0 assembly code after the bootloader hands over control and a
// minimal stack has been set up. Defining it here prevents the Go compiler
// from optimizing away the kernel code as unreachable.
//
// A global variable is passed as an argument to Kmain to prevent the compiler
// from inlining the actual call and removing Kmain from the generated .o file.
func main() {
	kmain.Kmain(multibootInfoPtr, 0, 0)
}
