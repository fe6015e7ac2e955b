// Package kernel implements the scheduling and synchronization core of a
// small fixed-priority round-robin real-time kernel.
//
// It is a hosted, goroutine-based rendition of a single-core cooperative/
// preemptive microcontroller kernel: a TCB is backed by a goroutine instead
// of a raw stack, a "context switch" is a channel handoff instead of a
// register save/restore, and the load-linked/store-conditional primitive
// the original relies on is emulated with atomic compare-and-swap. See
// SPEC_FULL.md and DESIGN.md in the module root for the full rationale.
package kernel
