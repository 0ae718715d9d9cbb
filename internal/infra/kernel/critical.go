package kernel

import "sync"

// CriticalSection is the kernel-wide mutual exclusion region shared by task
// and interrupt code. Holding it stands in for running with interrupts
// disabled: no other holder can interleave with the protected region.
type CriticalSection struct {
	mu sync.Mutex
}

// Lock enters the section.
func (c *CriticalSection) Lock() {
	c.mu.Lock()
}

// Unlock leaves the section.
func (c *CriticalSection) Unlock() {
	c.mu.Unlock()
}

// Nesting tracks how deep one execution context is inside a CriticalSection.
// Only the outermost Enter locks and only the matching outermost Exit unlocks.
// A Nesting must only be used by the context that owns it.
type Nesting struct {
	cs    *CriticalSection
	depth int
}

// NewNesting returns a Nesting bound to cs.
func NewNesting(cs *CriticalSection) Nesting {
	return Nesting{cs: cs}
}

// Enter enters the section, locking it on the outermost call.
func (n *Nesting) Enter() {
	if n.depth == 0 {
		n.cs.Lock()
	}
	n.depth++
}

// Exit leaves the section. It panics when called without a matching Enter.
func (n *Nesting) Exit() {
	if n.depth == 0 {
		panic("kernel: ExitCritical without matching EnterCritical")
	}
	n.depth--
	if n.depth == 0 {
		n.cs.Unlock()
	}
}

// Depth returns the current nesting depth.
func (n *Nesting) Depth() int {
	return n.depth
}

// release drops the section whatever the depth. Used when a task unwinds
// while still inside it.
func (n *Nesting) release() {
	if n.depth > 0 {
		n.depth = 0
		n.cs.Unlock()
	}
}
