package kernel

import "sync"

// Heap accounts for task stack memory. It does not hand out real memory; it
// enforces the fixed budget a small target would have.
type Heap struct {
	mu      sync.Mutex
	size    int
	inUse   int
	minFree int
}

// NewHeap creates a heap with size bytes available.
func NewHeap(size int) *Heap {
	return &Heap{size: size, minFree: size}
}

// Alloc reserves n bytes. It returns false if the heap cannot satisfy it.
func (h *Heap) Alloc(n int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n < 0 || h.inUse+n > h.size {
		return false
	}
	h.inUse += n
	if free := h.size - h.inUse; free < h.minFree {
		h.minFree = free
	}
	return true
}

// Free returns n bytes to the heap.
func (h *Heap) Free(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.inUse -= n
	if h.inUse < 0 {
		h.inUse = 0
	}
}

// Size returns the total heap size.
func (h *Heap) Size() int {
	return h.size
}

// InUse returns the number of bytes currently allocated.
func (h *Heap) InUse() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inUse
}

// MinimumEverFree returns the lowest amount of free heap observed.
func (h *Heap) MinimumEverFree() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.minFree
}
