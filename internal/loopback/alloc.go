package loopback

import (
	"fmt"

	"github.com/wippyai/wavedash"
)

// Allocator is a bump allocator that remembers every live block so tests can
// check that each allocation is freed exactly once with its original size.
type Allocator struct {
	next   uint32
	live   map[uint32]uint32
	allocs int
	frees  int
	bad    []string
}

var (
	_ wavedash.Allocator = (*Allocator)(nil)
	_ wavedash.Freer     = (*Allocator)(nil)
)

// NewAllocator returns an allocator handing out addresses from base upward.
// base must be non-zero.
func NewAllocator(base uint32) *Allocator {
	if base == 0 {
		base = 8
	}
	return &Allocator{next: base, live: make(map[uint32]uint32)}
}

func (a *Allocator) Alloc(size, align uint32) (uint32, error) {
	if align == 0 || align&(align-1) != 0 {
		return 0, fmt.Errorf("alignment %d is not a power of two", align)
	}
	ptr := (a.next + align - 1) &^ (align - 1)
	end := uint64(ptr) + uint64(size)
	if end > 1<<32-1 {
		return 0, fmt.Errorf("address space exhausted")
	}
	// Zero-sized blocks still get a distinct address.
	if size == 0 {
		end++
	}
	a.next = uint32(end)
	a.live[ptr] = size
	a.allocs++
	return ptr, nil
}

func (a *Allocator) Free(ptr, size, align uint32) {
	want, ok := a.live[ptr]
	switch {
	case !ok:
		a.bad = append(a.bad, fmt.Sprintf("free of unknown pointer %d", ptr))
	case want != size:
		a.bad = append(a.bad, fmt.Sprintf("free of %d with size %d, allocated %d", ptr, size, want))
	}
	delete(a.live, ptr)
	a.frees++
}

// Live returns the number of blocks allocated and not yet freed.
func (a *Allocator) Live() int { return len(a.live) }

// Counts returns the total number of allocations and frees.
func (a *Allocator) Counts() (allocs, frees int) { return a.allocs, a.frees }

// Misuse lists invalid frees.
func (a *Allocator) Misuse() []string { return a.bad }
