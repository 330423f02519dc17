package array

import (
	"sort"

	"github.com/pkg/errors"
)

// Cell is the unit of the allocator's address space, one machine word of
// packed storage. It plays the same role here as vm.Cell does for the
// ngaro memory image: a single flat, growable backing region addressed
// by integer offset.
type Cell = int64

// Block describes a contiguous run of words carved out of the
// allocator's backing region.
type Block struct {
	addr int
	size int
}

// Addr is the block's starting offset into the backing region.
func (b Block) Addr() int { return b.addr }

// Size is the number of words in the block.
func (b Block) Size() int { return b.size }

// ErrOutOfMemory is returned when an allocation cannot be satisfied and
// the backing region is already at its growth cap.
var ErrOutOfMemory = errors.New("out-of-memory")

// Allocator is a free-list allocator over a single growable backing
// region, as required by section 4.A: a free list of blocks sorted by
// address, immediate coalescing of adjacent freed blocks, and growth by
// fixed increments up to a fixed cap.
//
// It owns only address space bookkeeping; callers are responsible for
// using the returned Block's addr/size to index their own backing
// storage slices (see Array, which keeps its packed values in
// kind-specific Go slices sized from the Block it was granted).
type Allocator struct {
	used      int
	cap       int
	increment int
	hardCap   int
	free      []Block // sorted by addr, non-overlapping, non-adjacent
}

// NewAllocator creates an allocator whose backing region starts at
// initial words, grows by increment words at a time, and never exceeds
// hardCap words.
func NewAllocator(initial, increment, hardCap int) *Allocator {
	a := &Allocator{
		cap:       initial,
		increment: increment,
		hardCap:   hardCap,
	}
	if initial > 0 {
		a.free = []Block{{addr: 0, size: initial}}
	}
	return a
}

// Cap returns the current size of the backing region in words.
func (a *Allocator) Cap() int { return a.cap }

// Used returns the number of words currently allocated.
func (a *Allocator) Used() int { return a.used }

// Alloc reserves size words and returns the block granted. It grows the
// backing region by fixed increments when no free block is large enough,
// and fails with ErrOutOfMemory once the hard cap would be exceeded.
func (a *Allocator) Alloc(size int) (Block, error) {
	if size <= 0 {
		return Block{}, errors.Errorf("alloc: invalid size %d", size)
	}
	for {
		if idx, ok := a.firstFit(size); ok {
			fb := a.free[idx]
			granted := Block{addr: fb.addr, size: size}
			if fb.size == size {
				a.free = append(a.free[:idx], a.free[idx+1:]...)
			} else {
				a.free[idx] = Block{addr: fb.addr + size, size: fb.size - size}
			}
			a.used += size
			return granted, nil
		}
		if !a.grow() {
			return Block{}, ErrOutOfMemory
		}
	}
}

// firstFit scans the sorted free list for the first block large enough
// to satisfy size.
func (a *Allocator) firstFit(size int) (int, bool) {
	for i, b := range a.free {
		if b.size >= size {
			return i, true
		}
	}
	return 0, false
}

// grow extends the backing region by one increment, capped at hardCap.
// Returns false if already at the cap.
func (a *Allocator) grow() bool {
	if a.cap >= a.hardCap {
		return false
	}
	inc := a.increment
	if a.cap+inc > a.hardCap {
		inc = a.hardCap - a.cap
	}
	if inc <= 0 {
		return false
	}
	newBlock := Block{addr: a.cap, size: inc}
	a.cap += inc
	a.insertFree(newBlock)
	return true
}

// Free releases a block, coalescing it with adjacent free blocks
// (forward and backward) so the free list never holds two blocks that
// touch at a boundary.
func (a *Allocator) Free(b Block) {
	a.used -= b.size
	a.insertFree(b)
}

// insertFree inserts b into the sorted free list and merges it with its
// immediate neighbors.
func (a *Allocator) insertFree(b Block) {
	idx := sort.Search(len(a.free), func(i int) bool { return a.free[i].addr >= b.addr })
	a.free = append(a.free, Block{})
	copy(a.free[idx+1:], a.free[idx:])
	a.free[idx] = b

	// merge with following block
	if idx+1 < len(a.free) {
		next := a.free[idx+1]
		if a.free[idx].addr+a.free[idx].size == next.addr {
			a.free[idx].size += next.size
			a.free = append(a.free[:idx+1], a.free[idx+2:]...)
		}
	}
	// merge with preceding block
	if idx > 0 {
		prev := a.free[idx-1]
		if prev.addr+prev.size == a.free[idx].addr {
			a.free[idx-1].size += a.free[idx].size
			a.free = append(a.free[:idx], a.free[idx+1:]...)
		}
	}
}

// FreeBlocks returns a snapshot of the current free list, sorted by
// address. Exposed for tests of the coalescing invariant.
func (a *Allocator) FreeBlocks() []Block {
	out := make([]Block, len(a.free))
	copy(out, a.free)
	return out
}
