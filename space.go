package parallax

import (
	"fmt"
	"sync"
	"unsafe"
)

// defaultSystemMemory is assumed when the platform probe is unavailable.
const defaultSystemMemory = 16 * 1024 * 1024 * 1024

// MemorySpace tags a region of addressable memory and owns the pool that
// allocates in it. A View's space is fixed for the View's lifetime.
// Spaces are process-wide singletons: Host, Device and Scratch.
type MemorySpace struct {
	name   string
	pool   *memoryPool
	budget int64 // allocation budget in bytes, 0 means unlimited
}

// Process-wide memory spaces. Host and Device are distinct pooled arenas,
// so a deep copy between them is a real one-shot transfer. Scratch backs
// per-team temporary storage carved out by the dispatch engine.
var (
	Host    *MemorySpace
	Device  *MemorySpace
	Scratch *MemorySpace
)

func init() {
	total := getSystemMemory()
	Host = &MemorySpace{name: "Host", pool: newMemoryPool()}
	// Device arena capped at half of system memory, standing in for a
	// discrete card's global memory.
	Device = &MemorySpace{name: "Device", pool: newMemoryPool(), budget: int64(total / 2)}
	Scratch = &MemorySpace{name: "Scratch", pool: newMemoryPool()}
}

// Name returns the space's identity tag.
func (s *MemorySpace) Name() string {
	return s.name
}

// Allocate reserves size bytes in this space. The returned block is
// aligned for SIMD access and may be recycled from the space's free list.
func (s *MemorySpace) Allocate(size int) (*allocation, error) {
	if size < 0 {
		return nil, ErrInvalidSize
	}
	return s.pool.allocate(s, size)
}

// Deallocate returns a block to the space's free list. It is an error to
// deallocate a block twice or to pass a block from a different space.
func (s *MemorySpace) Deallocate(a *allocation) error {
	return s.pool.free(s, a)
}

// Contains reports whether ptr lies inside an allocation of this space.
func (s *MemorySpace) Contains(ptr unsafe.Pointer) bool {
	return s.pool.contains(ptr)
}

// SpaceStats reports a space's live and peak allocation in bytes.
type SpaceStats struct {
	Allocated int64
	Peak      int64
}

// Stats returns the space's current allocation statistics.
func (s *MemorySpace) Stats() SpaceStats {
	alloc, peak := s.pool.stats()
	return SpaceStats{Allocated: alloc, Peak: peak}
}

// allocation is one block of space-owned memory. The buf reference keeps
// the backing array reachable while any View aliases it.
type allocation struct {
	buf  []byte
	size int // aligned size
	used bool
}

// Bytes returns the block's storage.
func (a *allocation) Bytes() []byte {
	if a == nil {
		return nil
	}
	return a.buf
}

// memoryPool manages allocation within one space with free-list reuse to
// reduce allocation overhead and fragmentation.
type memoryPool struct {
	mu         sync.Mutex
	allocated  map[*allocation]struct{}
	freeList   []*allocation
	totalAlloc int64
	peakAlloc  int64
}

func newMemoryPool() *memoryPool {
	return &memoryPool{
		allocated: make(map[*allocation]struct{}),
	}
}

func (mp *memoryPool) allocate(s *MemorySpace, size int) (*allocation, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	alignedSize := alignUp(size, MemoryAlignment)
	if alignedSize < MinAllocationSize {
		alignedSize = MinAllocationSize
	}

	if s.budget > 0 && mp.totalAlloc+int64(alignedSize) > s.budget {
		return nil, NewBackendError("Allocate",
			fmt.Sprintf("space %q budget %d bytes exceeded by request for %d bytes (live %d)",
				s.name, s.budget, alignedSize, mp.totalAlloc), ErrOutOfMemory)
	}

	// Try to reuse from free list
	for i, a := range mp.freeList {
		if a.size >= alignedSize {
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			a.used = true
			mp.totalAlloc += int64(a.size)
			if mp.totalAlloc > mp.peakAlloc {
				mp.peakAlloc = mp.totalAlloc
			}
			return a, nil
		}
	}

	a := &allocation{
		buf:  make([]byte, alignedSize),
		size: alignedSize,
		used: true,
	}
	mp.allocated[a] = struct{}{}

	mp.totalAlloc += int64(alignedSize)
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}
	return a, nil
}

func (mp *memoryPool) free(s *MemorySpace, a *allocation) error {
	if a == nil {
		return nil
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, ok := mp.allocated[a]; !ok {
		return NewMemoryError("Deallocate",
			fmt.Sprintf("block does not belong to space %q", s.name), nil)
	}
	if !a.used {
		return ErrDoubleFree
	}

	a.used = false
	if len(mp.freeList) < FreeListThreshold {
		mp.freeList = append(mp.freeList, a)
	} else {
		delete(mp.allocated, a)
	}
	mp.totalAlloc -= int64(a.size)
	return nil
}

func (mp *memoryPool) contains(ptr unsafe.Pointer) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	p := uintptr(ptr)
	for a := range mp.allocated {
		if len(a.buf) == 0 {
			continue
		}
		base := uintptr(unsafe.Pointer(&a.buf[0]))
		if p >= base && p < base+uintptr(a.size) {
			return true
		}
	}
	return false
}

func (mp *memoryPool) stats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// alignUp rounds size up to the given alignment boundary.
func alignUp(size, align int) int {
	return (size + align - 1) &^ (align - 1)
}
