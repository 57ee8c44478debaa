package parallax

import (
	"fmt"
	"sync"
	"unsafe"
)

// TeamMember is the handle passed to every member of a team during a
// hierarchical dispatch. It identifies the member's position in the
// hierarchy and carries the team's barrier and scratch arena.
type TeamMember struct {
	leagueRank int
	leagueSize int
	teamRank   int
	teamSize   int
	vectorLen  int

	barrier *barrier
	scratch []byte
	// scratchOff is this member's cursor into the shared arena. All
	// members carve collectively and identically, so per-member
	// cursors land on the same offsets.
	scratchOff int
}

// LeagueRank returns the team's index within the league.
func (t *TeamMember) LeagueRank() int { return t.leagueRank }

// LeagueSize returns the number of teams in the league.
func (t *TeamMember) LeagueSize() int { return t.leagueSize }

// TeamRank returns this member's index within the team.
func (t *TeamMember) TeamRank() int { return t.teamRank }

// TeamSize returns the number of members in the team.
func (t *TeamMember) TeamSize() int { return t.teamSize }

// VectorLength returns the policy's vector length.
func (t *TeamMember) VectorLength() int { return t.vectorLen }

// Barrier blocks until every member of the team has reached it. Writes
// made by any member before the barrier are visible to every member
// after it.
func (t *TeamMember) Barrier() {
	t.barrier.await()
}

// TeamThreadRange runs body over [0, n) divided across the team's
// members in deterministic contiguous batches. The division matches
// partitionRange: member i always receives the same indices for a given
// (n, teamSize). The loop is synchronous for this member but carries no
// team-wide barrier; follow with Barrier when later reads cross members.
func (t *TeamMember) TeamThreadRange(n int, body func(i int)) {
	start, stop := partitionRange(n, t.teamSize, t.teamRank)
	for i := start; i < stop; i++ {
		body(i)
	}
}

// ThreadVectorRange runs body over [0, n) on this member's vector lanes.
// Every member owns all of its lanes, so the whole range executes here;
// no work is shared with sibling members.
func (t *TeamMember) ThreadVectorRange(n int, body func(i int)) {
	for i := 0; i < n; i++ {
		body(i)
	}
}

// ScratchView carves an unmanaged View out of the team's scratch arena.
// It must be called identically by every member (a collective call);
// each member's cursor then lands on the same offset, so all members
// share the same storage. The view is valid only for the current team
// invocation and must not be Released.
func ScratchView[T Element](t *TeamMember, extents ...int) (View[T], error) {
	layout, err := NewLayout(LayoutRight, extents...)
	if err != nil {
		return View[T]{}, err
	}
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	bytes := layout.SpanRequired() * elemSize

	off := alignUp(t.scratchOff, MemoryAlignment)
	if off+bytes > len(t.scratch) {
		return View[T]{}, NewBackendError("ScratchView",
			fmt.Sprintf("scratch exhausted: need %d bytes at offset %d, arena is %d bytes",
				bytes, off, len(t.scratch)), nil)
	}
	t.scratchOff = off + bytes

	var data []T
	if bytes > 0 {
		data = unsafe.Slice((*T)(unsafe.Pointer(&t.scratch[off])), layout.SpanRequired())
	}
	return View[T]{
		data:   data,
		layout: layout,
		space:  Scratch,
		label:  "scratch",
	}, nil
}

// barrier is a reusable team barrier. Mutex acquisition orders each
// member's pre-barrier writes before every member's post-barrier reads.
type barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	size       int
	arrived    int
	generation int
}

func newBarrier(size int) *barrier {
	b := &barrier{size: size}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *barrier) await() {
	b.mu.Lock()
	gen := b.generation
	b.arrived++
	if b.arrived == b.size {
		b.arrived = 0
		b.generation++
		b.cond.Broadcast()
	} else {
		for gen == b.generation {
			b.cond.Wait()
		}
	}
	b.mu.Unlock()
}
