// Package parallax configuration constants
package parallax

// View and layout limits
const (
	// Maximum supported View rank
	MaxRank = 8
)

// Memory parameters
const (
	// Cache line size on current x86/ARM server parts
	CacheLineSize = 64

	// Memory alignment for allocations (SIMD friendly)
	MemoryAlignment = 64

	// Minimum allocation size to prevent fragmentation
	MinAllocationSize = 64

	// Free list size threshold for reuse
	FreeListThreshold = 100
)

// Execution hierarchy limits and defaults
const (
	// Maximum members per team accepted at policy construction
	MaxTeamSize = 1024

	// Default team size when TeamPolicy is constructed with AutoTeamSize
	DefaultTeamSize = 8

	// Scratch memory budget available to one team, modeled after the
	// 48KB shared-memory window of discrete accelerators
	ScratchPerTeam = 48 * 1024

	// Default chunk size for flat range decomposition
	DefaultChunkSize = 1024

	// Stream task queue depth
	StreamQueueDepth = 1000
)

// SIMD vector widths in float32 lanes, used to pick a default vector
// length for ThreadVectorRange
const (
	SSEVectorWidth    = 4
	AVX2VectorWidth   = 8
	AVX512VectorWidth = 16
)

// Behavior toggles
const (
	// Zero-initialize managed View storage at allocation. Pool reuse
	// would otherwise hand back stale contents.
	ZeroInitViews = true
)
