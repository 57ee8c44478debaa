package parallax

import (
	"fmt"
)

// LayoutKind selects the stride-computation rule that maps an index tuple
// to a linear offset.
type LayoutKind int

const (
	// LayoutRight nests strides right-to-left: the last index is
	// contiguous (row-major).
	LayoutRight LayoutKind = iota
	// LayoutLeft nests strides left-to-right: the first index is
	// contiguous (column-major).
	LayoutLeft
	// LayoutStride carries explicit per-dimension strides, as produced
	// by subview extraction.
	LayoutStride
)

func (k LayoutKind) String() string {
	switch k {
	case LayoutRight:
		return "LayoutRight"
	case LayoutLeft:
		return "LayoutLeft"
	case LayoutStride:
		return "LayoutStride"
	default:
		return "Unknown"
	}
}

// Layout maps a multidimensional logical index tuple to a linear element
// offset. For a given kind and extents the mapping is a pure,
// deterministic, injective function over the valid index domain.
type Layout struct {
	kind    LayoutKind
	rank    int
	extents [MaxRank]int
	strides [MaxRank]int
}

// NewLayout builds a layout of the given kind over the given extents.
// Rank must be 1..MaxRank and every extent non-negative.
func NewLayout(kind LayoutKind, extents ...int) (Layout, error) {
	rank := len(extents)
	if rank < 1 || rank > MaxRank {
		return Layout{}, NewConfigurationError("NewLayout",
			"rank out of range", fmt.Sprintf("rank=%d, supported 1..%d", rank, MaxRank))
	}
	var l Layout
	l.kind = kind
	l.rank = rank
	for d, e := range extents {
		if e < 0 {
			return Layout{}, NewConfigurationError("NewLayout",
				"negative extent", fmt.Sprintf("dimension %d has extent %d", d, e))
		}
		l.extents[d] = e
	}
	l.computeStrides()
	return l, nil
}

// NewStridedLayout builds a LayoutStride with explicit strides.
func NewStridedLayout(extents, strides []int) (Layout, error) {
	if len(extents) != len(strides) {
		return Layout{}, NewConfigurationError("NewStridedLayout",
			"extent/stride length mismatch",
			fmt.Sprintf("%d extents, %d strides", len(extents), len(strides)))
	}
	l, err := NewLayout(LayoutStride, extents...)
	if err != nil {
		return Layout{}, err
	}
	copy(l.strides[:l.rank], strides)
	return l, nil
}

func (l *Layout) computeStrides() {
	switch l.kind {
	case LayoutRight:
		stride := 1
		for d := l.rank - 1; d >= 0; d-- {
			l.strides[d] = stride
			stride *= l.extents[d]
		}
	case LayoutLeft:
		stride := 1
		for d := 0; d < l.rank; d++ {
			l.strides[d] = stride
			stride *= l.extents[d]
		}
	case LayoutStride:
		// Strides supplied by the caller; default to LayoutRight
		// nesting until overwritten.
		stride := 1
		for d := l.rank - 1; d >= 0; d-- {
			l.strides[d] = stride
			stride *= l.extents[d]
		}
	}
}

// Kind returns the layout's stride rule.
func (l Layout) Kind() LayoutKind { return l.kind }

// Rank returns the number of dimensions.
func (l Layout) Rank() int { return l.rank }

// Extent returns the extent of dimension d.
func (l Layout) Extent(d int) int {
	if d < 0 || d >= l.rank {
		return 1
	}
	return l.extents[d]
}

// Stride returns the element stride of dimension d.
func (l Layout) Stride(d int) int {
	if d < 0 || d >= l.rank {
		return 0
	}
	return l.strides[d]
}

// Size returns the logical element count implied by the extents.
func (l Layout) Size() int {
	n := 1
	for d := 0; d < l.rank; d++ {
		n *= l.extents[d]
	}
	return n
}

// SpanRequired returns the minimum span an allocation must provide for
// every valid index tuple to map inside it.
func (l Layout) SpanRequired() int {
	if l.Size() == 0 {
		return 0
	}
	span := 1
	for d := 0; d < l.rank; d++ {
		span += (l.extents[d] - 1) * l.strides[d]
	}
	return span
}

// Offset maps an index tuple to a linear element offset. Per-rank paths
// for ranks 1..3 keep the hot cases free of the general loop.
func (l Layout) Offset(idx ...int) int {
	switch len(idx) {
	case 1:
		return idx[0] * l.strides[0]
	case 2:
		return idx[0]*l.strides[0] + idx[1]*l.strides[1]
	case 3:
		return idx[0]*l.strides[0] + idx[1]*l.strides[1] + idx[2]*l.strides[2]
	}
	off := 0
	for d := 0; d < len(idx); d++ {
		off += idx[d] * l.strides[d]
	}
	return off
}

// offset1..offset3 are the unchecked per-rank fast paths used by View.
func (l Layout) offset1(i int) int { return i * l.strides[0] }

func (l Layout) offset2(i, j int) int {
	return i*l.strides[0] + j*l.strides[1]
}

func (l Layout) offset3(i, j, k int) int {
	return i*l.strides[0] + j*l.strides[1] + k*l.strides[2]
}

// coords converts a canonical linear index (row-major enumeration of the
// extents, independent of the layout kind) back into an index tuple.
func (l Layout) coords(lin int, idx *[MaxRank]int) {
	for d := l.rank - 1; d >= 0; d-- {
		e := l.extents[d]
		if e == 0 {
			idx[d] = 0
			continue
		}
		idx[d] = lin % e
		lin /= e
	}
}

// offsetOf is Offset over a fixed-size tuple, avoiding variadic overhead
// in the deep-copy inner loops.
func (l Layout) offsetOf(idx *[MaxRank]int) int {
	off := 0
	for d := 0; d < l.rank; d++ {
		off += idx[d] * l.strides[d]
	}
	return off
}

// contiguous reports whether the layout covers its span densely, i.e.
// the logical size equals the required span.
func (l Layout) contiguous() bool {
	return l.Size() == l.SpanRequired()
}
