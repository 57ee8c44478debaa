package parallax

import (
	"fmt"
)

// Slice is a per-dimension subview specification: a fixed index collapses
// the dimension, a [lo,hi) range keeps it, All keeps it whole.
type Slice struct {
	lo, hi int
	point  bool
	all    bool
}

// All keeps the full extent of a dimension.
func All() Slice { return Slice{all: true} }

// At collapses a dimension to the single index i, reducing the subview's
// rank by one.
func At(i int) Slice { return Slice{lo: i, point: true} }

// Pair keeps the half-open index range [lo, hi) of a dimension.
func Pair(lo, hi int) Slice { return Slice{lo: lo, hi: hi} }

// Subview builds a View aliasing a rectangular region of v's storage.
// One Slice is required per dimension of v. No data is copied and no
// allocation is made: the subview shares v's backing store and holds a
// reference to it if v is managed. Writes through either View are
// visible through the other.
func Subview[T Element](v View[T], specs ...Slice) (View[T], error) {
	if len(specs) != v.Rank() {
		return View[T]{}, NewConfigurationError("Subview",
			"one slice specification required per dimension",
			fmt.Sprintf("view rank %d, got %d specs", v.Rank(), len(specs)))
	}

	base := 0
	var extents, strides []int
	for d, s := range specs {
		extent := v.layout.extents[d]
		stride := v.layout.strides[d]
		switch {
		case s.all:
			extents = append(extents, extent)
			strides = append(strides, stride)
		case s.point:
			if s.lo < 0 || s.lo >= extent {
				return View[T]{}, NewConfigurationError("Subview",
					"index out of range",
					fmt.Sprintf("dimension %d: index %d, extent %d", d, s.lo, extent))
			}
			base += s.lo * stride
		default:
			if s.lo < 0 || s.lo > s.hi || s.hi > extent {
				return View[T]{}, NewConfigurationError("Subview",
					"invalid range bounds",
					fmt.Sprintf("dimension %d: [%d,%d), extent %d", d, s.lo, s.hi, extent))
			}
			base += s.lo * stride
			extents = append(extents, s.hi-s.lo)
			strides = append(strides, stride)
		}
	}

	if len(extents) == 0 {
		// Every dimension collapsed: expose the single element as a
		// rank-1 view of extent 1.
		extents = []int{1}
		strides = []int{1}
	}

	layout, err := NewStridedLayout(extents, strides)
	if err != nil {
		return View[T]{}, err
	}

	data := v.data
	if base <= len(data) {
		data = data[base:]
	} else {
		data = nil
	}

	v.ref.retain()
	return View[T]{
		data:   data,
		layout: layout,
		space:  v.space,
		label:  v.label,
		ref:    v.ref,
	}, nil
}
