package parallax

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Element constrains the element types a View can hold.
type Element interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// boundsCheckEnabled gates index validation. The default comes from the
// parallax_boundscheck build tag; SetBoundsCheck flips it at run time.
var boundsCheckEnabled atomic.Bool

func init() {
	boundsCheckEnabled.Store(boundsCheckDefault)
}

// SetBoundsCheck enables or disables run-time index validation and
// returns the previous setting. With checking off, out-of-range indexing
// has no defined behavior.
func SetBoundsCheck(enabled bool) bool {
	return boundsCheckEnabled.Swap(enabled)
}

// BoundsCheckEnabled reports whether index validation is active.
func BoundsCheckEnabled() bool {
	return boundsCheckEnabled.Load()
}

// viewRef is the shared ownership record of one managed allocation. The
// last Release returns the block to its space's pool.
type viewRef struct {
	refs  atomic.Int32
	space *MemorySpace
	block *allocation
}

func (r *viewRef) retain() {
	if r != nil {
		r.refs.Add(1)
	}
}

func (r *viewRef) release() {
	if r == nil {
		return
	}
	if r.refs.Add(-1) == 0 {
		// Deallocate only fails on double free, which the counter
		// reaching zero exactly once rules out.
		_ = r.space.Deallocate(r.block)
	}
}

// View is a multidimensional array over one allocation in one memory
// space. A managed View shares a reference-counted allocation; an
// unmanaged View aliases caller-supplied memory and never frees it.
//
// Views are value types: copying the struct aliases the same storage.
// Each View obtained from NewView, NewViewIn or Subview holds one
// reference and must be Released exactly once.
type View[T Element] struct {
	data   []T
	layout Layout
	space  *MemorySpace
	label  string
	ref    *viewRef // nil for unmanaged Views
}

// NewView allocates a managed LayoutRight View in the Host space.
func NewView[T Element](label string, extents ...int) (View[T], error) {
	return NewViewIn[T](Host, LayoutRight, label, extents...)
}

// NewViewIn allocates a managed View in the given space with the given
// layout kind. Rank is taken from the number of extents; negative extents
// and ranks outside 1..MaxRank are rejected. Storage is zero-initialized
// when ZeroInitViews is set.
func NewViewIn[T Element](space *MemorySpace, kind LayoutKind, label string, extents ...int) (View[T], error) {
	layout, err := NewLayout(kind, extents...)
	if err != nil {
		return View[T]{}, err
	}

	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	span := layout.SpanRequired()

	var (
		block *allocation
		data  []T
	)
	if span > 0 {
		block, err = space.Allocate(span * elemSize)
		if err != nil {
			return View[T]{}, err
		}
		data = unsafe.Slice((*T)(unsafe.Pointer(&block.buf[0])), span)
		if ZeroInitViews {
			clear(data)
		}
	}

	ref := &viewRef{space: space, block: block}
	ref.refs.Store(1)

	return View[T]{
		data:   data,
		layout: layout,
		space:  space,
		label:  label,
		ref:    ref,
	}, nil
}

// NewUnmanagedView wraps caller-owned memory in a View without taking
// ownership. The data slice must provide at least the span the layout
// requires.
func NewUnmanagedView[T Element](data []T, kind LayoutKind, extents ...int) (View[T], error) {
	layout, err := NewLayout(kind, extents...)
	if err != nil {
		return View[T]{}, err
	}
	if len(data) < layout.SpanRequired() {
		return View[T]{}, NewConfigurationError("NewUnmanagedView",
			"backing slice smaller than required span",
			fmt.Sprintf("have %d elements, span requires %d", len(data), layout.SpanRequired()))
	}
	return View[T]{
		data:   data,
		layout: layout,
		space:  Host,
		label:  "",
	}, nil
}

// Retain adds a reference to a managed View's allocation, for handing a
// copy of the View to code that Releases it independently.
func (v View[T]) Retain() View[T] {
	v.ref.retain()
	return v
}

// Release drops one reference. The allocation returns to its space's
// pool when the last reference is dropped. Release on an unmanaged View
// is a no-op.
func (v View[T]) Release() {
	v.ref.release()
}

// Managed reports whether the View owns a reference-counted allocation.
func (v View[T]) Managed() bool { return v.ref != nil }

// UseCount returns the current reference count, or 0 for unmanaged Views.
func (v View[T]) UseCount() int {
	if v.ref == nil {
		return 0
	}
	return int(v.ref.refs.Load())
}

// Label returns the View's diagnostic label.
func (v View[T]) Label() string { return v.label }

// Space returns the memory space holding the View's storage.
func (v View[T]) Space() *MemorySpace { return v.space }

// Layout returns the View's layout descriptor.
func (v View[T]) Layout() Layout { return v.layout }

// Rank returns the number of dimensions.
func (v View[T]) Rank() int { return v.layout.rank }

// Extent returns the extent of dimension d.
func (v View[T]) Extent(d int) int { return v.layout.Extent(d) }

// Size returns the logical element count.
func (v View[T]) Size() int { return v.layout.Size() }

// Span returns the total addressable element count of the backing
// storage. Span is always >= Size.
func (v View[T]) Span() int { return len(v.data) }

// Data exposes the raw backing span. Element order follows the layout,
// not the logical index order.
func (v View[T]) Data() []T { return v.data }

func (v View[T]) checkRank(op string, n int) {
	if n != v.layout.rank {
		panic(NewBoundsError(op,
			fmt.Sprintf("view %q requires %d indices", v.label, v.layout.rank),
			fmt.Sprintf("got %d", n)))
	}
}

func (v View[T]) checkIndex(op string, d, i int) {
	if i < 0 || i >= v.layout.extents[d] {
		panic(NewBoundsError(op,
			fmt.Sprintf("index out of range on view %q", v.label),
			fmt.Sprintf("dimension %d: index %d, extent %d", d, i, v.layout.extents[d])))
	}
}

// Get returns the element at the given index tuple. The number of
// indices must equal the View's rank.
func (v View[T]) Get(idx ...int) T {
	if boundsCheckEnabled.Load() {
		v.checkRank("Get", len(idx))
		for d, i := range idx {
			v.checkIndex("Get", d, i)
		}
	}
	return v.data[v.layout.Offset(idx...)]
}

// Set stores the element at the given index tuple.
func (v View[T]) Set(val T, idx ...int) {
	if boundsCheckEnabled.Load() {
		v.checkRank("Set", len(idx))
		for d, i := range idx {
			v.checkIndex("Set", d, i)
		}
	}
	v.data[v.layout.Offset(idx...)] = val
}

// Get1 is the rank-1 fast path of Get.
func (v View[T]) Get1(i int) T {
	if boundsCheckEnabled.Load() {
		v.checkRank("Get1", 1)
		v.checkIndex("Get1", 0, i)
	}
	return v.data[v.layout.offset1(i)]
}

// Set1 is the rank-1 fast path of Set.
func (v View[T]) Set1(i int, val T) {
	if boundsCheckEnabled.Load() {
		v.checkRank("Set1", 1)
		v.checkIndex("Set1", 0, i)
	}
	v.data[v.layout.offset1(i)] = val
}

// Get2 is the rank-2 fast path of Get.
func (v View[T]) Get2(i, j int) T {
	if boundsCheckEnabled.Load() {
		v.checkRank("Get2", 2)
		v.checkIndex("Get2", 0, i)
		v.checkIndex("Get2", 1, j)
	}
	return v.data[v.layout.offset2(i, j)]
}

// Set2 is the rank-2 fast path of Set.
func (v View[T]) Set2(i, j int, val T) {
	if boundsCheckEnabled.Load() {
		v.checkRank("Set2", 2)
		v.checkIndex("Set2", 0, i)
		v.checkIndex("Set2", 1, j)
	}
	v.data[v.layout.offset2(i, j)] = val
}

// Get3 is the rank-3 fast path of Get.
func (v View[T]) Get3(i, j, k int) T {
	if boundsCheckEnabled.Load() {
		v.checkRank("Get3", 3)
		v.checkIndex("Get3", 0, i)
		v.checkIndex("Get3", 1, j)
		v.checkIndex("Get3", 2, k)
	}
	return v.data[v.layout.offset3(i, j, k)]
}

// Set3 is the rank-3 fast path of Set.
func (v View[T]) Set3(i, j, k int, val T) {
	if boundsCheckEnabled.Load() {
		v.checkRank("Set3", 3)
		v.checkIndex("Set3", 0, i)
		v.checkIndex("Set3", 1, j)
		v.checkIndex("Set3", 2, k)
	}
	v.data[v.layout.offset3(i, j, k)] = val
}

// linearGet reads the element at canonical linear position k, where the
// canonical order is row-major enumeration of the extents regardless of
// the layout kind. Deep copies use this to pair up elements of views
// with differing layouts.
func (v View[T]) linearGet(k int) T {
	var idx [MaxRank]int
	v.layout.coords(k, &idx)
	return v.data[v.layout.offsetOf(&idx)]
}

// linearSet writes the element at canonical linear position k.
func (v View[T]) linearSet(k int, val T) {
	var idx [MaxRank]int
	v.layout.coords(k, &idx)
	v.data[v.layout.offsetOf(&idx)] = val
}

// basePointer returns the address of the first backing element, for
// space-membership queries.
func (v View[T]) basePointer() unsafe.Pointer {
	if len(v.data) == 0 {
		return nil
	}
	return unsafe.Pointer(&v.data[0])
}
