package parallax

import (
	"fmt"
)

// DeepCopy copies the full contents of src into dst, bridging memory
// spaces when they differ. The copy waits for all pending stream work
// (covering outstanding writes to src) before transferring, and the
// transfer itself is one operation on the default stream, waited on
// before DeepCopy returns, so the caller may read dst immediately.
//
// Element counts of dst and src must match exactly; shapes may differ.
// Elements pair up in canonical order: row-major enumeration of each
// view's own extents, independent of its layout.
func DeepCopy[T Element](dst, src View[T]) error {
	if dst.Size() != src.Size() {
		return shapeMismatchError("DeepCopy", dst, src)
	}
	// All pending stream work, covering outstanding writes to src,
	// lands before the transfer is submitted.
	Fence()
	tok := deepCopyAsync(dst, src, defaultStream)
	tok.Wait()
	return nil
}

// DeepCopyAsync is DeepCopy submitted onto a stream. The transfer is
// ordered after work already submitted to the same stream; outstanding
// writes to src on other streams are the caller's to fence. The
// destination's contents are defined only after the returned token is
// waited on or the stream is fenced.
func DeepCopyAsync[T Element](dst, src View[T], s *Stream) (*Token, error) {
	if dst.Size() != src.Size() {
		return nil, shapeMismatchError("DeepCopy", dst, src)
	}
	if s == nil {
		s = defaultStream
	}
	return deepCopyAsync(dst, src, s), nil
}

func deepCopyAsync[T Element](dst, src View[T], s *Stream) *Token {
	return s.Submit(func() {
		copyContents(dst, src)
	})
}

// copyContents performs the single transfer operation of a global deep
// copy. Same-shape contiguous same-layout endpoints move span-wise; the
// general path pairs elements in canonical order.
func copyContents[T Element](dst, src View[T]) {
	n := dst.Size()
	if n == 0 {
		return
	}
	if sameShape(dst.layout, src.layout) &&
		dst.layout.kind == src.layout.kind && dst.layout.kind != LayoutStride &&
		dst.layout.contiguous() && src.layout.contiguous() {
		copy(dst.data[:n], src.data[:n])
		return
	}
	for k := 0; k < n; k++ {
		dst.linearSet(k, src.linearGet(k))
	}
}

// Fill sets every element of dst to value, with the same fence semantics
// as DeepCopy: prior stream work completes first, and the fill is done
// when Fill returns.
func Fill[T Element](dst View[T], value T) error {
	Fence()
	tok := defaultStream.Submit(func() {
		fillContents(dst, value)
	})
	tok.Wait()
	return nil
}

func fillContents[T Element](dst View[T], value T) {
	n := dst.Size()
	if dst.layout.contiguous() && dst.layout.kind != LayoutStride {
		span := dst.data[:n]
		for i := range span {
			span[i] = value
		}
		return
	}
	for k := 0; k < n; k++ {
		dst.linearSet(k, value)
	}
}

// LocalDeepCopy is the team-cooperative deep copy. It must be called
// identically by every member of the team: the element range of dst is
// divided across the members in deterministic contiguous batches, each
// member copies its share, and the call returns to each member only
// after every member has finished (it ends with a team barrier). Any
// member may therefore read any element of dst immediately after the
// call.
//
// dst and src must have matching element counts.
func LocalDeepCopy[T Element](t *TeamMember, dst, src View[T]) error {
	if err := localCopyShare(t, dst, src); err != nil {
		t.Barrier()
		return err
	}
	t.Barrier()
	return nil
}

// LocalDeepCopyThread is the thread-cooperative deep copy: the same
// deterministic division of work as LocalDeepCopy, but NO barrier is
// taken on return. A member's own share is complete when the call
// returns; another member's share is guaranteed visible only after a
// subsequent explicit Barrier. Mislabeling this call for LocalDeepCopy
// reintroduces a data race, so the missing barrier is a hard contract,
// not an omission.
func LocalDeepCopyThread[T Element](t *TeamMember, dst, src View[T]) error {
	return localCopyShare(t, dst, src)
}

func localCopyShare[T Element](t *TeamMember, dst, src View[T]) error {
	if dst.Size() != src.Size() {
		return shapeMismatchError("LocalDeepCopy", dst, src)
	}
	start, stop := partitionRange(dst.Size(), t.teamSize, t.teamRank)
	for k := start; k < stop; k++ {
		dst.linearSet(k, src.linearGet(k))
	}
	return nil
}

// LocalFill is the team-cooperative scalar broadcast: every element of
// dst is set to value, divided across the members, with the trailing
// team barrier of LocalDeepCopy.
func LocalFill[T Element](t *TeamMember, dst View[T], value T) {
	localFillShare(t, dst, value)
	t.Barrier()
}

// LocalFillThread is the scalar broadcast without the trailing barrier,
// mirroring LocalDeepCopyThread's contract.
func LocalFillThread[T Element](t *TeamMember, dst View[T], value T) {
	localFillShare(t, dst, value)
}

func localFillShare[T Element](t *TeamMember, dst View[T], value T) {
	start, stop := partitionRange(dst.Size(), t.teamSize, t.teamRank)
	for k := start; k < stop; k++ {
		dst.linearSet(k, value)
	}
}

// LocalCopy copies src into dst within the calling execution unit, for
// per-index copies inside a flat range dispatch. No work division and
// no synchronization take place.
func LocalCopy[T Element](dst, src View[T]) error {
	if dst.Size() != src.Size() {
		return shapeMismatchError("LocalCopy", dst, src)
	}
	copyContents(dst, src)
	return nil
}

// LocalFillValue fills dst within the calling execution unit.
func LocalFillValue[T Element](dst View[T], value T) {
	fillContents(dst, value)
}

// shapeMismatchError reports a count mismatch between copy endpoints.
// ErrShapeMismatch is the wrapped cause, so errors.Is matches it.
func shapeMismatchError[T Element](op string, dst, src View[T]) error {
	return &Error{
		Type: ErrTypeInvalidArg,
		Op:   op,
		Message: fmt.Sprintf("element counts differ: dst %q has %d, src %q has %d",
			dst.Label(), dst.Size(), src.Label(), src.Size()),
		Err: ErrShapeMismatch,
	}
}

func sameShape(a, b Layout) bool {
	if a.rank != b.rank {
		return false
	}
	for d := 0; d < a.rank; d++ {
		if a.extents[d] != b.extents[d] {
			return false
		}
	}
	return true
}
