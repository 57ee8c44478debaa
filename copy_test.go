package parallax

import (
	"errors"
	"sync/atomic"
	"testing"
)

// viewCreate builds a managed cube view of the given rank with extent n
// in every dimension.
func viewCreate[T Element](t *testing.T, label string, kind LayoutKind, n, rank int) View[T] {
	t.Helper()
	extents := make([]int, rank)
	for d := range extents {
		extents[d] = n
	}
	v, err := NewViewIn[T](Host, kind, label, extents...)
	if err != nil {
		t.Fatalf("failed to create view %s: %v", label, err)
	}
	return v
}

// viewInit writes the canonical linear position into every element.
func viewInit[T Element](t *testing.T, v View[T]) {
	t.Helper()
	pol, _ := NewRangePolicy(0, v.Size())
	err := ParallelFor(pol, func(i int) {
		v.linearSet(i, T(i))
	})
	if err != nil {
		t.Fatalf("init dispatch failed: %v", err)
	}
}

// viewCheckEquals compares two views element-wise with a logical-AND
// reduction over the canonical linear order.
func viewCheckEquals[T Element](t *testing.T, a, b View[T]) bool {
	t.Helper()
	if a.Size() != b.Size() {
		return false
	}
	pol, _ := NewRangePolicy(0, a.Size())
	result, err := ParallelReduce(pol, func(i int, acc int) int {
		if a.linearGet(i) == b.linearGet(i) && acc != 0 {
			return 1
		}
		return 0
	}, LAndOf())
	if err != nil {
		t.Fatalf("equality reduction failed: %v", err)
	}
	return result != 0
}

func TestDeepCopyRoundTripAllRanks(t *testing.T) {
	const n = 4
	for _, kind := range []LayoutKind{LayoutRight, LayoutLeft} {
		for rank := 1; rank <= 7; rank++ {
			a := viewCreate[float64](t, "A", kind, n, rank)
			b := viewCreate[float64](t, "B", kind, n, rank)

			viewInit(t, a)
			if err := DeepCopy(b, a); err != nil {
				t.Fatalf("%v rank %d: deep copy failed: %v", kind, rank, err)
			}
			if !viewCheckEquals(t, a, b) {
				t.Errorf("%v rank %d: destination differs from source", kind, rank)
			}

			a.Release()
			b.Release()
		}
	}
}

func TestDeepCopyAcrossLayouts(t *testing.T) {
	a := viewCreate[float64](t, "A", LayoutRight, 8, 3)
	b := viewCreate[float64](t, "B", LayoutLeft, 8, 3)
	defer a.Release()
	defer b.Release()

	viewInit(t, a)
	if err := DeepCopy(b, a); err != nil {
		t.Fatalf("cross-layout deep copy failed: %v", err)
	}

	// Elements pair up logically, so indexed access must agree even
	// though the backing element orders differ.
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			for k := 0; k < 8; k++ {
				if got, want := b.Get3(i, j, k), a.Get3(i, j, k); got != want {
					t.Fatalf("b(%d,%d,%d) = %v, want %v", i, j, k, got, want)
				}
			}
		}
	}
}

func TestDeepCopyHostDevice(t *testing.T) {
	const n = 1024
	h, err := NewView[float32]("h", n)
	if err != nil {
		t.Fatalf("host alloc failed: %v", err)
	}
	defer h.Release()
	d, err := NewViewIn[float32](Device, LayoutRight, "d", n)
	if err != nil {
		t.Fatalf("device alloc failed: %v", err)
	}
	defer d.Release()
	back, err := NewView[float32]("back", n)
	if err != nil {
		t.Fatalf("host alloc failed: %v", err)
	}
	defer back.Release()

	if !Host.Contains(h.basePointer()) {
		t.Error("host view not contained in Host space")
	}
	if !Device.Contains(d.basePointer()) {
		t.Error("device view not contained in Device space")
	}
	if Device.Contains(h.basePointer()) {
		t.Error("host view must not be contained in Device space")
	}

	viewInit(t, h)
	if err := DeepCopy(d, h); err != nil {
		t.Fatalf("host->device copy failed: %v", err)
	}
	if err := DeepCopy(back, d); err != nil {
		t.Fatalf("device->host copy failed: %v", err)
	}
	if !viewCheckEquals(t, h, back) {
		t.Error("round trip through device space lost data")
	}
}

func TestDeepCopyCountMismatch(t *testing.T) {
	a := viewCreate[float64](t, "A", LayoutRight, 4, 2)
	b := viewCreate[float64](t, "B", LayoutRight, 5, 2)
	defer a.Release()
	defer b.Release()

	err := DeepCopy(b, a)
	if err == nil {
		t.Fatal("expected error for mismatched element counts")
	}
	if !IsInvalidArgError(err) {
		t.Errorf("expected InvalidArgument error, got %v", err)
	}
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("error %v does not wrap ErrShapeMismatch", err)
	}

	if _, err := DeepCopyAsync(b, a, nil); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("async mismatch error %v does not wrap ErrShapeMismatch", err)
	}
	if err := LocalCopy(b, a); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("local mismatch error %v does not wrap ErrShapeMismatch", err)
	}
}

func TestFillScalarBroadcast(t *testing.T) {
	v := viewCreate[float64](t, "B", LayoutRight, 8, 2)
	defer v.Release()

	const fillValue = 20.0
	if err := Fill(v, fillValue); err != nil {
		t.Fatalf("fill failed: %v", err)
	}

	pol, _ := NewRangePolicy(0, v.Size())
	sum, err := ParallelReduce(pol, func(i int, acc float64) float64 {
		return acc + v.linearGet(i)
	}, SumOf[float64]())
	if err != nil {
		t.Fatalf("sum reduction failed: %v", err)
	}
	if want := fillValue * float64(v.Size()); sum != want {
		t.Errorf("sum after fill = %v, want %v", sum, want)
	}
}

func TestDeepCopyAsyncVisibility(t *testing.T) {
	const n = 4096
	a, _ := NewView[float64]("A", n)
	b, _ := NewView[float64]("B", n)
	defer a.Release()
	defer b.Release()
	viewInit(t, a)

	s := NewStream()
	defer s.Destroy()

	tok, err := DeepCopyAsync(b, a, s)
	if err != nil {
		t.Fatalf("async copy submission failed: %v", err)
	}
	tok.Wait()
	if !viewCheckEquals(t, a, b) {
		t.Error("destination differs after token wait")
	}
}

func TestLocalDeepCopyTeam(t *testing.T) {
	const n = 16
	a := viewCreate[float64](t, "A", LayoutRight, n, 2)
	b := viewCreate[float64](t, "B", LayoutRight, n, 2)
	defer a.Release()
	defer b.Release()
	viewInit(t, a)

	pol, err := NewTeamPolicy(n, AutoTeamSize)
	if err != nil {
		t.Fatalf("team policy: %v", err)
	}
	var failures atomic.Int32
	err = ParallelForTeams(pol, func(tm *TeamMember) {
		lid := tm.LeagueRank()
		subSrc, _ := Subview(a, At(lid), All())
		subDst, _ := Subview(b, At(lid), All())
		defer subSrc.Release()
		defer subDst.Release()

		if err := LocalDeepCopy(tm, subDst, subSrc); err != nil {
			failures.Add(1)
			return
		}
		// The trailing barrier makes every member's share visible
		// here, including shares written by sibling members.
		for k := 0; k < subDst.Size(); k++ {
			if subDst.linearGet(k) != subSrc.linearGet(k) {
				failures.Add(1)
				return
			}
		}
	})
	if err != nil {
		t.Fatalf("team dispatch failed: %v", err)
	}
	if failures.Load() != 0 {
		t.Errorf("%d members observed incomplete copies", failures.Load())
	}
	if !viewCheckEquals(t, a, b) {
		t.Error("destination differs from source after team-cooperative copy")
	}
}

func TestLocalDeepCopyTeamRank3(t *testing.T) {
	const n = 8
	a := viewCreate[float64](t, "A", LayoutRight, n, 3)
	b := viewCreate[float64](t, "B", LayoutRight, n, 3)
	defer a.Release()
	defer b.Release()
	viewInit(t, a)

	pol, _ := NewTeamPolicy(n, AutoTeamSize)
	err := ParallelForTeams(pol, func(tm *TeamMember) {
		lid := tm.LeagueRank()
		subSrc, _ := Subview(a, At(lid), All(), All())
		subDst, _ := Subview(b, At(lid), All(), All())
		defer subSrc.Release()
		defer subDst.Release()
		_ = LocalDeepCopy(tm, subDst, subSrc)
	})
	if err != nil {
		t.Fatalf("team dispatch failed: %v", err)
	}
	if !viewCheckEquals(t, a, b) {
		t.Error("rank-3 destination differs from source after team-cooperative copy")
	}
}

func TestLocalDeepCopyThreadWithExplicitBarrier(t *testing.T) {
	const n = 64
	a := viewCreate[float64](t, "A", LayoutRight, n, 2)
	b := viewCreate[float64](t, "B", LayoutRight, n, 2)
	defer a.Release()
	defer b.Release()
	viewInit(t, a)

	pol, _ := NewTeamPolicy(n, AutoTeamSize)
	var failures atomic.Int32
	err := ParallelForTeams(pol, func(tm *TeamMember) {
		lid := tm.LeagueRank()
		subSrc, _ := Subview(a, At(lid), All())
		subDst, _ := Subview(b, At(lid), All())
		defer subSrc.Release()
		defer subDst.Release()

		// No implicit barrier: only this member's own share is
		// defined when the call returns. Failures are recorded, not
		// returned, so every member still reaches the barrier below.
		if err := LocalDeepCopyThread(tm, subDst, subSrc); err != nil {
			failures.Add(1)
		}
		start, stop := partitionRange(subDst.Size(), tm.TeamSize(), tm.TeamRank())
		for k := start; k < stop; k++ {
			if subDst.linearGet(k) != subSrc.linearGet(k) {
				failures.Add(1)
				break
			}
		}

		// An explicit barrier restores the team-cooperative
		// visibility guarantee for sibling shares.
		tm.Barrier()
		for k := 0; k < subDst.Size(); k++ {
			if subDst.linearGet(k) != subSrc.linearGet(k) {
				failures.Add(1)
				break
			}
		}
	})
	if err != nil {
		t.Fatalf("team dispatch failed: %v", err)
	}
	if failures.Load() != 0 {
		t.Errorf("%d members observed incomplete copies", failures.Load())
	}
	if !viewCheckEquals(t, a, b) {
		t.Error("destination differs from source after thread-cooperative copy")
	}
}

func TestLocalFillTeam(t *testing.T) {
	const n = 16
	const fillValue = 20.0
	b := viewCreate[float64](t, "B", LayoutRight, n, 2)
	defer b.Release()

	pol, _ := NewTeamPolicy(n, AutoTeamSize)
	err := ParallelForTeams(pol, func(tm *TeamMember) {
		subDst, _ := Subview(b, At(tm.LeagueRank()), All())
		defer subDst.Release()
		LocalFill(tm, subDst, fillValue)
	})
	if err != nil {
		t.Fatalf("team dispatch failed: %v", err)
	}

	rp, _ := NewRangePolicy(0, b.Size())
	sum, _ := ParallelReduce(rp, func(i int, acc float64) float64 {
		return acc + b.linearGet(i)
	}, SumOf[float64]())
	if want := fillValue * float64(n*n); sum != want {
		t.Errorf("sum after team fill = %v, want %v", sum, want)
	}
}

func TestLocalCopyInRangeDispatch(t *testing.T) {
	const n = 32
	a := viewCreate[float64](t, "A", LayoutRight, n, 2)
	b := viewCreate[float64](t, "B", LayoutRight, n, 2)
	defer a.Release()
	defer b.Release()
	viewInit(t, a)

	pol, _ := NewRangePolicy(0, n)
	err := ParallelFor(pol, func(lid int) {
		subSrc, _ := Subview(a, At(lid), All())
		subDst, _ := Subview(b, At(lid), All())
		defer subSrc.Release()
		defer subDst.Release()
		_ = LocalCopy(subDst, subSrc)
	})
	if err != nil {
		t.Fatalf("range dispatch failed: %v", err)
	}
	if !viewCheckEquals(t, a, b) {
		t.Error("destination differs after per-index local copies")
	}
}

func TestPartitionDeterminism(t *testing.T) {
	cases := []struct{ n, members int }{
		{100, 8}, {64, 8}, {7, 3}, {1, 4}, {0, 4}, {37, 5},
	}
	for _, tc := range cases {
		covered := make([]int, tc.n)
		for rank := 0; rank < tc.members; rank++ {
			s1, e1 := partitionRange(tc.n, tc.members, rank)
			s2, e2 := partitionRange(tc.n, tc.members, rank)
			if s1 != s2 || e1 != e2 {
				t.Errorf("n=%d members=%d rank=%d: boundaries changed across calls", tc.n, tc.members, rank)
			}
			if s1 < 0 || e1 > tc.n {
				t.Errorf("n=%d members=%d rank=%d: batch [%d,%d) escapes [0,%d)", tc.n, tc.members, rank, s1, e1, tc.n)
			}
			for i := s1; i < e1; i++ {
				covered[i]++
			}
		}
		for i, c := range covered {
			if c != 1 {
				t.Errorf("n=%d members=%d: index %d assigned %d times", tc.n, tc.members, i, c)
			}
		}
	}
}

func TestPartitionClampNonDivisible(t *testing.T) {
	// 37 elements over 5 members: per-member batch is 8, so the last
	// occupied batch holds 5 and trailing ranks hold none.
	n, members := 37, 5
	var total int
	for rank := 0; rank < members; rank++ {
		start, stop := partitionRange(n, members, rank)
		if stop > n {
			t.Fatalf("rank %d batch [%d,%d) exceeds extent %d", rank, start, stop, n)
		}
		total += stop - start
	}
	if total != n {
		t.Errorf("batches cover %d elements, want %d", total, n)
	}
}

func BenchmarkDeepCopyContiguous(b *testing.B) {
	const n = 1 << 20
	src, _ := NewView[float64]("src", n)
	dst, _ := NewView[float64]("dst", n)
	defer src.Release()
	defer dst.Release()

	b.SetBytes(n * 8)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := DeepCopy(dst, src); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDeepCopyStrided(b *testing.B) {
	src, _ := NewViewIn[float64](Host, LayoutRight, "src", 1024, 256)
	dst, _ := NewViewIn[float64](Host, LayoutLeft, "dst", 1024, 256)
	defer src.Release()
	defer dst.Release()

	b.SetBytes(1024 * 256 * 8)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := DeepCopy(dst, src); err != nil {
			b.Fatal(err)
		}
	}
}
