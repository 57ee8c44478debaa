// Package parallax is a performance-portability layer for data-parallel
// numerical code. It lets code express data layout and parallel work once
// and run it across execution backends, with memory placement and index
// layout fixed at View construction rather than at every use site.
//
// The core pieces are:
//   - Views: multidimensional arrays binding a memory space and a layout
//     (row-major, column-major, or explicit strides) to one allocation
//   - Policies: flat index ranges and hierarchical league/team/vector work
//   - Dispatch: ParallelFor / ParallelReduce over a policy, with streams
//     and explicit fences for completion ordering
//   - Deep copies: whole-View copies across memory spaces, plus team- and
//     thread-cooperative local copies inside a team dispatch
//
// Example usage:
//
//	a, _ := parallax.NewView[float64]("A", 1024)
//	defer a.Release()
//
//	pol, _ := parallax.NewRangePolicy(0, a.Size())
//	parallax.ParallelFor(pol, func(i int) {
//		a.Set1(i, float64(i))
//	})
//
//	b, _ := parallax.NewViewIn[float64](parallax.Device, parallax.LayoutRight, "B", 1024)
//	defer b.Release()
//	parallax.DeepCopy(b, a) // host -> device, fenced
package parallax
