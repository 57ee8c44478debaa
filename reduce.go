package parallax

import (
	"math"
	"reflect"

	"golang.org/x/sync/errgroup"
)

// Reducer pairs an identity element with an associative combine. Chunk
// results are joined in chunk order, so a reduction over a fixed policy
// is deterministic for a given worker and chunk configuration.
type Reducer[R any] struct {
	Identity R
	Join     func(a, b R) R
}

// SumOf reduces by addition.
func SumOf[T Element]() Reducer[T] {
	return Reducer[T]{
		Identity: 0,
		Join:     func(a, b T) T { return a + b },
	}
}

// LAndOf reduces by logical AND over nonzero-as-true integers, the
// shape used by whole-View equality checks.
func LAndOf() Reducer[int] {
	return Reducer[int]{
		Identity: 1,
		Join: func(a, b int) int {
			if a != 0 && b != 0 {
				return 1
			}
			return 0
		},
	}
}

// MinOf reduces to the smallest element seen.
func MinOf[T Element]() Reducer[T] {
	return Reducer[T]{
		Identity: maxOfType[T](),
		Join: func(a, b T) T {
			if b < a {
				return b
			}
			return a
		},
	}
}

// MaxOf reduces to the largest element seen.
func MaxOf[T Element]() Reducer[T] {
	return Reducer[T]{
		Identity: minOfType[T](),
		Join: func(a, b T) T {
			if b > a {
				return b
			}
			return a
		},
	}
}

// ParallelReduce executes f once per index of the range policy, threading
// an accumulator through each chunk, and joins the per-chunk results with
// the reducer. The combine must be associative; evaluation order across
// chunks is fixed but element grouping within the range is not.
func ParallelReduce[R any](p RangePolicy, f func(i int, acc R) R, r Reducer[R]) (R, error) {
	n := p.End - p.Begin
	if n == 0 {
		return r.Identity, nil
	}

	chunk := p.chunk
	numChunks := (n + chunk - 1) / chunk
	workers := Limits().Concurrency
	if numChunks < workers {
		workers = numChunks
	}
	if workers <= 1 {
		acc := r.Identity
		for i := p.Begin; i < p.End; i++ {
			acc = f(i, acc)
		}
		return acc, nil
	}

	partials := make([]R, numChunks)
	var g errgroup.Group
	g.SetLimit(workers)
	for c := 0; c < numChunks; c++ {
		c := c
		start := p.Begin + c*chunk
		stop := start + chunk
		if stop > p.End {
			stop = p.End
		}
		g.Go(func() error {
			acc := r.Identity
			for i := start; i < stop; i++ {
				acc = f(i, acc)
			}
			partials[c] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return r.Identity, err
	}

	result := r.Identity
	for _, part := range partials {
		result = r.Join(result, part)
	}
	return result, nil
}

// maxOfType returns the largest representable value of T, the identity
// of a min-reduction. The switch works on the type's kind, so named
// element types (type celsius float64) resolve the same identity as
// their underlying builtin.
func maxOfType[T Element]() T {
	var zero T
	v := reflect.ValueOf(&zero).Elem()
	switch v.Kind() {
	case reflect.Float32:
		v.SetFloat(math.MaxFloat32)
	case reflect.Float64:
		v.SetFloat(math.MaxFloat64)
	case reflect.Int:
		v.SetInt(math.MaxInt)
	case reflect.Int8:
		v.SetInt(math.MaxInt8)
	case reflect.Int16:
		v.SetInt(math.MaxInt16)
	case reflect.Int32:
		v.SetInt(math.MaxInt32)
	case reflect.Int64:
		v.SetInt(math.MaxInt64)
	case reflect.Uint:
		v.SetUint(uint64(^uint(0)))
	case reflect.Uint8:
		v.SetUint(math.MaxUint8)
	case reflect.Uint16:
		v.SetUint(math.MaxUint16)
	case reflect.Uint32:
		v.SetUint(math.MaxUint32)
	case reflect.Uint64:
		v.SetUint(math.MaxUint64)
	}
	return zero
}

// minOfType returns the smallest representable value of T, the identity
// of a max-reduction. Unsigned kinds keep the zero value.
func minOfType[T Element]() T {
	var zero T
	v := reflect.ValueOf(&zero).Elem()
	switch v.Kind() {
	case reflect.Float32:
		v.SetFloat(-math.MaxFloat32)
	case reflect.Float64:
		v.SetFloat(-math.MaxFloat64)
	case reflect.Int:
		v.SetInt(math.MinInt)
	case reflect.Int8:
		v.SetInt(math.MinInt8)
	case reflect.Int16:
		v.SetInt(math.MinInt16)
	case reflect.Int32:
		v.SetInt(math.MinInt32)
	case reflect.Int64:
		v.SetInt(math.MinInt64)
	}
	return zero
}
