//go:build !parallax_boundscheck

package parallax

// boundsCheckDefault is off in optimized builds; out-of-bounds indexing
// is undefined behavior unless SetBoundsCheck(true) is called.
const boundsCheckDefault = false
