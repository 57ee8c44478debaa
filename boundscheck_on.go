//go:build parallax_boundscheck

package parallax

// boundsCheckDefault is on in debug builds; out-of-bounds indexing panics
// with a Bounds error.
const boundsCheckDefault = true
