//go:build !linux

package parallax

// getSystemMemory returns total system memory in bytes.
// Non-Linux platforms fall back to a fixed estimate.
func getSystemMemory() uint64 {
	return defaultSystemMemory
}
