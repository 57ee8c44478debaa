package parallax

import (
	"golang.org/x/sys/cpu"
)

// CPUFeatures tracks available CPU instruction set extensions
type CPUFeatures struct {
	HasSSE4     bool
	HasAVX      bool
	HasAVX2     bool
	HasAVX512F  bool // Foundation
	HasAVX512DQ bool // Double/Quad precision
	HasFMA      bool
	HasNEON     bool
}

// Global CPU feature detection
var cpuFeatures CPUFeatures

func init() {
	detectCPUFeatures()
}

// detectCPUFeatures populates the global cpuFeatures struct
func detectCPUFeatures() {
	cpuFeatures = CPUFeatures{
		HasSSE4:     cpu.X86.HasSSE41 || cpu.X86.HasSSE42,
		HasAVX:      cpu.X86.HasAVX,
		HasAVX2:     cpu.X86.HasAVX2,
		HasAVX512F:  cpu.X86.HasAVX512F,
		HasAVX512DQ: cpu.X86.HasAVX512DQ,
		HasFMA:      cpu.X86.HasFMA,
		HasNEON:     cpu.ARM64.HasASIMD,
	}
}

// Features returns the detected CPU feature set
func Features() CPUFeatures {
	return cpuFeatures
}

// VectorWidth returns the widest available SIMD width in float32 lanes.
// TeamPolicy uses this as the default vector length for ThreadVectorRange.
func VectorWidth() int {
	switch {
	case cpuFeatures.HasAVX512F:
		return AVX512VectorWidth
	case cpuFeatures.HasAVX2:
		return AVX2VectorWidth
	case cpuFeatures.HasSSE4, cpuFeatures.HasNEON:
		return SSEVectorWidth
	default:
		return 1
	}
}
