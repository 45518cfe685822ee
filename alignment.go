package dframe

import (
	"runtime"

	"golang.org/x/sys/cpu"

	"github.com/hupe1980/dframe/internal/mem"
)

// Alignment is the byte alignment of the start of every row.
type Alignment = mem.Alignment

const (
	// AlignedNone only guarantees the natural alignment of float32.
	AlignedNone Alignment = mem.Unaligned
	Aligned8    Alignment = mem.Aligned8
	Aligned16   Alignment = mem.Aligned16
	Aligned32   Alignment = mem.Aligned32
	Aligned64   Alignment = mem.Aligned64
)

// DefaultAlignment is used when no alignment is configured.
const DefaultAlignment = Aligned16

// NativeAlignment returns the widest vector width of the running CPU.
func NativeAlignment() Alignment {
	switch runtime.GOARCH {
	case "amd64", "386":
		if cpu.X86.HasAVX512F {
			return Aligned64
		}
		if cpu.X86.HasAVX {
			return Aligned32
		}
	case "arm64":
		if cpu.ARM64.HasSVE {
			return Aligned32
		}
	}
	return Aligned16
}

// ColumnGroup is a block of Size columns starting at a multiple of Alignment.
type ColumnGroup struct {
	Size      int
	Alignment Alignment
}
