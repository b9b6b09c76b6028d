package boundary

import (
	"slices"
	"sync/atomic"
)

// Owned buffers. Each type has exactly one release call on the Library that
// produced it; releasing twice or releasing nil is a no-op. A buffer that is
// never released stays counted in OutstandingBuffers.

// CString is a string result owned by the caller. Release with FreeResult.
type CString struct {
	value    string
	released atomic.Bool
}

func (s *CString) String() string {
	if s == nil {
		return ""
	}
	return s.value
}

// DoubleVector is a float64 result owned by the caller. Release with
// FreeDoubleVector.
type DoubleVector struct {
	Data     []float64
	released atomic.Bool
}

// ULLIVector is a uint64 result owned by the caller. Release with
// FreeULLIVector.
type ULLIVector struct {
	Data     []uint64
	released atomic.Bool
}

func (l *Library) newCString(v string) *CString {
	l.outstanding.Add(1)
	return &CString{value: v}
}

func (l *Library) newDoubleVector(data []float64) *DoubleVector {
	l.outstanding.Add(1)
	return &DoubleVector{Data: slices.Clone(data)}
}

func (l *Library) newULLIVector(data []uint64) *ULLIVector {
	l.outstanding.Add(1)
	return &ULLIVector{Data: data}
}

func (l *Library) FreeResult(s *CString) {
	if s != nil && s.released.CompareAndSwap(false, true) {
		s.value = ""
		l.outstanding.Add(-1)
	}
}

func (l *Library) FreeDoubleVector(v *DoubleVector) {
	if v != nil && v.released.CompareAndSwap(false, true) {
		v.Data = nil
		l.outstanding.Add(-1)
	}
}

func (l *Library) FreeULLIVector(v *ULLIVector) {
	if v != nil && v.released.CompareAndSwap(false, true) {
		v.Data = nil
		l.outstanding.Add(-1)
	}
}

// OutstandingBuffers returns how many buffers have been handed out and not
// released.
func (l *Library) OutstandingBuffers() int64 { return l.outstanding.Load() }

func flattenCounts(counts map[uint64]int) []uint64 {
	outcomes := make([]uint64, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, o)
	}
	slices.Sort(outcomes)
	out := make([]uint64, 0, 2*len(outcomes))
	for _, o := range outcomes {
		out = append(out, o, uint64(counts[o]))
	}
	return out
}
