package backend

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// parallelThreshold is the smallest register width (in qubits) for which a
// multithreaded instance splits kernel passes across goroutines.
const parallelThreshold = 14

// group is a dense register over a subset of qubits. qubits[i] is the
// global qubit held at local bit i of every amplitude index.
type group struct {
	qubits []int
	amp    []complex128
}

func newGroup(qubits []int) *group {
	g := &group{qubits: append([]int(nil), qubits...), amp: make([]complex128, 1<<len(qubits))}
	g.amp[0] = 1
	return g
}

func (g *group) clone() *group {
	return &group{
		qubits: append([]int(nil), g.qubits...),
		amp:    append([]complex128(nil), g.amp...),
	}
}

func (g *group) local(q int) int {
	for i, gq := range g.qubits {
		if gq == q {
			return i
		}
	}
	return -1
}

// tensor returns the product register g ⊗ h, with h's qubits placed above
// g's in the local ordering.
func (g *group) tensor(h *group) *group {
	out := &group{
		qubits: append(append([]int(nil), g.qubits...), h.qubits...),
		amp:    make([]complex128, len(g.amp)*len(h.amp)),
	}
	shift := uint(len(g.qubits))
	for j, b := range h.amp {
		if b == 0 {
			continue
		}
		base := j << shift
		for i, a := range g.amp {
			out.amp[base|i] = a * b
		}
	}
	return out
}

// insertZero spreads k so that bit position t is zero.
func insertZero(k, t int) int {
	low := k & ((1 << t) - 1)
	return ((k >> t) << (t + 1)) | low
}

// apply applies m to local bit target, conditioned on every bit in
// controlMask being set.
func (g *group) apply(m matrix2, target int, controlMask int, parallel bool) {
	half := len(g.amp) >> 1
	tbit := 1 << target
	pass := func(from, to int) {
		for k := from; k < to; k++ {
			i := insertZero(k, target)
			if i&controlMask != controlMask {
				continue
			}
			j := i | tbit
			a0, a1 := g.amp[i], g.amp[j]
			g.amp[i] = m[0][0]*a0 + m[0][1]*a1
			g.amp[j] = m[1][0]*a0 + m[1][1]*a1
		}
	}
	if !parallel || len(g.qubits) < parallelThreshold {
		pass(0, half)
		return
	}
	// Each k maps to a distinct (i, j) pair, so disjoint k ranges never
	// touch the same amplitude.
	workers := runtime.GOMAXPROCS(0)
	chunk := (half + workers - 1) / workers
	var eg errgroup.Group
	for from := 0; from < half; from += chunk {
		from, to := from, min(from+chunk, half)
		eg.Go(func() error {
			pass(from, to)
			return nil
		})
	}
	_ = eg.Wait()
}

// swap exchanges local bits a and b, conditioned on controlMask.
func (g *group) swap(a, b int, controlMask int) {
	abit, bbit := 1<<a, 1<<b
	for i := range g.amp {
		if i&controlMask != controlMask || i&abit == 0 || i&bbit != 0 {
			continue
		}
		j := i ^ abit ^ bbit
		g.amp[i], g.amp[j] = g.amp[j], g.amp[i]
	}
}

// probOne is the probability that local bit t reads 1.
func (g *group) probOne(t int) float64 {
	tbit := 1 << t
	var p float64
	for i, a := range g.amp {
		if i&tbit != 0 {
			p += real(a)*real(a) + imag(a)*imag(a)
		}
	}
	return p
}

// collapse projects local bit t onto value and renormalises.
func (g *group) collapse(t int, value int, prob float64) {
	tbit := 1 << t
	norm := complex(1/math.Sqrt(prob), 0)
	for i := range g.amp {
		if (i&tbit != 0) != (value == 1) {
			g.amp[i] = 0
		} else {
			g.amp[i] *= norm
		}
	}
}

// split removes local bit t, which must already be collapsed to value, and
// returns the remaining register.
func (g *group) split(t int, value int) *group {
	out := &group{
		qubits: make([]int, 0, len(g.qubits)-1),
		amp:    make([]complex128, len(g.amp)>>1),
	}
	out.qubits = append(out.qubits, g.qubits[:t]...)
	out.qubits = append(out.qubits, g.qubits[t+1:]...)
	for k := range out.amp {
		i := insertZero(k, t)
		if value == 1 {
			i |= 1 << t
		}
		out.amp[k] = g.amp[i]
	}
	return out
}

// marginal returns the distribution of the local bits locals, with bit r of
// each index taken from local bit locals[r].
func (g *group) marginal(locals []int) []float64 {
	out := make([]float64, 1<<len(locals))
	for i, a := range g.amp {
		sub := 0
		for r, t := range locals {
			if i>>t&1 == 1 {
				sub |= 1 << r
			}
		}
		out[sub] += real(a)*real(a) + imag(a)*imag(a)
	}
	return out
}

func (g *group) probabilities() []float64 {
	out := make([]float64, len(g.amp))
	for i, a := range g.amp {
		out[i] = real(a)*real(a) + imag(a)*imag(a)
	}
	return out
}
