// Package backend provides the native state-vector backends.
//
// QCSim keeps every qubit in one dense register. CompositeQCSim keeps one
// dense register per group of qubits that have interacted, merging groups
// on demand and splitting measured qubits back out, so circuits made of
// weakly-coupled pieces never pay for the full 2^n register.
package backend

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/inference-sim/qdispatch/sim"
)

const (
	// MaxDenseQubits bounds the width of any single dense register.
	MaxDenseQubits = 28
	// MaxQubits bounds the total register, set by the uint64 outcome encoding.
	MaxQubits = 64
)

// New constructs the backend for (t, m). Only the native engines are
// linked; every other pair reports sim.ErrUnsupportedBackend.
func New(t sim.BackendType, m sim.MethodType) (sim.Simulator, error) {
	if m != sim.Statevector {
		return nil, fmt.Errorf("%w: %v does not implement %v", sim.ErrUnsupportedBackend, t, m)
	}
	switch t {
	case sim.QCSim:
		return newEngine(t, m, false), nil
	case sim.CompositeQCSim:
		return newEngine(t, m, true), nil
	}
	return nil, fmt.Errorf("%w: %v is not linked into this build", sim.ErrUnsupportedBackend, t)
}

// Supported reports whether New can construct (t, m).
func Supported(t sim.BackendType, m sim.MethodType) bool {
	return m == sim.Statevector && (t == sim.QCSim || t == sim.CompositeQCSim)
}

type snapshot struct {
	numQubits int
	groups    []*group
}

// Engine is the dense/composite state-vector simulator.
type Engine struct {
	backend        sim.BackendType
	method         sim.MethodType
	composite      bool
	numQubits      int
	groups         []*group
	owner          []*group // qubit → group holding it
	config         map[string]string
	rng            *rand.Rand
	multithreading bool
	saved          *snapshot
	destructive    *snapshot
}

func newEngine(t sim.BackendType, m sim.MethodType, composite bool) *Engine {
	return &Engine{
		backend:   t,
		method:    m,
		composite: composite,
		config:    make(map[string]string),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (e *Engine) Type() sim.BackendType { return e.backend }
func (e *Engine) Method() sim.MethodType { return e.method }
func (e *Engine) NumQubits() int { return e.numQubits }
func (e *Engine) Multithreading() bool { return e.multithreading }
func (e *Engine) SetMultithreading(b bool) { e.multithreading = b }
func (e *Engine) Flush() error { return nil }

// NumGroups returns the number of independent registers currently held.
func (e *Engine) NumGroups() int { return len(e.groups) }

func (e *Engine) Initialize() error {
	e.resetState()
	return nil
}

func (e *Engine) Reset() error {
	e.resetState()
	return nil
}

func (e *Engine) resetState() {
	e.groups = nil
	if e.numQubits == 0 {
		e.owner = nil
		return
	}
	if e.composite {
		for q := 0; q < e.numQubits; q++ {
			e.groups = append(e.groups, newGroup([]int{q}))
		}
	} else {
		all := make([]int, e.numQubits)
		for q := range all {
			all[q] = q
		}
		e.groups = []*group{newGroup(all)}
	}
	e.rebuildOwner()
}

func (e *Engine) rebuildOwner() {
	e.owner = make([]*group, e.numQubits)
	for _, g := range e.groups {
		for _, q := range g.qubits {
			e.owner[q] = g
		}
	}
}

func (e *Engine) Clear() {
	e.numQubits = 0
	e.groups = nil
	e.owner = nil
	e.saved = nil
	e.destructive = nil
}

func (e *Engine) Configure(key, value string) {
	e.config[key] = value
	if key == sim.ConfigSeed {
		if seed, err := strconv.ParseInt(value, 10, 64); err == nil {
			e.rng.Seed(seed)
		}
	}
}

func (e *Engine) Configuration(key string) string {
	return e.config[key]
}

func (e *Engine) AllocateQubits(n int) (int, error) {
	if n < 0 {
		return e.numQubits, fmt.Errorf("%w: cannot allocate %d qubits", sim.ErrMalformedInput, n)
	}
	if n == 0 {
		return e.numQubits, nil
	}
	total := e.numQubits + n
	if total > MaxQubits || (!e.composite && total > MaxDenseQubits) {
		return e.numQubits, fmt.Errorf("%w: %d qubits exceed the %v limit", sim.ErrAllocationFailure, total, e.backend)
	}
	fresh := make([]int, n)
	for i := range fresh {
		fresh[i] = e.numQubits + i
	}
	switch {
	case e.composite:
		for _, q := range fresh {
			e.groups = append(e.groups, newGroup([]int{q}))
		}
	case len(e.groups) == 0:
		e.groups = []*group{newGroup(fresh)}
	default:
		e.groups[0] = e.groups[0].tensor(newGroup(fresh))
	}
	e.numQubits = total
	e.rebuildOwner()
	return total, nil
}

func (e *Engine) checkQubits(qubits []int) error {
	seen := make(map[int]bool, len(qubits))
	for _, q := range qubits {
		if q < 0 || q >= e.numQubits {
			return fmt.Errorf("%w: qubit %d, register has %d", sim.ErrInvalidQubitIndex, q, e.numQubits)
		}
		if seen[q] {
			return fmt.Errorf("%w: qubit %d listed twice", sim.ErrMalformedInput, q)
		}
		seen[q] = true
	}
	return nil
}

// join merges the registers holding qubits into one and returns it.
func (e *Engine) join(qubits []int) (*group, error) {
	var parts []*group
	width := 0
	for _, q := range qubits {
		g := e.owner[q]
		dup := false
		for _, p := range parts {
			if p == g {
				dup = true
				break
			}
		}
		if !dup {
			parts = append(parts, g)
			width += len(g.qubits)
		}
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	if width > MaxDenseQubits {
		return nil, fmt.Errorf("%w: merging registers to %d qubits", sim.ErrAllocationFailure, width)
	}
	merged := parts[0]
	for _, p := range parts[1:] {
		merged = merged.tensor(p)
	}
	kept := e.groups[:0]
	for _, g := range e.groups {
		absorbed := false
		for _, p := range parts {
			if g == p {
				absorbed = true
				break
			}
		}
		if !absorbed {
			kept = append(kept, g)
		}
	}
	e.groups = append(kept, merged)
	for _, q := range merged.qubits {
		e.owner[q] = merged
	}
	return merged, nil
}

func (e *Engine) ApplyGate(g sim.Gate, qubits []int, params ...float64) error {
	if !g.Valid() {
		return fmt.Errorf("%w: %v", sim.ErrUnsupportedGate, g)
	}
	if len(qubits) != g.Arity() {
		return fmt.Errorf("%w: %v takes %d qubits, got %d", sim.ErrMalformedInput, g, g.Arity(), len(qubits))
	}
	if err := e.checkQubits(qubits); err != nil {
		return err
	}
	grp, err := e.join(qubits)
	if err != nil {
		return err
	}
	locals := make([]int, len(qubits))
	for i, q := range qubits {
		locals[i] = grp.local(q)
	}
	switch g {
	case sim.GateSwap:
		grp.swap(locals[0], locals[1], 0)
	case sim.GateCSwap:
		grp.swap(locals[1], locals[2], 1<<locals[0])
	default:
		m, controls := gateMatrix(g, params)
		mask := 0
		for _, c := range locals[:controls] {
			mask |= 1 << c
		}
		grp.apply(m, locals[controls], mask, e.multithreading)
	}
	return nil
}

// measureQubit collapses q and returns its value. The composite engine
// splits the measured qubit into its own register.
func (e *Engine) measureQubit(q int) int {
	grp := e.owner[q]
	t := grp.local(q)
	p1 := grp.probOne(t)
	value, prob := 0, 1-p1
	if e.rng.Float64() < p1 {
		value, prob = 1, p1
	}
	if prob <= 0 {
		prob = 1
	}
	grp.collapse(t, value, prob)
	if !e.composite || len(grp.qubits) == 1 {
		return value
	}
	rest := grp.split(t, value)
	single := newGroup([]int{q})
	if value == 1 {
		single.amp[0], single.amp[1] = 0, 1
	}
	for i, g := range e.groups {
		if g == grp {
			e.groups[i] = rest
			break
		}
	}
	e.groups = append(e.groups, single)
	for _, rq := range rest.qubits {
		e.owner[rq] = rest
	}
	e.owner[q] = single
	return value
}

func (e *Engine) Measure(qubits []int) (uint64, error) {
	if len(qubits) > 64 {
		return 0, fmt.Errorf("%w: %d qubits do not fit a 64-bit outcome", sim.ErrMalformedInput, len(qubits))
	}
	if err := e.checkQubits(qubits); err != nil {
		return 0, err
	}
	var outcome uint64
	for j, q := range qubits {
		if e.measureQubit(q) == 1 {
			outcome |= 1 << uint(j)
		}
	}
	return outcome, nil
}

func (e *Engine) ApplyReset(qubits []int) error {
	if err := e.checkQubits(qubits); err != nil {
		return err
	}
	for _, q := range qubits {
		if e.measureQubit(q) == 1 {
			grp := e.owner[q]
			grp.apply(matX, grp.local(q), 0, false)
		}
	}
	return nil
}

func localIndex(g *group, outcome uint64) int {
	idx := 0
	for i, q := range g.qubits {
		if outcome>>uint(q)&1 == 1 {
			idx |= 1 << i
		}
	}
	return idx
}

func (e *Engine) checkOutcome(outcome uint64) error {
	if e.numQubits < 64 && outcome>>uint(e.numQubits) != 0 {
		return fmt.Errorf("%w: outcome %d exceeds %d qubits", sim.ErrInvalidQubitIndex, outcome, e.numQubits)
	}
	return nil
}

func (e *Engine) Amplitude(outcome uint64) (complex128, error) {
	if err := e.checkOutcome(outcome); err != nil {
		return 0, err
	}
	amp := complex(1, 0)
	for _, g := range e.groups {
		amp *= g.amp[localIndex(g, outcome)]
	}
	return amp, nil
}

func (e *Engine) Probability(outcome uint64) (float64, error) {
	amp, err := e.Amplitude(outcome)
	if err != nil {
		return 0, err
	}
	return real(amp)*real(amp) + imag(amp)*imag(amp), nil
}

func (e *Engine) AllProbabilities() ([]float64, error) {
	if e.numQubits > MaxDenseQubits {
		return nil, fmt.Errorf("%w: 2^%d probabilities", sim.ErrAllocationFailure, e.numQubits)
	}
	out := make([]float64, 1<<e.numQubits)
	for i := range out {
		out[i] = 1
	}
	for _, g := range e.groups {
		probs := g.probabilities()
		for i := range out {
			out[i] *= probs[localIndex(g, uint64(i))]
		}
	}
	return out, nil
}

func (e *Engine) Probabilities(qubits []int) ([]float64, error) {
	if len(qubits) > MaxDenseQubits {
		return nil, fmt.Errorf("%w: 2^%d probabilities", sim.ErrAllocationFailure, len(qubits))
	}
	if err := e.checkQubits(qubits); err != nil {
		return nil, err
	}
	out := make([]float64, 1<<len(qubits))
	for i := range out {
		out[i] = 1
	}
	for _, g := range e.groups {
		positions, locals := e.project(g, qubits)
		if len(positions) == 0 {
			continue
		}
		marginal := g.marginal(locals)
		for o := range out {
			sub := 0
			for r, p := range positions {
				if o>>p&1 == 1 {
					sub |= 1 << r
				}
			}
			out[o] *= marginal[sub]
		}
	}
	return out, nil
}

// project returns the qubits held by g: positions[r] is the index into
// qubits fed by local bit locals[r].
func (e *Engine) project(g *group, qubits []int) (positions, locals []int) {
	for j, q := range qubits {
		if e.owner[q] == g {
			positions = append(positions, j)
			locals = append(locals, g.local(q))
		}
	}
	return positions, locals
}

// sample draws one index from probs.
func (e *Engine) sample(cumulative []float64) int {
	total := cumulative[len(cumulative)-1]
	r := e.rng.Float64() * total
	idx := sort.Search(len(cumulative), func(i int) bool { return cumulative[i] > r })
	if idx == len(cumulative) {
		idx = len(cumulative) - 1
	}
	return idx
}

func cumulate(probs []float64) []float64 {
	out := make([]float64, len(probs))
	var acc float64
	for i, p := range probs {
		acc += p
		out[i] = acc
	}
	return out
}

// SampleCounts draws shots outcomes over qubits without collapsing the state.
// Each register is sampled on its own, so the width is bounded by the
// outcome encoding rather than by MaxDenseQubits.
func (e *Engine) SampleCounts(qubits []int, shots int) (map[uint64]int, error) {
	if shots < 0 {
		return nil, fmt.Errorf("%w: negative shot count %d", sim.ErrMalformedInput, shots)
	}
	if len(qubits) > MaxQubits {
		return nil, fmt.Errorf("%w: %d qubits do not fit a 64-bit outcome", sim.ErrMalformedInput, len(qubits))
	}
	if err := e.checkQubits(qubits); err != nil {
		return nil, err
	}
	type draw struct {
		positions  []int
		cumulative []float64
	}
	var draws []draw
	for _, g := range e.groups {
		positions, locals := e.project(g, qubits)
		if len(positions) == 0 {
			continue
		}
		draws = append(draws, draw{positions: positions, cumulative: cumulate(g.marginal(locals))})
	}
	counts := make(map[uint64]int)
	for s := 0; s < shots; s++ {
		var outcome uint64
		for _, d := range draws {
			sub := e.sample(d.cumulative)
			for r, p := range d.positions {
				if sub>>r&1 == 1 {
					outcome |= 1 << uint(p)
				}
			}
		}
		counts[outcome]++
	}
	return counts, nil
}

func (e *Engine) MeasureNoCollapse() (uint64, error) {
	var outcome uint64
	for _, g := range e.groups {
		idx := e.sample(cumulate(g.probabilities()))
		for i, q := range g.qubits {
			if idx>>i&1 == 1 {
				outcome |= 1 << uint(q)
			}
		}
	}
	return outcome, nil
}

func (e *Engine) capture() *snapshot {
	s := &snapshot{numQubits: e.numQubits, groups: make([]*group, len(e.groups))}
	for i, g := range e.groups {
		s.groups[i] = g.clone()
	}
	return s
}

func (e *Engine) install(s *snapshot) {
	e.numQubits = s.numQubits
	e.groups = s.groups
	e.rebuildOwner()
}

func (e *Engine) SaveState() error {
	e.saved = e.capture()
	return nil
}

// RestoreState installs a copy of the saved state; the snapshot remains
// available for further restores.
func (e *Engine) RestoreState() error {
	if e.saved == nil {
		return sim.ErrNoSavedState
	}
	saved := e.saved
	e.install(saved)
	e.saved = e.capture()
	return nil
}

func (e *Engine) SaveStateToInternalDestructive() error {
	e.destructive = e.capture()
	return nil
}

// RestoreInternalDestructiveSavedState moves the internal snapshot back
// into the live state, consuming it.
func (e *Engine) RestoreInternalDestructiveSavedState() error {
	if e.destructive == nil {
		return sim.ErrNoSavedState
	}
	e.install(e.destructive)
	e.destructive = nil
	return nil
}

// ExpectationPauli evaluates ⟨ψ|P|ψ⟩ for the Pauli string pauli, whose i-th
// letter acts on qubits[i]. Registers are independent, so the expectation
// factorises over them.
func (e *Engine) ExpectationPauli(qubits []int, pauli string) (float64, error) {
	if len(pauli) != len(qubits) {
		return 0, fmt.Errorf("%w: pauli string %q for %d qubits", sim.ErrMalformedInput, pauli, len(qubits))
	}
	if err := e.checkQubits(qubits); err != nil {
		return 0, err
	}
	result := 1.0
	for _, g := range e.groups {
		work := g.clone()
		touched := false
		for i, q := range qubits {
			if e.owner[q] != g {
				continue
			}
			m, ok := pauliMatrix(pauli[i])
			if !ok {
				return 0, fmt.Errorf("%w: pauli letter %q", sim.ErrMalformedInput, pauli[i])
			}
			work.apply(m, g.local(q), 0, false)
			touched = true
		}
		if !touched {
			continue
		}
		var inner complex128
		for i, a := range g.amp {
			inner += complexConj(a) * work.amp[i]
		}
		result *= real(inner)
	}
	return result, nil
}

func complexConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}

var (
	_ sim.Simulator        = (*Engine)(nil)
	_ sim.PauliExpectation = (*Engine)(nil)
)
