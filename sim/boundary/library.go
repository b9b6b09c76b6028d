// Package boundary is the stable, handle-based surface over the dispatcher.
//
// Every call takes a handle or an opaque *SimRef first and reports failure
// through a sentinel (0, nil, or -1 for type queries) instead of an error.
// Buffers returned to callers are owned by the caller until released
// through the matching Free call; the Library counts buffers still
// outstanding.
package boundary

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/qdispatch/sim"
	"github.com/inference-sim/qdispatch/sim/pipeline"
)

// Library is the application context behind the boundary: the pipeline App
// (registry, selector, estimator) plus the table of simple simulators.
//
// Thread-safety: the handle tables are safe for concurrent use. Calls
// against one instance must be serialized by the caller holding it.
type Library struct {
	app *pipeline.App

	mu         sync.Mutex
	nextSimple uint64
	simple     map[uint64]*pipeline.Simulator

	outstanding atomic.Int64
}

// SimRef is the opaque instance reference handed out by GetSimulator. It
// stays a lookup key: once the handle is destroyed every call through it
// returns its sentinel.
type SimRef struct {
	lib    *Library
	handle sim.Handle
}

// New creates a Library over app.
func New(app *pipeline.App) *Library {
	if app == nil {
		panic("boundary.New: nil app")
	}
	return &Library{app: app, simple: make(map[uint64]*pipeline.Simulator)}
}

// NewDefault creates a Library over the native backends and the embedded
// estimator. metrics may be nil.
func NewDefault(metrics *sim.Metrics) (*Library, error) {
	app, err := pipeline.NewDefaultApp(metrics)
	if err != nil {
		return nil, err
	}
	return New(app), nil
}

// App returns the application context.
func (l *Library) App() *pipeline.App { return l.app }

// Close destroys every simple simulator and every remaining instance.
func (l *Library) Close() {
	l.mu.Lock()
	for h, s := range l.simple {
		s.Close()
		delete(l.simple, h)
	}
	l.mu.Unlock()
	l.app.Registry().DestroyAll()
}

// === Simple simulators ===

// CreateSimpleSimulator returns the handle of a new simple simulator for
// numQubits qubits, or 0.
func (l *Library) CreateSimpleSimulator(numQubits int) uint64 {
	if numQubits < 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextSimple++
	l.simple[l.nextSimple] = pipeline.New(l.app, numQubits)
	return l.nextSimple
}

func (l *Library) DestroySimpleSimulator(h uint64) {
	l.mu.Lock()
	s, ok := l.simple[h]
	delete(l.simple, h)
	l.mu.Unlock()
	if ok {
		s.Close()
	}
}

func (l *Library) simpleSimulator(h uint64) *pipeline.Simulator {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.simple[h]
}

// RemoveAllOptimizationSimulatorsAndAdd replaces the candidate list of
// simple simulator h with the single (simType, method) pair.
func (l *Library) RemoveAllOptimizationSimulatorsAndAdd(h uint64, simType, method int) int {
	s := l.simpleSimulator(h)
	c, ok := candidate(simType, method)
	if s == nil || !ok {
		return 0
	}
	s.ReplaceCandidates(c)
	return 1
}

// AddOptimizationSimulator appends (simType, method) to the candidate list
// of simple simulator h.
func (l *Library) AddOptimizationSimulator(h uint64, simType, method int) int {
	s := l.simpleSimulator(h)
	c, ok := candidate(simType, method)
	if s == nil || !ok {
		return 0
	}
	s.AddCandidate(c)
	return 1
}

// SimpleExecute runs a circuit document under a configuration document on
// simple simulator h and returns the result document, or nil.
func (l *Library) SimpleExecute(h uint64, circuitJSON, configJSON string) *CString {
	s := l.simpleSimulator(h)
	if s == nil {
		return nil
	}
	out, err := s.ExecuteJSON([]byte(circuitJSON), []byte(configJSON))
	if err != nil {
		logrus.Warnf("boundary: simple simulator %d: %v", h, err)
		return nil
	}
	return l.newCString(string(out))
}

// LastSelection reports the candidates tried by the most recent selection
// of simple simulator h, or nil.
func (l *Library) LastSelection(h uint64) *sim.Selection {
	s := l.simpleSimulator(h)
	if s == nil {
		return nil
	}
	return s.LastSelection()
}

// === Instances ===

// CreateSimulator constructs a (simType, method) instance and returns its
// handle, or 0.
func (l *Library) CreateSimulator(simType, method int) uint64 {
	c, ok := candidate(simType, method)
	if !ok {
		return 0
	}
	h, err := l.app.Registry().Create(c.Type, c.Method)
	if err != nil {
		logrus.Debugf("boundary: create %v: %v", c, err)
		return 0
	}
	return uint64(h)
}

// GetSimulator returns the reference for a live handle, or nil.
func (l *Library) GetSimulator(h uint64) *SimRef {
	if l.app.Registry().Get(sim.Handle(h)) == nil {
		return nil
	}
	return &SimRef{lib: l, handle: sim.Handle(h)}
}

func (l *Library) DestroySimulator(h uint64) {
	l.app.Registry().Destroy(sim.Handle(h))
}

func (r *SimRef) instance() sim.Simulator {
	if r == nil || r.lib == nil {
		return nil
	}
	return r.lib.app.Registry().Get(r.handle)
}

// status maps an operation on ref to 1 on success and 0 otherwise.
func status(ref *SimRef, op func(sim.Simulator) error) int {
	inst := ref.instance()
	if inst == nil {
		return 0
	}
	if err := op(inst); err != nil {
		logrus.Debugf("boundary: handle %d: %v", ref.handle, err)
		return 0
	}
	return 1
}

func InitializeSimulator(ref *SimRef) int {
	return status(ref, sim.Simulator.Initialize)
}

func ResetSimulator(ref *SimRef) int {
	return status(ref, sim.Simulator.Reset)
}

func FlushSimulator(ref *SimRef) int {
	return status(ref, sim.Simulator.Flush)
}

func ClearSimulator(ref *SimRef) int {
	return status(ref, func(inst sim.Simulator) error {
		inst.Clear()
		return nil
	})
}

func ConfigureSimulator(ref *SimRef, key, value string) int {
	return status(ref, func(inst sim.Simulator) error {
		inst.Configure(key, value)
		return nil
	})
}

// GetConfiguration returns the stored value of key, or nil.
func GetConfiguration(ref *SimRef, key string) *CString {
	inst := ref.instance()
	if inst == nil {
		return nil
	}
	return ref.lib.newCString(inst.Configuration(key))
}

// AllocateQubits grows the instance by n qubits and returns the new total.
// n == 0 returns the current count; failure returns 0.
func AllocateQubits(ref *SimRef, n uint64) uint64 {
	inst := ref.instance()
	if inst == nil || n > math.MaxInt32 {
		return 0
	}
	total, err := inst.AllocateQubits(int(n))
	if err != nil {
		logrus.Debugf("boundary: allocate %d qubits: %v", n, err)
		return 0
	}
	return uint64(total)
}

func GetNumberOfQubits(ref *SimRef) uint64 {
	inst := ref.instance()
	if inst == nil {
		return 0
	}
	return uint64(inst.NumQubits())
}

// Measure collapses qubits and returns the joint outcome, or 0.
func Measure(ref *SimRef, qubits []uint64) uint64 {
	inst := ref.instance()
	qs, ok := toInts(qubits)
	if inst == nil || !ok {
		return 0
	}
	outcome, err := inst.Measure(qs)
	if err != nil {
		logrus.Debugf("boundary: measure %v: %v", qubits, err)
		return 0
	}
	return outcome
}

func MeasureNoCollapse(ref *SimRef) uint64 {
	inst := ref.instance()
	if inst == nil {
		return 0
	}
	outcome, err := inst.MeasureNoCollapse()
	if err != nil {
		return 0
	}
	return outcome
}

func ApplyReset(ref *SimRef, qubits []uint64) int {
	qs, ok := toInts(qubits)
	if !ok {
		return 0
	}
	return status(ref, func(inst sim.Simulator) error { return inst.ApplyReset(qs) })
}

func Probability(ref *SimRef, outcome uint64) float64 {
	inst := ref.instance()
	if inst == nil {
		return 0
	}
	p, err := inst.Probability(outcome)
	if err != nil {
		return 0
	}
	return p
}

// Amplitude returns the [real, imag] pair of outcome's amplitude, or nil.
func Amplitude(ref *SimRef, outcome uint64) *DoubleVector {
	inst := ref.instance()
	if inst == nil {
		return nil
	}
	a, err := inst.Amplitude(outcome)
	if err != nil {
		return nil
	}
	return ref.lib.newDoubleVector([]float64{real(a), imag(a)})
}

func AllProbabilities(ref *SimRef) *DoubleVector {
	inst := ref.instance()
	if inst == nil {
		return nil
	}
	ps, err := inst.AllProbabilities()
	if err != nil {
		logrus.Debugf("boundary: all probabilities: %v", err)
		return nil
	}
	return ref.lib.newDoubleVector(ps)
}

// Probabilities returns the marginal distribution over qubits, or nil for an
// empty qubit list.
func Probabilities(ref *SimRef, qubits []uint64) *DoubleVector {
	inst := ref.instance()
	qs, ok := toInts(qubits)
	if inst == nil || !ok || len(qs) == 0 {
		return nil
	}
	ps, err := inst.Probabilities(qs)
	if err != nil {
		return nil
	}
	return ref.lib.newDoubleVector(ps)
}

// SampleCounts returns flattened (outcome, count) pairs in ascending outcome
// order, or nil for an empty qubit list or zero shots.
func SampleCounts(ref *SimRef, qubits []uint64, shots uint64) *ULLIVector {
	inst := ref.instance()
	qs, ok := toInts(qubits)
	if inst == nil || !ok || len(qs) == 0 || shots == 0 || shots > math.MaxInt32 {
		return nil
	}
	counts, err := inst.SampleCounts(qs, int(shots))
	if err != nil {
		logrus.Debugf("boundary: sample counts: %v", err)
		return nil
	}
	return ref.lib.newULLIVector(flattenCounts(counts))
}

// GetSimulatorType returns the BackendType encoding, or -1.
func GetSimulatorType(ref *SimRef) int {
	inst := ref.instance()
	if inst == nil {
		return -1
	}
	return int(inst.Type())
}

// GetSimulationType returns the MethodType encoding, or -1.
func GetSimulationType(ref *SimRef) int {
	inst := ref.instance()
	if inst == nil {
		return -1
	}
	return int(inst.Method())
}

// IsQcsim reports 1 for the native qcsim family, plain or composite.
func IsQcsim(ref *SimRef) int {
	inst := ref.instance()
	if inst == nil {
		return 0
	}
	if t := inst.Type(); t == sim.QCSim || t == sim.CompositeQCSim {
		return 1
	}
	return 0
}

func SaveState(ref *SimRef) int {
	return status(ref, sim.Simulator.SaveState)
}

func RestoreState(ref *SimRef) int {
	return status(ref, sim.Simulator.RestoreState)
}

func SaveStateToInternalDestructive(ref *SimRef) int {
	return status(ref, sim.Simulator.SaveStateToInternalDestructive)
}

func RestoreInternalDestructiveSavedState(ref *SimRef) int {
	return status(ref, sim.Simulator.RestoreInternalDestructiveSavedState)
}

func SetMultithreading(ref *SimRef, enabled int) int {
	return status(ref, func(inst sim.Simulator) error {
		inst.SetMultithreading(enabled != 0)
		return nil
	})
}

func GetMultithreading(ref *SimRef) int {
	inst := ref.instance()
	if inst == nil || !inst.Multithreading() {
		return 0
	}
	return 1
}

// ExpectationPauli evaluates ⟨P⟩ for a Pauli string over qubits on backends
// that support it. Unsupported backends and invalid input return NaN.
func ExpectationPauli(ref *SimRef, qubits []uint64, pauli string) float64 {
	inst := ref.instance()
	qs, ok := toInts(qubits)
	if inst == nil || !ok {
		return math.NaN()
	}
	pe, ok := inst.(sim.PauliExpectation)
	if !ok {
		return math.NaN()
	}
	v, err := pe.ExpectationPauli(qs, pauli)
	if err != nil {
		return math.NaN()
	}
	return v
}

func candidate(simType, method int) (sim.Candidate, bool) {
	c := sim.Candidate{Type: sim.BackendType(simType), Method: sim.MethodType(method)}
	return c, c.Type.Valid() && c.Method.Valid()
}

func toInts(qubits []uint64) ([]int, bool) {
	out := make([]int, len(qubits))
	for i, q := range qubits {
		if q > math.MaxInt32 {
			return nil, false
		}
		out[i] = int(q)
	}
	return out, true
}
