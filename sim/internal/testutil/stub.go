package testutil

import (
	"fmt"
	"sync"

	"github.com/inference-sim/qdispatch/sim"
)

// StubBackends is a scriptable sim.BackendFactory. Construction of any
// candidate listed in FailCreate fails with that error; allocation on any
// candidate in FailAllocate fails likewise. Every construction attempt is
// recorded in Created, successful or not.
type StubBackends struct {
	FailCreate   map[sim.Candidate]error
	FailAllocate map[sim.Candidate]error

	mu      sync.Mutex
	Created []sim.Candidate
	Live    []*StubSimulator
}

// Factory satisfies sim.BackendFactory.
func (b *StubBackends) Factory(t sim.BackendType, m sim.MethodType) (sim.Simulator, error) {
	c := sim.Candidate{Type: t, Method: m}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Created = append(b.Created, c)
	if err := b.FailCreate[c]; err != nil {
		return nil, err
	}
	s := &StubSimulator{Candidate: c, Config: map[string]string{}, FailAllocate: b.FailAllocate[c]}
	b.Live = append(b.Live, s)
	return s, nil
}

// Attempts returns how many constructions were requested.
func (b *StubBackends) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Created)
}

// StubSimulator records what the selector and registry do to it.
// Every numeric query reports the all-zero state.
type StubSimulator struct {
	Candidate    sim.Candidate
	Config       map[string]string
	Qubits       int
	Initialized  bool
	Cleared      bool
	Multi        bool
	FailAllocate error
	AppliedGates []sim.Gate
}

func (s *StubSimulator) Initialize() error {
	s.Initialized = true
	return nil
}

func (s *StubSimulator) Reset() error { return nil }
func (s *StubSimulator) Flush() error { return nil }

func (s *StubSimulator) ApplyGate(g sim.Gate, qubits []int, params ...float64) error {
	for _, q := range qubits {
		if q < 0 || q >= s.Qubits {
			return fmt.Errorf("%w: %d", sim.ErrInvalidQubitIndex, q)
		}
	}
	s.AppliedGates = append(s.AppliedGates, g)
	return nil
}

func (s *StubSimulator) AllocateQubits(n int) (int, error) {
	if s.FailAllocate != nil {
		return s.Qubits, s.FailAllocate
	}
	s.Qubits += n
	return s.Qubits, nil
}

func (s *StubSimulator) NumQubits() int { return s.Qubits }
func (s *StubSimulator) Measure([]int) (uint64, error) { return 0, nil }
func (s *StubSimulator) MeasureNoCollapse() (uint64, error) { return 0, nil }
func (s *StubSimulator) ApplyReset([]int) error { return nil }

func (s *StubSimulator) Probability(outcome uint64) (float64, error) {
	if outcome == 0 {
		return 1, nil
	}
	return 0, nil
}

func (s *StubSimulator) Amplitude(outcome uint64) (complex128, error) {
	if outcome == 0 {
		return 1, nil
	}
	return 0, nil
}

func (s *StubSimulator) AllProbabilities() ([]float64, error) {
	out := make([]float64, 1<<s.Qubits)
	out[0] = 1
	return out, nil
}

func (s *StubSimulator) Probabilities(qubits []int) ([]float64, error) {
	out := make([]float64, 1<<len(qubits))
	out[0] = 1
	return out, nil
}

func (s *StubSimulator) SampleCounts(_ []int, shots int) (map[uint64]int, error) {
	return map[uint64]int{0: shots}, nil
}

func (s *StubSimulator) SaveState() error { return nil }
func (s *StubSimulator) RestoreState() error { return nil }
func (s *StubSimulator) SaveStateToInternalDestructive() error { return nil }
func (s *StubSimulator) RestoreInternalDestructiveSavedState() error { return nil }

func (s *StubSimulator) Configure(key, value string) { s.Config[key] = value }
func (s *StubSimulator) Configuration(key string) string { return s.Config[key] }
func (s *StubSimulator) Clear() {
	s.Cleared = true
	s.Qubits = 0
}
func (s *StubSimulator) SetMultithreading(b bool) { s.Multi = b }
func (s *StubSimulator) Multithreading() bool { return s.Multi }
func (s *StubSimulator) Type() sim.BackendType { return s.Candidate.Type }
func (s *StubSimulator) Method() sim.MethodType { return s.Candidate.Method }

// FixedEstimator returns a scripted time per candidate and
// sim.EstimateUnknown for anything else.
type FixedEstimator map[sim.Candidate]float64

func (f FixedEstimator) EstimateTime(t sim.BackendType, m sim.MethodType, _ sim.CircuitShape) float64 {
	if v, ok := f[sim.Candidate{Type: t, Method: m}]; ok {
		return v
	}
	return sim.EstimateUnknown
}
