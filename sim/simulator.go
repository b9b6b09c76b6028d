package sim

// Configuration keys understood across backends. Backends accept and store
// any other key verbatim.
const (
	ConfigMaxBondDimension    = "matrix_product_state_max_bond_dimension"
	ConfigTruncationThreshold = "matrix_product_state_truncation_threshold"
	ConfigMPSSampleAlgorithm  = "mps_sample_measure_algorithm"
	ConfigSeed                = "seed"
)

// Simulator is the capability set every backend instance implements.
//
// Qubit indices must be < NumQubits(); out-of-range indices return an error
// wrapping ErrInvalidQubitIndex and leave the state untouched.
//
// Outcome encoding: for a qubit list qs, bit j of an outcome is the value of
// qubit qs[j]. For whole-register queries, bit q is the value of qubit q.
//
// Thread-safety: NOT thread-safe. The caller holding an instance serializes
// its own calls.
type Simulator interface {
	// Initialize prepares |0…0⟩ over the allocated qubits.
	Initialize() error
	// Reset returns to |0…0⟩, keeping qubits, configuration and snapshots.
	Reset() error
	// Flush completes any queued operations. Native engines apply eagerly.
	Flush() error

	ApplyGate(g Gate, qubits []int, params ...float64) error

	// AllocateQubits grows the register by n qubits in state |0⟩ and returns
	// the new total. n == 0 returns the current count.
	AllocateQubits(n int) (int, error)
	NumQubits() int

	// Measure collapses the listed qubits and returns the joint outcome.
	Measure(qubits []int) (uint64, error)
	// MeasureNoCollapse samples a full-register outcome without mutating state.
	MeasureNoCollapse() (uint64, error)
	ApplyReset(qubits []int) error

	Probability(outcome uint64) (float64, error)
	Amplitude(outcome uint64) (complex128, error)
	// AllProbabilities returns 2^NumQubits values.
	AllProbabilities() ([]float64, error)
	// Probabilities returns the 2^len(qubits) marginal distribution.
	Probabilities(qubits []int) ([]float64, error)
	// SampleCounts draws shots outcomes over qubits without collapsing the state.
	SampleCounts(qubits []int, shots int) (map[uint64]int, error)

	SaveState() error
	RestoreState() error
	// SaveStateToInternalDestructive uses a second snapshot slot, independent
	// of SaveState, that may be consumed by the matching restore.
	SaveStateToInternalDestructive() error
	RestoreInternalDestructiveSavedState() error

	Configure(key, value string)
	Configuration(key string) string

	// Clear drops every qubit and invalidates snapshots.
	Clear()

	SetMultithreading(enabled bool)
	Multithreading() bool

	Type() BackendType
	Method() MethodType
}

// PauliExpectation is an extended capability for backends that can evaluate
// ⟨P⟩ for a Pauli string (one of I, X, Y, Z per listed qubit).
type PauliExpectation interface {
	ExpectationPauli(qubits []int, pauli string) (float64, error)
}

// BackendFactory constructs an unconfigured backend instance.
type BackendFactory func(t BackendType, m MethodType) (Simulator, error)

// NewBackendFunc is set by sim/backend's init(). Import sim/backend (directly
// or blank) before creating a Registry with a nil factory.
var NewBackendFunc BackendFactory
