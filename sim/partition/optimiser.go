// Package partition assigns circuit qubits to the partitions of a Network so
// that as few interaction edges as possible cross partitions, and translates
// qubit and basis-state indices between original and partition-local numbering.
//
// Every strategy implements Optimiser. Optimise(numSteps) is the only bound on
// running time; there is no cancellation.
package partition

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/inference-sim/qdispatch/sim"
)

// Strategy names accepted by NewOptimiser.
const (
	None       = "none"
	MonteCarlo = "monte-carlo"
	Greedy     = "greedy"
	Optimal    = "optimal"
	Clifford   = "clifford"
)

var validOptimiserNames = map[string]bool{
	None:       true,
	MonteCarlo: true,
	Greedy:     true,
	Optimal:    true,
	Clifford:   true,
}

// IsValidOptimiser returns true if name is a recognized strategy.
func IsValidOptimiser(name string) bool { return validOptimiserNames[name] }

// ValidOptimiserNames returns the recognized strategy names, sorted.
func ValidOptimiserNames() []string {
	names := make([]string, 0, len(validOptimiserNames))
	for n := range validOptimiserNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Optimiser is the common contract of the partitioning strategies.
//
// Qubit maps are indexed like slices: GetQubitsMap()[original] is the
// partition-local index and GetReverseQubitsMap()[local] the original one.
// Indices outside the bound circuit translate to themselves.
//
// Thread-safety: NOT thread-safe. An Optimiser has exactly one owner.
type Optimiser interface {
	Name() string

	// SetNetworkAndCircuit binds a network and circuit and resets the
	// assignment to the trivial sequential fill.
	SetNetworkAndCircuit(net Network, c *sim.Circuit)

	// GetNumCuts is the total weight of interaction edges crossing
	// partitions under the current assignment.
	GetNumCuts() int

	// Optimise runs at most numSteps improvement steps and returns the
	// resulting cut count. Optimise(0) never changes the assignment.
	Optimise(numSteps int) int

	// Assignment returns the partition index of every original qubit.
	Assignment() []int

	GetQubitsMap() []int
	GetReverseQubitsMap() []int
	TranslateQubitToOriginal(q int) int
	TranslateQubitFromOriginal(q int) int
	TranslateStateToOriginal(s uint64) uint64
	TranslateStateFromOriginal(s uint64) uint64
}

// NewOptimiser creates the strategy registered under name. rng drives the
// randomized strategies; nil selects a fixed-seed source.
// Panics on unknown names.
func NewOptimiser(name string, rng *rand.Rand) Optimiser {
	if !IsValidOptimiser(name) {
		panic(fmt.Sprintf("unknown partition optimiser %q", name))
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}
	switch name {
	case None:
		return &identity{base: newBase(None)}
	case MonteCarlo:
		return &monteCarlo{base: newBase(MonteCarlo), rng: rng}
	case Greedy:
		return &greedy{base: newBase(Greedy)}
	case Optimal:
		return &optimal{base: newBase(Optimal)}
	case Clifford:
		return &clifford{base: newBase(Clifford)}
	default:
		panic(fmt.Sprintf("unhandled partition optimiser %q", name))
	}
}

// identity never moves a qubit.
type identity struct {
	*base
}

func (o *identity) Optimise(int) int { return o.cuts }

var (
	_ Optimiser = (*identity)(nil)
	_ Optimiser = (*monteCarlo)(nil)
	_ Optimiser = (*greedy)(nil)
	_ Optimiser = (*optimal)(nil)
	_ Optimiser = (*clifford)(nil)
)
