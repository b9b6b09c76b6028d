package sim

import (
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// OpKind distinguishes unitary gates from the non-unitary instructions.
type OpKind int

const (
	OpGate OpKind = iota
	OpMeasure
	OpReset
	OpBarrier
)

// MaxClbits bounds NumClbits, set by the uint64 outcome encoding.
const MaxClbits = 64

// Instruction is one step of a Circuit.
// For OpMeasure, Memory[i] receives the outcome of Qubits[i].
type Instruction struct {
	Kind   OpKind
	Gate   Gate
	Qubits []int
	Params []float64
	Memory []int
}

// Circuit is an ordered instruction list over NumQubits qubits and NumClbits
// classical bits. It is produced externally and treated as read-only.
type Circuit struct {
	NumQubits          int
	NumClbits          int
	Instructions       []Instruction
	QuantumRegisters   map[string][]int
	ClassicalRegisters map[string][]int
}

// Validate checks that every instruction references existing qubits and
// classical bits, that gate arities and parameter counts match, and that no
// instruction names the same qubit twice.
func (c *Circuit) Validate() error {
	if c.NumQubits < 0 || c.NumClbits < 0 {
		return fmt.Errorf("%w: negative register size (qubits=%d, clbits=%d)", ErrMalformedInput, c.NumQubits, c.NumClbits)
	}
	if c.NumClbits > MaxClbits {
		return fmt.Errorf("%w: %d classical bits exceed %d", ErrMalformedInput, c.NumClbits, MaxClbits)
	}
	for i, ins := range c.Instructions {
		seen := make(map[int]bool, len(ins.Qubits))
		for _, q := range ins.Qubits {
			if q < 0 || q >= c.NumQubits {
				return fmt.Errorf("%w: instruction %d: qubit %d out of range [0,%d)", ErrInvalidQubitIndex, i, q, c.NumQubits)
			}
			if seen[q] {
				return fmt.Errorf("%w: instruction %d: qubit %d repeated", ErrMalformedInput, i, q)
			}
			seen[q] = true
		}
		switch ins.Kind {
		case OpGate:
			if !ins.Gate.Valid() {
				return fmt.Errorf("%w: instruction %d: %v", ErrUnsupportedGate, i, ins.Gate)
			}
			if len(ins.Qubits) != ins.Gate.Arity() {
				return fmt.Errorf("%w: instruction %d: %v takes %d qubits, got %d", ErrMalformedInput, i, ins.Gate, ins.Gate.Arity(), len(ins.Qubits))
			}
			if n := len(ins.Params); n < ins.Gate.MinParams() || n > ins.Gate.NumParams() {
				return fmt.Errorf("%w: instruction %d: %v takes %d to %d params, got %d", ErrMalformedInput, i, ins.Gate, ins.Gate.MinParams(), ins.Gate.NumParams(), n)
			}
		case OpMeasure:
			if len(ins.Memory) != len(ins.Qubits) {
				return fmt.Errorf("%w: instruction %d: measure has %d qubits but %d memory slots", ErrMalformedInput, i, len(ins.Qubits), len(ins.Memory))
			}
			for _, b := range ins.Memory {
				if b < 0 || b >= c.NumClbits {
					return fmt.Errorf("%w: instruction %d: classical bit %d out of range [0,%d)", ErrMalformedInput, i, b, c.NumClbits)
				}
			}
		}
	}
	return nil
}

// HasMeasurements reports whether any instruction is a measurement.
func (c *Circuit) HasMeasurements() bool {
	for _, ins := range c.Instructions {
		if ins.Kind == OpMeasure {
			return true
		}
	}
	return false
}

// MeasurementsAreTerminal reports whether no gate or reset touches a qubit
// after that qubit has been measured, so the pre-measurement state can be
// sampled repeatedly instead of re-simulated per shot.
func (c *Circuit) MeasurementsAreTerminal() bool {
	measured := make(map[int]bool)
	for _, ins := range c.Instructions {
		switch ins.Kind {
		case OpMeasure:
			for _, q := range ins.Qubits {
				if measured[q] {
					return false
				}
				measured[q] = true
			}
		case OpGate, OpReset:
			for _, q := range ins.Qubits {
				if measured[q] {
					return false
				}
			}
		}
	}
	return true
}

// Remap returns a copy of c with every qubit q replaced by mapping(q).
// Classical bits are left untouched.
func (c *Circuit) Remap(mapping func(int) int) *Circuit {
	out := &Circuit{
		NumQubits:          c.NumQubits,
		NumClbits:          c.NumClbits,
		Instructions:       make([]Instruction, len(c.Instructions)),
		QuantumRegisters:   make(map[string][]int, len(c.QuantumRegisters)),
		ClassicalRegisters: c.ClassicalRegisters,
	}
	for i, ins := range c.Instructions {
		qs := make([]int, len(ins.Qubits))
		for j, q := range ins.Qubits {
			qs[j] = mapping(q)
		}
		ins.Qubits = qs
		out.Instructions[i] = ins
	}
	for name, qs := range c.QuantumRegisters {
		mapped := make([]int, len(qs))
		for j, q := range qs {
			mapped[j] = mapping(q)
		}
		out.QuantumRegisters[name] = mapped
	}
	return out
}

// CircuitShape holds the features the time estimator consumes.
type CircuitShape struct {
	NumQubits         int
	NumGates          int
	NumTwoQubitGates  int
	NumMeasurements   int
	MaxComponentWidth int
}

// Shape extracts the estimator features of c.
func (c *Circuit) Shape() CircuitShape {
	s := CircuitShape{NumQubits: c.NumQubits}
	for _, ins := range c.Instructions {
		switch ins.Kind {
		case OpGate:
			s.NumGates++
			if len(ins.Qubits) >= 2 {
				s.NumTwoQubitGates++
			}
		case OpMeasure:
			s.NumMeasurements += len(ins.Qubits)
		}
	}
	for _, comp := range topo.ConnectedComponents(InteractionGraph(c)) {
		if len(comp) > s.MaxComponentWidth {
			s.MaxComponentWidth = len(comp)
		}
	}
	return s
}

// InteractionGraph builds the weighted qubit-interaction graph of c: one node
// per qubit, and an edge between every pair of qubits that share a
// multi-qubit gate, weighted by the number of such gates.
func InteractionGraph(c *Circuit) *simple.WeightedUndirectedGraph {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for q := 0; q < c.NumQubits; q++ {
		g.AddNode(simple.Node(q))
	}
	for _, ins := range c.Instructions {
		if ins.Kind != OpGate || len(ins.Qubits) < 2 {
			continue
		}
		for i := 0; i < len(ins.Qubits); i++ {
			for j := i + 1; j < len(ins.Qubits); j++ {
				AddInteraction(g, ins.Qubits[i], ins.Qubits[j], 1)
			}
		}
	}
	return g
}

// AddInteraction adds w to the weight of edge (a, b), creating it if absent.
func AddInteraction(g *simple.WeightedUndirectedGraph, a, b int, w float64) {
	if a == b {
		return
	}
	if e := g.WeightedEdge(int64(a), int64(b)); e != nil {
		w += e.Weight()
	}
	g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(a), simple.Node(b), w))
}
