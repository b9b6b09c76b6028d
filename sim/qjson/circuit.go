// Package qjson reads and writes the JSON documents exchanged with callers:
// circuits, execution configurations and execution results.
package qjson

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/inference-sim/qdispatch/sim"
)

// CircuitDocument is the wire form of a circuit.
//
//	{"instructions": [{"name": "h", "qubits": [0], "params": []},
//	                  {"name": "measure", "qubits": [0], "memory": [0]}],
//	 "num_qubits": 2, "num_clbits": 1,
//	 "quantum_registers": {"q": [0, 1]}, "classical_registers": {"c": [0]}}
type CircuitDocument struct {
	Instructions       []InstructionDocument `json:"instructions"`
	NumQubits          int                   `json:"num_qubits"`
	NumClbits          int                   `json:"num_clbits"`
	QuantumRegisters   map[string][]int      `json:"quantum_registers,omitempty"`
	ClassicalRegisters map[string][]int      `json:"classical_registers,omitempty"`
}

// InstructionDocument is one entry of CircuitDocument.Instructions.
type InstructionDocument struct {
	Name   string    `json:"name"`
	Qubits []int     `json:"qubits"`
	Params []float64 `json:"params,omitempty"`
	Memory []int     `json:"memory,omitempty"`
}

// Non-gate instruction names.
const (
	NameMeasure = "measure"
	NameReset   = "reset"
	NameBarrier = "barrier"
)

// ParseCircuit decodes and validates a circuit document. Identity gates are
// dropped. A measurement without "memory" writes qubit i to classical bit i.
func ParseCircuit(data []byte) (*sim.Circuit, error) {
	var doc CircuitDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: circuit: %v", sim.ErrMalformedInput, err)
	}
	return doc.Circuit()
}

// Circuit converts the document into a validated sim.Circuit.
func (d *CircuitDocument) Circuit() (*sim.Circuit, error) {
	c := &sim.Circuit{
		NumQubits:          d.NumQubits,
		NumClbits:          d.NumClbits,
		QuantumRegisters:   d.QuantumRegisters,
		ClassicalRegisters: d.ClassicalRegisters,
	}
	for i, doc := range d.Instructions {
		ins := sim.Instruction{
			Qubits: append([]int(nil), doc.Qubits...),
			Params: append([]float64(nil), doc.Params...),
		}
		switch doc.Name {
		case NameMeasure:
			ins.Kind = sim.OpMeasure
			ins.Memory = append([]int(nil), doc.Memory...)
			if doc.Memory == nil {
				ins.Memory = append([]int(nil), doc.Qubits...)
			}
		case NameReset:
			ins.Kind = sim.OpReset
		case NameBarrier:
			ins.Kind = sim.OpBarrier
		default:
			g, ok, err := sim.ParseGate(doc.Name)
			if err != nil {
				return nil, fmt.Errorf("circuit: instruction %d: %w", i, err)
			}
			if !ok {
				continue
			}
			ins.Kind = sim.OpGate
			ins.Gate = g
		}
		c.Instructions = append(c.Instructions, ins)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("circuit: %w", err)
	}
	return c, nil
}

// NewCircuitDocument converts c to its wire form.
func NewCircuitDocument(c *sim.Circuit) *CircuitDocument {
	d := &CircuitDocument{
		NumQubits:          c.NumQubits,
		NumClbits:          c.NumClbits,
		QuantumRegisters:   c.QuantumRegisters,
		ClassicalRegisters: c.ClassicalRegisters,
		Instructions:       make([]InstructionDocument, 0, len(c.Instructions)),
	}
	for _, ins := range c.Instructions {
		doc := InstructionDocument{Qubits: ins.Qubits, Params: ins.Params}
		switch ins.Kind {
		case sim.OpMeasure:
			doc.Name = NameMeasure
			doc.Memory = ins.Memory
		case sim.OpReset:
			doc.Name = NameReset
		case sim.OpBarrier:
			doc.Name = NameBarrier
		default:
			doc.Name = ins.Gate.String()
		}
		d.Instructions = append(d.Instructions, doc)
	}
	return d
}

// EncodeCircuit serializes c.
func EncodeCircuit(c *sim.Circuit) ([]byte, error) {
	return json.Marshal(NewCircuitDocument(c))
}
