package sim

import "fmt"

// Gate is a unitary operation understood by every backend.
type Gate int

const (
	GateX Gate = iota
	GateY
	GateZ
	GateH
	GateS
	GateSDG
	GateT
	GateTDG
	GateSX
	GateSXDG
	GateK
	GateP
	GateRX
	GateRY
	GateRZ
	GateU
	GateCX
	GateCY
	GateCZ
	GateCH
	GateCSX
	GateCSXDG
	GateCP
	GateCRX
	GateCRY
	GateCRZ
	GateCCX
	GateSwap
	GateCSwap
	GateCU
)

type gateInfo struct {
	name     string
	arity    int
	params   int
	clifford bool
}

var gateTable = map[Gate]gateInfo{
	GateX:     {"x", 1, 0, true},
	GateY:     {"y", 1, 0, true},
	GateZ:     {"z", 1, 0, true},
	GateH:     {"h", 1, 0, true},
	GateS:     {"s", 1, 0, true},
	GateSDG:   {"sdg", 1, 0, true},
	GateT:     {"t", 1, 0, false},
	GateTDG:   {"tdg", 1, 0, false},
	GateSX:    {"sx", 1, 0, true},
	GateSXDG:  {"sxdg", 1, 0, true},
	GateK:     {"k", 1, 0, true},
	GateP:     {"p", 1, 1, false},
	GateRX:    {"rx", 1, 1, false},
	GateRY:    {"ry", 1, 1, false},
	GateRZ:    {"rz", 1, 1, false},
	GateU:     {"u", 1, 4, false},
	GateCX:    {"cx", 2, 0, true},
	GateCY:    {"cy", 2, 0, true},
	GateCZ:    {"cz", 2, 0, true},
	GateCH:    {"ch", 2, 0, false},
	GateCSX:   {"csx", 2, 0, false},
	GateCSXDG: {"csxdg", 2, 0, false},
	GateCP:    {"cp", 2, 1, false},
	GateCRX:   {"crx", 2, 1, false},
	GateCRY:   {"cry", 2, 1, false},
	GateCRZ:   {"crz", 2, 1, false},
	GateCCX:   {"ccx", 3, 0, false},
	GateSwap:  {"swap", 2, 0, true},
	GateCSwap: {"cswap", 3, 0, false},
	GateCU:    {"cu", 2, 4, false},
}

var gatesByName = func() map[string]Gate {
	m := make(map[string]Gate, len(gateTable))
	for g, info := range gateTable {
		m[info.name] = g
	}
	// qiskit aliases
	m["cnot"] = GateCX
	m["toffoli"] = GateCCX
	m["fredkin"] = GateCSwap
	m["u1"] = GateP
	m["id"] = -1
	return m
}()

func (g Gate) String() string {
	if info, ok := gateTable[g]; ok {
		return info.name
	}
	return fmt.Sprintf("gate(%d)", int(g))
}

// Arity is the number of qubits the gate acts on (controls first, targets last).
func (g Gate) Arity() int { return gateTable[g].arity }

// NumParams is the maximum number of angle parameters the gate takes.
func (g Gate) NumParams() int { return gateTable[g].params }

// MinParams is the number of angle parameters the gate requires. U and CU
// may omit the trailing global phase, which then defaults to zero.
func (g Gate) MinParams() int {
	if g == GateU || g == GateCU {
		return gateTable[g].params - 1
	}
	return gateTable[g].params
}

// IsClifford reports whether the gate maps Pauli operators to Pauli operators.
func (g Gate) IsClifford() bool { return gateTable[g].clifford }

// Valid reports whether g is a known gate.
func (g Gate) Valid() bool {
	_, ok := gateTable[g]
	return ok
}

// ParseGate maps a lowercase gate name to its Gate. The identity gate
// ("id") parses successfully with ok == false so callers can drop it.
func ParseGate(name string) (g Gate, ok bool, err error) {
	g, found := gatesByName[name]
	if !found {
		return 0, false, fmt.Errorf("%w: %q", ErrUnsupportedGate, name)
	}
	if g < 0 {
		return 0, false, nil
	}
	return g, true, nil
}
