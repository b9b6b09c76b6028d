package sim

import (
	"fmt"
	"sort"
)

// BackendType identifies a simulation engine family.
// The numeric values are part of the boundary encoding and must not change.
type BackendType int

const (
	QiskitAer          BackendType = 0
	QCSim              BackendType = 1
	CompositeQiskitAer BackendType = 2
	CompositeQCSim     BackendType = 3
	GPUSim             BackendType = 4
)

// MethodType identifies the execution strategy within a backend.
type MethodType int

const (
	Statevector        MethodType = 0
	MatrixProductState MethodType = 1
	Stabilizer         MethodType = 2
	TensorNetwork      MethodType = 3
)

var backendNames = map[BackendType]string{
	QiskitAer:          "aer",
	QCSim:              "qcsim",
	CompositeQiskitAer: "composite-aer",
	CompositeQCSim:     "composite-qcsim",
	GPUSim:             "gpu",
}

var methodNames = map[MethodType]string{
	Statevector:        "statevector",
	MatrixProductState: "mps",
	Stabilizer:         "stabilizer",
	TensorNetwork:      "tensor-network",
}

func (t BackendType) String() string {
	if name, ok := backendNames[t]; ok {
		return name
	}
	return fmt.Sprintf("backend(%d)", int(t))
}

func (m MethodType) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// Valid reports whether t is one of the closed set of backend types.
func (t BackendType) Valid() bool {
	_, ok := backendNames[t]
	return ok
}

// Valid reports whether m is one of the closed set of method types.
func (m MethodType) Valid() bool {
	_, ok := methodNames[m]
	return ok
}

// ParseBackendType maps a backend name (e.g. "qcsim") to its tag.
func ParseBackendType(name string) (BackendType, error) {
	for t, n := range backendNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown backend type %q (valid: %v)", ErrMalformedInput, name, BackendTypeNames())
}

// ParseMethodType maps a method name (e.g. "statevector") to its tag.
func ParseMethodType(name string) (MethodType, error) {
	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown method type %q (valid: %v)", ErrMalformedInput, name, MethodTypeNames())
}

// BackendTypeNames returns all backend names in encoding order.
func BackendTypeNames() []string {
	return sortedNames(backendNames)
}

// MethodTypeNames returns all method names in encoding order.
func MethodTypeNames() []string {
	return sortedNames(methodNames)
}

func sortedNames[K ~int](m map[K]string) []string {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = m[K(k)]
	}
	return names
}

// Candidate is one (backend type, method) pair the selector may try.
type Candidate struct {
	Type   BackendType
	Method MethodType
}

func (c Candidate) String() string {
	return c.Type.String() + ":" + c.Method.String()
}

// AllCandidates enumerates every (type, method) pair in encoding order.
func AllCandidates() []Candidate {
	var out []Candidate
	for t := QiskitAer; t <= GPUSim; t++ {
		for m := Statevector; m <= TensorNetwork; m++ {
			out = append(out, Candidate{Type: t, Method: m})
		}
	}
	return out
}
