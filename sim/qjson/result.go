package qjson

import (
	"encoding/json"
	"fmt"

	"github.com/inference-sim/qdispatch/sim"
)

// Result is the execution result document. Each key is a bitstring whose
// character i is classical bit i (qubit i for circuits without
// measurements).
type Result struct {
	Counts map[string]int `json:"counts"`
}

// EncodeResult serializes counts as {"counts": {...}} with sorted keys.
func EncodeResult(counts map[string]int) ([]byte, error) {
	if counts == nil {
		counts = map[string]int{}
	}
	return json.Marshal(Result{Counts: counts})
}

// ParseResult decodes a result document.
func ParseResult(data []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: result: %v", sim.ErrMalformedInput, err)
	}
	return &r, nil
}

// Bitstring renders the low width bits of v, bit 0 first.
func Bitstring(v uint64, width int) string {
	b := make([]byte, width)
	for i := range b {
		b[i] = '0'
		if i < 64 && v>>uint(i)&1 == 1 {
			b[i] = '1'
		}
	}
	return string(b)
}
