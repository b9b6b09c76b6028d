// Package testutil provides shared test infrastructure for the dispatcher.
// It consolidates the reference-circuit dataset, stub backends and
// assertion helpers used across sim/ and its sub-package tests.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
)

// ReferenceDataset represents the structure of testdata/reference_circuits.json.
type ReferenceDataset struct {
	Circuits []ReferenceCircuit `json:"circuits"`
}

// ReferenceCircuit is one circuit document with its exact final-state
// probabilities. Probabilities maps a decimal basis-state index to its
// probability; absent states have probability zero.
type ReferenceCircuit struct {
	Name          string             `json:"name"`
	Circuit       json.RawMessage    `json:"circuit"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Expected returns the dense probability vector over numQubits qubits.
func (r ReferenceCircuit) Expected(t *testing.T, numQubits int) []float64 {
	t.Helper()
	out := make([]float64, 1<<numQubits)
	for key, p := range r.Probabilities {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(out) {
			t.Fatalf("%s: bad state index %q", r.Name, key)
		}
		out[idx] = p
	}
	return out
}

// LoadReferenceDataset loads the reference circuits from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadReferenceDataset(t *testing.T) *ReferenceDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "reference_circuits.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read reference dataset: %v", err)
	}

	var dataset ReferenceDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse reference dataset: %v", err)
	}
	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// CountsTotal sums an outcome→count table.
func CountsTotal[K comparable](counts map[K]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
