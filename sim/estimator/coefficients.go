package estimator

import (
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/qdispatch/sim"
)

//go:embed coefficients.yaml
var defaultCoefficients []byte

// Width selectors for ModelEntry.Width.
const (
	WidthQubits    = "qubits"
	WidthComponent = "component"
)

// Scaling laws for ModelEntry.Scaling.
const (
	ScalingExponential = "exponential"
	ScalingPolynomial  = "polynomial"
)

// CoefficientTable is the coefficients YAML document.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type CoefficientTable struct {
	Version string       `yaml:"version"`
	Models  []ModelEntry `yaml:"models"`
}

// ModelEntry is the fitted model for one (backend, method) pair.
type ModelEntry struct {
	Backend    string    `yaml:"backend"`
	Method     string    `yaml:"method"`
	Width      string    `yaml:"width"`
	Scaling    string    `yaml:"scaling"`
	Exponent   float64   `yaml:"exponent"`
	BetaCoeffs []float64 `yaml:"beta_coeffs"`
	BestLoss   float64   `yaml:"best_loss"` // Calibration metric from coefficient fitting; not used at runtime
}

// ParseCoefficients decodes a coefficients document with strict field
// checking: typos must cause errors.
func ParseCoefficients(data []byte) (*CoefficientTable, error) {
	var table CoefficientTable
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&table); err != nil {
		return nil, fmt.Errorf("%w: coefficients: %v", sim.ErrMalformedInput, err)
	}
	return &table, nil
}

// LoadCoefficients reads and parses the coefficients file at path.
func LoadCoefficients(path string) (*CoefficientTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("coefficients: %w", err)
	}
	return ParseCoefficients(data)
}

// DefaultCoefficients returns the table compiled into the binary.
func DefaultCoefficients() *CoefficientTable {
	table, err := ParseCoefficients(defaultCoefficients)
	if err != nil {
		panic(fmt.Sprintf("estimator: embedded coefficients are invalid: %v", err))
	}
	return table
}

// validateCoeffs checks for NaN or Inf in a coefficient slice.
func validateCoeffs(name string, coeffs []float64) error {
	for i, c := range coeffs {
		if math.IsNaN(c) {
			return fmt.Errorf("%w: time estimator: %s[%d] is NaN", sim.ErrMalformedInput, name, i)
		}
		if math.IsInf(c, 0) {
			return fmt.Errorf("%w: time estimator: %s[%d] is Inf", sim.ErrMalformedInput, name, i)
		}
	}
	return nil
}
