package estimator

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/qdispatch/sim"
)

func table(entries ...ModelEntry) *CoefficientTable {
	return &CoefficientTable{Version: "test", Models: entries}
}

func TestDefaultCoefficients_Compile(t *testing.T) {
	e, err := NewRegressionEstimator(DefaultCoefficients())
	require.NoError(t, err)
	assert.True(t, e.Known(sim.QCSim, sim.Statevector))
	assert.True(t, e.Known(sim.CompositeQCSim, sim.Statevector))
	assert.False(t, e.Known(sim.GPUSim, sim.TensorNetwork))
}

func TestRegisteredFactory(t *testing.T) {
	require.NotNil(t, sim.NewTimeEstimatorFunc)
	est, err := sim.NewDefaultTimeEstimator()
	require.NoError(t, err)
	assert.IsType(t, &RegressionEstimator{}, est)
}

func TestEstimateTime_Formula(t *testing.T) {
	// GIVEN beta = [1, 2, 3, 4] with exponential scaling over qubits
	e, err := NewRegressionEstimator(table(ModelEntry{
		Backend: "qcsim", Method: "statevector", Width: WidthQubits, Scaling: ScalingExponential,
		BetaCoeffs: []float64{1, 2, 3, 4},
	}))
	require.NoError(t, err)

	shape := sim.CircuitShape{NumQubits: 3, NumGates: 5, NumTwoQubitGates: 2, NumMeasurements: 1}

	// THEN t = 1 + (2*5 + 3*2 + 4*1) * 2^3
	got := e.EstimateTime(sim.QCSim, sim.Statevector, shape)
	assert.InDelta(t, 1+(10+6+4)*8.0, got, 1e-9)
}

func TestEstimateTime_PolynomialComponentWidth(t *testing.T) {
	e, err := NewRegressionEstimator(table(ModelEntry{
		Backend: "composite-qcsim", Method: "statevector", Width: WidthComponent,
		Scaling: ScalingPolynomial, Exponent: 2,
		BetaCoeffs: []float64{0, 1, 0, 0},
	}))
	require.NoError(t, err)

	shape := sim.CircuitShape{NumQubits: 30, NumGates: 10, MaxComponentWidth: 3}
	assert.InDelta(t, 10*9.0, e.EstimateTime(sim.CompositeQCSim, sim.Statevector, shape), 1e-9)
}

func TestEstimateTime_UnknownPairIsSentinel(t *testing.T) {
	e, err := NewRegressionEstimator(table())
	require.NoError(t, err)
	assert.Equal(t, sim.EstimateUnknown, e.EstimateTime(sim.QiskitAer, sim.Statevector, sim.CircuitShape{}))
}

func TestEstimateTime_NegativeClampsToZero(t *testing.T) {
	e, err := NewRegressionEstimator(table(ModelEntry{
		Backend: "qcsim", Method: "statevector", BetaCoeffs: []float64{-5, 0, 0, 0},
	}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, e.EstimateTime(sim.QCSim, sim.Statevector, sim.CircuitShape{NumQubits: 2}))
}

func TestEstimateTime_MonotoneInQubits(t *testing.T) {
	est, err := NewDefault()
	require.NoError(t, err)
	prev := -1.0
	for n := 1; n <= 30; n++ {
		shape := sim.CircuitShape{NumQubits: n, NumGates: 10 * n, NumTwoQubitGates: n, MaxComponentWidth: n}
		got := est.EstimateTime(sim.QCSim, sim.Statevector, shape)
		assert.Greater(t, got, prev, "n=%d", n)
		prev = got
	}
}

func TestNewRegressionEstimator_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		entry ModelEntry
	}{
		{"short betas", ModelEntry{Backend: "qcsim", Method: "statevector", BetaCoeffs: []float64{1, 2, 3}}},
		{"NaN beta", ModelEntry{Backend: "qcsim", Method: "statevector", BetaCoeffs: []float64{1, math.NaN(), 3, 4}}},
		{"Inf beta", ModelEntry{Backend: "qcsim", Method: "statevector", BetaCoeffs: []float64{math.Inf(1), 2, 3, 4}}},
		{"unknown backend", ModelEntry{Backend: "abacus", Method: "statevector", BetaCoeffs: []float64{1, 2, 3, 4}}},
		{"unknown method", ModelEntry{Backend: "qcsim", Method: "vibes", BetaCoeffs: []float64{1, 2, 3, 4}}},
		{"unknown width", ModelEntry{Backend: "qcsim", Method: "statevector", Width: "depth", BetaCoeffs: []float64{1, 2, 3, 4}}},
		{"unknown scaling", ModelEntry{Backend: "qcsim", Method: "statevector", Scaling: "linear", BetaCoeffs: []float64{1, 2, 3, 4}}},
		{"zero exponent", ModelEntry{Backend: "qcsim", Method: "statevector", Scaling: ScalingPolynomial, BetaCoeffs: []float64{1, 2, 3, 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegressionEstimator(table(tt.entry))
			assert.ErrorIs(t, err, sim.ErrMalformedInput)
		})
	}
}

func TestNewRegressionEstimator_RejectsDuplicates(t *testing.T) {
	entry := ModelEntry{Backend: "qcsim", Method: "statevector", BetaCoeffs: []float64{1, 2, 3, 4}}
	_, err := NewRegressionEstimator(table(entry, entry))
	assert.ErrorIs(t, err, sim.ErrMalformedInput)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestParseCoefficients_StrictFields(t *testing.T) {
	_, err := ParseCoefficients([]byte("version: x\nmodels:\n  - backend: qcsim\n    methd: statevector\n"))
	assert.ErrorIs(t, err, sim.ErrMalformedInput)
}

func TestLoadCoefficients_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coefficients.yaml")
	content := `version: "t"
models:
  - backend: gpu
    method: statevector
    beta_coeffs: [0.5, 0, 0, 0]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	e, err := NewFromFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, e.EstimateTime(sim.GPUSim, sim.Statevector, sim.CircuitShape{NumQubits: 4}), 1e-12)

	_, err = NewFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
