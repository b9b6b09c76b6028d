// Package estimator provides the regression time estimator used by the
// selector to rank backend candidates. The TimeEstimator interface is defined
// in sim/ (parent package).
package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/inference-sim/qdispatch/sim"
)

// model is one compiled ModelEntry.
// t = beta0 + (beta1*gates + beta2*twoQubitGates + beta3*measurements) * scale(w)
type model struct {
	betaCoeffs []float64
	component  bool
	polynomial bool
	exponent   float64
}

func (m model) scale(shape sim.CircuitShape) float64 {
	w := float64(shape.NumQubits)
	if m.component {
		w = float64(shape.MaxComponentWidth)
	}
	if m.polynomial {
		return math.Pow(w, m.exponent)
	}
	return math.Exp2(w)
}

func (m model) estimate(shape sim.CircuitShape) float64 {
	features := []float64{
		float64(shape.NumGates),
		float64(shape.NumTwoQubitGates),
		float64(shape.NumMeasurements),
	}
	t := m.betaCoeffs[0] + floats.Dot(m.betaCoeffs[1:4], features)*m.scale(shape)
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return sim.EstimateUnknown
	}
	return math.Max(t, 0)
}

// RegressionEstimator predicts execution time from per-pair regression
// models. It is immutable after construction and safe for concurrent use.
type RegressionEstimator struct {
	models map[sim.Candidate]model
}

// NewRegressionEstimator compiles table. Returns an error if any entry names
// an unknown backend or method, repeats a pair, has fewer than 4 beta
// coefficients, contains NaN/Inf, or uses an unknown width or scaling.
func NewRegressionEstimator(table *CoefficientTable) (*RegressionEstimator, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: time estimator: nil coefficient table", sim.ErrMalformedInput)
	}
	e := &RegressionEstimator{models: make(map[sim.Candidate]model, len(table.Models))}
	for i, entry := range table.Models {
		t, err := sim.ParseBackendType(entry.Backend)
		if err != nil {
			return nil, fmt.Errorf("time estimator: models[%d]: %w", i, err)
		}
		m, err := sim.ParseMethodType(entry.Method)
		if err != nil {
			return nil, fmt.Errorf("time estimator: models[%d]: %w", i, err)
		}
		key := sim.Candidate{Type: t, Method: m}
		if _, dup := e.models[key]; dup {
			return nil, fmt.Errorf("%w: time estimator: models[%d]: duplicate entry for %v", sim.ErrMalformedInput, i, key)
		}
		// estimate indexes betaCoeffs[0..3]; validate upfront.
		if len(entry.BetaCoeffs) < 4 {
			return nil, fmt.Errorf("%w: time estimator: %v: BetaCoeffs requires at least 4 elements, got %d", sim.ErrMalformedInput, key, len(entry.BetaCoeffs))
		}
		if err := validateCoeffs(key.String()+".BetaCoeffs", entry.BetaCoeffs); err != nil {
			return nil, err
		}
		compiled := model{betaCoeffs: entry.BetaCoeffs}
		switch entry.Width {
		case WidthQubits, "":
		case WidthComponent:
			compiled.component = true
		default:
			return nil, fmt.Errorf("%w: time estimator: %v: unknown width %q", sim.ErrMalformedInput, key, entry.Width)
		}
		switch entry.Scaling {
		case ScalingExponential, "":
		case ScalingPolynomial:
			if entry.Exponent <= 0 || math.IsNaN(entry.Exponent) || math.IsInf(entry.Exponent, 0) {
				return nil, fmt.Errorf("%w: time estimator: %v: polynomial exponent must be > 0, got %v", sim.ErrMalformedInput, key, entry.Exponent)
			}
			compiled.polynomial = true
			compiled.exponent = entry.Exponent
		default:
			return nil, fmt.Errorf("%w: time estimator: %v: unknown scaling %q", sim.ErrMalformedInput, key, entry.Scaling)
		}
		e.models[key] = compiled
	}
	return e, nil
}

// EstimateTime implements sim.TimeEstimator. Pairs without a model return
// sim.EstimateUnknown.
func (e *RegressionEstimator) EstimateTime(t sim.BackendType, m sim.MethodType, shape sim.CircuitShape) float64 {
	mdl, ok := e.models[sim.Candidate{Type: t, Method: m}]
	if !ok {
		return sim.EstimateUnknown
	}
	return mdl.estimate(shape)
}

// Known reports whether a model exists for (t, m).
func (e *RegressionEstimator) Known(t sim.BackendType, m sim.MethodType) bool {
	_, ok := e.models[sim.Candidate{Type: t, Method: m}]
	return ok
}

// NewDefault builds the estimator from the embedded coefficient table.
func NewDefault() (sim.TimeEstimator, error) {
	return NewRegressionEstimator(DefaultCoefficients())
}

// NewFromFile builds the estimator from the coefficients file at path.
func NewFromFile(path string) (*RegressionEstimator, error) {
	table, err := LoadCoefficients(path)
	if err != nil {
		return nil, err
	}
	return NewRegressionEstimator(table)
}

var _ sim.TimeEstimator = (*RegressionEstimator)(nil)
