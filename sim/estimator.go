package sim

import "math"

// EstimateUnknown is the sentinel prediction for (type, method) pairs the
// estimator has no model for. It sorts after every real estimate.
const EstimateUnknown = math.MaxFloat64

// TimeEstimator predicts the execution time of a circuit on a backend.
// Implementations must be total and side-effect free; predictions are
// non-negative and comparable across candidates for the same circuit.
type TimeEstimator interface {
	EstimateTime(t BackendType, m MethodType, shape CircuitShape) float64
}

// EstimationResult is the predicted cost of one candidate.
type EstimationResult struct {
	Candidate
	Time float64
}

// NewTimeEstimatorFunc is set by sim/estimator's init() and builds the
// default estimator from its embedded coefficient table.
var NewTimeEstimatorFunc func() (TimeEstimator, error)

// NewDefaultTimeEstimator builds the registered default estimator.
// Panics if no estimator package has been imported.
func NewDefaultTimeEstimator() (TimeEstimator, error) {
	if NewTimeEstimatorFunc == nil {
		panic(`sim.NewTimeEstimatorFunc is nil (add: import _ "github.com/inference-sim/qdispatch/sim/estimator")`)
	}
	return NewTimeEstimatorFunc()
}
