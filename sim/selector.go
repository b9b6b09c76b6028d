package sim

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// SelectionRequest carries the inputs of ChooseBestSimulator.
// The three MPS strings are passed through to Configure untouched; empty
// strings are not applied.
type SelectionRequest struct {
	Candidates          []Candidate
	Circuit             *Circuit // optional; shape features fall back to NumQubits
	NumQubits           int
	NumClbits           int
	MaxBondDimension    string
	TruncationThreshold string
	MPSSampleAlgorithm  string
	MaxSimulators       int // <= 0 means one attempt per candidate
	Multithreading      bool
}

// Selection is the outcome of ChooseBestSimulator. On failure Handle is
// NoHandle and Executed still records which candidates were tried.
type Selection struct {
	Handle Handle
	Candidate
	Attempts  int
	Executed  []bool             // indexed like SelectionRequest.Candidates
	Estimates []EstimationResult // ascending by predicted time, ties in input order
}

// Selector ranks candidates by predicted time and instantiates the first
// one that constructs and allocates successfully.
type Selector struct {
	registry  *Registry
	estimator TimeEstimator
	metrics   *Metrics
}

// NewSelector creates a Selector over registry and estimator.
func NewSelector(registry *Registry, estimator TimeEstimator, metrics *Metrics) *Selector {
	if registry == nil {
		panic("NewSelector: nil registry")
	}
	if estimator == nil {
		panic("NewSelector: nil estimator")
	}
	return &Selector{registry: registry, estimator: estimator, metrics: metrics}
}

// Rank returns the estimate for every candidate, sorted ascending by
// predicted time. Ties keep input order. The returned order slice maps
// ranked position to input index.
func (s *Selector) Rank(candidates []Candidate, shape CircuitShape) (ranked []EstimationResult, order []int) {
	estimates := make([]float64, len(candidates))
	order = make([]int, len(candidates))
	for i, c := range candidates {
		estimates[i] = s.estimator.EstimateTime(c.Type, c.Method, shape)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return estimates[order[a]] < estimates[order[b]]
	})
	ranked = make([]EstimationResult, len(order))
	for pos, idx := range order {
		ranked[pos] = EstimationResult{Candidate: candidates[idx], Time: estimates[idx]}
	}
	return ranked, order
}

// ChooseBestSimulator tries candidates cheapest-first, at most MaxSimulators
// times, and returns the first instance that constructs, accepts the
// pass-through configuration and allocates NumQubits. An instance from a
// failed attempt is destroyed before the next attempt, so at most one
// instance survives selection.
//
// Attempts are sequential: each one changes the registry's instance count,
// which must stay consistent with the attempt cap.
func (s *Selector) ChooseBestSimulator(req SelectionRequest) (*Selection, error) {
	shape := CircuitShape{NumQubits: req.NumQubits, MaxComponentWidth: req.NumQubits}
	if req.Circuit != nil {
		shape = req.Circuit.Shape()
		if req.NumQubits > shape.NumQubits {
			shape.NumQubits = req.NumQubits
		}
	}

	ranked, order := s.Rank(req.Candidates, shape)
	sel := &Selection{
		Executed:  make([]bool, len(req.Candidates)),
		Estimates: ranked,
	}

	limit := req.MaxSimulators
	if limit <= 0 || limit > len(order) {
		limit = len(order)
	}

	var lastErr error
	for pos := 0; pos < limit; pos++ {
		idx := order[pos]
		c := req.Candidates[idx]
		sel.Attempts++
		sel.Executed[idx] = true

		h, err := s.tryCandidate(c, req)
		if err != nil {
			lastErr = err
			s.metrics.selectionAttempt(c, "failed")
			logrus.Warnf("selector: attempt %d/%d %v (est=%.3g) failed: %v", sel.Attempts, limit, c, ranked[pos].Time, err)
			continue
		}
		s.metrics.selectionAttempt(c, "selected")
		logrus.Infof("selector: attempt %d/%d selected %v (est=%.3g) as handle %d", sel.Attempts, limit, c, ranked[pos].Time, h)
		sel.Handle = h
		sel.Candidate = c
		return sel, nil
	}

	if lastErr != nil {
		return sel, fmt.Errorf("%w after %d of %d candidates: %w", ErrSelectionExhausted, sel.Attempts, len(req.Candidates), lastErr)
	}
	return sel, fmt.Errorf("%w: no candidates", ErrSelectionExhausted)
}

func (s *Selector) tryCandidate(c Candidate, req SelectionRequest) (Handle, error) {
	h, err := s.registry.Create(c.Type, c.Method)
	if err != nil {
		return NoHandle, err
	}
	inst := s.registry.Get(h)
	if req.MaxBondDimension != "" {
		inst.Configure(ConfigMaxBondDimension, req.MaxBondDimension)
	}
	if req.TruncationThreshold != "" {
		inst.Configure(ConfigTruncationThreshold, req.TruncationThreshold)
	}
	if req.MPSSampleAlgorithm != "" {
		inst.Configure(ConfigMPSSampleAlgorithm, req.MPSSampleAlgorithm)
	}
	inst.SetMultithreading(req.Multithreading)
	if req.NumQubits > 0 {
		if _, err := inst.AllocateQubits(req.NumQubits); err != nil {
			s.registry.Destroy(h)
			return NoHandle, err
		}
	}
	if err := inst.Initialize(); err != nil {
		s.registry.Destroy(h)
		return NoHandle, err
	}
	return h, nil
}
