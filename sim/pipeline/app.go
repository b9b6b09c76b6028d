// Package pipeline executes circuits end to end: it holds a candidate list,
// selects and configures a backend through the sim.Selector, runs the circuit
// for the requested number of shots and aggregates outcome counts.
package pipeline

import (
	"math/rand"
	"sync"
	"time"

	"github.com/inference-sim/qdispatch/sim"
	_ "github.com/inference-sim/qdispatch/sim/backend"
	_ "github.com/inference-sim/qdispatch/sim/estimator"
)

// App is the application context shared by every Simulator: one registry,
// one selector, one metrics set and one PartitionedRNG. There is no
// process-global instance.
type App struct {
	registry  *sim.Registry
	selector  *sim.Selector
	estimator sim.TimeEstimator
	metrics   *sim.Metrics

	rngMu sync.Mutex
	rng   *sim.PartitionedRNG

	// MaxSimulators caps selection attempts when the execution
	// configuration does not; <= 0 means one attempt per candidate.
	MaxSimulators int
}

// NewApp wires an App over factory and est. A nil factory defers to
// sim.NewBackendFunc; metrics may be nil. The App starts with a time-seeded
// RNG until SetSeed is called.
func NewApp(factory sim.BackendFactory, est sim.TimeEstimator, metrics *sim.Metrics) *App {
	registry := sim.NewRegistry(factory, metrics)
	a := &App{
		registry:  registry,
		selector:  sim.NewSelector(registry, est, metrics),
		estimator: est,
		metrics:   metrics,
	}
	a.SetSeed(time.Now().UnixNano())
	return a
}

// NewDefaultApp wires the registered backends and estimator.
func NewDefaultApp(metrics *sim.Metrics) (*App, error) {
	est, err := sim.NewDefaultTimeEstimator()
	if err != nil {
		return nil, err
	}
	return NewApp(nil, est, metrics), nil
}

// SetSeed replaces the App's RNG. Instances created afterwards are seeded
// from it, as are optimisers of executions that carry no seed of their own.
func (a *App) SetSeed(seed int64) {
	rng := sim.NewPartitionedRNG(seed)
	a.rngMu.Lock()
	a.rng = rng
	a.rngMu.Unlock()
	a.registry.SetRNG(rng)
}

// optimiserRand returns a fresh source for one optimiser run, drawn from
// the App's optimiser stream.
func (a *App) optimiserRand() *rand.Rand {
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return rand.New(rand.NewSource(a.rng.ForSubsystem(sim.SubsystemOptimiser).Int63()))
}

func (a *App) Registry() *sim.Registry { return a.registry }
func (a *App) Selector() *sim.Selector { return a.selector }
func (a *App) Estimator() sim.TimeEstimator { return a.estimator }
func (a *App) Metrics() *sim.Metrics { return a.metrics }
