package pipeline

import (
	"fmt"
	"math/rand"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/qdispatch/sim"
	"github.com/inference-sim/qdispatch/sim/partition"
	"github.com/inference-sim/qdispatch/sim/qjson"
)

// State is the lifecycle position of a Simulator.
type State int

const (
	Unconfigured State = iota
	Configured
	Executed
	Closed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Executed:
		return "executed"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// DefaultCandidates is the candidate list of a new Simulator.
func DefaultCandidates() []sim.Candidate {
	return []sim.Candidate{
		{Type: sim.QCSim, Method: sim.Statevector},
		{Type: sim.CompositeQCSim, Method: sim.Statevector},
	}
}

// Simulator owns at most one backend instance, chosen from its candidate
// list on first use and re-chosen after any reconfiguration.
//
// State machine: Unconfigured → Configured → Executed → [Configure → Configured].
// Close is terminal from any state.
//
// Thread-safety: NOT thread-safe.
type Simulator struct {
	app        *App
	numQubits  int
	candidates []sim.Candidate
	settings   map[string]string
	handle     sim.Handle
	selection  *sim.Selection
	stale      bool
	state      State
}

// New creates a Simulator for circuits of up to numQubits qubits; larger
// circuits grow the instance on demand.
func New(app *App, numQubits int) *Simulator {
	if app == nil {
		panic("pipeline.New: nil app")
	}
	return &Simulator{
		app:        app,
		numQubits:  max(numQubits, 0),
		candidates: DefaultCandidates(),
		settings:   make(map[string]string),
	}
}

// AddCandidate appends c to the candidate list.
func (s *Simulator) AddCandidate(c sim.Candidate) {
	s.candidates = append(s.candidates, c)
	s.stale = true
}

// ReplaceCandidates drops every candidate and installs cs.
func (s *Simulator) ReplaceCandidates(cs ...sim.Candidate) {
	s.candidates = append([]sim.Candidate(nil), cs...)
	s.stale = true
}

// Candidates returns a copy of the candidate list.
func (s *Simulator) Candidates() []sim.Candidate {
	return append([]sim.Candidate(nil), s.candidates...)
}

// Configure stores a backend setting. The current instance is released, since
// backend settings are not safe to change mid-state; the next execution
// selects a fresh one.
func (s *Simulator) Configure(key, value string) {
	if s.state == Closed {
		return
	}
	s.settings[key] = value
	s.release()
	s.state = Configured
}

// Configuration returns the stored value of key.
func (s *Simulator) Configuration(key string) string { return s.settings[key] }

// Simulator returns the current backend instance, or nil.
func (s *Simulator) Simulator() sim.Simulator { return s.app.registry.Get(s.handle) }

// Handle returns the registry handle of the current instance.
func (s *Simulator) Handle() sim.Handle { return s.handle }

// LastSelection reports the most recent selection, including failed ones.
func (s *Simulator) LastSelection() *sim.Selection { return s.selection }

func (s *Simulator) State() State { return s.state }

// Close releases the backend instance. Further executions fail.
func (s *Simulator) Close() {
	s.release()
	s.state = Closed
}

func (s *Simulator) release() {
	if s.handle != sim.NoHandle {
		s.app.registry.Destroy(s.handle)
		s.handle = sim.NoHandle
	}
}

// ExecuteJSON runs a circuit document under a configuration document and
// returns the result document.
func (s *Simulator) ExecuteJSON(circuitJSON, configJSON []byte) ([]byte, error) {
	c, err := qjson.ParseCircuit(circuitJSON)
	if err != nil {
		return nil, err
	}
	cfg, err := qjson.ParseExecConfig(configJSON)
	if err != nil {
		return nil, err
	}
	counts, err := s.Execute(c, cfg)
	if err != nil {
		return nil, err
	}
	return qjson.EncodeResult(counts)
}

// Execute runs c cfg.Shots times and returns bitstring → count. The counts
// always sum to cfg.Shots. A nil cfg runs one shot with defaults.
func (s *Simulator) Execute(c *sim.Circuit, cfg *qjson.ExecConfig) (map[string]int, error) {
	if s.state == Closed {
		return nil, fmt.Errorf("%w: simulator is closed", sim.ErrInvalidHandle)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: nil circuit", sim.ErrMalformedInput)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = qjson.DefaultExecConfig()
	}

	runID := uuid.NewString()
	start := time.Now()
	logrus.Infof("pipeline[%s]: executing %d instructions over %d qubits, %d shots", runID, len(c.Instructions), c.NumQubits, cfg.Shots)

	for _, kv := range cfg.BackendSettings() {
		s.Configure(kv[0], kv[1])
	}
	if len(cfg.Simulators) > 0 && !slices.Equal(cfg.Simulators, s.candidates) {
		s.ReplaceCandidates(cfg.Simulators...)
	}

	var rng *sim.PartitionedRNG
	if cfg.Seed != nil {
		rng = sim.NewPartitionedRNG(*cfg.Seed)
	}

	run := c
	var opt partition.Optimiser
	if cfg.Optimiser != partition.None && cfg.Partitions > 1 && c.NumQubits > 1 {
		var optRNG *rand.Rand
		if rng != nil {
			optRNG = rng.ForSubsystem(sim.SubsystemOptimiser)
		} else {
			optRNG = s.app.optimiserRand()
		}
		opt = partition.NewOptimiser(cfg.Optimiser, optRNG)
		opt.SetNetworkAndCircuit(partition.EqualNetwork(c.NumQubits, cfg.Partitions), c)
		before := opt.GetNumCuts()
		after := opt.Optimise(cfg.OptimiserSteps)
		s.app.metrics.SetCuts(opt.Name(), float64(after))
		logrus.Infof("pipeline[%s]: %s optimiser cut count %d → %d", runID, opt.Name(), before, after)
		run = c.Remap(opt.TranslateQubitFromOriginal)
	}

	inst, err := s.ensureInstance(run, cfg)
	if err != nil {
		logrus.Warnf("pipeline[%s]: no backend available: %v", runID, err)
		return nil, err
	}
	if rng != nil {
		inst.Configure(sim.ConfigSeed, strconv.FormatInt(rng.SeedFor(sim.SubsystemSampling), 10))
	}

	counts, err := s.run(inst, run, cfg.Shots, opt)
	if err != nil {
		return nil, err
	}
	s.app.metrics.AddShots(cfg.Shots)
	s.state = Executed
	logrus.Infof("pipeline[%s]: %d shots on %v in %v, %d distinct outcomes", runID, cfg.Shots, s.selection.Candidate, time.Since(start), len(counts))
	return counts, nil
}

// ensureInstance reuses the current instance unless candidates or settings
// changed or it is too small for c, and selects a new one otherwise.
func (s *Simulator) ensureInstance(c *sim.Circuit, cfg *qjson.ExecConfig) (sim.Simulator, error) {
	need := max(s.numQubits, c.NumQubits)
	if inst := s.Simulator(); inst != nil && !s.stale && inst.NumQubits() >= need {
		inst.SetMultithreading(cfg.Multithreading)
		return inst, nil
	}
	s.release()

	limit := cfg.MaxSimulators
	if limit == 0 {
		limit = s.app.MaxSimulators
	}
	sel, err := s.app.selector.ChooseBestSimulator(sim.SelectionRequest{
		Candidates:          s.candidates,
		Circuit:             c,
		NumQubits:           need,
		NumClbits:           c.NumClbits,
		MaxBondDimension:    s.settings[sim.ConfigMaxBondDimension],
		TruncationThreshold: s.settings[sim.ConfigTruncationThreshold],
		MPSSampleAlgorithm:  s.settings[sim.ConfigMPSSampleAlgorithm],
		MaxSimulators:       limit,
		Multithreading:      cfg.Multithreading,
	})
	s.selection = sel
	if err != nil {
		return nil, err
	}
	s.handle = sel.Handle
	s.stale = false
	if s.state == Unconfigured {
		s.state = Configured
	}
	inst := s.Simulator()
	keys := make([]string, 0, len(s.settings))
	for k := range s.settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		inst.Configure(k, s.settings[k])
	}
	return inst, nil
}
