package pipeline

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inference-sim/qdispatch/sim"
	"github.com/inference-sim/qdispatch/sim/backend"
	"github.com/inference-sim/qdispatch/sim/internal/testutil"
	"github.com/inference-sim/qdispatch/sim/partition"
	"github.com/inference-sim/qdispatch/sim/qjson"
)

const bellRXTheta = 0.39528385768119634

const bellRXDocument = `{"instructions": [
	{"name": "h", "qubits": [0], "params": []},
	{"name": "cx", "qubits": [0, 1], "params": []},
	{"name": "rx", "qubits": [0], "params": [0.39528385768119634]},
	{"name": "measure", "qubits": [0], "memory": [0]},
	{"name": "measure", "qubits": [1], "memory": [3]}],
 "num_qubits": 2, "num_clbits": 4,
 "quantum_registers": {"q": [0, 1]},
 "classical_registers": {"c": [0, 1], "other_measure_name": [2], "meas": [3]}}`

func newDefaultApp(t *testing.T) *App {
	t.Helper()
	app, err := NewDefaultApp(nil)
	require.NoError(t, err)
	return app
}

func seeded(shots int, seed int64) *qjson.ExecConfig {
	cfg := qjson.DefaultExecConfig()
	cfg.Shots = shots
	cfg.Seed = &seed
	return cfg
}

func gate(g sim.Gate, qubits ...int) sim.Instruction {
	return sim.Instruction{Kind: sim.OpGate, Gate: g, Qubits: qubits}
}

func measure(qubits, memory []int) sim.Instruction {
	return sim.Instruction{Kind: sim.OpMeasure, Qubits: qubits, Memory: memory}
}

func TestExecuteJSON_BellRXDocument(t *testing.T) {
	// GIVEN the Bell+RX document measuring qubit 1 into classical bit 3
	s := New(newDefaultApp(t), 2)
	defer s.Close()

	// WHEN it runs for 100 shots
	out, err := s.ExecuteJSON([]byte(bellRXDocument), []byte(`{"shots": 100, "seed": 42}`))
	require.NoError(t, err)

	// THEN every key is four characters wide, only bits 0 and 3 vary,
	// and the counts sum to the shot count
	res, err := qjson.ParseResult(out)
	require.NoError(t, err)
	assert.Equal(t, 100, testutil.CountsTotal(res.Counts))
	for key := range res.Counts {
		require.Len(t, key, 4)
		assert.Equal(t, "00", key[1:3], "classical bits 1 and 2 are never written")
	}
	assert.Equal(t, Executed, s.State())
}

func TestExecute_BellRXDistribution(t *testing.T) {
	// GIVEN the Bell+RX circuit with analytically known outcome probabilities
	c, err := qjson.ParseCircuit([]byte(bellRXDocument))
	require.NoError(t, err)
	cos2 := math.Pow(math.Cos(bellRXTheta/2), 2) / 2
	sin2 := math.Pow(math.Sin(bellRXTheta/2), 2) / 2
	keys := []string{"0000", "1001", "1000", "0001"}
	probs := []float64{cos2, cos2, sin2, sin2}

	// WHEN it runs for many shots
	const shots = 20000
	s := New(newDefaultApp(t), 2)
	counts, err := s.Execute(c, seeded(shots, 7))
	require.NoError(t, err)

	// THEN the observed counts fit the expected distribution
	observed := make([]float64, len(keys))
	expected := make([]float64, len(keys))
	seen := 0
	for i, k := range keys {
		observed[i] = float64(counts[k])
		expected[i] = probs[i] * shots
		seen += counts[k]
	}
	assert.Equal(t, shots, seen, "no outcome outside the four reachable ones")
	chi := stat.ChiSquare(observed, expected)
	p := distuv.ChiSquared{K: float64(len(keys) - 1)}.Survival(chi)
	assert.Greater(t, p, 1e-4, "chi-square %.3f against %v", chi, counts)
}

func TestExecute_ReferenceCircuits(t *testing.T) {
	app := newDefaultApp(t)
	for _, rc := range testutil.LoadReferenceDataset(t).Circuits {
		t.Run(rc.Name, func(t *testing.T) {
			c, err := qjson.ParseCircuit(rc.Circuit)
			require.NoError(t, err)
			s := New(app, c.NumQubits)
			defer s.Close()

			counts, err := s.Execute(c, seeded(64, 3))
			require.NoError(t, err)
			assert.Equal(t, 64, testutil.CountsTotal(counts))

			// The final state survives execution for inspection.
			got, err := s.Simulator().AllProbabilities()
			require.NoError(t, err)
			want := rc.Expected(t, c.NumQubits)
			require.Len(t, got, len(want))
			for i := range want {
				assert.InDelta(t, want[i], got[i], 1e-9, "state %d", i)
			}
			for key := range counts {
				var idx int
				for b, ch := range key {
					if ch == '1' {
						idx |= 1 << b
					}
				}
				assert.Greater(t, want[idx], 0.0, "sampled unreachable outcome %s", key)
			}
		})
	}
	assert.Zero(t, app.Registry().Len(), "closed simulators release their instances")
}

func TestExecute_ZeroShots(t *testing.T) {
	s := New(newDefaultApp(t), 1)
	counts, err := s.Execute(&sim.Circuit{NumQubits: 1, Instructions: []sim.Instruction{gate(sim.GateH, 0)}}, seeded(0, 1))
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestExecute_WideUnentangledCircuit(t *testing.T) {
	const n = 30
	composite := sim.Candidate{Type: sim.CompositeQCSim, Method: sim.Statevector}

	t.Run("measured", func(t *testing.T) {
		// GIVEN X on every odd qubit of a register too wide for a dense engine
		c := &sim.Circuit{NumQubits: n, NumClbits: n}
		want := make([]byte, n)
		qubits := make([]int, n)
		for q := 0; q < n; q++ {
			qubits[q] = q
			want[q] = '0'
			if q%2 == 1 {
				c.Instructions = append(c.Instructions, gate(sim.GateX, q))
				want[q] = '1'
			}
		}
		c.Instructions = append(c.Instructions, measure(qubits, qubits))

		// WHEN it executes with the default candidates
		s := New(newDefaultApp(t), n)
		counts, err := s.Execute(c, seeded(5, 3))

		// THEN the composite engine runs it and every shot reads the same bits
		require.NoError(t, err)
		assert.Equal(t, composite, s.LastSelection().Candidate)
		assert.Equal(t, map[string]int{string(want): 5}, counts)
	})

	t.Run("unmeasured", func(t *testing.T) {
		// GIVEN H on every qubit and no measurement
		c := &sim.Circuit{NumQubits: n}
		for q := 0; q < n; q++ {
			c.Instructions = append(c.Instructions, gate(sim.GateH, q))
		}

		// WHEN it executes
		s := New(newDefaultApp(t), n)
		counts, err := s.Execute(c, seeded(5, 3))

		// THEN all qubits are sampled
		require.NoError(t, err)
		assert.Equal(t, composite, s.LastSelection().Candidate)
		assert.Equal(t, 5, testutil.CountsTotal(counts))
		for key := range counts {
			assert.Len(t, key, n)
		}
	})
}

func TestExecute_SeedIsReproducible(t *testing.T) {
	// GIVEN two simulators and one seeded configuration
	c, err := qjson.ParseCircuit([]byte(bellRXDocument))
	require.NoError(t, err)
	app := newDefaultApp(t)

	// WHEN both execute the same circuit
	a, err := New(app, 2).Execute(c, seeded(500, 99))
	require.NoError(t, err)
	b, err := New(app, 2).Execute(c, seeded(500, 99))
	require.NoError(t, err)

	// THEN the counts are identical
	assert.Equal(t, a, b)
}

func TestExecute_AppSeedCoversUnseededRuns(t *testing.T) {
	c := &sim.Circuit{NumQubits: 4, NumClbits: 4, Instructions: []sim.Instruction{
		gate(sim.GateH, 0), gate(sim.GateH, 1), gate(sim.GateCX, 0, 2), gate(sim.GateRY, 3),
		measure([]int{0, 1, 2, 3}, []int{0, 1, 2, 3}),
	}}
	c.Instructions[3].Params = []float64{0.7}
	run := func() map[string]int {
		// GIVEN an App seeded once and an execution carrying no seed
		app := newDefaultApp(t)
		app.SetSeed(31)
		cfg := qjson.DefaultExecConfig()
		cfg.Shots = 300
		cfg.Optimiser = partition.MonteCarlo
		cfg.OptimiserSteps = 40

		counts, err := New(app, 4).Execute(c, cfg)
		require.NoError(t, err)
		return counts
	}

	// THEN optimiser and sampling both follow the App seed
	assert.Equal(t, run(), run())
}

func TestExecute_MidCircuitMeasurement(t *testing.T) {
	// GIVEN a circuit whose second gate depends on an earlier measurement
	c := &sim.Circuit{NumQubits: 2, NumClbits: 2, Instructions: []sim.Instruction{
		gate(sim.GateH, 0),
		measure([]int{0}, []int{0}),
		gate(sim.GateCX, 0, 1),
		measure([]int{1}, []int{1}),
	}}
	require.False(t, sampleable(c))

	// WHEN it runs shot by shot
	counts, err := New(newDefaultApp(t), 2).Execute(c, seeded(200, 5))
	require.NoError(t, err)

	// THEN the two classical bits always agree
	assert.Equal(t, 200, testutil.CountsTotal(counts))
	for key := range counts {
		assert.Contains(t, []string{"00", "11"}, key)
	}
	assert.Len(t, counts, 2, "both branches occur in 200 shots")
}

func TestExecute_ResetBetweenMeasurements(t *testing.T) {
	c := &sim.Circuit{NumQubits: 1, NumClbits: 2, Instructions: []sim.Instruction{
		gate(sim.GateX, 0),
		measure([]int{0}, []int{0}),
		{Kind: sim.OpReset, Qubits: []int{0}},
		measure([]int{0}, []int{1}),
	}}
	counts, err := New(newDefaultApp(t), 1).Execute(c, seeded(10, 1))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"10": 10}, counts)
}

func TestExecute_LaterMeasurementOverwritesClassicalBit(t *testing.T) {
	c := &sim.Circuit{NumQubits: 2, NumClbits: 1, Instructions: []sim.Instruction{
		gate(sim.GateX, 1),
		measure([]int{0, 1}, []int{0, 0}),
	}}
	counts, err := New(newDefaultApp(t), 2).Execute(c, seeded(4, 1))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"1": 4}, counts)
}

func TestExecute_HighestClassicalBit(t *testing.T) {
	// GIVEN a measurement into the last representable classical bit
	c := &sim.Circuit{NumQubits: 1, NumClbits: sim.MaxClbits, Instructions: []sim.Instruction{
		gate(sim.GateX, 0),
		measure([]int{0}, []int{sim.MaxClbits - 1}),
	}}

	// WHEN it executes
	counts, err := New(newDefaultApp(t), 1).Execute(c, seeded(3, 1))

	// THEN the bit is reported
	require.NoError(t, err)
	want := make([]byte, sim.MaxClbits)
	for i := range want {
		want[i] = '0'
	}
	want[sim.MaxClbits-1] = '1'
	assert.Equal(t, map[string]int{string(want): 3}, counts)

	// AND one more classical bit is rejected instead of dropped
	c.NumClbits++
	_, err = New(newDefaultApp(t), 1).Execute(c, seeded(3, 1))
	assert.ErrorIs(t, err, sim.ErrMalformedInput)
}

func TestExecute_OptimiserRemapIsTransparent(t *testing.T) {
	// GIVEN a circuit whose interactions straddle the trivial two-way split
	c := &sim.Circuit{NumQubits: 4, NumClbits: 4, Instructions: []sim.Instruction{
		gate(sim.GateX, 0),
		gate(sim.GateCX, 0, 2),
		gate(sim.GateCX, 1, 3),
	}}
	measured := &sim.Circuit{NumQubits: 4, NumClbits: 4, Instructions: append(append([]sim.Instruction(nil), c.Instructions...),
		measure([]int{0, 1, 2, 3}, []int{0, 1, 2, 3}))}

	for _, name := range []string{partition.Greedy, partition.MonteCarlo, partition.Optimal, partition.Clifford} {
		t.Run(name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			app, err := NewDefaultApp(sim.NewMetrics(reg))
			require.NoError(t, err)
			cfg := seeded(16, 11)
			cfg.Optimiser = name
			cfg.OptimiserSteps = 500

			// WHEN it runs with the optimiser enabled
			plain, err := New(app, 4).Execute(c, cfg)
			require.NoError(t, err)
			withMeasure, err := New(app, 4).Execute(measured, cfg)
			require.NoError(t, err)

			// THEN outcomes are reported in the circuit's own qubit numbering
			assert.Equal(t, map[string]int{"1010": 16}, plain)
			assert.Equal(t, map[string]int{"1010": 16}, withMeasure)
			assert.Equal(t, 0.0, promtest.ToFloat64(app.Metrics().OptimiserCuts.WithLabelValues(name)))
		})
	}
}

func TestExecute_CliffordRemapWithSwaps(t *testing.T) {
	// GIVEN a state moved across wires by a SWAP before it is used as a control
	c := &sim.Circuit{NumQubits: 4, Instructions: []sim.Instruction{
		gate(sim.GateX, 0),
		gate(sim.GateSwap, 0, 2),
		gate(sim.GateCX, 2, 1),
	}}
	cfg := seeded(8, 2)
	cfg.Optimiser = partition.Clifford
	cfg.OptimiserSteps = 50

	// WHEN it runs with the clifford optimiser
	counts, err := New(newDefaultApp(t), 4).Execute(c, cfg)

	// THEN the wire mapping leaves the outcome unchanged
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"0110": 8}, counts)
}

func TestSimulator_StateMachine(t *testing.T) {
	app := newDefaultApp(t)
	s := New(app, 1)
	c := &sim.Circuit{NumQubits: 1, Instructions: []sim.Instruction{gate(sim.GateX, 0)}}

	assert.Equal(t, Unconfigured, s.State())
	_, err := s.Execute(c, nil)
	require.NoError(t, err)
	assert.Equal(t, Executed, s.State())
	require.NotNil(t, s.Simulator())

	s.Configure(sim.ConfigMaxBondDimension, "8")
	assert.Equal(t, Configured, s.State())
	assert.Nil(t, s.Simulator(), "configuration discards the instance")
	assert.Zero(t, app.Registry().Len())

	_, err = s.Execute(c, nil)
	require.NoError(t, err)
	assert.Equal(t, "8", s.Simulator().Configuration(sim.ConfigMaxBondDimension), "stored settings reach the next instance")

	s.Close()
	assert.Equal(t, Closed, s.State())
	assert.Zero(t, app.Registry().Len())
	_, err = s.Execute(c, nil)
	assert.ErrorIs(t, err, sim.ErrInvalidHandle)
}

func TestSimulator_ReusesInstanceUntilReconfigured(t *testing.T) {
	// GIVEN stub backends with qcsim preferred
	stubs := &testutil.StubBackends{}
	est := testutil.FixedEstimator{{Type: sim.QCSim, Method: sim.Statevector}: 1}
	app := NewApp(stubs.Factory, est, nil)
	s := New(app, 2)
	c := &sim.Circuit{NumQubits: 2}

	// WHEN executing with a pass-through setting
	cfg := seeded(3, 8)
	cfg.MaxBondDimension = "16"
	counts, err := s.Execute(c, cfg)
	require.NoError(t, err)

	// THEN the instance received the setting and the sampling seed
	assert.Equal(t, map[string]int{"00": 3}, counts)
	require.Len(t, stubs.Live, 1)
	assert.Equal(t, "16", stubs.Live[0].Config[sim.ConfigMaxBondDimension])
	assert.Equal(t, "8", stubs.Live[0].Config[sim.ConfigSeed])
	assert.Equal(t, sim.Candidate{Type: sim.QCSim, Method: sim.Statevector}, s.LastSelection().Candidate)

	// WHEN executing again without settings
	_, err = s.Execute(c, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stubs.Attempts(), "instance reused")

	// WHEN the candidate list changes
	s.ReplaceCandidates(sim.Candidate{Type: sim.CompositeQCSim, Method: sim.Statevector})
	_, err = s.Execute(c, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stubs.Attempts(), "selection reruns")
	assert.Equal(t, "16", stubs.Live[1].Config[sim.ConfigMaxBondDimension])
	assert.Equal(t, 1, app.Registry().Len())
}

func TestSimulator_GrowsInstanceForWiderCircuit(t *testing.T) {
	app := newDefaultApp(t)
	s := New(app, 1)
	_, err := s.Execute(&sim.Circuit{NumQubits: 1}, nil)
	require.NoError(t, err)
	first := s.Handle()

	_, err = s.Execute(&sim.Circuit{NumQubits: 3, Instructions: []sim.Instruction{gate(sim.GateX, 2)}}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, s.Handle())
	assert.Equal(t, 3, s.Simulator().NumQubits())
}

func TestExecute_SelectionExhausted(t *testing.T) {
	// GIVEN only candidates the native engine does not implement
	s := New(newDefaultApp(t), 2)
	s.ReplaceCandidates(
		sim.Candidate{Type: sim.QiskitAer, Method: sim.MatrixProductState},
		sim.Candidate{Type: sim.GPUSim, Method: sim.Statevector},
	)

	// WHEN executing
	_, err := s.Execute(&sim.Circuit{NumQubits: 2}, nil)

	// THEN selection fails and the attempt record survives
	require.ErrorIs(t, err, sim.ErrSelectionExhausted)
	require.NotNil(t, s.LastSelection())
	assert.Equal(t, 2, s.LastSelection().Attempts)
	assert.Equal(t, sim.NoHandle, s.Handle())
}

func TestExecute_ConfigCandidatesAndCap(t *testing.T) {
	// GIVEN an estimator that prefers the gpu backend the native engine lacks
	est := testutil.FixedEstimator{
		{Type: sim.GPUSim, Method: sim.Statevector}: 1,
		{Type: sim.QCSim, Method: sim.Statevector}:  2,
	}
	s := New(NewApp(backend.New, est, nil), 2)
	cfg, err := qjson.ParseExecConfig([]byte(`{"shots": 2, "max_simulators": 1,
		"simulators": ["gpu:statevector", "qcsim:statevector"]}`))
	require.NoError(t, err)

	// WHEN the configuration caps selection at one attempt
	_, err = s.Execute(&sim.Circuit{NumQubits: 2}, cfg)

	// THEN only the cheapest candidate is tried
	require.ErrorIs(t, err, sim.ErrSelectionExhausted)
	assert.Equal(t, 1, s.LastSelection().Attempts)

	// WHEN the cap is lifted
	cfg.MaxSimulators = 0
	_, err = s.Execute(&sim.Circuit{NumQubits: 2}, cfg)

	// THEN selection falls back to qcsim
	require.NoError(t, err)
	assert.Equal(t, sim.QCSim, s.LastSelection().Type)
}

func TestExecute_RejectsInvalidCircuit(t *testing.T) {
	s := New(newDefaultApp(t), 1)
	_, err := s.Execute(&sim.Circuit{NumQubits: 1, Instructions: []sim.Instruction{gate(sim.GateCX, 0, 0)}}, nil)
	assert.ErrorIs(t, err, sim.ErrMalformedInput)
	_, err = s.Execute(nil, nil)
	assert.ErrorIs(t, err, sim.ErrMalformedInput)
}

func TestExecute_CountsShots(t *testing.T) {
	reg := prometheus.NewRegistry()
	app, err := NewDefaultApp(sim.NewMetrics(reg))
	require.NoError(t, err)
	s := New(app, 1)
	_, err = s.Execute(&sim.Circuit{NumQubits: 1}, seeded(25, 1))
	require.NoError(t, err)
	assert.Equal(t, 25.0, promtest.ToFloat64(app.Metrics().ShotsExecuted))
}

func TestScatter(t *testing.T) {
	assert.Equal(t, uint64(0b1001), scatter(0, 0b11, []int{0, 3}))
	assert.Equal(t, uint64(0b1110), scatter(0b0111, 0b10, []int{0, 3}))
	assert.Equal(t, uint64(0b1), scatter(0, 0b10, []int{0, 0}))
}

func TestNew_PanicsOnNilApp(t *testing.T) {
	assert.Panics(t, func() { New(nil, 1) })
}
