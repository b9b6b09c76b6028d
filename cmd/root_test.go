package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/qdispatch/sim/qjson"
)

const bellCircuit = `{"num_qubits": 2, "num_clbits": 2, "instructions": [
	{"name": "h", "qubits": [0], "params": []},
	{"name": "cx", "qubits": [0, 1], "params": []},
	{"name": "measure", "qubits": [0, 1], "memory": [0, 1]}]}`

const splitCircuit = `{"num_qubits": 4, "num_clbits": 0, "instructions": [
	{"name": "cx", "qubits": [0, 2], "params": []},
	{"name": "cx", "qubits": [1, 3], "params": []}]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runCLI executes the command tree with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(func() { logrus.SetLevel(logrus.WarnLevel) })
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRun_PrintsResultDocument(t *testing.T) {
	// GIVEN a Bell circuit and a configuration with 50 shots
	circuit := writeFile(t, "bell.json", bellCircuit)
	config := writeFile(t, "cfg.json", `{"shots": 50, "seed": 1}`)

	// WHEN run
	out, _, err := runCLI(t, "run", "--circuit", circuit, "--config", config)

	// THEN the result document holds 50 correlated outcomes
	require.NoError(t, err)
	res, err := qjson.ParseResult([]byte(strings.TrimSpace(out)))
	require.NoError(t, err)
	total := 0
	for key, n := range res.Counts {
		assert.Contains(t, []string{"00", "11"}, key)
		total += n
	}
	assert.Equal(t, 50, total)
}

func TestRun_PrintMetrics(t *testing.T) {
	circuit := writeFile(t, "bell.json", bellCircuit)
	_, stderr, err := runCLI(t, "run", "--circuit", circuit, "--print-metrics")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Dispatcher Metrics")
	assert.Contains(t, stderr, "qdispatch_shots_executed_total 1")
	assert.Contains(t, stderr, `qdispatch_selection_attempts_total{backend="qcsim",method="statevector",outcome="selected"} 1`)
}

func TestRun_SimulatorsFlag(t *testing.T) {
	circuit := writeFile(t, "bell.json", bellCircuit)

	_, _, err := runCLI(t, "run", "--circuit", circuit, "--simulators", "gpu:statevector")
	assert.Error(t, err, "only an unavailable backend")

	_, _, err = runCLI(t, "run", "--circuit", circuit, "--simulators", "gpu:statevector,composite-qcsim:statevector")
	assert.NoError(t, err)

	_, _, err = runCLI(t, "run", "--circuit", circuit, "--simulators", "nonsense")
	assert.Error(t, err)
}

func TestRun_MissingCircuit(t *testing.T) {
	_, _, err := runCLI(t, "run")
	assert.ErrorContains(t, err, "no circuit file")
}

func TestRun_InvalidLogLevel(t *testing.T) {
	circuit := writeFile(t, "bell.json", bellCircuit)
	_, _, err := runCLI(t, "run", "--circuit", circuit, "--log", "loud")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestRun_CoefficientsFlag(t *testing.T) {
	circuit := writeFile(t, "bell.json", bellCircuit)
	bad := writeFile(t, "coeffs.yaml", "version: x\nmodels:\n  - backend: qcsim\n    method: statevector\n    beta_coeffs: [1]\n")
	_, _, err := runCLI(t, "run", "--circuit", circuit, "--coefficients", bad)
	assert.Error(t, err, "a table with too few coefficients is rejected")
}

func TestEstimate_RanksEveryPair(t *testing.T) {
	circuit := writeFile(t, "bell.json", bellCircuit)
	out, _, err := runCLI(t, "estimate", "--circuit", circuit)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2+20)
	assert.Contains(t, lines[0], "qubits=2 gates=2 two_qubit=1 measurements=2")
	fields := strings.Fields(lines[2])
	assert.Equal(t, []string{"qcsim", "statevector"}, fields[:2], "cheapest first")
	assert.Equal(t, "true", fields[3])
	assert.Contains(t, lines[len(lines)-1], "unknown", "pairs without a model rank last")
}

func TestPartition_FindsZeroCutSplit(t *testing.T) {
	circuit := writeFile(t, "split.json", splitCircuit)
	out, _, err := runCLI(t, "partition", "--circuit", circuit, "--optimiser", "greedy", "--partitions", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "optimiser: greedy")
	assert.Contains(t, out, "cuts: 2 -> 0")
	assert.Contains(t, out, "qubit map: 0->2 1->0 2->3 3->1")
}

func TestPartition_RejectsUnknownOptimiser(t *testing.T) {
	circuit := writeFile(t, "split.json", splitCircuit)
	_, _, err := runCLI(t, "partition", "--circuit", circuit, "--optimiser", "quantum-annealer")
	assert.ErrorContains(t, err, "unknown optimiser")
}

func TestBackends_ListsAvailability(t *testing.T) {
	out, _, err := runCLI(t, "backends")
	require.NoError(t, err)
	assert.Contains(t, out, "composite-qcsim")
	available := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.HasSuffix(strings.TrimSpace(line), "true") {
			available++
		}
	}
	assert.Equal(t, 2, available)
}
