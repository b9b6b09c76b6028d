package qjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/inference-sim/qdispatch/sim"
	"github.com/inference-sim/qdispatch/sim/partition"
)

// Execution configuration keys.
const (
	KeyShots          = "shots"
	KeySeed           = "seed"
	KeyMaxSimulators  = "max_simulators"
	KeyMultithreading = "multithreading"
	KeySimulators     = "simulators"
	KeyOptimiser      = "qubit_partition_optimiser"
	KeyPartitions     = "qubit_partitions"
	KeyOptimiserSteps = "optimiser_steps"

	DefaultShots          = 1
	DefaultPartitions     = 2
	DefaultOptimiserSteps = 10000
)

// ExecConfig is a parsed execution configuration. The three MPS settings are
// carried as strings and applied to the backend verbatim; empty means unset.
type ExecConfig struct {
	Shots               int
	MaxBondDimension    string
	TruncationThreshold string
	MPSSampleAlgorithm  string

	Seed           *int64
	MaxSimulators  int
	Multithreading bool
	Simulators     []sim.Candidate
	Optimiser      string
	Partitions     int
	OptimiserSteps int
}

// DefaultExecConfig returns the configuration of an empty document.
func DefaultExecConfig() *ExecConfig {
	return &ExecConfig{
		Shots:          DefaultShots,
		Optimiser:      partition.None,
		Partitions:     DefaultPartitions,
		OptimiserSteps: DefaultOptimiserSteps,
	}
}

// BackendSettings returns the MPS pass-through keys that are set, in a fixed
// order.
func (c *ExecConfig) BackendSettings() [][2]string {
	var out [][2]string
	for _, kv := range [][2]string{
		{sim.ConfigMaxBondDimension, c.MaxBondDimension},
		{sim.ConfigTruncationThreshold, c.TruncationThreshold},
		{sim.ConfigMPSSampleAlgorithm, c.MPSSampleAlgorithm},
	} {
		if kv[1] != "" {
			out = append(out, kv)
		}
	}
	return out
}

type candidateDocument struct {
	Type   string `json:"type"`
	Method string `json:"method"`
}

// ParseExecConfig decodes an execution configuration. Empty input and
// unrecognized keys are accepted. A missing or non-integer "shots" falls
// back to one shot; a wrongly-typed value for any other recognized key is
// ErrMalformedInput.
func ParseExecConfig(data []byte) (*ExecConfig, error) {
	cfg := DefaultExecConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: config: %v", sim.ErrMalformedInput, err)
	}

	if v, ok := raw[KeyShots]; ok {
		var shots int
		if err := json.Unmarshal(v, &shots); err == nil && shots >= 0 {
			cfg.Shots = shots
		}
	}

	var err error
	if cfg.MaxBondDimension, err = stringSetting(raw, sim.ConfigMaxBondDimension); err != nil {
		return nil, err
	}
	if cfg.TruncationThreshold, err = stringSetting(raw, sim.ConfigTruncationThreshold); err != nil {
		return nil, err
	}
	if cfg.MPSSampleAlgorithm, err = stringSetting(raw, sim.ConfigMPSSampleAlgorithm); err != nil {
		return nil, err
	}

	if v, ok := raw[KeySeed]; ok {
		var seed int64
		if err := json.Unmarshal(v, &seed); err != nil {
			return nil, fmt.Errorf("%w: config: %s: %v", sim.ErrMalformedInput, KeySeed, err)
		}
		cfg.Seed = &seed
	}
	if err := decodeKey(raw, KeyMaxSimulators, &cfg.MaxSimulators); err != nil {
		return nil, err
	}
	if err := decodeKey(raw, KeyMultithreading, &cfg.Multithreading); err != nil {
		return nil, err
	}
	if err := decodeKey(raw, KeyOptimiser, &cfg.Optimiser); err != nil {
		return nil, err
	}
	if !partition.IsValidOptimiser(cfg.Optimiser) {
		return nil, fmt.Errorf("%w: config: unknown %s %q (valid: %v)", sim.ErrMalformedInput, KeyOptimiser, cfg.Optimiser, partition.ValidOptimiserNames())
	}
	if err := decodeKey(raw, KeyPartitions, &cfg.Partitions); err != nil {
		return nil, err
	}
	if cfg.Partitions < 1 {
		return nil, fmt.Errorf("%w: config: %s must be >= 1, got %d", sim.ErrMalformedInput, KeyPartitions, cfg.Partitions)
	}
	if err := decodeKey(raw, KeyOptimiserSteps, &cfg.OptimiserSteps); err != nil {
		return nil, err
	}
	if cfg.OptimiserSteps < 0 {
		return nil, fmt.Errorf("%w: config: %s must be >= 0, got %d", sim.ErrMalformedInput, KeyOptimiserSteps, cfg.OptimiserSteps)
	}

	if v, ok := raw[KeySimulators]; ok {
		var docs []candidateDocument
		if err := json.Unmarshal(v, &docs); err != nil {
			return nil, fmt.Errorf("%w: config: %s: %v", sim.ErrMalformedInput, KeySimulators, err)
		}
		for _, d := range docs {
			c, err := ParseCandidate(d.Type + ":" + d.Method)
			if err != nil {
				return nil, fmt.Errorf("config: %s: %w", KeySimulators, err)
			}
			cfg.Simulators = append(cfg.Simulators, c)
		}
	}
	return cfg, nil
}

func decodeKey(raw map[string]json.RawMessage, key string, dst any) error {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("%w: config: %s: %v", sim.ErrMalformedInput, key, err)
	}
	return nil
}

// stringSetting reads a string-encoded backend setting. Bare numbers are
// accepted and kept in their JSON spelling.
func stringSetting(raw map[string]json.RawMessage, key string) (string, error) {
	v, ok := raw[key]
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("%w: config: %s must be a string", sim.ErrMalformedInput, key)
}

// ParseCandidate parses "type:method", e.g. "qcsim:statevector".
func ParseCandidate(s string) (sim.Candidate, error) {
	typeName, methodName, ok := strings.Cut(s, ":")
	if !ok {
		return sim.Candidate{}, fmt.Errorf("%w: candidate %q is not type:method", sim.ErrMalformedInput, s)
	}
	t, err := sim.ParseBackendType(typeName)
	if err != nil {
		return sim.Candidate{}, err
	}
	m, err := sim.ParseMethodType(methodName)
	if err != nil {
		return sim.Candidate{}, err
	}
	return sim.Candidate{Type: t, Method: m}, nil
}
