package pipeline

import (
	"fmt"

	"github.com/inference-sim/qdispatch/sim"
	"github.com/inference-sim/qdispatch/sim/partition"
	"github.com/inference-sim/qdispatch/sim/qjson"
)

// sampleable reports whether one simulation can stand in for every shot:
// no reset, and no instruction after a qubit's measurement touches it.
func sampleable(c *sim.Circuit) bool {
	for _, ins := range c.Instructions {
		if ins.Kind == sim.OpReset {
			return false
		}
	}
	return c.MeasurementsAreTerminal()
}

// applyUnitary applies one gate, reset or barrier instruction.
func applyUnitary(inst sim.Simulator, ins sim.Instruction) error {
	switch ins.Kind {
	case sim.OpGate:
		return inst.ApplyGate(ins.Gate, ins.Qubits, ins.Params...)
	case sim.OpReset:
		return inst.ApplyReset(ins.Qubits)
	}
	return nil
}

// run executes c shots times on inst. opt, when set, translates
// whole-register outcomes back to original qubit numbering.
func (s *Simulator) run(inst sim.Simulator, c *sim.Circuit, shots int, opt partition.Optimiser) (map[string]int, error) {
	counts := make(map[string]int)
	if shots <= 0 {
		return counts, nil
	}
	measured := c.HasMeasurements()
	if sampleable(c) {
		if err := inst.Reset(); err != nil {
			return nil, err
		}
		var qubits, memory []int
		for _, ins := range c.Instructions {
			if ins.Kind == sim.OpMeasure {
				qubits = append(qubits, ins.Qubits...)
				memory = append(memory, ins.Memory...)
				continue
			}
			if err := applyUnitary(inst, ins); err != nil {
				return nil, err
			}
		}
		if !measured {
			qubits = make([]int, c.NumQubits)
			for q := range qubits {
				qubits[q] = q
			}
		}
		sampled, err := inst.SampleCounts(qubits, shots)
		if err != nil {
			return nil, err
		}
		for outcome, n := range sampled {
			if measured {
				counts[qjson.Bitstring(scatter(0, outcome, memory), c.NumClbits)] += n
				continue
			}
			counts[qjson.Bitstring(toOriginal(opt, outcome), c.NumQubits)] += n
		}
		return counts, nil
	}

	for shot := 0; shot < shots; shot++ {
		if err := inst.Reset(); err != nil {
			return nil, err
		}
		var clbits uint64
		for _, ins := range c.Instructions {
			if ins.Kind != sim.OpMeasure {
				if err := applyUnitary(inst, ins); err != nil {
					return nil, err
				}
				continue
			}
			outcome, err := inst.Measure(ins.Qubits)
			if err != nil {
				return nil, err
			}
			clbits = scatter(clbits, outcome, ins.Memory)
		}
		if measured {
			counts[qjson.Bitstring(clbits, c.NumClbits)]++
			continue
		}
		outcome, err := inst.MeasureNoCollapse()
		if err != nil {
			return nil, err
		}
		if c.NumQubits < 64 {
			outcome &= 1<<uint(c.NumQubits) - 1
		}
		counts[qjson.Bitstring(toOriginal(opt, outcome), c.NumQubits)]++
	}
	if total := countsTotal(counts); total != shots {
		return nil, fmt.Errorf("pipeline: recorded %d outcomes for %d shots", total, shots)
	}
	return counts, nil
}

// scatter writes bit j of outcome into classical bit memory[j] of clbits.
// Later writes to the same classical bit win.
func scatter(clbits, outcome uint64, memory []int) uint64 {
	for j, b := range memory {
		clbits &^= 1 << uint(b)
		clbits |= (outcome >> uint(j) & 1) << uint(b)
	}
	return clbits
}

func toOriginal(opt partition.Optimiser, outcome uint64) uint64 {
	if opt == nil {
		return outcome
	}
	return opt.TranslateStateToOriginal(outcome)
}

func countsTotal(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
