package partition

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/inference-sim/qdispatch/sim"
)

// clifford packs qubits by the states they carry: SWAP gates relabel wires
// instead of coupling states, so the connected components of the carrier
// graph are placed into partitions first-fit decreasing, then refined
// greedily. Cuts are always counted on the wire interaction graph.
type clifford struct {
	*base
	components [][]int
}

func (o *clifford) SetNetworkAndCircuit(net Network, c *sim.Circuit) {
	o.base.SetNetworkAndCircuit(net, c)
	o.components = nil
	if c != nil {
		o.components = components(carrierGraph(c))
	}
}

// components lists the connected components of g, each sorted, largest
// first with ties broken by lowest member.
func components(g graph.Undirected) [][]int {
	var comps [][]int
	for _, nodes := range topo.ConnectedComponents(g) {
		comp := make([]int, len(nodes))
		for i, n := range nodes {
			comp[i] = int(n.ID())
		}
		sort.Ints(comp)
		comps = append(comps, comp)
	}
	sort.SliceStable(comps, func(i, j int) bool {
		if len(comps[i]) != len(comps[j]) {
			return len(comps[i]) > len(comps[j])
		}
		return comps[i][0] < comps[j][0]
	})
	return comps
}

// carrierGraph follows each qubit's state through the circuit. A SWAP only
// exchanges which wire carries which state; every other multi-qubit gate
// couples the carriers on its wires. Carrier i starts on wire i.
func carrierGraph(c *sim.Circuit) *simple.WeightedUndirectedGraph {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	carrier := make([]int, c.NumQubits)
	for q := range carrier {
		carrier[q] = q
		g.AddNode(simple.Node(q))
	}
	for _, ins := range c.Instructions {
		if ins.Kind != sim.OpGate || len(ins.Qubits) < 2 {
			continue
		}
		if ins.Gate == sim.GateSwap {
			a, b := ins.Qubits[0], ins.Qubits[1]
			carrier[a], carrier[b] = carrier[b], carrier[a]
			continue
		}
		for i := 0; i < len(ins.Qubits); i++ {
			for j := i + 1; j < len(ins.Qubits); j++ {
				sim.AddInteraction(g, carrier[ins.Qubits[i]], carrier[ins.Qubits[j]], 1)
			}
		}
	}
	return g
}

func (o *clifford) Optimise(numSteps int) int {
	if numSteps <= 0 || o.n < 2 {
		return o.cuts
	}
	assign := o.pack()
	if o.cutsOf(assign) > o.cuts {
		assign = copyInts(o.assign)
	}
	load := make([]int, len(o.caps))
	for _, p := range assign {
		load[p]++
	}
	o.greedyDescent(assign, load, numSteps-1)
	o.setAssignment(assign)
	return o.cuts
}

// pack places whole carrier components first-fit decreasing. A component
// too large for any partition's free room is spread across partitions in
// order.
func (o *clifford) pack() []int {
	assign := make([]int, o.n)
	free := copyInts(o.caps)
	for _, comp := range o.components {
		placed := false
		for p := range free {
			if free[p] >= len(comp) {
				for _, q := range comp {
					assign[q] = p
				}
				free[p] -= len(comp)
				placed = true
				break
			}
		}
		if placed {
			continue
		}
		p := 0
		for _, q := range comp {
			for p < len(free)-1 && free[p] == 0 {
				p++
			}
			assign[q] = p
			free[p]--
		}
	}
	return assign
}
