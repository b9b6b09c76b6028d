package partition

import (
	"gonum.org/v1/gonum/graph/simple"

	"github.com/inference-sim/qdispatch/sim"
)

type neighbour struct {
	qubit  int
	weight int
}

// base holds the bound problem and the current assignment shared by every
// strategy.
type base struct {
	name    string
	n       int
	caps    []int
	adj     [][]neighbour
	assign  []int // qubit → partition
	load    []int // partition → qubits assigned
	cuts    int
	pmap    PartitionMap
	circuit *sim.Circuit
}

func newBase(name string) *base {
	return &base{name: name, caps: []int{0}, load: []int{0}, pmap: IdentityMap(0)}
}

func (b *base) Name() string { return b.name }

func (b *base) SetNetworkAndCircuit(net Network, c *sim.Circuit) {
	b.circuit = c
	b.n = 0
	if c != nil {
		b.n = c.NumQubits
	}
	b.caps = net.fit(b.n)
	var g *simple.WeightedUndirectedGraph
	if c != nil {
		g = sim.InteractionGraph(c)
	}
	b.setGraph(g)
	b.setAssignment(trivialAssignment(b.n, b.caps))
}

// setGraph loads the weighted adjacency lists from g.
func (b *base) setGraph(g *simple.WeightedUndirectedGraph) {
	b.adj = make([][]neighbour, b.n)
	if g == nil {
		return
	}
	edges := g.WeightedEdges()
	for edges.Next() {
		e := edges.WeightedEdge()
		u, v, w := int(e.From().ID()), int(e.To().ID()), int(e.Weight())
		if u < 0 || v < 0 || u >= b.n || v >= b.n || w == 0 {
			continue
		}
		b.adj[u] = append(b.adj[u], neighbour{qubit: v, weight: w})
		b.adj[v] = append(b.adj[v], neighbour{qubit: u, weight: w})
	}
}

// trivialAssignment fills partitions in order with ascending qubit indices.
func trivialAssignment(n int, caps []int) []int {
	assign := make([]int, n)
	p, used := 0, 0
	for q := 0; q < n; q++ {
		for p < len(caps)-1 && used >= caps[p] {
			p++
			used = 0
		}
		assign[q] = p
		used++
	}
	return assign
}

func (b *base) setAssignment(assign []int) {
	b.assign = assign
	b.load = make([]int, len(b.caps))
	for _, p := range assign {
		b.load[p]++
	}
	b.cuts = b.cutsOf(assign)
	b.pmap = NewPartitionMap(assign, len(b.caps))
}

func (b *base) cutsOf(assign []int) int {
	total := 0
	for u, ns := range b.adj {
		for _, nb := range ns {
			if u < nb.qubit && assign[u] != assign[nb.qubit] {
				total += nb.weight
			}
		}
	}
	return total
}

// moveDelta is the cut change from moving q to partition p.
func (b *base) moveDelta(assign []int, q, p int) int {
	from := assign[q]
	if from == p {
		return 0
	}
	delta := 0
	for _, nb := range b.adj[q] {
		switch assign[nb.qubit] {
		case from:
			delta += nb.weight
		case p:
			delta -= nb.weight
		}
	}
	return delta
}

// swapDelta is the cut change from exchanging the partitions of q and r.
func (b *base) swapDelta(assign []int, q, r int) int {
	pq, pr := assign[q], assign[r]
	if pq == pr {
		return 0
	}
	delta := b.moveDelta(assign, q, pr) + b.moveDelta(assign, r, pq)
	// The q–r edge was counted as uncut by both moves but stays cut.
	for _, nb := range b.adj[q] {
		if nb.qubit == r {
			delta += 2 * nb.weight
		}
	}
	return delta
}

// move is a relocation (r < 0) or a swap of q and r.
type move struct {
	q, r, to int
}

func (b *base) apply(assign, load []int, m move) {
	if m.r < 0 {
		load[assign[m.q]]--
		load[m.to]++
		assign[m.q] = m.to
		return
	}
	assign[m.q], assign[m.r] = assign[m.r], assign[m.q]
}

func (b *base) delta(assign []int, m move) int {
	if m.r < 0 {
		return b.moveDelta(assign, m.q, m.to)
	}
	return b.swapDelta(assign, m.q, m.r)
}

// bestMove scans every capacity-preserving relocation and swap and returns
// the one with the lowest delta. Ties keep the first found.
func (b *base) bestMove(assign, load []int) (move, int, bool) {
	var best move
	bestDelta, found := 0, false
	consider := func(m move) {
		d := b.delta(assign, m)
		if !found || d < bestDelta {
			best, bestDelta, found = m, d, true
		}
	}
	for q := 0; q < b.n; q++ {
		for p := range b.caps {
			if p != assign[q] && load[p] < b.caps[p] {
				consider(move{q: q, r: -1, to: p})
			}
		}
		for r := q + 1; r < b.n; r++ {
			if assign[q] != assign[r] {
				consider(move{q: q, r: r})
			}
		}
	}
	return best, bestDelta, found
}

func (b *base) Assignment() []int { return append([]int(nil), b.assign...) }

func (b *base) GetNumCuts() int { return b.cuts }

func (b *base) GetQubitsMap() []int { return b.pmap.Forward() }

func (b *base) GetReverseQubitsMap() []int { return b.pmap.Reverse() }

func (b *base) TranslateQubitToOriginal(q int) int { return b.pmap.QubitToOriginal(q) }

func (b *base) TranslateQubitFromOriginal(q int) int { return b.pmap.QubitFromOriginal(q) }

func (b *base) TranslateStateToOriginal(s uint64) uint64 { return b.pmap.StateToOriginal(s) }

func (b *base) TranslateStateFromOriginal(s uint64) uint64 { return b.pmap.StateFromOriginal(s) }

// greedyDescent applies strictly improving best moves for at most steps
// iterations and returns the number of steps taken.
func (b *base) greedyDescent(assign, load []int, steps int) int {
	taken := 0
	for ; taken < steps; taken++ {
		m, d, ok := b.bestMove(assign, load)
		if !ok || d >= 0 {
			break
		}
		b.apply(assign, load, m)
	}
	return taken
}

func copyInts(s []int) []int { return append([]int(nil), s...) }
