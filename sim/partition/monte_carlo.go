package partition

import (
	"math"
	"math/rand"
)

// monteCarlo is simulated annealing over capacity-preserving moves. It makes
// exactly numSteps proposals and keeps the best assignment seen.
type monteCarlo struct {
	*base
	rng *rand.Rand
}

func (o *monteCarlo) Optimise(numSteps int) int {
	if numSteps <= 0 || o.n < 2 || len(o.caps) < 2 {
		return o.cuts
	}
	assign, load := copyInts(o.assign), copyInts(o.load)
	current := o.cuts
	best, bestCuts := copyInts(assign), current

	// Starting temperature: the mean edge weight seen from a qubit.
	t0 := 0.0
	for _, ns := range o.adj {
		for _, nb := range ns {
			t0 += float64(nb.weight)
		}
	}
	t0 = math.Max(t0/float64(o.n), 1)

	for step := 0; step < numSteps; step++ {
		m, ok := o.propose(assign, load)
		if !ok {
			continue
		}
		d := o.delta(assign, m)
		temp := t0 * (1 - float64(step)/float64(numSteps))
		if d > 0 && (temp <= 0 || o.rng.Float64() >= math.Exp(-float64(d)/temp)) {
			continue
		}
		o.apply(assign, load, m)
		current += d
		if current < bestCuts {
			best, bestCuts = copyInts(assign), current
		}
	}
	o.setAssignment(best)
	return o.cuts
}

// propose picks a random qubit and a random other partition: a relocation
// if that partition has room, otherwise a swap with one of its qubits.
func (o *monteCarlo) propose(assign, load []int) (move, bool) {
	q := o.rng.Intn(o.n)
	p := o.rng.Intn(len(o.caps) - 1)
	if p >= assign[q] {
		p++
	}
	if load[p] < o.caps[p] {
		return move{q: q, r: -1, to: p}, true
	}
	if load[p] == 0 {
		return move{}, false
	}
	k := o.rng.Intn(load[p])
	for r, pr := range assign {
		if pr != p {
			continue
		}
		if k == 0 {
			return move{q: q, r: r}, true
		}
		k--
	}
	return move{}, false
}
