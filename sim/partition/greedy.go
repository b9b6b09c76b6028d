package partition

// greedy applies the best relocation or swap each step while it strictly
// reduces the cut weight.
type greedy struct {
	*base
}

func (o *greedy) Optimise(numSteps int) int {
	if numSteps <= 0 || o.n < 2 {
		return o.cuts
	}
	assign, load := copyInts(o.assign), copyInts(o.load)
	o.greedyDescent(assign, load, numSteps)
	o.setAssignment(assign)
	return o.cuts
}
