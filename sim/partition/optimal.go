package partition

// optimal is a depth-first branch and bound over qubit assignments. The
// search visits at most numSteps nodes; when the cap is reached the best
// complete assignment found so far is kept.
type optimal struct {
	*base
}

func (o *optimal) Optimise(numSteps int) int {
	if numSteps <= 0 || o.n < 2 {
		return o.cuts
	}
	s := &search{
		base:     o.base,
		budget:   numSteps,
		partial:  make([]int, o.n),
		load:     make([]int, len(o.caps)),
		best:     copyInts(o.assign),
		bestCuts: o.cuts,
	}
	for i := range s.partial {
		s.partial[i] = -1
	}
	s.visit(0, 0)
	o.setAssignment(s.best)
	return o.cuts
}

type search struct {
	*base
	budget   int
	partial  []int
	load     []int
	best     []int
	bestCuts int
}

// visit assigns qubit q given that qubits < q carry cut weight cuts among
// themselves.
func (s *search) visit(q, cuts int) {
	if s.budget <= 0 || cuts >= s.bestCuts {
		return
	}
	s.budget--
	if q == s.n {
		s.best, s.bestCuts = copyInts(s.partial), cuts
		return
	}
	// Partitions that are still empty are interchangeable when they have the
	// same capacity; trying the first of each capacity class is enough.
	triedEmpty := make(map[int]bool)
	for p := range s.caps {
		if s.load[p] >= s.caps[p] {
			continue
		}
		if s.load[p] == 0 {
			if triedEmpty[s.caps[p]] {
				continue
			}
			triedEmpty[s.caps[p]] = true
		}
		added := 0
		for _, nb := range s.adj[q] {
			if pn := s.partial[nb.qubit]; pn >= 0 && pn != p {
				added += nb.weight
			}
		}
		s.partial[q] = p
		s.load[p]++
		s.visit(q+1, cuts+added)
		s.load[p]--
		s.partial[q] = -1
	}
}
