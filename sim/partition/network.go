package partition

// Network is an ordered list of partitions, each able to hold a fixed number
// of qubits.
type Network struct {
	capacities []int
}

// HostNetwork builds a network from per-partition capacities. Non-positive
// capacities are kept as empty partitions.
func HostNetwork(capacities ...int) Network {
	caps := make([]int, len(capacities))
	for i, c := range capacities {
		caps[i] = max(c, 0)
	}
	return Network{capacities: caps}
}

// EqualNetwork splits numQubits qubits across k partitions whose sizes differ
// by at most one, larger partitions first. k < 1 is treated as 1.
func EqualNetwork(numQubits, k int) Network {
	k = max(k, 1)
	numQubits = max(numQubits, 0)
	caps := make([]int, k)
	for i := range caps {
		caps[i] = numQubits / k
		if i < numQubits%k {
			caps[i]++
		}
	}
	return Network{capacities: caps}
}

// NumPartitions returns the number of partitions.
func (n Network) NumPartitions() int { return len(n.capacities) }

// Capacities returns a copy of the per-partition capacities.
func (n Network) Capacities() []int { return append([]int(nil), n.capacities...) }

// fit returns capacities able to hold numQubits: a shortfall is added to
// the last partition, and an empty network becomes a single partition.
func (n Network) fit(numQubits int) []int {
	caps := n.Capacities()
	if len(caps) == 0 {
		return []int{numQubits}
	}
	total := 0
	for _, c := range caps {
		total += c
	}
	if total < numQubits {
		caps[len(caps)-1] += numQubits - total
	}
	return caps
}
