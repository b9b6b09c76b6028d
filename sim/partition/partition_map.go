package partition

import "fmt"

// PartitionMap is the bijection between original qubit indices and
// partition-local ones. Local numbering concatenates the partitions in
// order, with ascending original indices inside each partition.
type PartitionMap struct {
	forward []int // original → local
	reverse []int // local → original
}

// NewPartitionMap derives the map from a qubit → partition assignment.
// Panics if the result is not a bijection, which indicates a defect in the
// caller's assignment.
func NewPartitionMap(assign []int, numPartitions int) PartitionMap {
	buckets := make([][]int, numPartitions)
	for q, p := range assign {
		if p < 0 || p >= numPartitions {
			panic(fmt.Sprintf("NewPartitionMap: qubit %d assigned to partition %d of %d", q, p, numPartitions))
		}
		buckets[p] = append(buckets[p], q)
	}
	m := PartitionMap{
		forward: make([]int, len(assign)),
		reverse: make([]int, 0, len(assign)),
	}
	for _, bucket := range buckets {
		for _, q := range bucket {
			m.forward[q] = len(m.reverse)
			m.reverse = append(m.reverse, q)
		}
	}
	m.mustBeBijection()
	return m
}

// IdentityMap maps every index to itself.
func IdentityMap(n int) PartitionMap {
	m := PartitionMap{forward: make([]int, n), reverse: make([]int, n)}
	for i := 0; i < n; i++ {
		m.forward[i], m.reverse[i] = i, i
	}
	return m
}

func (m PartitionMap) mustBeBijection() {
	if len(m.forward) != len(m.reverse) {
		panic(fmt.Sprintf("PartitionMap: forward has %d entries, reverse %d", len(m.forward), len(m.reverse)))
	}
	for q, l := range m.forward {
		if l < 0 || l >= len(m.reverse) || m.reverse[l] != q {
			panic(fmt.Sprintf("PartitionMap: forward[%d]=%d is not inverted by reverse", q, l))
		}
	}
}

// Len returns the number of qubits covered.
func (m PartitionMap) Len() int { return len(m.forward) }

// Forward returns a copy of the original → local map.
func (m PartitionMap) Forward() []int { return append([]int(nil), m.forward...) }

// Reverse returns a copy of the local → original map.
func (m PartitionMap) Reverse() []int { return append([]int(nil), m.reverse...) }

func (m PartitionMap) QubitToOriginal(local int) int {
	if local < 0 || local >= len(m.reverse) {
		return local
	}
	return m.reverse[local]
}

func (m PartitionMap) QubitFromOriginal(q int) int {
	if q < 0 || q >= len(m.forward) {
		return q
	}
	return m.forward[q]
}

// StateToOriginal moves every bit of a local basis-state index to the bit
// of its original qubit. Bits above Len() are carried unchanged.
func (m PartitionMap) StateToOriginal(s uint64) uint64 {
	return permuteBits(s, m.reverse)
}

// StateFromOriginal is the inverse of StateToOriginal.
func (m PartitionMap) StateFromOriginal(s uint64) uint64 {
	return permuteBits(s, m.forward)
}

// permuteBits moves bit i of s to bit to[i].
func permuteBits(s uint64, to []int) uint64 {
	n := min(len(to), 64)
	var out uint64
	for i := 0; i < n; i++ {
		if s>>uint(i)&1 == 1 {
			out |= 1 << uint(to[i])
		}
	}
	if n < 64 {
		out |= s &^ (1<<uint(n) - 1)
	}
	return out
}
