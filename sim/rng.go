package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === Subsystem Constants ===

const (
	// SubsystemOptimiser is the RNG subsystem for partition optimisers.
	SubsystemOptimiser = "optimiser"

	// SubsystemSampling is the RNG subsystem for pipeline-level sampling seeds.
	// Uses master seed directly.
	SubsystemSampling = "sampling"
)

// SubsystemInstance returns the subsystem name for the instance behind handle h.
// The Registry seeds each new instance from it.
func SubsystemInstance(h Handle) string {
	return fmt.Sprintf("instance_%d", uint64(h))
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemSampling: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: ForSubsystem is NOT thread-safe. SeedFor and Seed only read
// the master seed and may be called concurrently.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a master seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.SeedFor(name)))
	p.subsystems[name] = rng
	return rng
}

// SeedFor returns the derived seed for a subsystem without caching an RNG.
// Used to hand seeds to backends through their "seed" configuration key.
func (p *PartitionedRNG) SeedFor(name string) int64 {
	if name == SubsystemSampling {
		return p.seed
	}
	return p.seed ^ fnv1a64(name)
}

// Seed returns the master seed.
func (p *PartitionedRNG) Seed() int64 {
	return p.seed
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
