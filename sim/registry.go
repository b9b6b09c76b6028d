package sim

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

// Handle is a caller-visible reference to a registry-owned Simulator.
// The zero Handle means "no instance".
type Handle uint64

// NoHandle is the null handle.
const NoHandle Handle = 0

// Registry owns simulator instances behind opaque handles.
//
// Handles are allocated from a monotonic counter and never reused for the
// lifetime of the registry, so a stale handle held by a caller can only ever
// miss. The mutex guards the handle table only; instance state is the
// handle holder's responsibility.
//
// Thread-safety: Create, Get, Destroy and Len are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	next      Handle
	instances map[Handle]Simulator
	factory   BackendFactory
	metrics   *Metrics
	rng       *PartitionedRNG
}

// NewRegistry creates an empty registry. A nil factory defers to
// NewBackendFunc at construction time.
func NewRegistry(factory BackendFactory, metrics *Metrics) *Registry {
	return &Registry{
		instances: make(map[Handle]Simulator),
		factory:   factory,
		metrics:   metrics,
	}
}

// SetRNG makes every later Create seed its instance from the
// SubsystemInstance stream of rng. With no rng, instances seed themselves.
func (r *Registry) SetRNG(rng *PartitionedRNG) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng = rng
}

// Create constructs a (t, m) instance and returns its handle. On failure it
// returns NoHandle and the construction error.
func (r *Registry) Create(t BackendType, m MethodType) (Handle, error) {
	factory := r.factory
	if factory == nil {
		factory = NewBackendFunc
	}
	if factory == nil {
		return NoHandle, fmt.Errorf("%w: no backend factory registered", ErrUnsupportedBackend)
	}
	// Construction may be expensive; keep it outside the table lock.
	inst, err := factory(t, m)
	if err != nil {
		return NoHandle, err
	}
	if inst == nil {
		return NoHandle, fmt.Errorf("%w: factory returned no instance for %v:%v", ErrUnsupportedBackend, t, m)
	}

	r.mu.Lock()
	r.next++
	h := r.next
	if r.rng != nil {
		inst.Configure(ConfigSeed, strconv.FormatInt(r.rng.SeedFor(SubsystemInstance(h)), 10))
	}
	r.instances[h] = inst
	r.mu.Unlock()

	r.metrics.instanceCreated(Candidate{Type: t, Method: m})
	logrus.Debugf("registry: created %v:%v as handle %d", t, m, h)
	return h, nil
}

// Get returns the instance behind h, or nil for NoHandle and unknown handles.
func (r *Registry) Get(h Handle) Simulator {
	if h == NoHandle {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.instances[h]
}

// Destroy releases the instance behind h. Unknown and already-destroyed
// handles are a no-op.
func (r *Registry) Destroy(h Handle) {
	if h == NoHandle {
		return
	}
	r.mu.Lock()
	inst, ok := r.instances[h]
	delete(r.instances, h)
	r.mu.Unlock()
	if !ok {
		return
	}
	inst.Clear()
	r.metrics.instanceDestroyed()
	logrus.Debugf("registry: destroyed handle %d", h)
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// Handles returns the live handles in ascending order.
func (r *Registry) Handles() []Handle {
	r.mu.RLock()
	out := make([]Handle, 0, len(r.instances))
	for h := range r.instances {
		out = append(out, h)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DestroyAll releases every live instance.
func (r *Registry) DestroyAll() {
	for _, h := range r.Handles() {
		r.Destroy(h)
	}
}
