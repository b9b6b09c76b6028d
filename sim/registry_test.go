package sim_test

import (
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/qdispatch/sim"
	"github.com/inference-sim/qdispatch/sim/internal/testutil"
)

func TestRegistry_CreateDestroyGet(t *testing.T) {
	// GIVEN a registry over stub backends
	stubs := &testutil.StubBackends{}
	r := sim.NewRegistry(stubs.Factory, nil)

	// WHEN an instance is created and destroyed
	h, err := r.Create(sim.QCSim, sim.Statevector)
	require.NoError(t, err)
	require.NotEqual(t, sim.NoHandle, h)
	inst := r.Get(h)
	require.NotNil(t, inst)
	r.Destroy(h)

	// THEN the handle no longer resolves and the instance was cleared
	assert.Nil(t, r.Get(h))
	assert.Equal(t, 0, r.Len())
	assert.True(t, inst.(*testutil.StubSimulator).Cleared)
}

func TestRegistry_SeedsInstancesPerHandle(t *testing.T) {
	// GIVEN a registry with a seeded RNG
	stubs := &testutil.StubBackends{}
	r := sim.NewRegistry(stubs.Factory, nil)
	rng := sim.NewPartitionedRNG(21)
	r.SetRNG(rng)

	// WHEN two instances are created
	h1, err := r.Create(sim.QCSim, sim.Statevector)
	require.NoError(t, err)
	h2, err := r.Create(sim.QCSim, sim.Statevector)
	require.NoError(t, err)

	// THEN each receives the seed of its own handle
	seed := func(h sim.Handle) string {
		return strconv.FormatInt(rng.SeedFor(sim.SubsystemInstance(h)), 10)
	}
	assert.Equal(t, seed(h1), r.Get(h1).(*testutil.StubSimulator).Config[sim.ConfigSeed])
	assert.Equal(t, seed(h2), r.Get(h2).(*testutil.StubSimulator).Config[sim.ConfigSeed])
	assert.NotEqual(t, seed(h1), seed(h2))

	// AND without an RNG no seed is applied
	plain := sim.NewRegistry(stubs.Factory, nil)
	h, err := plain.Create(sim.QCSim, sim.Statevector)
	require.NoError(t, err)
	_, seeded := plain.Get(h).(*testutil.StubSimulator).Config[sim.ConfigSeed]
	assert.False(t, seeded)
}

func TestRegistry_DestroyIsIdempotent(t *testing.T) {
	r := sim.NewRegistry((&testutil.StubBackends{}).Factory, nil)
	h, err := r.Create(sim.QCSim, sim.Statevector)
	require.NoError(t, err)

	r.Destroy(h)
	r.Destroy(h)
	r.Destroy(sim.NoHandle)
	r.Destroy(sim.Handle(9999))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_GetUnknownHandle(t *testing.T) {
	r := sim.NewRegistry((&testutil.StubBackends{}).Factory, nil)
	assert.Nil(t, r.Get(sim.NoHandle))
	assert.Nil(t, r.Get(sim.Handle(42)))
}

func TestRegistry_CreateFailureReturnsNoHandle(t *testing.T) {
	boom := errors.New("boom")
	stubs := &testutil.StubBackends{FailCreate: map[sim.Candidate]error{
		{Type: sim.GPUSim, Method: sim.Statevector}: boom,
	}}
	r := sim.NewRegistry(stubs.Factory, nil)

	h, err := r.Create(sim.GPUSim, sim.Statevector)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, sim.NoHandle, h)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_HandlesNeverReused(t *testing.T) {
	r := sim.NewRegistry((&testutil.StubBackends{}).Factory, nil)
	seen := make(map[sim.Handle]bool)
	for i := 0; i < 20; i++ {
		h, err := r.Create(sim.QCSim, sim.Statevector)
		require.NoError(t, err)
		assert.False(t, seen[h], "handle %d reused", h)
		seen[h] = true
		r.Destroy(h)
	}
}

func TestRegistry_DefaultsToRegisteredFactory(t *testing.T) {
	// sim/backend's init() registered the native engines.
	r := sim.NewRegistry(nil, nil)
	h, err := r.Create(sim.QCSim, sim.Statevector)
	require.NoError(t, err)
	assert.Equal(t, sim.QCSim, r.Get(h).Type())

	_, err = r.Create(sim.QiskitAer, sim.MatrixProductState)
	assert.ErrorIs(t, err, sim.ErrUnsupportedBackend)
}

func TestRegistry_ConcurrentCreateDestroy(t *testing.T) {
	r := sim.NewRegistry((&testutil.StubBackends{}).Factory, nil)
	const workers, perWorker = 8, 50

	var wg sync.WaitGroup
	handles := make(chan sim.Handle, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				h, err := r.Create(sim.QCSim, sim.Statevector)
				if err != nil {
					t.Error(err)
					return
				}
				handles <- h
				if i%2 == 0 {
					r.Destroy(h)
				}
				_ = r.Get(h)
			}
		}()
	}
	wg.Wait()
	close(handles)

	unique := make(map[sim.Handle]bool)
	for h := range handles {
		unique[h] = true
	}
	assert.Len(t, unique, workers*perWorker)
	assert.Equal(t, workers*perWorker/2, r.Len())

	r.DestroyAll()
	assert.Equal(t, 0, r.Len())
}
