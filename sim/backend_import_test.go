package sim_test

// Blank import triggers sim/backend's init(), which registers NewBackendFunc.
// This allows registry tests to construct native engines without package sim
// importing sim/backend (which would create an import cycle).
import _ "github.com/inference-sim/qdispatch/sim/backend"
