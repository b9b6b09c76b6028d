package backend

import "github.com/inference-sim/qdispatch/sim"

func init() {
	sim.NewBackendFunc = New
}
