// register.go wires the default estimator into the sim package's registration
// variable (NewTimeEstimatorFunc). This init() runs when any package imports
// sim/estimator, breaking the import cycle between sim/ (interface owner) and
// sim/estimator/ (implementation).
package estimator

import "github.com/inference-sim/qdispatch/sim"

func init() {
	sim.NewTimeEstimatorFunc = NewDefault
}
