// Package sim provides the core of the qdispatch backend dispatcher.
//
// # Reading Guide
//
// Start with these files to understand the dispatch path:
//   - types.go: BackendType / MethodType tags and the Gate set
//   - simulator.go: the Simulator capability interface every backend implements
//   - registry.go: handle → instance ownership
//   - selector.go: estimate, rank and instantiate candidates under an attempt cap
//
// # Architecture
//
// The sim package defines interfaces and bridge types; implementations live in
// sub-packages:
//   - sim/backend/: native dense and composite state-vector engines
//   - sim/estimator/: regression time estimator with YAML coefficient tables
//   - sim/partition/: qubit partition optimisers (monte-carlo, greedy, optimal, clifford, none)
//   - sim/pipeline/: repeated-shot execution of a circuit on a selected backend
//   - sim/qjson/: circuit, configuration and result documents
//   - sim/boundary/: handle and opaque-reference surface for external callers
//
// Sub-packages register their implementations via init() functions that set
// package-level factory variables (NewBackendFunc, NewTimeEstimatorFunc).
//
// # Key Interfaces
//   - Simulator: gate application, measurement, sampling, snapshots, configuration
//   - TimeEstimator: predicted execution time per (backend, method, circuit shape)
package sim
