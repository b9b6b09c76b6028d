package boundary

import "github.com/inference-sim/qdispatch/sim"

// applyGate returns 1 when g was applied and 0 for a nil reference, a
// negative qubit or an index the instance rejects.
func applyGate(ref *SimRef, g sim.Gate, qubits []int, params ...float64) int {
	for _, q := range qubits {
		if q < 0 {
			return 0
		}
	}
	return status(ref, func(inst sim.Simulator) error { return inst.ApplyGate(g, qubits, params...) })
}

func ApplyX(ref *SimRef, qubit int) int { return applyGate(ref, sim.GateX, []int{qubit}) }
func ApplyY(ref *SimRef, qubit int) int { return applyGate(ref, sim.GateY, []int{qubit}) }
func ApplyZ(ref *SimRef, qubit int) int { return applyGate(ref, sim.GateZ, []int{qubit}) }
func ApplyH(ref *SimRef, qubit int) int { return applyGate(ref, sim.GateH, []int{qubit}) }
func ApplyS(ref *SimRef, qubit int) int { return applyGate(ref, sim.GateS, []int{qubit}) }
func ApplySDG(ref *SimRef, qubit int) int { return applyGate(ref, sim.GateSDG, []int{qubit}) }
func ApplyT(ref *SimRef, qubit int) int { return applyGate(ref, sim.GateT, []int{qubit}) }
func ApplyTDG(ref *SimRef, qubit int) int { return applyGate(ref, sim.GateTDG, []int{qubit}) }
func ApplySX(ref *SimRef, qubit int) int { return applyGate(ref, sim.GateSX, []int{qubit}) }
func ApplySXDG(ref *SimRef, qubit int) int { return applyGate(ref, sim.GateSXDG, []int{qubit}) }
func ApplyK(ref *SimRef, qubit int) int { return applyGate(ref, sim.GateK, []int{qubit}) }

func ApplyP(ref *SimRef, qubit int, theta float64) int {
	return applyGate(ref, sim.GateP, []int{qubit}, theta)
}

func ApplyRx(ref *SimRef, qubit int, theta float64) int {
	return applyGate(ref, sim.GateRX, []int{qubit}, theta)
}

func ApplyRy(ref *SimRef, qubit int, theta float64) int {
	return applyGate(ref, sim.GateRY, []int{qubit}, theta)
}

func ApplyRz(ref *SimRef, qubit int, theta float64) int {
	return applyGate(ref, sim.GateRZ, []int{qubit}, theta)
}

// ApplyU applies the generic single-qubit unitary with a global phase gamma.
func ApplyU(ref *SimRef, qubit int, theta, phi, lambda, gamma float64) int {
	return applyGate(ref, sim.GateU, []int{qubit}, theta, phi, lambda, gamma)
}

func ApplyCX(ref *SimRef, control, target int) int {
	return applyGate(ref, sim.GateCX, []int{control, target})
}

func ApplyCY(ref *SimRef, control, target int) int {
	return applyGate(ref, sim.GateCY, []int{control, target})
}

func ApplyCZ(ref *SimRef, control, target int) int {
	return applyGate(ref, sim.GateCZ, []int{control, target})
}

func ApplyCH(ref *SimRef, control, target int) int {
	return applyGate(ref, sim.GateCH, []int{control, target})
}

func ApplyCSX(ref *SimRef, control, target int) int {
	return applyGate(ref, sim.GateCSX, []int{control, target})
}

func ApplyCSXDG(ref *SimRef, control, target int) int {
	return applyGate(ref, sim.GateCSXDG, []int{control, target})
}

func ApplyCP(ref *SimRef, control, target int, theta float64) int {
	return applyGate(ref, sim.GateCP, []int{control, target}, theta)
}

func ApplyCRx(ref *SimRef, control, target int, theta float64) int {
	return applyGate(ref, sim.GateCRX, []int{control, target}, theta)
}

func ApplyCRy(ref *SimRef, control, target int, theta float64) int {
	return applyGate(ref, sim.GateCRY, []int{control, target}, theta)
}

func ApplyCRz(ref *SimRef, control, target int, theta float64) int {
	return applyGate(ref, sim.GateCRZ, []int{control, target}, theta)
}

func ApplyCCX(ref *SimRef, control1, control2, target int) int {
	return applyGate(ref, sim.GateCCX, []int{control1, control2, target})
}

func ApplySwap(ref *SimRef, qubit1, qubit2 int) int {
	return applyGate(ref, sim.GateSwap, []int{qubit1, qubit2})
}

func ApplyCSwap(ref *SimRef, control, qubit1, qubit2 int) int {
	return applyGate(ref, sim.GateCSwap, []int{control, qubit1, qubit2})
}

func ApplyCU(ref *SimRef, control, target int, theta, phi, lambda, gamma float64) int {
	return applyGate(ref, sim.GateCU, []int{control, target}, theta, phi, lambda, gamma)
}
