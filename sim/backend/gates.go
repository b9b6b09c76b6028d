package backend

import (
	"math"
	"math/cmplx"

	"github.com/inference-sim/qdispatch/sim"
)

// matrix2 is a single-qubit unitary in row-major order.
type matrix2 [2][2]complex128

var (
	invSqrt2 = complex(1/math.Sqrt2, 0)

	matX    = matrix2{{0, 1}, {1, 0}}
	matY    = matrix2{{0, -1i}, {1i, 0}}
	matZ    = matrix2{{1, 0}, {0, -1}}
	matH    = matrix2{{invSqrt2, invSqrt2}, {invSqrt2, -invSqrt2}}
	matS    = matrix2{{1, 0}, {0, 1i}}
	matSDG  = matrix2{{1, 0}, {0, -1i}}
	matT    = matrix2{{1, 0}, {0, cmplx.Exp(1i * math.Pi / 4)}}
	matTDG  = matrix2{{1, 0}, {0, cmplx.Exp(-1i * math.Pi / 4)}}
	matSX   = matrix2{{0.5 + 0.5i, 0.5 - 0.5i}, {0.5 - 0.5i, 0.5 + 0.5i}}
	matSXDG = matrix2{{0.5 - 0.5i, 0.5 + 0.5i}, {0.5 + 0.5i, 0.5 - 0.5i}}
	matK    = matrix2{{invSqrt2, -1i * invSqrt2}, {1i * invSqrt2, -invSqrt2}}
)

func phase(theta float64) matrix2 {
	return matrix2{{1, 0}, {0, cmplx.Exp(complex(0, theta))}}
}

func rx(theta float64) matrix2 {
	c, s := complex(math.Cos(theta/2), 0), complex(math.Sin(theta/2), 0)
	return matrix2{{c, -1i * s}, {-1i * s, c}}
}

func ry(theta float64) matrix2 {
	c, s := complex(math.Cos(theta/2), 0), complex(math.Sin(theta/2), 0)
	return matrix2{{c, -s}, {s, c}}
}

func rz(theta float64) matrix2 {
	return matrix2{{cmplx.Exp(complex(0, -theta/2)), 0}, {0, cmplx.Exp(complex(0, theta/2))}}
}

// u is U(θ, φ, λ) scaled by the global phase e^{iγ}.
func u(theta, phi, lambda, gamma float64) matrix2 {
	c, s := complex(math.Cos(theta/2), 0), complex(math.Sin(theta/2), 0)
	g := cmplx.Exp(complex(0, gamma))
	return matrix2{
		{g * c, -g * cmplx.Exp(complex(0, lambda)) * s},
		{g * cmplx.Exp(complex(0, phi)) * s, g * cmplx.Exp(complex(0, phi+lambda)) * c},
	}
}

func param(params []float64, i int) float64 {
	if i < len(params) {
		return params[i]
	}
	return 0
}

// gateMatrix returns the target matrix and the number of leading control
// qubits for every gate except the swap family.
func gateMatrix(g sim.Gate, params []float64) (m matrix2, controls int) {
	switch g {
	case sim.GateX:
		return matX, 0
	case sim.GateY:
		return matY, 0
	case sim.GateZ:
		return matZ, 0
	case sim.GateH:
		return matH, 0
	case sim.GateS:
		return matS, 0
	case sim.GateSDG:
		return matSDG, 0
	case sim.GateT:
		return matT, 0
	case sim.GateTDG:
		return matTDG, 0
	case sim.GateSX:
		return matSX, 0
	case sim.GateSXDG:
		return matSXDG, 0
	case sim.GateK:
		return matK, 0
	case sim.GateP:
		return phase(param(params, 0)), 0
	case sim.GateRX:
		return rx(param(params, 0)), 0
	case sim.GateRY:
		return ry(param(params, 0)), 0
	case sim.GateRZ:
		return rz(param(params, 0)), 0
	case sim.GateU:
		return u(param(params, 0), param(params, 1), param(params, 2), param(params, 3)), 0
	case sim.GateCX:
		return matX, 1
	case sim.GateCY:
		return matY, 1
	case sim.GateCZ:
		return matZ, 1
	case sim.GateCH:
		return matH, 1
	case sim.GateCSX:
		return matSX, 1
	case sim.GateCSXDG:
		return matSXDG, 1
	case sim.GateCP:
		return phase(param(params, 0)), 1
	case sim.GateCRX:
		return rx(param(params, 0)), 1
	case sim.GateCRY:
		return ry(param(params, 0)), 1
	case sim.GateCRZ:
		return rz(param(params, 0)), 1
	case sim.GateCU:
		return u(param(params, 0), param(params, 1), param(params, 2), param(params, 3)), 1
	case sim.GateCCX:
		return matX, 2
	}
	panic("gateMatrix: no matrix for " + g.String())
}

func pauliMatrix(p byte) (matrix2, bool) {
	switch p {
	case 'I', 'i':
		return matrix2{{1, 0}, {0, 1}}, true
	case 'X', 'x':
		return matX, true
	case 'Y', 'y':
		return matY, true
	case 'Z', 'z':
		return matZ, true
	}
	return matrix2{}, false
}
