package analysis

import (
	"fmt"
	"math"

	"github.com/edp1096/trimbench/internal/consts"
	"github.com/edp1096/trimbench/pkg/circuit"
	"github.com/edp1096/trimbench/pkg/device"
)

type BaseAnalysis struct {
	Circuit     *circuit.Circuit
	convergence struct {
		maxIter int
		abstol  float64
		reltol  float64
		gmin    float64
	}
}

func NewBaseAnalysis() *BaseAnalysis {
	ba := &BaseAnalysis{}

	ba.convergence.maxIter = 100
	ba.convergence.abstol = consts.ABSTOL
	ba.convergence.reltol = consts.RELTOL
	ba.convergence.gmin = consts.GMIN

	return ba
}

func (a *BaseAnalysis) CheckConvergence(oldSol, newSol []float64) bool {
	if len(oldSol) != len(newSol) {
		return false
	}

	for i := 1; i < len(newSol); i++ {
		diff := math.Abs(newSol[i] - oldSol[i])
		tol := a.convergence.reltol*math.Max(math.Abs(newSol[i]), math.Abs(oldSol[i])) + a.convergence.abstol
		if diff > tol {
			return false
		}
	}
	return true
}

// doNRiter runs Newton iterations at the given status until two successive
// solutions agree.
func (a *BaseAnalysis) doNRiter(status *device.CircuitStatus, maxIter int) error {
	ckt := a.Circuit
	mat := ckt.GetMatrix()
	var oldSolution []float64

	for iter := range maxIter {
		mat.Clear()

		if err := ckt.Stamp(status); err != nil {
			return fmt.Errorf("stamping error: %w", err)
		}
		mat.LoadGmin(status.Gmin)

		if err := mat.Solve(); err != nil {
			return fmt.Errorf("matrix solve error: %w", err)
		}

		solution := mat.Solution()
		if iter > 0 && a.CheckConvergence(oldSolution, solution) {
			return nil
		}

		if oldSolution == nil {
			oldSolution = make([]float64, len(solution))
		}
		copy(oldSolution, solution)
	}

	return fmt.Errorf("failed to converge in %d iterations", maxIter)
}
