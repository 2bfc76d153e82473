package analysis

import (
	"fmt"
	"math"

	"github.com/edp1096/trimbench/pkg/circuit"
	"github.com/edp1096/trimbench/pkg/device"
)

type OperatingPoint struct{ BaseAnalysis }

func NewOP() *OperatingPoint {
	return &OperatingPoint{
		BaseAnalysis: *NewBaseAnalysis(),
	}
}

func (op *OperatingPoint) Setup(ckt *circuit.Circuit) error {
	if ckt == nil {
		return fmt.Errorf("circuit not set")
	}
	op.Circuit = ckt
	return nil
}

func (op *OperatingPoint) status(gmin float64) *device.CircuitStatus {
	return &device.CircuitStatus{
		Mode: device.OperatingPointAnalysis,
		Temp: device.RoomTemp,
		Gmin: gmin,
	}
}

func (op *OperatingPoint) Execute() error {
	if op.Circuit == nil {
		return fmt.Errorf("circuit not set")
	}

	err := op.doNRiter(op.status(0), op.convergence.maxIter)
	if err == nil {
		op.Circuit.Update(op.status(0))
		return nil
	}

	numGminSteps := 10
	startGmin := float64(op.Circuit.GetMatrix().Size) * 0.001
	gmin := startGmin * math.Pow(10, float64(numGminSteps))

	for i := 0; i <= numGminSteps; i++ {
		if err := op.doNRiter(op.status(gmin), op.convergence.maxIter); err != nil {
			return fmt.Errorf("gmin stepping failed at %g: %w", gmin, err)
		}
		gmin /= 10
	}

	if err := op.doNRiter(op.status(0), op.convergence.maxIter); err != nil {
		return fmt.Errorf("final solution failed with zero gmin: %w", err)
	}
	op.Circuit.Update(op.status(0))

	return nil
}

// GetResults returns the operating point keyed like V(node) and I(device).
func (op *OperatingPoint) GetResults() map[string]float64 {
	return op.Circuit.GetSolution()
}
