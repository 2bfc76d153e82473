package analysis

import (
	"fmt"

	"github.com/edp1096/trimbench/pkg/circuit"
	"github.com/edp1096/trimbench/pkg/device"
)

// Transient is a resumable backward Euler transient kernel. Unlike a batch
// .tran run it has no stop time: the testbench advances it by arbitrary
// amounts of virtual time and inspects the circuit in between.
type Transient struct {
	BaseAnalysis
	op       *OperatingPoint
	time     float64
	timeStep float64
	maxStep  float64
	minStep  float64
	useUIC   bool
	steps    int
}

// NewTransient creates a kernel with initial step tStep and step ceiling
// tMax (tStep when zero). With uic the operating point is skipped and
// capacitors start discharged.
func NewTransient(tStep, tMax float64, uic bool) *Transient {
	if tMax == 0 {
		tMax = tStep
	}

	return &Transient{
		BaseAnalysis: *NewBaseAnalysis(),
		op:           NewOP(),
		timeStep:     tStep,
		maxStep:      tMax,
		minStep:      tStep / 50.0,
		useUIC:       uic,
	}
}

func (tr *Transient) Setup(ckt *circuit.Circuit) error {
	if tr.timeStep <= 0 {
		return fmt.Errorf("invalid time step %g", tr.timeStep)
	}
	tr.Circuit = ckt

	if !tr.useUIC {
		if err := tr.op.Setup(ckt); err != nil {
			return fmt.Errorf("operating point setup error: %w", err)
		}
		if err := tr.op.Execute(); err != nil {
			return fmt.Errorf("operating point analysis error: %w", err)
		}
	}

	return nil
}

// Time is the current virtual time in seconds.
func (tr *Transient) Time() float64 { return tr.time }

// Steps is the number of accepted time points so far.
func (tr *Transient) Steps() int { return tr.steps }

// Advance integrates the circuit from Time() to Time()+d. d == 0 is a no-op.
func (tr *Transient) Advance(d float64) error {
	if tr.Circuit == nil {
		return fmt.Errorf("circuit not set")
	}
	if d < 0 {
		return fmt.Errorf("cannot advance by negative time %g", d)
	}

	stopTime := tr.time + d
	for tr.time < stopTime {
		step := tr.timeStep
		if tr.time+step > stopTime {
			step = stopTime - tr.time
		}

		for {
			status := &device.CircuitStatus{
				Time:     tr.time + step,
				TimeStep: step,
				Mode:     device.TransientAnalysis,
				Temp:     device.RoomTemp,
			}

			err := tr.doNRiter(status, tr.convergence.maxIter)
			if err != nil {
				if step > tr.minStep {
					step /= 2
					tr.timeStep = step
					continue
				}
				return fmt.Errorf("failed to converge at t=%g: %w", tr.time, err)
			}

			tr.Circuit.Update(status)
			break
		}

		if stopTime-tr.time-step < tr.minStep*1e-3 {
			tr.time = stopTime
		} else {
			tr.time += step
		}
		tr.steps++

		if tr.timeStep < tr.maxStep {
			tr.timeStep *= 1.2
			if tr.timeStep > tr.maxStep {
				tr.timeStep = tr.maxStep
			}
		}
	}

	return nil
}
