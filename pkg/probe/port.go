// Package probe implements the synchronized sampling protocol used to
// measure an analog simulation domain: a single sampler owns the probe
// selection register and the capture toggle, and every measurement goes
// through it.
package probe

// Port is the testbench's handle onto the simulator. Times are virtual
// seconds. Writes take effect at the current virtual time; Read returns the
// most recently captured probe outputs.
type Port interface {
	// Now returns the current virtual time.
	Now() float64
	// Wait suspends the caller while the simulator advances d seconds.
	Wait(d float64) error
	// Select routes the analog probe to node.
	Select(node string) error
	// Write sets a digital register or control line.
	Write(register string, value int64) error
	// Drive sets an analog stimulus such as a supply voltage.
	Drive(node string, value float64) error
	// Read returns the captured voltage and current of node.
	Read(node string) (voltage, current float64, err error)
}

// Capture control lines of the analog probe. Each fires on a transition.
const (
	VoltageToggle = "probe_voltage_toggle"
	CurrentToggle = "probe_current_toggle"
)

// Sample is one probe measurement.
type Sample struct {
	Time    float64 // virtual time of the read, seconds
	Node    string
	Trim    int64 // trim code in effect, valid when HasTrim
	HasTrim bool
	Voltage float64
	Current float64
}
