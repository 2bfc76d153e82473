package matrix

// DeviceMatrix is the stamping surface seen by devices. Indices are 1-based,
// index 0 is ground and is silently skipped by callers.
type DeviceMatrix interface {
	AddElement(i, j int, value float64)
	AddRHS(i int, value float64)
}
