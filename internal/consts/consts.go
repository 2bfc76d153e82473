package consts

const (
	KELVIN = 273.15 // Kelvin temperature (K)

	// Default transient tolerances.
	ABSTOL = 1e-12
	RELTOL = 1e-6
	GMIN   = 1e-12
)
