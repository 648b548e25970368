package matrix

// DeviceMatrix is the stamping surface seen by circuit elements. Row and column
// indices are 1-based; index 0 is ground and must not be stamped.
type DeviceMatrix interface {
	AddElement(i, j int, value float64)
	AddRHS(i int, value float64)
	AddComplexElement(i, j int, real, imag float64)
	AddComplexRHS(i int, real, imag float64)
}
