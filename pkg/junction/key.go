package junction

import "github.com/PaulKGrimes/supermix-sub001/pkg/statetag"

// OperatingPointKey captures every input that shapes a large-signal solution
// apart from the drive itself. Two keys compare equal with == exactly when a
// cached solution is still valid for the device parameters.
type OperatingPointKey struct {
	LOFreq    float64
	Harmonics int
	Vn        float64
	Rn        float64
	Cap       float64
	IV        statetag.Tag
}
