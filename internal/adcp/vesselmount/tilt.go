package vesselmount

import (
	"github.com/banshee-data/current.report/internal/adcp/ensemble"
	"github.com/banshee-data/current.report/internal/units"
)

// ApplyTiltOffset adds opts.PitchOffset to the ancillary pitch, wrapping into
// (-90, 90], and opts.RollOffset to the ancillary roll, wrapping into
// (-180, 180]. When retransform is true the profile and bottom track velocities
// are recomputed with the corrected tilt.
func ApplyTiltOffset(e *ensemble.Ensemble, opts Options, retransform bool) {
	if e == nil {
		return
	}
	e.Ancillary.Pitch = units.NormalizePitch(e.Ancillary.Pitch + opts.PitchOffset)
	e.Ancillary.Roll = units.NormalizeRoll(e.Ancillary.Roll + opts.RollOffset)
	if retransform {
		retransformEnsemble(e, opts)
	}
}
