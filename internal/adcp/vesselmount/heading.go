package vesselmount

import (
	"github.com/banshee-data/current.report/internal/adcp/ensemble"
	"github.com/banshee-data/current.report/internal/adcp/transform"
	"github.com/banshee-data/current.report/internal/units"
)

// ApplyHeadingOffset adds opts.HeadingOffset to the heading selected by
// opts.HeadingSource and wraps the result into [0, 360). That is the external
// heading when it is selected and available, otherwise the ancillary heading.
// When retransform is true the profile and bottom track velocities are
// recomputed with the corrected heading.
func ApplyHeadingOffset(e *ensemble.Ensemble, opts Options, retransform bool) {
	if e == nil {
		return
	}
	if transform.UsesExternalHeading(e, opts.HeadingSource) {
		e.ExternalHeading = units.NormalizeHeading(e.ExternalHeading + opts.HeadingOffset)
	} else {
		AddAncillaryHeadingOffset(e, opts.HeadingOffset)
	}
	if retransform {
		retransformEnsemble(e, opts)
	}
}

// AddAncillaryHeadingOffset adds offset to the ancillary heading and wraps the
// result into [0, 360). Velocities are not recomputed.
func AddAncillaryHeadingOffset(e *ensemble.Ensemble, offset float64) {
	if e == nil {
		return
	}
	e.Ancillary.Heading = units.NormalizeHeading(e.Ancillary.Heading + offset)
}

// retransformEnsemble recomputes velocities from the ancillary orientation as it
// now stands. Offsets were already applied, so none are passed on.
func retransformEnsemble(e *ensemble.Ensemble, opts Options) {
	to := opts.transformOptions()
	transform.ProfileTransform(e, to)
	transform.BottomTrackTransform(e, to)
}
