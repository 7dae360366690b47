// Package vesselmount corrects ensemble orientation for the way an ADCP is
// mounted on a vessel.
//
// Heading, pitch and roll offsets are added to the ancillary orientation and the
// results wrapped back into their sensor ranges. Each correction can optionally
// re-run the profile and bottom track transforms so the earth velocities follow
// the corrected orientation.
package vesselmount

import "github.com/banshee-data/current.report/internal/adcp/transform"

// DefaultCorrelationThreshold is the correlation threshold used by
// DefaultOptions for re-transforms.
const DefaultCorrelationThreshold = 0.25

// Options holds the mounting offsets, in degrees, and the transform settings
// used when a correction re-transforms the ensemble.
type Options struct {
	HeadingOffset float64
	PitchOffset   float64
	RollOffset    float64

	CorrelationThreshold float64
	HeadingSource        transform.HeadingSource
}

// DefaultOptions returns zero offsets, the default correlation threshold and the
// ADCP heading source.
func DefaultOptions() Options {
	return Options{
		CorrelationThreshold: DefaultCorrelationThreshold,
		HeadingSource:        transform.HeadingSourceADCP,
	}
}

func (o Options) transformOptions() transform.Options {
	return transform.Options{
		CorrelationThreshold: o.CorrelationThreshold,
		HeadingSource:        o.HeadingSource,
	}
}
