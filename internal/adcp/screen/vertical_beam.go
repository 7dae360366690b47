// Package screen holds per-ensemble data screens that run after the transform.
package screen

import (
	"math"

	"github.com/banshee-data/current.report/internal/adcp/ensemble"
	"github.com/banshee-data/current.report/internal/monitoring"
)

// ReplaceTransducerDepthFromRange replaces the ancillary transducer depth of a
// vertical beam ensemble with the range measured by the vertical beam's range
// tracking ping. The acoustic range is more accurate than the pressure sensor.
//
// Ensembles from a slant subsystem are left alone and reported as true; there
// is nothing to screen. A vertical beam ensemble with no usable range is left
// alone and reported as false.
func ReplaceTransducerDepthFromRange(e *ensemble.Ensemble) bool {
	if e == nil {
		return false
	}
	if !e.Subsystem.IsVerticalBeam() {
		return true
	}
	if !e.IsRangeTrackingAvail || len(e.RangeTracking.Range) <= ensemble.Beam0Index {
		monitoring.Debugf("ensemble %d: vertical beam without range tracking", e.EnsembleNumber)
		return false
	}

	r := e.RangeTracking.Range[ensemble.Beam0Index]
	if !validRange(r) {
		monitoring.Debugf("ensemble %d: vertical beam range %v not usable, keeping depth %v",
			e.EnsembleNumber, r, e.Ancillary.TransducerDepth)
		return false
	}

	e.Ancillary.TransducerDepth = r
	return true
}

func validRange(r float64) bool {
	if r == ensemble.BadRange || math.IsNaN(r) || math.IsInf(r, 0) {
		return false
	}
	return r > 0
}
