// Package transform converts ADCP beam velocities into instrument and earth
// frame velocities.
//
// The conversion runs in two stages. Stage A applies the subsystem's beam
// matrix to each bin's four beam velocities to produce X, Y, Z and error
// velocity. Stage B rotates X, Y, Z through pitch, roll and heading into East,
// North, Up; the error velocity is copied through. Bins that fail the
// correlation screen are written as ensemble.BadVelocity in both frames.
package transform

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/current.report/internal/adcp/ensemble"
	"github.com/banshee-data/current.report/internal/monitoring"
	"github.com/banshee-data/current.report/internal/units"
)

// HeadingSource selects which heading feeds the earth rotation.
type HeadingSource int

const (
	// HeadingSourceADCP uses the instrument's own compass (ancillary heading).
	HeadingSourceADCP HeadingSource = iota
	// HeadingSourceExternal uses the external reference heading carried on the
	// ensemble, such as a GPS compass.
	HeadingSourceExternal
)

func (s HeadingSource) String() string {
	switch s {
	case HeadingSourceADCP:
		return "adcp"
	case HeadingSourceExternal:
		return "external"
	default:
		return fmt.Sprintf("HeadingSource(%d)", int(s))
	}
}

// ParseHeadingSource parses "adcp" or "external" (case-insensitive).
func ParseHeadingSource(s string) (HeadingSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "adcp", "":
		return HeadingSourceADCP, nil
	case "external", "gps":
		return HeadingSourceExternal, nil
	default:
		return HeadingSourceADCP, fmt.Errorf("unknown heading source %q", s)
	}
}

// Options configures a transform pass.
type Options struct {
	// CorrelationThreshold masks any bin with a beam correlation below it.
	// Zero disables masking.
	CorrelationThreshold float64
	HeadingSource        HeadingSource
	// HeadingOffset is added to the selected heading and PitchOffset to the
	// ancillary pitch before the rotation. ProfileTransform stores the
	// corrected values back on the ensemble.
	HeadingOffset float64
	PitchOffset   float64
}

// ProfileTransform computes the instrument and earth velocity grids of e from
// its beam velocity grid, in place. When beam velocity is unavailable or the
// subsystem is not a slant 4-beam transducer the grids are left as they are
// but marked unavailable, so stale values are never read as results.
func ProfileTransform(e *ensemble.Ensemble, opts Options) {
	if e == nil {
		return
	}
	if !e.IsBeamVelocityAvail || !e.HasGrid(e.BeamVelocity) {
		monitoring.Debugf("ensemble %d: no beam velocity, skipping profile transform", e.EnsembleNumber)
		markOutputsUnavailable(e)
		return
	}
	desc := e.Subsystem.Descriptor()
	if !desc.Slant() || e.NumBeams != ensemble.DefaultNumBeams {
		monitoring.Debugf("ensemble %d: subsystem %s has no beam matrix for %d beams", e.EnsembleNumber, e.Subsystem, e.NumBeams)
		markOutputsUnavailable(e)
		return
	}

	applyOffsets(e, opts)
	heading := selectHeading(e, opts.HeadingSource)

	beamMatrix := BeamMatrix(desc.BeamAngle)
	rotation := EarthRotation(heading, e.Ancillary.Pitch, e.Ancillary.Roll)

	if !e.HasGrid(e.InstrumentVelocity) {
		e.InstrumentVelocity = ensemble.NewGrid(e.NumBins, e.NumBeams)
	}
	if !e.HasGrid(e.EarthVelocity) {
		e.EarthVelocity = ensemble.NewGrid(e.NumBins, e.NumBeams)
	}

	screenCorrelation := opts.CorrelationThreshold > 0 && e.IsCorrelationAvail && e.HasGrid(e.Correlation)

	s := newSolver(beamMatrix, rotation)
	for bin := 0; bin < e.NumBins; bin++ {
		var corr []float64
		if screenCorrelation {
			corr = e.Correlation[bin]
		}
		s.solve(e.BeamVelocity[bin], corr, opts.CorrelationThreshold, e.InstrumentVelocity[bin], e.EarthVelocity[bin])
	}

	e.IsInstrumentVelocityAvail = true
	e.IsEarthVelocityAvail = true
}

func markOutputsUnavailable(e *ensemble.Ensemble) {
	e.IsInstrumentVelocityAvail = false
	e.IsEarthVelocityAvail = false
}

// BottomTrackTransform computes the bottom track instrument and earth velocity
// of e from its bottom track beam velocity, in place. It uses the ensemble's
// current ancillary orientation; opts.HeadingOffset and opts.PitchOffset are
// not applied here.
func BottomTrackTransform(e *ensemble.Ensemble, opts Options) {
	if e == nil || !e.IsBottomTrackAvail {
		return
	}
	bt := &e.BottomTrack
	if len(bt.BeamVelocity) != ensemble.DefaultNumBeams {
		monitoring.Debugf("ensemble %d: bottom track has %d beams, skipping transform", e.EnsembleNumber, len(bt.BeamVelocity))
		return
	}
	desc := e.Subsystem.Descriptor()
	if !desc.Slant() {
		return
	}

	heading := selectHeading(e, opts.HeadingSource)
	s := newSolver(BeamMatrix(desc.BeamAngle), EarthRotation(heading, e.Ancillary.Pitch, e.Ancillary.Roll))

	if len(bt.InstrumentVelocity) != ensemble.DefaultNumBeams {
		bt.InstrumentVelocity = make([]float64, ensemble.DefaultNumBeams)
	}
	if len(bt.EarthVelocity) != ensemble.DefaultNumBeams {
		bt.EarthVelocity = make([]float64, ensemble.DefaultNumBeams)
	}

	var corr []float64
	if opts.CorrelationThreshold > 0 && len(bt.Correlation) == ensemble.DefaultNumBeams {
		corr = bt.Correlation
	}
	s.solve(bt.BeamVelocity, corr, opts.CorrelationThreshold, bt.InstrumentVelocity, bt.EarthVelocity)
}

// applyOffsets adds the heading and pitch offsets to the ancillary data. With
// an external heading source the heading offset is applied to the external
// heading at rotation time instead.
func applyOffsets(e *ensemble.Ensemble, opts Options) {
	if opts.HeadingOffset != 0 {
		if UsesExternalHeading(e, opts.HeadingSource) {
			e.ExternalHeading = units.NormalizeHeading(e.ExternalHeading + opts.HeadingOffset)
		} else {
			e.Ancillary.Heading = units.NormalizeHeading(e.Ancillary.Heading + opts.HeadingOffset)
		}
	}
	if opts.PitchOffset != 0 {
		e.Ancillary.Pitch = units.NormalizePitch(e.Ancillary.Pitch + opts.PitchOffset)
	}
}

// UsesExternalHeading reports whether the rotation for e takes its heading from
// the external reference rather than the ADCP compass.
func UsesExternalHeading(e *ensemble.Ensemble, src HeadingSource) bool {
	return src == HeadingSourceExternal && e.IsExternalHeadingAvail
}

func selectHeading(e *ensemble.Ensemble, src HeadingSource) float64 {
	if UsesExternalHeading(e, src) {
		return e.ExternalHeading
	}
	if src == HeadingSourceExternal {
		monitoring.Debugf("ensemble %d: external heading unavailable, using ADCP heading", e.EnsembleNumber)
	}
	return e.Ancillary.Heading
}

// solver holds the matrices and scratch vectors for one ensemble.
type solver struct {
	beamMatrix *mat.Dense
	rotation   *mat.Dense
	beam       *mat.VecDense
	inst       *mat.VecDense
	xyz        *mat.VecDense
	enu        *mat.VecDense
}

func newSolver(beamMatrix, rotation *mat.Dense) *solver {
	return &solver{
		beamMatrix: beamMatrix,
		rotation:   rotation,
		beam:       mat.NewVecDense(4, nil),
		inst:       mat.NewVecDense(4, nil),
		xyz:        mat.NewVecDense(3, nil),
		enu:        mat.NewVecDense(3, nil),
	}
}

// solve writes the instrument and earth velocities for one set of four beam
// velocities. A nil corr disables the correlation screen.
func (s *solver) solve(beamVel, corr []float64, threshold float64, inst, earth []float64) {
	if !goodBeams(beamVel, corr, threshold) {
		for i := 0; i < ensemble.DefaultNumBeams; i++ {
			inst[i] = ensemble.BadVelocity
			earth[i] = ensemble.BadVelocity
		}
		return
	}

	for i := 0; i < ensemble.DefaultNumBeams; i++ {
		s.beam.SetVec(i, beamVel[i])
	}
	s.inst.MulVec(s.beamMatrix, s.beam)
	for i := 0; i < ensemble.DefaultNumBeams; i++ {
		inst[i] = s.inst.AtVec(i)
	}

	s.xyz.SetVec(0, inst[ensemble.XIndex])
	s.xyz.SetVec(1, inst[ensemble.YIndex])
	s.xyz.SetVec(2, inst[ensemble.ZIndex])
	s.enu.MulVec(s.rotation, s.xyz)

	earth[ensemble.EastIndex] = s.enu.AtVec(0)
	earth[ensemble.NorthIndex] = s.enu.AtVec(1)
	earth[ensemble.UpIndex] = s.enu.AtVec(2)
	earth[ensemble.ErrIndex] = inst[ensemble.ErrIndex]
}

// goodBeams reports whether all four beams carry a measured velocity and,
// when corr is non-nil, a correlation at or above threshold.
func goodBeams(beamVel, corr []float64, threshold float64) bool {
	for i := 0; i < ensemble.DefaultNumBeams; i++ {
		if beamVel[i] == ensemble.BadVelocity {
			return false
		}
		if corr != nil && corr[i] < threshold {
			return false
		}
	}
	return true
}
