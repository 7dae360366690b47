// Package ensemble defines the in-memory ADCP ensemble record shared by the
// transform, vessel-mount and screening stages.
//
// An Ensemble is one measurement frame: per-bin, per-beam velocity and quality
// grids plus the ancillary orientation of the instrument when the frame was
// captured. Grids are indexed [bin][beam] and their dimensions are fixed when the
// ensemble is built. Operations in this module mutate ensembles in place; callers
// that need an independent copy (for example to hand one to another goroutine)
// use Clone.
package ensemble

const (
	// BadVelocity marks a velocity cell that is invalid or was not computed.
	BadVelocity = 88.888

	// BadRange marks a range tracking value with no valid range.
	BadRange = -1.0

	// Beam0Index is the primary beam. On a vertical beam subsystem it is the
	// vertical beam.
	Beam0Index = 0

	// DefaultNumBeams is the beam count of a slant 4-beam transducer.
	DefaultNumBeams = 4
)

// Instrument and earth frame component indexes within a 4-beam grid row.
const (
	XIndex = 0
	YIndex = 1
	ZIndex = 2
	// ErrIndex is the error velocity component. It is not rotated into the
	// earth frame.
	ErrIndex = 3

	EastIndex  = 0
	NorthIndex = 1
	UpIndex    = 2
)

// CodecKind identifies the decoder that produced an ensemble. It is carried
// through processing untouched.
type CodecKind int

const (
	CodecUnknown CodecKind = iota
	CodecBinary
	CodecDVL
	CodecPD0
)

// Ancillary holds the instrument orientation and position for one ensemble.
type Ancillary struct {
	Heading         float64 `json:"heading"`
	Pitch           float64 `json:"pitch"`
	Roll            float64 `json:"roll"`
	TransducerDepth float64 `json:"transducer_depth"`
	WaterTemp       float64 `json:"water_temp,omitempty"`
	Salinity        float64 `json:"salinity,omitempty"`
	SpeedOfSound    float64 `json:"speed_of_sound,omitempty"`
	FirstBinRange   float64 `json:"first_bin_range,omitempty"`
	BinSize         float64 `json:"bin_size,omitempty"`
}

// RangeTracking holds the per-beam range measured by the range tracking ping.
type RangeTracking struct {
	Range []float64 `json:"range"`
}

// BottomTrack holds the per-beam bottom track measurements. The instrument and
// earth vectors use the same component layout as the profile grids.
type BottomTrack struct {
	Range              []float64 `json:"range"`
	BeamVelocity       []float64 `json:"beam_velocity"`
	Correlation        []float64 `json:"correlation"`
	InstrumentVelocity []float64 `json:"instrument_velocity"`
	EarthVelocity      []float64 `json:"earth_velocity"`
}

// Ensemble is one ADCP measurement frame.
type Ensemble struct {
	EnsembleNumber int       `json:"ensemble_number"`
	NumBins        int       `json:"num_bins"`
	NumBeams       int       `json:"num_beams"`
	Subsystem      Subsystem `json:"subsystem"`
	Codec          CodecKind `json:"codec,omitempty"`

	Ancillary Ancillary `json:"ancillary"`

	BeamVelocity       [][]float64 `json:"beam_velocity,omitempty"`
	InstrumentVelocity [][]float64 `json:"instrument_velocity,omitempty"`
	EarthVelocity      [][]float64 `json:"earth_velocity,omitempty"`
	Correlation        [][]float64 `json:"correlation,omitempty"`

	RangeTracking RangeTracking `json:"range_tracking"`
	BottomTrack   BottomTrack   `json:"bottom_track"`

	// ExternalHeading is a reference heading from outside the instrument, such
	// as a GPS compass, populated by the decoder when available.
	ExternalHeading float64 `json:"external_heading,omitempty"`

	IsEnsembleAvail           bool `json:"is_ensemble_avail"`
	IsAncillaryAvail          bool `json:"is_ancillary_avail"`
	IsBeamVelocityAvail       bool `json:"is_beam_velocity_avail"`
	IsInstrumentVelocityAvail bool `json:"is_instrument_velocity_avail"`
	IsEarthVelocityAvail      bool `json:"is_earth_velocity_avail"`
	IsCorrelationAvail        bool `json:"is_correlation_avail"`
	IsRangeTrackingAvail      bool `json:"is_range_tracking_avail"`
	IsBottomTrackAvail        bool `json:"is_bottom_track_avail"`
	IsExternalHeadingAvail    bool `json:"is_external_heading_avail"`
}

// New builds an ensemble with the given dimensions. When allocate is true every
// grid and per-beam array is allocated and its availability flag set; velocity
// grids start at zero. When allocate is false only the header is populated.
func New(numBins, numBeams int, allocate bool) *Ensemble {
	e := &Ensemble{
		NumBins:         numBins,
		NumBeams:        numBeams,
		IsEnsembleAvail: true,
	}
	if !allocate {
		return e
	}

	e.IsAncillaryAvail = true

	e.BeamVelocity = NewGrid(numBins, numBeams)
	e.InstrumentVelocity = NewGrid(numBins, numBeams)
	e.EarthVelocity = NewGrid(numBins, numBeams)
	e.Correlation = NewGrid(numBins, numBeams)
	e.IsBeamVelocityAvail = true
	e.IsInstrumentVelocityAvail = true
	e.IsEarthVelocityAvail = true
	e.IsCorrelationAvail = true

	e.RangeTracking.Range = make([]float64, numBeams)
	e.IsRangeTrackingAvail = true

	e.BottomTrack = BottomTrack{
		Range:              make([]float64, numBeams),
		BeamVelocity:       make([]float64, numBeams),
		Correlation:        make([]float64, numBeams),
		InstrumentVelocity: make([]float64, numBeams),
		EarthVelocity:      make([]float64, numBeams),
	}
	e.IsBottomTrackAvail = true

	return e
}

// NewGrid allocates a zeroed [bins][beams] grid backed by a single slice.
func NewGrid(numBins, numBeams int) [][]float64 {
	backing := make([]float64, numBins*numBeams)
	grid := make([][]float64, numBins)
	for bin := range grid {
		grid[bin] = backing[bin*numBeams : (bin+1)*numBeams : (bin+1)*numBeams]
	}
	return grid
}

// FillGrid sets every cell of grid to v.
func FillGrid(grid [][]float64, v float64) {
	for _, row := range grid {
		for beam := range row {
			row[beam] = v
		}
	}
}

// Clone returns a deep copy of e. The copy shares no slices with e.
func (e *Ensemble) Clone() *Ensemble {
	if e == nil {
		return nil
	}
	c := *e
	c.BeamVelocity = cloneGrid(e.BeamVelocity)
	c.InstrumentVelocity = cloneGrid(e.InstrumentVelocity)
	c.EarthVelocity = cloneGrid(e.EarthVelocity)
	c.Correlation = cloneGrid(e.Correlation)
	c.RangeTracking.Range = cloneSlice(e.RangeTracking.Range)
	c.BottomTrack = BottomTrack{
		Range:              cloneSlice(e.BottomTrack.Range),
		BeamVelocity:       cloneSlice(e.BottomTrack.BeamVelocity),
		Correlation:        cloneSlice(e.BottomTrack.Correlation),
		InstrumentVelocity: cloneSlice(e.BottomTrack.InstrumentVelocity),
		EarthVelocity:      cloneSlice(e.BottomTrack.EarthVelocity),
	}
	return &c
}

// HasGrid reports whether grid has the ensemble's bin and beam dimensions.
func (e *Ensemble) HasGrid(grid [][]float64) bool {
	if len(grid) != e.NumBins {
		return false
	}
	for _, row := range grid {
		if len(row) != e.NumBeams {
			return false
		}
	}
	return true
}

func cloneGrid(src [][]float64) [][]float64 {
	if src == nil {
		return nil
	}
	numBeams := 0
	if len(src) > 0 {
		numBeams = len(src[0])
	}
	dst := NewGrid(len(src), numBeams)
	for bin, row := range src {
		if len(row) != numBeams {
			// Ragged input keeps its shape.
			dst[bin] = cloneSlice(row)
			continue
		}
		copy(dst[bin], row)
	}
	return dst
}

func cloneSlice(src []float64) []float64 {
	if src == nil {
		return nil
	}
	dst := make([]float64, len(src))
	copy(dst, src)
	return dst
}
