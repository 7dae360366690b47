package ensemble

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ReadJSONLines decodes a stream of JSON encoded ensembles, one per line, as
// written by WriteJSONLines or by an upstream decoder. Each ensemble is checked
// for consistent grid dimensions.
func ReadJSONLines(r io.Reader) ([]*Ensemble, error) {
	dec := json.NewDecoder(r)
	var out []*Ensemble
	for {
		var e Ensemble
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode ensemble %d: %w", len(out)+1, err)
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("ensemble %d: %w", e.EnsembleNumber, err)
		}
		out = append(out, &e)
	}
}

// WriteJSONLines encodes each ensemble as one line of JSON.
func WriteJSONLines(w io.Writer, ensembles []*Ensemble) error {
	enc := json.NewEncoder(w)
	for _, e := range ensembles {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode ensemble %d: %w", e.EnsembleNumber, err)
		}
	}
	return nil
}

// Validate checks that every grid flagged available has the ensemble's bin and
// beam dimensions and that per-beam arrays have one value per beam.
func (e *Ensemble) Validate() error {
	if e.NumBins < 0 || e.NumBeams < 0 {
		return fmt.Errorf("invalid dimensions %dx%d", e.NumBins, e.NumBeams)
	}
	grids := []struct {
		name  string
		avail bool
		grid  [][]float64
	}{
		{"beam velocity", e.IsBeamVelocityAvail, e.BeamVelocity},
		{"instrument velocity", e.IsInstrumentVelocityAvail, e.InstrumentVelocity},
		{"earth velocity", e.IsEarthVelocityAvail, e.EarthVelocity},
		{"correlation", e.IsCorrelationAvail, e.Correlation},
	}
	for _, g := range grids {
		if g.avail && !e.HasGrid(g.grid) {
			return fmt.Errorf("%s grid does not match %d bins x %d beams", g.name, e.NumBins, e.NumBeams)
		}
	}
	if e.IsRangeTrackingAvail && len(e.RangeTracking.Range) != e.NumBeams {
		return fmt.Errorf("range tracking has %d beams, want %d", len(e.RangeTracking.Range), e.NumBeams)
	}
	if e.IsBottomTrackAvail && len(e.BottomTrack.BeamVelocity) != e.NumBeams {
		return fmt.Errorf("bottom track has %d beams, want %d", len(e.BottomTrack.BeamVelocity), e.NumBeams)
	}
	return nil
}
