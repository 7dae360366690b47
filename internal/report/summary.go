// Package report turns stored or freshly processed earth velocity profiles into
// per-bin current statistics, PNG plots and HTML charts.
package report

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/current.report/internal/adcp/ensemble"
	"github.com/banshee-data/current.report/internal/adcp/pipeline"
	"github.com/banshee-data/current.report/internal/db"
	"github.com/banshee-data/current.report/internal/units"
)

// ErrNoData is returned when no bin has a valid horizontal velocity.
var ErrNoData = errors.New("no valid velocity cells")

// Profile is the part of a processed ensemble the statistics need.
type Profile struct {
	FirstBinRange float64
	BinSize       float64
	// EarthVelocity is indexed [bin][East, North, Up, Err].
	EarthVelocity [][]float64
}

// FromStored converts stored profiles.
func FromStored(stored []db.Profile) []Profile {
	out := make([]Profile, 0, len(stored))
	for _, p := range stored {
		out = append(out, Profile{
			FirstBinRange: p.FirstBinRange,
			BinSize:       p.BinSize,
			EarthVelocity: p.EarthVelocity,
		})
	}
	return out
}

// FromResults converts pipeline results, skipping ensembles without earth
// velocity.
func FromResults(results []pipeline.Result) []Profile {
	out := make([]Profile, 0, len(results))
	for _, r := range results {
		e := r.Ensemble
		if e == nil || !e.IsEarthVelocityAvail {
			continue
		}
		out = append(out, Profile{
			FirstBinRange: e.Ancillary.FirstBinRange,
			BinSize:       e.Ancillary.BinSize,
			EarthVelocity: e.EarthVelocity,
		})
	}
	return out
}

// BinSummary holds the statistics for one depth bin. Speeds are in the
// summary's display units; direction is degrees clockwise from north that the
// mean current flows toward.
type BinSummary struct {
	Bin           int     `json:"bin"`
	Range         float64 `json:"range"`
	Samples       int     `json:"samples"`
	MeanEast      float64 `json:"mean_east"`
	MeanNorth     float64 `json:"mean_north"`
	MeanSpeed     float64 `json:"mean_speed"`
	StdDevSpeed   float64 `json:"stddev_speed"`
	MeanDirection float64 `json:"mean_direction"`
}

// Summary is the per-bin current profile over a set of ensembles.
type Summary struct {
	Units     string       `json:"units"`
	UnitLabel string       `json:"unit_label"`
	Ensembles int          `json:"ensembles"`
	Bins      []BinSummary `json:"bins"`
}

// SummarizeProfiles computes per-bin horizontal current statistics over every
// cell whose east and north velocities are valid. Speeds are converted to
// displayUnits.
func SummarizeProfiles(profiles []Profile, displayUnits string) (*Summary, error) {
	if !units.IsValid(displayUnits) {
		return nil, fmt.Errorf("invalid units %q, must be one of %s", displayUnits, units.GetValidUnitsString())
	}

	numBins := 0
	firstBin, binSize := 0.0, 0.0
	for _, p := range profiles {
		if len(p.EarthVelocity) > numBins {
			numBins = len(p.EarthVelocity)
		}
		if binSize == 0 && p.BinSize > 0 {
			firstBin, binSize = p.FirstBinRange, p.BinSize
		}
	}

	s := &Summary{
		Units:     displayUnits,
		UnitLabel: units.Label(displayUnits),
		Ensembles: len(profiles),
		Bins:      make([]BinSummary, numBins),
	}

	var east, north, speed []float64
	valid := 0
	for bin := 0; bin < numBins; bin++ {
		east, north, speed = east[:0], north[:0], speed[:0]
		for _, p := range profiles {
			if bin >= len(p.EarthVelocity) {
				continue
			}
			row := p.EarthVelocity[bin]
			if !validHorizontal(row) {
				continue
			}
			e, n := row[ensemble.EastIndex], row[ensemble.NorthIndex]
			east = append(east, e)
			north = append(north, n)
			speed = append(speed, math.Hypot(e, n))
		}

		b := BinSummary{
			Bin:     bin,
			Range:   firstBin + float64(bin)*binSize,
			Samples: len(speed),
		}
		if len(speed) > 0 {
			valid++
			meanSpeed, std := stat.MeanStdDev(speed, nil)
			if len(speed) < 2 {
				std = 0
			}
			meanE := stat.Mean(east, nil)
			meanN := stat.Mean(north, nil)

			b.MeanEast = units.ConvertSpeed(meanE, displayUnits)
			b.MeanNorth = units.ConvertSpeed(meanN, displayUnits)
			b.MeanSpeed = units.ConvertSpeed(meanSpeed, displayUnits)
			b.StdDevSpeed = units.ConvertSpeed(std, displayUnits)
			b.MeanDirection = units.NormalizeHeading(math.Atan2(meanE, meanN) * 180 / math.Pi)
		}
		s.Bins[bin] = b
	}

	if valid == 0 {
		return s, ErrNoData
	}
	return s, nil
}

func validHorizontal(row []float64) bool {
	if len(row) <= ensemble.NorthIndex {
		return false
	}
	for _, v := range row[:ensemble.NorthIndex+1] {
		if v == ensemble.BadVelocity || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
