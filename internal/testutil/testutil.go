// Package testutil provides shared test helpers and ensemble fixtures.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/current.report/internal/adcp/ensemble"
)

// Orientation of the profile fixture.
const (
	FixtureHeading = 10.2
	FixturePitch   = 1.02
	FixtureRoll    = 2.123
	// FixtureCorrelation is the correlation of every cell in the fixture.
	FixtureCorrelation = 25.6
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// NewProfileEnsemble returns a 5 bin, 4 beam ensemble from an unlabelled
// 20 degree subsystem. Beam velocities ramp as 1 + 0.2*2^k over the cells in
// bin-major order, every correlation is FixtureCorrelation and the orientation
// is FixtureHeading, FixturePitch, FixtureRoll. Instrument and earth grids are
// allocated and zero.
func NewProfileEnsemble(number int) *ensemble.Ensemble {
	e := ensemble.New(5, 4, true)
	e.EnsembleNumber = number
	e.Ancillary.Heading = FixtureHeading
	e.Ancillary.Pitch = FixturePitch
	e.Ancillary.Roll = FixtureRoll
	e.Ancillary.TransducerDepth = 5.5
	e.Ancillary.FirstBinRange = 1.0
	e.Ancillary.BinSize = 0.5

	inc := 0.2
	for bin := 0; bin < e.NumBins; bin++ {
		for beam := 0; beam < e.NumBeams; beam++ {
			e.BeamVelocity[bin][beam] = 1.0 + inc
			e.Correlation[bin][beam] = FixtureCorrelation
			inc *= 2
		}
	}
	e.IsBottomTrackAvail = false
	return e
}

// NewVerticalEnsemble returns a 5 bin, single beam ensemble from the 300 kHz
// vertical piston subsystem with the given transducer depth and vertical beam
// range.
func NewVerticalEnsemble(number int, depth, rangeValue float64) *ensemble.Ensemble {
	e := ensemble.New(5, 1, true)
	e.EnsembleNumber = number
	e.Subsystem = ensemble.Subsystem{Code: ensemble.Sub300kHzVertPiston, Index: 1}
	e.Ancillary.TransducerDepth = depth
	e.RangeTracking.Range[ensemble.Beam0Index] = rangeValue
	e.IsBottomTrackAvail = false
	return e
}

// NewEarthEnsemble returns a processed-looking ensemble whose earth velocity
// rows are east, north, up, error = rows[bin]. Bins missing from rows are bad.
func NewEarthEnsemble(number, numBins int, rows [][]float64) *ensemble.Ensemble {
	e := ensemble.New(numBins, 4, true)
	e.EnsembleNumber = number
	ensemble.FillGrid(e.EarthVelocity, ensemble.BadVelocity)
	for bin, row := range rows {
		if bin >= numBins {
			break
		}
		copy(e.EarthVelocity[bin], row)
	}
	e.IsBottomTrackAvail = false
	return e
}
