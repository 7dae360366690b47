package pipeline

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/current.report/internal/adcp/ensemble"
	"github.com/banshee-data/current.report/internal/adcp/transform"
	"github.com/banshee-data/current.report/internal/testutil"
)

const tolerance = 0.001

func TestProcess_MountingCorrections(t *testing.T) {
	opts := DefaultOptions()
	opts.VesselMount.HeadingOffset = 10
	opts.VesselMount.PitchOffset = 10
	opts.VesselMount.RollOffset = 10
	p := NewProcessor(opts)

	e := testutil.NewProfileEnsemble(1)
	res := p.Process(e)

	require.Same(t, e, res.Ensemble)
	assert.InDelta(t, 20.2, e.Ancillary.Heading, tolerance)
	assert.InDelta(t, 11.02, e.Ancillary.Pitch, tolerance)
	assert.InDelta(t, 12.123, e.Ancillary.Roll, tolerance)

	assert.InDelta(t, -1.2371, e.EarthVelocity[0][ensemble.EastIndex], tolerance)
	assert.InDelta(t, 1.08179, e.EarthVelocity[0][ensemble.NorthIndex], tolerance)
	assert.InDelta(t, -1.49023, e.EarthVelocity[0][ensemble.UpIndex], tolerance)
	assert.Zero(t, res.MaskedBins)
	assert.True(t, res.DepthScreenOK)
	assert.False(t, res.DepthReplaced)
}

func TestProcess_ExternalHeadingOffset(t *testing.T) {
	opts := DefaultOptions()
	opts.VesselMount.HeadingSource = transform.HeadingSourceExternal
	opts.VesselMount.HeadingOffset = 10
	p := NewProcessor(opts)

	e := testutil.NewProfileEnsemble(1)
	e.Ancillary.Heading = 250
	e.ExternalHeading = testutil.FixtureHeading
	e.IsExternalHeadingAvail = true

	p.Process(e)

	assert.InDelta(t, 20.2, e.ExternalHeading, tolerance)
	assert.InDelta(t, 250, e.Ancillary.Heading, tolerance)
	assert.InDelta(t, -1.04946, e.EarthVelocity[0][ensemble.EastIndex], tolerance)
	assert.InDelta(t, 0.732099, e.EarthVelocity[0][ensemble.NorthIndex], tolerance)

	// Same result as a direct transform with the offset.
	direct := testutil.NewProfileEnsemble(1)
	direct.ExternalHeading = testutil.FixtureHeading
	direct.IsExternalHeadingAvail = true
	transform.ProfileTransform(direct, transform.Options{
		CorrelationThreshold: opts.VesselMount.CorrelationThreshold,
		HeadingSource:        transform.HeadingSourceExternal,
		HeadingOffset:        10,
	})
	assert.InDeltaSlice(t, direct.EarthVelocity[0], e.EarthVelocity[0], tolerance)
}

func TestProcess_NoOffsets(t *testing.T) {
	p := NewProcessor(DefaultOptions())
	e := testutil.NewProfileEnsemble(1)

	p.Process(e)

	assert.InDelta(t, -1.160649, e.EarthVelocity[0][ensemble.EastIndex], tolerance)
	assert.InDelta(t, 0.53873, e.EarthVelocity[0][ensemble.NorthIndex], tolerance)
	assert.InDelta(t, -1.812215, e.EarthVelocity[0][ensemble.UpIndex], tolerance)
	assert.InDelta(t, -18.038677, e.EarthVelocity[1][ensemble.EastIndex], tolerance)
}

func TestProcess_MaskedBins(t *testing.T) {
	opts := DefaultOptions()
	opts.VesselMount.CorrelationThreshold = 30
	p := NewProcessor(opts)

	res := p.Process(testutil.NewProfileEnsemble(1))

	assert.Equal(t, 5, res.MaskedBins)
}

func TestProcess_DepthScreen(t *testing.T) {
	tests := []struct {
		name         string
		replace      bool
		rng          float64
		wantOK       bool
		wantReplaced bool
		wantDepth    float64
	}{
		{"replaced", true, 3.123, true, true, 3.123},
		{"bad range", true, ensemble.BadRange, false, false, 7.5},
		{"screen disabled", false, 3.123, true, false, 7.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.ReplaceDepthFromRange = tt.replace
			p := NewProcessor(opts)

			e := testutil.NewVerticalEnsemble(1, 7.5, tt.rng)
			res := p.Process(e)

			assert.Equal(t, tt.wantOK, res.DepthScreenOK)
			assert.Equal(t, tt.wantReplaced, res.DepthReplaced)
			assert.InDelta(t, tt.wantDepth, e.Ancillary.TransducerDepth, tolerance)
		})
	}
}

func TestProcess_Nil(t *testing.T) {
	res := NewProcessor(DefaultOptions()).Process(nil)
	assert.Nil(t, res.Ensemble)
}

func TestProcessAll(t *testing.T) {
	in := []*ensemble.Ensemble{
		testutil.NewProfileEnsemble(1),
		testutil.NewVerticalEnsemble(2, 7.5, 3.123),
		nil,
		testutil.NewVerticalEnsemble(4, 7.5, 0),
		testutil.NewProfileEnsemble(5),
	}
	before := make([]*ensemble.Ensemble, len(in))
	for i, e := range in {
		before[i] = e.Clone()
	}

	opts := DefaultOptions()
	opts.Workers = 3
	results, stats, err := NewProcessor(opts).ProcessAll(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, results, len(in))

	for i, r := range results {
		if in[i] == nil {
			assert.Nil(t, r.Ensemble)
			continue
		}
		require.NotNil(t, r.Ensemble)
		assert.Equal(t, in[i].EnsembleNumber, r.Ensemble.EnsembleNumber, "result %d out of order", i)
		assert.NotSame(t, in[i], r.Ensemble)
	}

	if diff := cmp.Diff(before, in); diff != "" {
		t.Errorf("ProcessAll modified its input (-before +after):\n%s", diff)
	}

	assert.InDelta(t, -1.160649, results[0].Ensemble.EarthVelocity[0][0], tolerance)
	assert.InDelta(t, 3.123, results[1].Ensemble.Ancillary.TransducerDepth, tolerance)

	assert.Equal(t, Stats{
		Processed:         4,
		MaskedBins:        0,
		DepthReplacements: 1,
		ScreenFailures:    1,
	}, stats)
}

func TestProcessAll_Empty(t *testing.T) {
	results, stats, err := NewProcessor(DefaultOptions()).ProcessAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, Stats{}, stats)
}

func TestProcessAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := []*ensemble.Ensemble{testutil.NewProfileEnsemble(1), testutil.NewProfileEnsemble(2)}
	results, _, err := NewProcessor(DefaultOptions()).ProcessAll(ctx, in)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}

func TestStatsAdd(t *testing.T) {
	var s Stats
	s.Add(Result{})
	s.Add(Result{Ensemble: &ensemble.Ensemble{}, MaskedBins: 2, DepthScreenOK: true, DepthReplaced: true})
	s.Add(Result{Ensemble: &ensemble.Ensemble{}, MaskedBins: 1})

	assert.Equal(t, Stats{Processed: 2, MaskedBins: 3, DepthReplacements: 1, ScreenFailures: 1}, s)
}
