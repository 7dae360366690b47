// Package pipeline runs the per-ensemble processing chain over a batch of
// ensembles: mounting corrections, profile and bottom track transforms, and
// the vertical beam depth screen.
package pipeline

import (
	"context"
	"runtime"
	"sync"

	"github.com/banshee-data/current.report/internal/adcp/ensemble"
	"github.com/banshee-data/current.report/internal/adcp/screen"
	"github.com/banshee-data/current.report/internal/adcp/transform"
	"github.com/banshee-data/current.report/internal/adcp/vesselmount"
	"github.com/banshee-data/current.report/internal/monitoring"
)

// Options configures a Processor.
type Options struct {
	VesselMount           vesselmount.Options
	ReplaceDepthFromRange bool
	// Workers is the number of ensembles processed concurrently by
	// ProcessAll. Zero or negative means one per CPU.
	Workers int
}

// DefaultOptions returns the vessel mount defaults with depth replacement on.
func DefaultOptions() Options {
	return Options{
		VesselMount:           vesselmount.DefaultOptions(),
		ReplaceDepthFromRange: true,
	}
}

// Result is the outcome of processing one ensemble.
type Result struct {
	Ensemble *ensemble.Ensemble
	// MaskedBins counts bins whose earth velocity was written as bad.
	MaskedBins int
	// DepthScreenOK is the depth screen's verdict. It is true when the screen
	// is disabled.
	DepthScreenOK bool
	// DepthReplaced is set when the transducer depth was taken from the
	// vertical beam range.
	DepthReplaced bool
}

// Stats summarises a batch.
type Stats struct {
	Processed         int `json:"processed"`
	MaskedBins        int `json:"masked_bins"`
	DepthReplacements int `json:"depth_replacements"`
	ScreenFailures    int `json:"screen_failures"`
}

// Add folds r into s.
func (s *Stats) Add(r Result) {
	if r.Ensemble == nil {
		return
	}
	s.Processed++
	s.MaskedBins += r.MaskedBins
	if r.DepthReplaced {
		s.DepthReplacements++
	}
	if !r.DepthScreenOK {
		s.ScreenFailures++
	}
}

// Processor applies the processing chain to ensembles.
type Processor struct {
	opts Options
}

// NewProcessor returns a Processor for opts.
func NewProcessor(opts Options) *Processor {
	return &Processor{opts: opts}
}

// Options returns the processor's options.
func (p *Processor) Options() Options {
	return p.opts
}

// Process runs the chain on e in place: tilt offset, heading offset, profile
// transform, bottom track transform, then the depth screen.
func (p *Processor) Process(e *ensemble.Ensemble) Result {
	if e == nil {
		return Result{}
	}

	vm := p.opts.VesselMount
	vesselmount.ApplyTiltOffset(e, vm, false)
	vesselmount.ApplyHeadingOffset(e, vm, false)

	to := transform.Options{
		CorrelationThreshold: vm.CorrelationThreshold,
		HeadingSource:        vm.HeadingSource,
	}
	transform.ProfileTransform(e, to)
	transform.BottomTrackTransform(e, to)

	res := Result{
		Ensemble:      e,
		MaskedBins:    countMaskedBins(e),
		DepthScreenOK: true,
	}
	if p.opts.ReplaceDepthFromRange {
		res.DepthScreenOK = screen.ReplaceTransducerDepthFromRange(e)
		res.DepthReplaced = res.DepthScreenOK && e.Subsystem.IsVerticalBeam()
	}
	return res
}

// ProcessAll processes a clone of every ensemble in in, fanning the work out
// over the configured number of workers. The inputs are not modified. Results
// are returned in input order; a nil input yields a zero Result. If ctx is
// cancelled before the batch completes, ProcessAll returns ctx.Err().
func (p *Processor) ProcessAll(ctx context.Context, in []*ensemble.Ensemble) ([]Result, Stats, error) {
	results := make([]Result, len(in))
	workers := p.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(in) {
		workers = len(in)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if in[i] == nil {
					continue
				}
				// Each index is written by exactly one worker.
				results[i] = p.Process(in[i].Clone())
			}
		}()
	}

feed:
	for i := range in {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, Stats{}, err
	}

	var stats Stats
	for _, r := range results {
		stats.Add(r)
	}
	monitoring.Debugf("pipeline: %d ensembles, %d masked bins, %d depth replacements, %d screen failures",
		stats.Processed, stats.MaskedBins, stats.DepthReplacements, stats.ScreenFailures)
	return results, stats, nil
}

// countMaskedBins counts bins whose earth velocity row is all BadVelocity.
func countMaskedBins(e *ensemble.Ensemble) int {
	if !e.IsEarthVelocityAvail {
		return 0
	}
	n := 0
	for _, row := range e.EarthVelocity {
		if len(row) == 0 {
			continue
		}
		bad := true
		for _, v := range row {
			if v != ensemble.BadVelocity {
				bad = false
				break
			}
		}
		if bad {
			n++
		}
	}
	return n
}
