// Command adcp-process runs the ensemble processing chain over a JSON Lines
// file of decoded ensembles.
//
//	adcp-process -in survey.jsonl -out processed.jsonl -config run.json -db runs.db -plot profile.png
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/current.report/internal/adcp/ensemble"
	"github.com/banshee-data/current.report/internal/adcp/pipeline"
	"github.com/banshee-data/current.report/internal/config"
	"github.com/banshee-data/current.report/internal/db"
	"github.com/banshee-data/current.report/internal/monitoring"
	"github.com/banshee-data/current.report/internal/report"
	"github.com/banshee-data/current.report/internal/version"
)

// options are the resolved command line settings.
type options struct {
	inPath     string
	outPath    string
	configPath string
	dbPath     string
	plotPath   string

	// overrides are applied on top of the config file.
	overrides config.ProcessingConfig
}

func main() {
	var opts options
	var showVersion, debug bool
	var headingOffset, pitchOffset, rollOffset, threshold float64
	var headingSource, units string
	var workers int
	var noDepth bool

	flag.StringVar(&opts.inPath, "in", "-", "input JSON Lines file of ensembles (- for stdin)")
	flag.StringVar(&opts.outPath, "out", "-", "output JSON Lines file (- for stdout, empty to skip)")
	flag.StringVar(&opts.configPath, "config", "", "processing config JSON file")
	flag.StringVar(&opts.dbPath, "db", "", "record the run into this SQLite database")
	flag.StringVar(&opts.plotPath, "plot", "", "save a speed profile plot (.png, .svg or .pdf)")
	flag.Float64Var(&headingOffset, "heading-offset", 0, "heading offset in degrees")
	flag.Float64Var(&pitchOffset, "pitch-offset", 0, "pitch offset in degrees")
	flag.Float64Var(&rollOffset, "roll-offset", 0, "roll offset in degrees")
	flag.Float64Var(&threshold, "threshold", 0, "correlation threshold, 0 disables the screen")
	flag.StringVar(&headingSource, "heading-source", "", "heading source: adcp or external")
	flag.StringVar(&units, "units", "", "display units for the plot")
	flag.IntVar(&workers, "workers", 0, "concurrent workers (0 = one per CPU)")
	flag.BoolVar(&noDepth, "no-depth-replace", false, "keep the pressure sensor depth on vertical beam ensembles")
	flag.BoolVar(&debug, "debug", false, "log per-ensemble diagnostics")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("adcp-process", version.String())
		return
	}
	monitoring.SetDebug(debug)

	// Only flags given on the command line override the config file.
	flag.Visit(func(f *flag.Flag) {
		o := &opts.overrides
		switch f.Name {
		case "heading-offset":
			o.HeadingOffset = &headingOffset
		case "pitch-offset":
			o.PitchOffset = &pitchOffset
		case "roll-offset":
			o.RollOffset = &rollOffset
		case "threshold":
			o.CorrelationThreshold = &threshold
		case "heading-source":
			o.HeadingSource = &headingSource
		case "units":
			o.DisplayUnits = &units
		case "workers":
			o.Workers = &workers
		case "no-depth-replace":
			replace := !noDepth
			o.ReplaceDepthFromRange = &replace
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("adcp-process: %v", err)
	}
}

func run(ctx context.Context, opts options, stdin io.Reader, stdout io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ensembles, err := readEnsembles(opts.inPath, stdin)
	if err != nil {
		return err
	}

	proc := pipeline.NewProcessor(cfg.PipelineOptions())
	results, stats, err := proc.ProcessAll(ctx, ensembles)
	if err != nil {
		return fmt.Errorf("processing: %w", err)
	}
	log.Printf("processed %d ensembles: %d masked bins, %d depth replacements, %d screen failures",
		stats.Processed, stats.MaskedBins, stats.DepthReplacements, stats.ScreenFailures)

	if opts.outPath != "" {
		if err := writeEnsembles(opts.outPath, stdout, results); err != nil {
			return err
		}
	}

	if opts.dbPath != "" {
		runID, err := recordRun(ctx, opts, cfg, results)
		if err != nil {
			return err
		}
		log.Printf("recorded run %s in %s", runID, opts.dbPath)
	}

	if opts.plotPath != "" {
		summary, err := report.SummarizeProfiles(report.FromResults(results), cfg.GetDisplayUnits())
		if errors.Is(err, report.ErrNoData) {
			log.Printf("no valid velocity cells, skipping plot")
			return nil
		}
		if err != nil {
			return fmt.Errorf("summarise: %w", err)
		}
		if err := report.SavePlot(summary, "Current profile: "+opts.inPath, opts.plotPath); err != nil {
			return err
		}
		log.Printf("saved plot to %s", opts.plotPath)
	}
	return nil
}

func loadConfig(opts options) (*config.ProcessingConfig, error) {
	cfg := config.EmptyProcessingConfig()
	if opts.configPath != "" {
		loaded, err := config.LoadProcessingConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	o := opts.overrides
	if o.HeadingOffset != nil {
		cfg.HeadingOffset = o.HeadingOffset
	}
	if o.PitchOffset != nil {
		cfg.PitchOffset = o.PitchOffset
	}
	if o.RollOffset != nil {
		cfg.RollOffset = o.RollOffset
	}
	if o.CorrelationThreshold != nil {
		cfg.CorrelationThreshold = o.CorrelationThreshold
	}
	if o.HeadingSource != nil {
		cfg.HeadingSource = o.HeadingSource
	}
	if o.DisplayUnits != nil {
		cfg.DisplayUnits = o.DisplayUnits
	}
	if o.Workers != nil {
		cfg.Workers = o.Workers
	}
	if o.ReplaceDepthFromRange != nil {
		cfg.ReplaceDepthFromRange = o.ReplaceDepthFromRange
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func readEnsembles(path string, stdin io.Reader) ([]*ensemble.Ensemble, error) {
	if path == "-" {
		return ensemble.ReadJSONLines(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return ensemble.ReadJSONLines(f)
}

func writeEnsembles(path string, stdout io.Writer, results []pipeline.Result) error {
	out := make([]*ensemble.Ensemble, 0, len(results))
	for _, r := range results {
		if r.Ensemble != nil {
			out = append(out, r.Ensemble)
		}
	}

	if path == "-" {
		return ensemble.WriteJSONLines(stdout, out)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := ensemble.WriteJSONLines(f, out); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func recordRun(ctx context.Context, opts options, cfg *config.ProcessingConfig, results []pipeline.Result) (string, error) {
	store, err := db.NewDB(opts.dbPath)
	if err != nil {
		return "", err
	}
	defer store.Close()

	run, err := store.CreateRun(ctx, opts.inPath, cfg)
	if err != nil {
		return "", err
	}
	if err := store.RecordResults(ctx, run.ID, results); err != nil {
		return "", fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return run.ID, nil
}
