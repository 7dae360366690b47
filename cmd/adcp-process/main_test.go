package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/current.report/internal/adcp/ensemble"
	"github.com/banshee-data/current.report/internal/config"
	"github.com/banshee-data/current.report/internal/db"
	"github.com/banshee-data/current.report/internal/testutil"
)

func writeInput(t *testing.T, ensembles ...*ensemble.Ensemble) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, ensemble.WriteJSONLines(f, ensembles))
	require.NoError(t, f.Close())
	return path
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		inPath:   writeInput(t, testutil.NewProfileEnsemble(1), testutil.NewProfileEnsemble(2), testutil.NewVerticalEnsemble(3, 5.5, 12.0)),
		outPath:  "-",
		dbPath:   filepath.Join(dir, "runs.db"),
		plotPath: filepath.Join(dir, "profile.png"),
	}

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), opts, strings.NewReader(""), &stdout))

	out, err := ensemble.ReadJSONLines(&stdout)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 12.0, out[2].Ancillary.TransducerDepth)

	store, err := db.NewDB(opts.dbPath)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].Stats.Processed)
	assert.Equal(t, 1, runs[0].Stats.DepthReplacements)

	info, err := os.Stat(opts.plotPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRun_Stdin(t *testing.T) {
	var in bytes.Buffer
	require.NoError(t, ensemble.WriteJSONLines(&in, []*ensemble.Ensemble{testutil.NewProfileEnsemble(7)}))

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), options{inPath: "-", outPath: "-"}, &in, &stdout))

	out, err := ensemble.ReadJSONLines(&stdout)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 7, out[0].EnsembleNumber)
}

func TestRun_NoOutput(t *testing.T) {
	var stdout bytes.Buffer
	opts := options{inPath: writeInput(t, testutil.NewProfileEnsemble(1))}
	require.NoError(t, run(context.Background(), opts, nil, &stdout))
	assert.Zero(t, stdout.Len())
}

func TestRun_Errors(t *testing.T) {
	bogus := "compass"
	tests := []struct {
		name string
		opts options
	}{
		{"missing input", options{inPath: filepath.Join(t.TempDir(), "missing.jsonl")}},
		{"bad config extension", options{inPath: "-", configPath: "run.yaml"}},
		{"invalid heading source", options{inPath: "-", overrides: config.ProcessingConfig{HeadingSource: &bogus}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.opts, strings.NewReader(""), &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := options{inPath: writeInput(t, testutil.NewProfileEnsemble(1), testutil.NewProfileEnsemble(2))}
	err := run(ctx, opts, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"heading_offset": 5, "pitch_offset": 1}`), 0o644))

	offset := 12.5
	cfg, err := loadConfig(options{configPath: path, overrides: config.ProcessingConfig{HeadingOffset: &offset}})
	require.NoError(t, err)
	assert.Equal(t, 12.5, cfg.GetHeadingOffset())
	assert.Equal(t, 1.0, cfg.GetPitchOffset())
	assert.Equal(t, 0.25, cfg.GetCorrelationThreshold())
}
