package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/current.report/internal/adcp/ensemble"
	"github.com/banshee-data/current.report/internal/adcp/pipeline"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run is one batch of ensembles processed with a single configuration.
type Run struct {
	ID        string          `json:"run_id"`
	CreatedAt time.Time       `json:"created_at"`
	Source    string          `json:"source"`
	Config    json.RawMessage `json:"config"`
	Stats     pipeline.Stats  `json:"stats"`
}

// Profile is the stored outcome for one ensemble of a run.
type Profile struct {
	RunID           string      `json:"run_id"`
	Seq             int         `json:"seq"`
	EnsembleNumber  int         `json:"ensemble_number"`
	SubsystemCode   string      `json:"subsystem_code"`
	Heading         float64     `json:"heading"`
	Pitch           float64     `json:"pitch"`
	Roll            float64     `json:"roll"`
	TransducerDepth float64     `json:"transducer_depth"`
	DepthReplaced   bool        `json:"depth_replaced"`
	MaskedBins      int         `json:"masked_bins"`
	FirstBinRange   float64     `json:"first_bin_range"`
	BinSize         float64     `json:"bin_size"`
	EarthVelocity   [][]float64 `json:"earth_velocity"`
}

// CreateRun inserts a new, empty run. config is stored as JSON; nil stores an
// empty object.
func (db *DB) CreateRun(ctx context.Context, source string, config any) (*Run, error) {
	cfgJSON := []byte("{}")
	if config != nil {
		b, err := json.Marshal(config)
		if err != nil {
			return nil, fmt.Errorf("marshal run config: %w", err)
		}
		cfgJSON = b
	}

	run := &Run{
		ID:        uuid.New().String(),
		CreatedAt: db.clock.Now().UTC(),
		Source:    source,
		Config:    cfgJSON,
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO processing_runs (run_id, created_unix_nanos, source, config_json) VALUES (?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixNano(), run.Source, string(cfgJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordResult stores one processed ensemble at position seq of the run and
// folds it into the run's counters. Results with no ensemble are ignored.
func (db *DB) RecordResult(ctx context.Context, runID string, seq int, r pipeline.Result) error {
	if r.Ensemble == nil {
		return nil
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := runExists(ctx, tx, runID); err != nil {
			return err
		}
		if err := insertProfile(ctx, tx, runID, seq, r); err != nil {
			return err
		}
		var s pipeline.Stats
		s.Add(r)
		return addRunStats(ctx, tx, runID, s)
	})
}

// RecordResults stores a batch of results in one transaction, using each
// result's index as its position in the run.
func (db *DB) RecordResults(ctx context.Context, runID string, results []pipeline.Result) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := runExists(ctx, tx, runID); err != nil {
			return err
		}
		var s pipeline.Stats
		for i, r := range results {
			if r.Ensemble == nil {
				continue
			}
			if err := insertProfile(ctx, tx, runID, i, r); err != nil {
				return err
			}
			s.Add(r)
		}
		return addRunStats(ctx, tx, runID, s)
	})
}

// Runs returns all runs, newest first.
func (db *DB) Runs(ctx context.Context) ([]Run, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, created_unix_nanos, source, config_json,
		       ensemble_count, masked_bins, depth_replacements, screen_failures
		FROM processing_runs
		ORDER BY created_unix_nanos DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns the run with the given id, or ErrRunNotFound.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := db.QueryRowContext(ctx, `
		SELECT run_id, created_unix_nanos, source, config_json,
		       ensemble_count, masked_bins, depth_replacements, screen_failures
		FROM processing_runs
		WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// RunProfiles returns the stored profiles of a run in position order, or
// ErrRunNotFound.
func (db *DB) RunProfiles(ctx context.Context, runID string) ([]Profile, error) {
	if err := runExists(ctx, db, runID); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT seq, ensemble_number, subsystem_code, heading, pitch, roll,
		       transducer_depth, depth_replaced, masked_bins, first_bin_range,
		       bin_size, earth_velocity_json
		FROM ensemble_profiles
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	profiles := []Profile{}
	for rows.Next() {
		p := Profile{RunID: runID}
		var earthJSON string
		if err := rows.Scan(&p.Seq, &p.EnsembleNumber, &p.SubsystemCode, &p.Heading, &p.Pitch, &p.Roll,
			&p.TransducerDepth, &p.DepthReplaced, &p.MaskedBins, &p.FirstBinRange,
			&p.BinSize, &earthJSON); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		if err := json.Unmarshal([]byte(earthJSON), &p.EarthVelocity); err != nil {
			return nil, fmt.Errorf("decode earth velocity for ensemble %d: %w", p.EnsembleNumber, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanRun(s scanner) (*Run, error) {
	var (
		run     Run
		nanos   int64
		cfgJSON string
	)
	err := s.Scan(&run.ID, &nanos, &run.Source, &cfgJSON,
		&run.Stats.Processed, &run.Stats.MaskedBins, &run.Stats.DepthReplacements, &run.Stats.ScreenFailures)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.CreatedAt = time.Unix(0, nanos).UTC()
	run.Config = json.RawMessage(cfgJSON)
	return &run, nil
}

func runExists(ctx context.Context, q queryRower, runID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM processing_runs WHERE run_id = ?`, runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRunNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup run %s: %w", runID, err)
	}
	return nil
}

func insertProfile(ctx context.Context, tx *sql.Tx, runID string, seq int, r pipeline.Result) error {
	e := r.Ensemble
	earth := [][]float64{}
	if e.IsEarthVelocityAvail && e.EarthVelocity != nil {
		earth = e.EarthVelocity
	}
	earthJSON, err := json.Marshal(earth)
	if err != nil {
		return fmt.Errorf("marshal earth velocity for ensemble %d: %w", e.EnsembleNumber, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ensemble_profiles (
			run_id, seq, ensemble_number, subsystem_code, heading, pitch, roll,
			transducer_depth, depth_replaced, masked_bins, first_bin_range,
			bin_size, earth_velocity_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, seq, e.EnsembleNumber, subsystemCode(e.Subsystem), e.Ancillary.Heading, e.Ancillary.Pitch, e.Ancillary.Roll,
		e.Ancillary.TransducerDepth, r.DepthReplaced, r.MaskedBins, e.Ancillary.FirstBinRange,
		e.Ancillary.BinSize, string(earthJSON),
	)
	if err != nil {
		return fmt.Errorf("insert profile %d: %w", seq, err)
	}
	return nil
}

func addRunStats(ctx context.Context, tx *sql.Tx, runID string, s pipeline.Stats) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE processing_runs
		SET ensemble_count     = ensemble_count + ?,
		    masked_bins        = masked_bins + ?,
		    depth_replacements = depth_replacements + ?,
		    screen_failures    = screen_failures + ?
		WHERE run_id = ?`,
		s.Processed, s.MaskedBins, s.DepthReplacements, s.ScreenFailures, runID)
	if err != nil {
		return fmt.Errorf("update run stats: %w", err)
	}
	return nil
}

func subsystemCode(s ensemble.Subsystem) string {
	if s.Code == ensemble.SubUnknown {
		return ""
	}
	return string(rune(s.Code))
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Printf("warning: failed to rollback transaction: %v", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
