package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/banshee-data/current.report/internal/adcp/pipeline"
	"github.com/banshee-data/current.report/internal/adcp/transform"
	"github.com/banshee-data/current.report/internal/adcp/vesselmount"
	"github.com/banshee-data/current.report/internal/units"
)

// DefaultConfigPath is the path to the canonical processing defaults file.
const DefaultConfigPath = "config/processing.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// ErrInvalidHeadingSource is returned by Validate when heading_source is not a
// known heading source.
var ErrInvalidHeadingSource = errors.New("invalid heading_source")

// ProcessingConfig holds the settings for one processing run. Every field is
// optional; the Get* methods return the default for fields left unset.
type ProcessingConfig struct {
	// Correlation screen, 0 disables it.
	CorrelationThreshold *float64 `json:"correlation_threshold,omitempty"`
	// "adcp" or "external".
	HeadingSource *string `json:"heading_source,omitempty"`

	// Mounting offsets in degrees.
	HeadingOffset *float64 `json:"heading_offset,omitempty"`
	PitchOffset   *float64 `json:"pitch_offset,omitempty"`
	RollOffset    *float64 `json:"roll_offset,omitempty"`

	ReplaceDepthFromRange *bool `json:"replace_depth_from_range,omitempty"`

	// Workers is the number of ensembles processed concurrently. Zero means
	// one per CPU.
	Workers *int `json:"workers,omitempty"`

	DisplayUnits *string `json:"display_units,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyProcessingConfig returns a ProcessingConfig with all fields set to nil.
func EmptyProcessingConfig() *ProcessingConfig {
	return &ProcessingConfig{}
}

// DefaultProcessingConfig returns a ProcessingConfig with every field set to
// its default.
func DefaultProcessingConfig() *ProcessingConfig {
	return &ProcessingConfig{
		CorrelationThreshold:  ptrFloat64(vesselmount.DefaultCorrelationThreshold),
		HeadingSource:         ptrString(transform.HeadingSourceADCP.String()),
		HeadingOffset:         ptrFloat64(0),
		PitchOffset:           ptrFloat64(0),
		RollOffset:            ptrFloat64(0),
		ReplaceDepthFromRange: ptrBool(true),
		Workers:               ptrInt(0),
		DisplayUnits:          ptrString(units.MPS),
	}
}

// LoadProcessingConfig loads a ProcessingConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted from
// the file keep their defaults.
func LoadProcessingConfig(path string) (*ProcessingConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyProcessingConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *ProcessingConfig) Validate() error {
	if c.CorrelationThreshold != nil && *c.CorrelationThreshold < 0 {
		return fmt.Errorf("correlation_threshold must be non-negative, got %f", *c.CorrelationThreshold)
	}

	if c.HeadingSource != nil {
		if _, err := transform.ParseHeadingSource(*c.HeadingSource); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidHeadingSource, *c.HeadingSource)
		}
	}

	if c.DisplayUnits != nil && !units.IsValid(*c.DisplayUnits) {
		return fmt.Errorf("display_units must be one of %s, got %q", units.GetValidUnitsString(), *c.DisplayUnits)
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}

	return nil
}

// GetCorrelationThreshold returns the correlation_threshold value or the default.
func (c *ProcessingConfig) GetCorrelationThreshold() float64 {
	if c.CorrelationThreshold == nil {
		return vesselmount.DefaultCorrelationThreshold
	}
	return *c.CorrelationThreshold
}

// GetHeadingSource returns the parsed heading_source, falling back to the ADCP
// compass when unset or unparseable.
func (c *ProcessingConfig) GetHeadingSource() transform.HeadingSource {
	if c.HeadingSource == nil {
		return transform.HeadingSourceADCP
	}
	src, err := transform.ParseHeadingSource(*c.HeadingSource)
	if err != nil {
		return transform.HeadingSourceADCP
	}
	return src
}

// GetHeadingOffset returns the heading_offset value or 0.
func (c *ProcessingConfig) GetHeadingOffset() float64 {
	if c.HeadingOffset == nil {
		return 0
	}
	return *c.HeadingOffset
}

// GetPitchOffset returns the pitch_offset value or 0.
func (c *ProcessingConfig) GetPitchOffset() float64 {
	if c.PitchOffset == nil {
		return 0
	}
	return *c.PitchOffset
}

// GetRollOffset returns the roll_offset value or 0.
func (c *ProcessingConfig) GetRollOffset() float64 {
	if c.RollOffset == nil {
		return 0
	}
	return *c.RollOffset
}

// GetReplaceDepthFromRange returns the replace_depth_from_range value or the default.
func (c *ProcessingConfig) GetReplaceDepthFromRange() bool {
	if c.ReplaceDepthFromRange == nil {
		return true
	}
	return *c.ReplaceDepthFromRange
}

// GetWorkers returns the worker count, resolving 0 or unset to runtime.NumCPU.
func (c *ProcessingConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetDisplayUnits returns the display_units value or the default.
func (c *ProcessingConfig) GetDisplayUnits() string {
	if c.DisplayUnits == nil || *c.DisplayUnits == "" {
		return units.MPS
	}
	return *c.DisplayUnits
}

// VesselMountOptions projects the config onto the vessel mount corrector.
func (c *ProcessingConfig) VesselMountOptions() vesselmount.Options {
	return vesselmount.Options{
		HeadingOffset:        c.GetHeadingOffset(),
		PitchOffset:          c.GetPitchOffset(),
		RollOffset:           c.GetRollOffset(),
		CorrelationThreshold: c.GetCorrelationThreshold(),
		HeadingSource:        c.GetHeadingSource(),
	}
}

// TransformOptions projects the config onto the profile transform. Mounting
// offsets are applied by the vessel mount corrector, so none are set here.
func (c *ProcessingConfig) TransformOptions() transform.Options {
	return transform.Options{
		CorrelationThreshold: c.GetCorrelationThreshold(),
		HeadingSource:        c.GetHeadingSource(),
	}
}

// PipelineOptions projects the config onto the batch processor.
func (c *ProcessingConfig) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		VesselMount:           c.VesselMountOptions(),
		ReplaceDepthFromRange: c.GetReplaceDepthFromRange(),
		Workers:               c.GetWorkers(),
	}
}
