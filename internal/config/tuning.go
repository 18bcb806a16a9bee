// Package config loads the JSON tuning file shared by the larva tools.
//
// Every field is a pointer so a partial file only overrides what it names;
// the Get* methods fall back to the built-in defaults, which match
// config/tuning.defaults.json.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/larva.report/internal/kinematics"
	"github.com/banshee-data/larva.report/internal/stitch"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

const maxConfigBytes = 1 * 1024 * 1024

// TuningConfig is the root of the tuning file.
type TuningConfig struct {
	// Reconciler
	JumpSigmas         *float64 `json:"jump_sigmas,omitempty"`
	DropSigmas         *float64 `json:"drop_sigmas,omitempty"`
	SwapRatio          *float64 `json:"swap_ratio,omitempty"`
	SmallGapMinSamples *int     `json:"small_gap_min_samples,omitempty"`
	RefineWindowFrames *int     `json:"refine_window_frames,omitempty"`
	MaxGapSeconds      *float64 `json:"max_gap_seconds,omitempty"`

	// Analyzer
	MinFrameRate        *float64 `json:"min_frame_rate,omitempty"`
	SpuriousDivisor     *float64 `json:"spurious_divisor,omitempty"`
	StrideDivisor       *float64 `json:"stride_divisor,omitempty"`
	BendingThresholdDeg *float64 `json:"bending_threshold_deg,omitempty"`
	RepellentRadiusMM   *float64 `json:"repellent_radius_mm,omitempty"`
	SpeedPaddingFrames  *int     `json:"speed_padding_frames,omitempty"`
	DirectionDistanceMM *float64 `json:"direction_distance_mm,omitempty"`
	DirectionAngleDeg   *float64 `json:"direction_angle_deg,omitempty"`
	MinRunStrides       *int     `json:"min_run_strides,omitempty"`

	// Outputs
	MetricsFilename *string `json:"metrics_filename,omitempty"`
	WritePlots      *bool   `json:"write_plots,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with every field unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its
// default.
func DefaultTuningConfig() *TuningConfig {
	s := stitch.DefaultOptions()
	k := kinematics.DefaultOptions()
	return &TuningConfig{
		JumpSigmas:          ptrFloat64(s.JumpSigmas),
		DropSigmas:          ptrFloat64(s.DropSigmas),
		SwapRatio:           ptrFloat64(s.SwapRatio),
		SmallGapMinSamples:  ptrInt(s.SmallGapMinSamples),
		RefineWindowFrames:  ptrInt(s.RefineWindow),
		MaxGapSeconds:       ptrFloat64(s.MaxGapSeconds),
		MinFrameRate:        ptrFloat64(k.MinFrameRate),
		SpuriousDivisor:     ptrFloat64(k.SpuriousDivisor),
		StrideDivisor:       ptrFloat64(k.StrideDivisor),
		BendingThresholdDeg: ptrFloat64(k.BendingThreshold),
		RepellentRadiusMM:   ptrFloat64(k.RepellentRadius),
		SpeedPaddingFrames:  ptrInt(k.SpeedPadding),
		DirectionDistanceMM: ptrFloat64(k.DirectionDistance),
		DirectionAngleDeg:   ptrFloat64(k.DirectionAngle),
		MinRunStrides:       ptrInt(k.MinRunStrides),
		MetricsFilename:     ptrString(defaultMetricsFilename),
		WritePlots:          ptrBool(false),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file no larger than 1 MiB.
// Fields omitted from the file keep their defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigBytes)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the working directory or
// a parent of it. It panics on failure and is meant for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *TuningConfig) Validate() error {
	positive := []struct {
		name string
		v    *float64
	}{
		{"jump_sigmas", c.JumpSigmas},
		{"drop_sigmas", c.DropSigmas},
		{"swap_ratio", c.SwapRatio},
		{"max_gap_seconds", c.MaxGapSeconds},
		{"min_frame_rate", c.MinFrameRate},
		{"spurious_divisor", c.SpuriousDivisor},
		{"stride_divisor", c.StrideDivisor},
		{"repellent_radius_mm", c.RepellentRadiusMM},
		{"direction_distance_mm", c.DirectionDistanceMM},
	}
	for _, p := range positive {
		if p.v != nil && *p.v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", p.name, *p.v)
		}
	}
	for _, a := range []struct {
		name string
		v    *float64
	}{
		{"bending_threshold_deg", c.BendingThresholdDeg},
		{"direction_angle_deg", c.DirectionAngleDeg},
	} {
		if a.v != nil && (*a.v < 0 || *a.v > 180) {
			return fmt.Errorf("%s must be between 0 and 180, got %f", a.name, *a.v)
		}
	}
	if c.SmallGapMinSamples != nil && *c.SmallGapMinSamples < 1 {
		return fmt.Errorf("small_gap_min_samples must be at least 1, got %d", *c.SmallGapMinSamples)
	}
	if c.RefineWindowFrames != nil && *c.RefineWindowFrames < 0 {
		return fmt.Errorf("refine_window_frames must be non-negative, got %d", *c.RefineWindowFrames)
	}
	if c.SpeedPaddingFrames != nil && *c.SpeedPaddingFrames < 1 {
		return fmt.Errorf("speed_padding_frames must be at least 1, got %d", *c.SpeedPaddingFrames)
	}
	if c.MinRunStrides != nil && *c.MinRunStrides < 1 {
		return fmt.Errorf("min_run_strides must be at least 1, got %d", *c.MinRunStrides)
	}
	if c.MetricsFilename != nil && filepath.Base(*c.MetricsFilename) != *c.MetricsFilename {
		return fmt.Errorf("metrics_filename must be a bare file name, got %q", *c.MetricsFilename)
	}
	return nil
}
