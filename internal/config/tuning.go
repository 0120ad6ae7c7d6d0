// Package config loads operator-facing tuning overrides for the
// triangulation engine from JSON files. All fields are pointers so a
// partial file only overrides what it names; everything else keeps the
// engine defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dartsense/dartsense/internal/triangulate"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root configuration for triangulation tuning. The
// schema is shared between startup configuration and runtime updates, so
// the same JSON works in both places.
type TuningConfig struct {
	// Line projector params
	AxisSampleCount    *int     `json:"axis_sample_count,omitempty"`
	AxisSampleSpanPx   *float64 `json:"axis_sample_span_px,omitempty"`
	UseLocalHomography *bool    `json:"use_local_homography,omitempty"`
	TipReliableMaxDist *float64 `json:"tip_reliable_max_dist,omitempty"`

	// Pairwise intersection params
	MinCrossingSine       *float64 `json:"min_crossing_sine,omitempty"`
	MaxIntersectionRadius *float64 `json:"max_intersection_radius,omitempty"`

	// Gate cascade params
	OffBoardRadius          *float64 `json:"off_board_radius,omitempty"`
	ResidualHardMax         *float64 `json:"residual_hard_max,omitempty"`
	ResidualSoftMin         *float64 `json:"residual_soft_min,omitempty"`
	SpreadHardDeg           *float64 `json:"spread_hard_deg,omitempty"`
	SpreadSoftDeg           *float64 `json:"spread_soft_deg,omitempty"`
	CompositeConfidenceMin  *float64 `json:"composite_confidence_min,omitempty"`
	RadiusHard              *float64 `json:"radius_hard,omitempty"`
	RadiusSoft              *float64 `json:"radius_soft,omitempty"`
	RadiusSoftMinConfidence *float64 `json:"radius_soft_min_confidence,omitempty"`

	// Fusion params
	UseFusion        *bool    `json:"use_fusion,omitempty"`
	FusionIterations *int     `json:"fusion_iterations,omitempty"`
	FusionHuberDelta *float64 `json:"fusion_huber_delta,omitempty"`
	UseBCWT          *bool    `json:"use_bcwt,omitempty"`
	BCWTMinWeight    *float64 `json:"bcwt_min_weight,omitempty"`
	ClampHybrid      *bool    `json:"clamp_hybrid,omitempty"`
	UseCAF           *bool    `json:"use_caf,omitempty"`
	CAFMaxSpreadDeg  *float64 `json:"caf_max_spread_deg,omitempty"`
	CAFPriorWeight   *float64 `json:"caf_prior_weight,omitempty"`

	// Wire voting params
	WireVoteBandDeg  *float64 `json:"wire_vote_band_deg,omitempty"`
	WireVoteMajority *float64 `json:"wire_vote_majority,omitempty"`
	WireVoteSamples  *int     `json:"wire_vote_samples,omitempty"`

	// Diagnostics toggle
	Diagnostics *bool `json:"diagnostics,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. Apply overlays only the fields that
	// were actually specified.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/tools/*
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MinCrossingSine != nil {
		if *c.MinCrossingSine < 0 || *c.MinCrossingSine > 1 {
			return fmt.Errorf("min_crossing_sine must be between 0 and 1, got %f", *c.MinCrossingSine)
		}
	}
	if c.WireVoteMajority != nil {
		if *c.WireVoteMajority <= 0.5 || *c.WireVoteMajority > 1 {
			return fmt.Errorf("wire_vote_majority must be in (0.5, 1], got %f", *c.WireVoteMajority)
		}
	}
	if c.WireVoteSamples != nil {
		if *c.WireVoteSamples < 4 {
			return fmt.Errorf("wire_vote_samples must be at least 4, got %d", *c.WireVoteSamples)
		}
	}
	if c.FusionIterations != nil {
		if *c.FusionIterations < 1 {
			return fmt.Errorf("fusion_iterations must be positive, got %d", *c.FusionIterations)
		}
	}
	if c.RadiusHard != nil && c.RadiusSoft != nil {
		if *c.RadiusSoft > *c.RadiusHard {
			return fmt.Errorf("radius_soft (%f) must not exceed radius_hard (%f)", *c.RadiusSoft, *c.RadiusHard)
		}
	}
	if c.ResidualHardMax != nil && c.ResidualSoftMin != nil {
		if *c.ResidualSoftMin > *c.ResidualHardMax {
			return fmt.Errorf("residual_soft_min (%f) must not exceed residual_hard_max (%f)", *c.ResidualSoftMin, *c.ResidualHardMax)
		}
	}
	if c.CAFPriorWeight != nil {
		if *c.CAFPriorWeight < 0 {
			return fmt.Errorf("caf_prior_weight must be non-negative, got %f", *c.CAFPriorWeight)
		}
	}
	return nil
}

// Apply overlays the set fields onto an engine configuration and returns
// the result. Nil fields leave the base value untouched.
func (c *TuningConfig) Apply(base triangulate.Config) triangulate.Config {
	if c == nil {
		return base
	}
	if c.AxisSampleCount != nil {
		base.AxisSampleCount = *c.AxisSampleCount
	}
	if c.AxisSampleSpanPx != nil {
		base.AxisSampleSpanPx = *c.AxisSampleSpanPx
	}
	if c.UseLocalHomography != nil {
		base.UseLocalHomography = *c.UseLocalHomography
	}
	if c.TipReliableMaxDist != nil {
		base.TipReliableMaxDist = *c.TipReliableMaxDist
	}
	if c.MinCrossingSine != nil {
		base.MinCrossingSine = *c.MinCrossingSine
	}
	if c.MaxIntersectionRadius != nil {
		base.MaxIntersectionRadius = *c.MaxIntersectionRadius
	}
	if c.OffBoardRadius != nil {
		base.OffBoardRadius = *c.OffBoardRadius
	}
	if c.ResidualHardMax != nil {
		base.ResidualHardMax = *c.ResidualHardMax
	}
	if c.ResidualSoftMin != nil {
		base.ResidualSoftMin = *c.ResidualSoftMin
	}
	if c.SpreadHardDeg != nil {
		base.SpreadHardDeg = *c.SpreadHardDeg
	}
	if c.SpreadSoftDeg != nil {
		base.SpreadSoftDeg = *c.SpreadSoftDeg
	}
	if c.CompositeConfidenceMin != nil {
		base.CompositeConfidenceMin = *c.CompositeConfidenceMin
	}
	if c.RadiusHard != nil {
		base.RadiusHard = *c.RadiusHard
	}
	if c.RadiusSoft != nil {
		base.RadiusSoft = *c.RadiusSoft
	}
	if c.RadiusSoftMinConfidence != nil {
		base.RadiusSoftMinConfidence = *c.RadiusSoftMinConfidence
	}
	if c.UseFusion != nil {
		base.UseFusion = *c.UseFusion
	}
	if c.FusionIterations != nil {
		base.FusionIterations = *c.FusionIterations
	}
	if c.FusionHuberDelta != nil {
		base.FusionHuberDelta = *c.FusionHuberDelta
	}
	if c.UseBCWT != nil {
		base.UseBCWT = *c.UseBCWT
	}
	if c.BCWTMinWeight != nil {
		base.BCWTMinWeight = *c.BCWTMinWeight
	}
	if c.ClampHybrid != nil {
		base.ClampHybrid = *c.ClampHybrid
	}
	if c.UseCAF != nil {
		base.UseCAF = *c.UseCAF
	}
	if c.CAFMaxSpreadDeg != nil {
		base.CAFMaxSpreadDeg = *c.CAFMaxSpreadDeg
	}
	if c.CAFPriorWeight != nil {
		base.CAFPriorWeight = *c.CAFPriorWeight
	}
	if c.WireVoteBandDeg != nil {
		base.WireVoteBandDeg = *c.WireVoteBandDeg
	}
	if c.WireVoteMajority != nil {
		base.WireVoteMajority = *c.WireVoteMajority
	}
	if c.WireVoteSamples != nil {
		base.WireVoteSamples = *c.WireVoteSamples
	}
	if c.Diagnostics != nil {
		base.Diagnostics = *c.Diagnostics
	}
	return base
}

// EngineConfig resolves the full engine configuration: the engine defaults
// with this file's overrides applied.
func (c *TuningConfig) EngineConfig() triangulate.Config {
	return c.Apply(triangulate.DefaultConfig())
}
