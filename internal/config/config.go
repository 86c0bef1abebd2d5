// Package config loads the tunable constants of the review-scheduling core
// from a TOML document, defaulting every field to the values in spec §6.
package config

import (
	"time"

	"github.com/BurntSushi/toml"
)

// Cache holds the capacity of C1's in-memory LRUs.
type Cache struct {
	HotItemCapacity    int `toml:"hot_item_capacity"`
	HistoryCapacity    int `toml:"history_capacity"`
	HistoryMaxPerItem  int `toml:"history_max_per_item"`
}

// Gesture holds C6's classification thresholds.
type Gesture struct {
	AccidentalThresholdMs int64   `toml:"accidental_threshold_ms"`
	DoubleTapThresholdMs  int64   `toml:"double_tap_threshold_ms"`
	LongPressThresholdMs  int64   `toml:"long_press_threshold_ms"`
	FlingDistancePx       float64 `toml:"fling_distance_px"`
	FlingVelocityPxPerSec float64 `toml:"fling_velocity_px_per_sec"`
}

// Strength holds C2's interval formula constants.
type Strength struct {
	BaseIntervalMs int64 `toml:"base_interval_ms"`
	MinIntervalMs  int64 `toml:"min_interval_ms"`
}

// Batch holds C8's write-behind flush thresholds.
type Batch struct {
	IntervalMs       int64 `toml:"interval_ms"`
	SizeThreshold    int   `toml:"size_threshold"`
	AutoSaveMs       int64 `toml:"auto_save_ms"`
}

// Scheduler holds C5's background check intervals.
type Scheduler struct {
	PeriodicCheckMs       int64 `toml:"periodic_check_ms"`
	BackgroundReturnMs    int64 `toml:"background_return_ms"`
	DriftToleranceMs      int64 `toml:"drift_tolerance_ms"`
}

// Config is the full set of tunables for the review-scheduling core,
// decoded from a TOML document at startup.
type Config struct {
	Cache     Cache     `toml:"cache"`
	Gesture   Gesture   `toml:"gesture"`
	Strength  Strength  `toml:"strength"`
	Batch     Batch     `toml:"batch"`
	Scheduler Scheduler `toml:"scheduler"`
}

// DefaultConfig returns the constants named in spec §6.
func DefaultConfig() Config {
	return Config{
		Cache: Cache{
			HotItemCapacity:   1000,
			HistoryCapacity:   500,
			HistoryMaxPerItem: 200,
		},
		Gesture: Gesture{
			AccidentalThresholdMs: 200,
			DoubleTapThresholdMs:  300,
			LongPressThresholdMs:  500,
			FlingDistancePx:       100,
			FlingVelocityPxPerSec: 50,
		},
		Strength: Strength{
			BaseIntervalMs: 10_000,
			MinIntervalMs:  5_000,
		},
		Batch: Batch{
			IntervalMs:    5_000,
			SizeThreshold: 10,
			AutoSaveMs:    30_000,
		},
		Scheduler: Scheduler{
			PeriodicCheckMs:    60_000,
			BackgroundReturnMs: 30_000,
			DriftToleranceMs:   250,
		},
	}
}

// LoadFile decodes a TOML document at path into a Config, applying
// DefaultConfig() first so unset fields keep their defaults rather than
// zero values.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BatchInterval returns the flush-interval threshold as a time.Duration.
func (b Batch) BatchInterval() time.Duration {
	return time.Duration(b.IntervalMs) * time.Millisecond
}

// AutoSaveInterval returns the auto-flush interval as a time.Duration.
func (b Batch) AutoSaveInterval() time.Duration {
	return time.Duration(b.AutoSaveMs) * time.Millisecond
}

// DriftTolerance returns the scheduler's permitted late-fire window.
func (s Scheduler) DriftTolerance() time.Duration {
	return time.Duration(s.DriftToleranceMs) * time.Millisecond
}
