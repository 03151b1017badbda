package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTimeline(); err != nil {
		return err
	}
	if err := c.validateLayout(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTimeline() error {
	if c.Timeline.ActiveWindowCapacity < 2 {
		return fmt.Errorf("timeline.active_window_capacity must be at least 2, got %d", c.Timeline.ActiveWindowCapacity)
	}
	if c.Timeline.OutputFPS < 1 || c.Timeline.OutputFPS > 1000 {
		return fmt.Errorf("timeline.output_fps must be between 1 and 1000, got %d", c.Timeline.OutputFPS)
	}
	if c.Timeline.MinSectionDurationMs < 0 {
		return errors.New("timeline.min_section_duration_ms must be non-negative")
	}
	return nil
}

func (c *Config) validateLayout() error {
	if c.Layout.CanvasWidth <= 0 || c.Layout.CanvasHeight <= 0 {
		return fmt.Errorf("layout canvas must be positive, got %dx%d", c.Layout.CanvasWidth, c.Layout.CanvasHeight)
	}
	if c.Layout.MaxSmallTileHeight <= 0 {
		return errors.New("layout.max_small_tile_height must be positive")
	}
	if c.Layout.MaxSmallTileHeight >= c.Layout.CanvasHeight {
		return fmt.Errorf("layout.max_small_tile_height (%d) must be below canvas_height (%d)", c.Layout.MaxSmallTileHeight, c.Layout.CanvasHeight)
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.Parallelism < 1 {
		return errors.New("render.parallelism must be at least 1")
	}
	switch c.Render.FailurePolicy {
	case FailurePolicyContinue, FailurePolicyAbort:
	default:
		return fmt.Errorf("render.failure_policy must be %q or %q, got %q", FailurePolicyContinue, FailurePolicyAbort, c.Render.FailurePolicy)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
