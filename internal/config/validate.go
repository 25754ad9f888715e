package config

import (
	"errors"
	"fmt"
	"time"
)

var validPublishModes = map[string]struct{}{
	"disabled":       {},
	"manual":         {},
	"auto":           {},
	"auto_from_date": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateHarvest(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	return c.validateDedup()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateHarvest() error {
	if c.Harvest.MinYear < 1800 || c.Harvest.MinYear > time.Now().Year() {
		return fmt.Errorf("harvest.min_year %d is outside the usable range", c.Harvest.MinYear)
	}
	return nil
}

func (c *Config) validatePublish() error {
	if _, ok := validPublishModes[c.Publish.Mode]; !ok {
		return fmt.Errorf("publish.mode: unsupported value %q (expected disabled, manual, auto, or auto_from_date)", c.Publish.Mode)
	}
	if c.Publish.Mode == "auto_from_date" && c.Publish.FromYear <= 0 {
		return errors.New("publish.from_year must be set when publish.mode is auto_from_date")
	}
	return nil
}

func (c *Config) validateDedup() error {
	if c.Dedup.PerceptualThreshold > 64 {
		return errors.New("dedup.perceptual_threshold cannot exceed 64 (hash width)")
	}
	if c.Dedup.SubjectSimilarity > 1 {
		return errors.New("dedup.subject_similarity must be between 0 and 1")
	}
	return nil
}
