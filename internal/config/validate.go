package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateBackup(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DestinationDir) == "" {
		return errors.New("paths.destination_dir must be set (or export BACKUP_DESTINATION)")
	}
	return nil
}

func (c *Config) validateBackup() error {
	if c.Backup.SpaceMarginPercent < 0 {
		return errors.New("backup.space_margin_percent must not be negative")
	}
	return nil
}

func (c *Config) validateRetention() error {
	for _, entry := range []struct {
		name  string
		value int
	}{
		{"retention.daily_keep", c.Retention.DailyKeep},
		{"retention.weekly_keep", c.Retention.WeeklyKeep},
		{"retention.monthly_keep", c.Retention.MonthlyKeep},
	} {
		if entry.value < 0 {
			return fmt.Errorf("%s must not be negative", entry.name)
		}
	}
	switch c.Retention.UnparseableNames {
	case "delete", "keep":
	default:
		return fmt.Errorf("retention.unparseable_names must be %q or %q, got %q", "delete", "keep", c.Retention.UnparseableNames)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q", "console", "json", c.Logging.Format)
	}
	return nil
}
