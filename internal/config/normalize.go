package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRetention()
	c.normalizeChecksum()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DestinationDir, err = expandPath(c.Paths.DestinationDir); err != nil {
		return fmt.Errorf("paths.destination_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		// The destination carries its own append-only log by default.
		c.Paths.LogDir = c.Paths.DestinationDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRetention() {
	c.Retention.UnparseableNames = strings.ToLower(strings.TrimSpace(c.Retention.UnparseableNames))
	if c.Retention.UnparseableNames == "" {
		c.Retention.UnparseableNames = defaultUnparseableNames
	}
}

func (c *Config) normalizeChecksum() {
	trimmed := make([]string, 0, len(c.Checksum.Providers))
	for _, provider := range c.Checksum.Providers {
		if provider = strings.ToLower(strings.TrimSpace(provider)); provider != "" {
			trimmed = append(trimmed, provider)
		}
	}
	c.Checksum.Providers = trimmed
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
