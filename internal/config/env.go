package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables recognized as overrides. They win over values
// from the configuration file so containerized deployments can run
// without one.
const (
	EnvDestination = "BACKUP_DESTINATION"
	EnvExcludes    = "EXCLUDE_PATTERNS"
	EnvDailyKeep   = "DAILY_KEEP"
	EnvWeeklyKeep  = "WEEKLY_KEEP"
	EnvMonthlyKeep = "MONTHLY_KEEP"
)

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	if value, ok := lookup(EnvDestination); ok && strings.TrimSpace(value) != "" {
		c.Paths.DestinationDir = strings.TrimSpace(value)
	}
	if value, ok := lookup(EnvExcludes); ok {
		c.Backup.ExcludePatterns = strings.TrimSpace(value)
	}

	for _, entry := range []struct {
		name   string
		target *int
	}{
		{EnvDailyKeep, &c.Retention.DailyKeep},
		{EnvWeeklyKeep, &c.Retention.WeeklyKeep},
		{EnvMonthlyKeep, &c.Retention.MonthlyKeep},
	} {
		value, ok := lookup(entry.name)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: expected an integer, got %q", entry.name, value)
		}
		*entry.target = parsed
	}
	return nil
}
