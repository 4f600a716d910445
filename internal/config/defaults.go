package config

const (
	defaultDestinationDir     = "~/backups"
	defaultDailyKeep          = 7
	defaultWeeklyKeep         = 4
	defaultMonthlyKeep        = 3
	defaultSpaceMarginPercent = 10
	defaultUnparseableNames   = "delete"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DestinationDir: defaultDestinationDir,
		},
		Backup: Backup{
			SpaceMarginPercent: defaultSpaceMarginPercent,
		},
		Retention: Retention{
			DailyKeep:        defaultDailyKeep,
			WeeklyKeep:       defaultWeeklyKeep,
			MonthlyKeep:      defaultMonthlyKeep,
			UnparseableNames: defaultUnparseableNames,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
