package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DestinationDir string `toml:"destination_dir"`
	LogDir         string `toml:"log_dir"`
}

// Backup contains archive creation settings.
type Backup struct {
	// ExcludePatterns is a comma-separated list of names excluded from
	// archives at any depth (e.g. ".git,node_modules").
	ExcludePatterns string `toml:"exclude_patterns"`
	// SpaceMarginPercent is the headroom required on top of the
	// estimated source size before a build is allowed to start.
	SpaceMarginPercent int `toml:"space_margin_percent"`
}

// Retention contains pruning quotas.
type Retention struct {
	DailyKeep   int `toml:"daily_keep"`
	WeeklyKeep  int `toml:"weekly_keep"`
	MonthlyKeep int `toml:"monthly_keep"`
	// UnparseableNames decides what happens to files in the destination
	// whose names carry no recognizable timestamp: "delete" or "keep".
	UnparseableNames string `toml:"unparseable_names"`
}

// Checksum contains digest provider settings.
type Checksum struct {
	// Providers lists digest providers in preference order. Empty means
	// the built-in default order (sha256, sha256-go, md5).
	Providers []string `toml:"providers"`
}

// Schedule contains periodic run settings.
type Schedule struct {
	// Cron is a standard five-field cron expression. Empty disables the
	// schedule command.
	Cron string `toml:"cron"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tarkeep.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Backup    Backup    `toml:"backup"`
	Retention Retention `toml:"retention"`
	Checksum  Checksum  `toml:"checksum"`
	Schedule  Schedule  `toml:"schedule"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tarkeep/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment
// overrides (BACKUP_DESTINATION, EXCLUDE_PATTERNS, DAILY_KEEP,
// WEEKLY_KEEP, MONTHLY_KEEP) are applied after the file is decoded. The
// returned config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tarkeep.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the destination and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DestinationDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ExcludeList returns the exclude patterns as a trimmed slice.
func (c *Config) ExcludeList() []string {
	parts := strings.Split(c.Backup.ExcludePatterns, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LogFilePath returns the append-only log file inside the log directory.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "tarkeep.log")
}

// LockFilePath returns the run-level lock token location.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.DestinationDir, ".tarkeep.lock")
}

// ManifestPath returns the sqlite manifest location.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Paths.DestinationDir, "manifest.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
