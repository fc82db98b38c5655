package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// HomeEnv names the environment variable that overrides the base directory.
const HomeEnv = "CRAM_HOME"

// Counter policies for an existing session deck that is rebuilt.
const (
	CounterResetOnChange = "reset_on_change"
	CounterAlwaysReset   = "always_reset"
	CounterPreserve      = "preserve"
)

// Config holds application configuration.
type Config struct {
	// Option defaults used when a study parameter is omitted.
	ExtendNewDefault     int `json:"extend_new_default"`
	ExtendReviewDefault  int `json:"extend_review_default"`
	AheadDaysDefault     int `json:"ahead_days_default"`
	ForgottenDaysDefault int `json:"forgotten_days_default"`
	PreviewDaysDefault   int `json:"preview_days_default"`
	TagLimitDefault      int `json:"tag_limit_default"`

	// Preview timing written for preview_new sessions. PreviewDelay is in minutes.
	PreviewDelay     int `json:"preview_delay"`
	PreviewAgainSecs int `json:"preview_again_secs"`
	PreviewHardSecs  int `json:"preview_hard_secs"`
	PreviewGoodSecs  int `json:"preview_good_secs"`

	// CounterPolicy decides what happens to the per-day counters of an existing
	// session: reset_on_change (default), always_reset or preserve.
	CounterPolicy string `json:"counter_policy"`

	// DayRolloverHour is the local hour at which a new study day starts.
	DayRolloverHour int `json:"day_rollover_hour"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// AllowedPaths is an allowlist of directories for card imports.
	// Paths outside ~/.cram/imports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import.
	// When true, any directory is allowed (but symlink and extension checks still apply).
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "study", "deck", "card". Unknown type names are logged as warnings.
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// WebBind and WebPort address the local web UI.
	WebBind string `json:"web_bind,omitempty"`
	WebPort int    `json:"web_port,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ExtendNewDefault:     10,
		ExtendReviewDefault:  50,
		AheadDaysDefault:     1,
		ForgottenDaysDefault: 1,
		PreviewDaysDefault:   1,
		TagLimitDefault:      100,
		PreviewDelay:         10,
		PreviewAgainSecs:     60,
		PreviewHardSecs:      600,
		PreviewGoodSecs:      0,
		CounterPolicy:        CounterResetOnChange,
		DayRolloverHour:      4,
		WebBind:              "127.0.0.1",
		WebPort:              8765,
	}
}

// BaseDir returns the data directory: $CRAM_HOME if set (a .env file in the
// working directory is honored), else ~/.cram.
func BaseDir() (string, error) {
	_ = godotenv.Load()
	if dir := strings.TrimSpace(os.Getenv(HomeEnv)); dir != "" {
		return filepath.Clean(dir), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".cram"), nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.cram.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.cram) and repo (.cram) directories.
// Repo config is found by walking upward from startDir to find the nearest .cram/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .cram/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".cram", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Validate rejects values no caller can act on.
func (c *Config) Validate() error {
	switch c.CounterPolicy {
	case CounterResetOnChange, CounterAlwaysReset, CounterPreserve:
	default:
		return fmt.Errorf("config: unknown counter_policy %q", c.CounterPolicy)
	}
	if c.DayRolloverHour < 0 || c.DayRolloverHour > 23 {
		return fmt.Errorf("config: day_rollover_hour must be between 0 and 23, got %d", c.DayRolloverHour)
	}
	for name, v := range map[string]int{
		"extend_new_default":     c.ExtendNewDefault,
		"extend_review_default":  c.ExtendReviewDefault,
		"ahead_days_default":     c.AheadDaysDefault,
		"forgotten_days_default": c.ForgottenDaysDefault,
		"preview_days_default":   c.PreviewDaysDefault,
		"tag_limit_default":      c.TagLimitDefault,
	} {
		if v < 1 {
			return fmt.Errorf("config: %s must be positive, got %d", name, v)
		}
	}
	if c.PreviewDelay < 0 || c.PreviewAgainSecs < 0 || c.PreviewHardSecs < 0 || c.PreviewGoodSecs < 0 {
		return fmt.Errorf("config: preview timing must not be negative")
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.ExtendNewDefault = pickInt(overlay.ExtendNewDefault, base.ExtendNewDefault)
	result.ExtendReviewDefault = pickInt(overlay.ExtendReviewDefault, base.ExtendReviewDefault)
	result.AheadDaysDefault = pickInt(overlay.AheadDaysDefault, base.AheadDaysDefault)
	result.ForgottenDaysDefault = pickInt(overlay.ForgottenDaysDefault, base.ForgottenDaysDefault)
	result.PreviewDaysDefault = pickInt(overlay.PreviewDaysDefault, base.PreviewDaysDefault)
	result.TagLimitDefault = pickInt(overlay.TagLimitDefault, base.TagLimitDefault)
	result.PreviewDelay = pickInt(overlay.PreviewDelay, base.PreviewDelay)
	result.PreviewAgainSecs = pickInt(overlay.PreviewAgainSecs, base.PreviewAgainSecs)
	result.PreviewHardSecs = pickInt(overlay.PreviewHardSecs, base.PreviewHardSecs)
	result.PreviewGoodSecs = pickInt(overlay.PreviewGoodSecs, base.PreviewGoodSecs)
	result.DayRolloverHour = pickInt(overlay.DayRolloverHour, base.DayRolloverHour)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.WebPort = pickInt(overlay.WebPort, base.WebPort)

	result.CounterPolicy = strings.TrimSpace(overlay.CounterPolicy)
	if result.CounterPolicy == "" {
		result.CounterPolicy = base.CounterPolicy
	}
	result.WebBind = strings.TrimSpace(overlay.WebBind)
	if result.WebBind == "" {
		result.WebBind = base.WebBind
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
