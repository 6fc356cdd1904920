package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the config file looked up inside the base directory.
const FileName = "config.toml"

// Config holds application configuration.
type Config struct {
	// Bind and Port control the HTTP listener for `triage serve`.
	Bind string `toml:"bind"`
	Port int    `toml:"port"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `toml:"db_max_open_conns"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `toml:"db_max_idle_conns"`

	// QueryTimeoutMS bounds every dashboard query.
	QueryTimeoutMS int `toml:"query_timeout_ms"`

	// UpstreamTimeoutMS bounds every call to a sibling service.
	UpstreamTimeoutMS int `toml:"upstream_timeout_ms"`

	// OpsURL and TerminalURL are the base URLs of the sibling services.
	// Empty disables the corresponding health probe.
	OpsURL      string `toml:"ops_url"`
	TerminalURL string `toml:"terminal_url"`

	// RootPrefixes are project-root prefixes stripped from convention paths
	// during normalization (after the leading slash has been removed).
	RootPrefixes []string `toml:"root_prefixes"`

	// StructureRowLimit caps how many File Structure rows a rebuild reads.
	StructureRowLimit int `toml:"structure_row_limit"`

	// PromotionPageSize caps the promotion queue and the ready-toggle id list.
	PromotionPageSize int `toml:"promotion_page_size"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// LogFile, when set, receives logs through a rotating writer in addition to stderr.
	LogFile string `toml:"log_file"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `toml:"disabled_tools"`
}

// DefaultRootPrefixes are the two known project roots that show up in
// convention rows written from inside a checkout.
var DefaultRootPrefixes = []string{"home/claude/projects/", "var/www/projects/"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Bind:              "127.0.0.1",
		Port:              8790,
		QueryTimeoutMS:    5000,
		UpstreamTimeoutMS: 4000,
		RootPrefixes:      append([]string(nil), DefaultRootPrefixes...),
		StructureRowLimit: 5000,
		PromotionPageSize: 200,
		LogLevel:          "info",
	}
}

// QueryTimeout returns the dashboard query budget as a duration.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMS) * time.Millisecond
}

// UpstreamTimeout returns the sibling-service budget as a duration.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutMS) * time.Millisecond
}

// Load loads configuration from baseDir/config.toml.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.triage.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, FileName))
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
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
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars. RootPrefixes is replaced
// wholesale when the overlay sets it; DisabledTools is merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		Bind:              firstString(overlay.Bind, base.Bind),
		Port:              firstInt(overlay.Port, base.Port),
		DBMaxOpenConns:    firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:    firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		QueryTimeoutMS:    firstInt(overlay.QueryTimeoutMS, base.QueryTimeoutMS),
		UpstreamTimeoutMS: firstInt(overlay.UpstreamTimeoutMS, base.UpstreamTimeoutMS),
		OpsURL:            firstString(overlay.OpsURL, base.OpsURL),
		TerminalURL:       firstString(overlay.TerminalURL, base.TerminalURL),
		StructureRowLimit: firstInt(overlay.StructureRowLimit, base.StructureRowLimit),
		PromotionPageSize: firstInt(overlay.PromotionPageSize, base.PromotionPageSize),
		LogLevel:          firstString(overlay.LogLevel, base.LogLevel),
		LogFile:           firstString(overlay.LogFile, base.LogFile),
	}

	// Prefixes are positional policy, not a set to union
	if overlay.RootPrefixes != nil {
		result.RootPrefixes = cleanStringSlice(overlay.RootPrefixes)
	} else {
		result.RootPrefixes = cleanStringSlice(base.RootPrefixes)
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstString(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func firstInt(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

// cleanStringSlice trims entries and drops empties, keeping order.
func cleanStringSlice(in []string) []string {
	return mergeStringSlice(in, nil)
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
