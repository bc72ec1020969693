// Package config provides YAML-based configuration management with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/explog-analyzer/explog/internal/logging"
	"github.com/explog-analyzer/explog/internal/parser"
)

// EnvPrefix prefixes every environment override, e.g. EXPLOG_LOGS_DIRECTORY.
const EnvPrefix = "EXPLOG_"

// AppConfig represents the root configuration structure
type AppConfig struct {
	Logs       LogsConfig       `koanf:"logs" yaml:"logs"`
	Output     OutputConfig     `koanf:"output" yaml:"output"`
	Extraction ExtractionConfig `koanf:"extraction" yaml:"extraction"`
	Server     ServerConfig     `koanf:"server" yaml:"server"`
	Logging    logging.Config   `koanf:"logging" yaml:"logging"`
}

// LogsConfig locates the experiment logs
type LogsConfig struct {
	Directory  string   `koanf:"directory" yaml:"directory"`
	Extensions []string `koanf:"extensions" yaml:"extensions"`
}

// OutputConfig contains output and persistence settings
type OutputConfig struct {
	Directory string   `koanf:"directory" yaml:"directory"`
	Formats   []string `koanf:"formats" yaml:"formats"`
	// ArchivePath is the DuckDB archive file. Empty disables archiving.
	ArchivePath string `koanf:"archive_path" yaml:"archive_path"`
	// CacheDir holds parse snapshots. Empty disables the cache.
	CacheDir string `koanf:"cache_dir" yaml:"cache_dir"`
}

// ExtractionConfig mirrors parser.Options
type ExtractionConfig struct {
	ConfigKeys            []string `koanf:"config_keys" yaml:"config_keys"`
	ExtractClientAccuracy bool     `koanf:"extract_client_accuracy" yaml:"extract_client_accuracy"`
	AlgorithmPrefix       string   `koanf:"algorithm_prefix" yaml:"algorithm_prefix"`
	AlgorithmScanLines    int      `koanf:"algorithm_scan_lines" yaml:"algorithm_scan_lines"`
	StrictRounds          bool     `koanf:"strict_rounds" yaml:"strict_rounds"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	BindAddress          string `koanf:"bind_address" yaml:"bind_address"`
	Port                 int    `koanf:"port" yaml:"port"`
	ReadTimeout          int    `koanf:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeout         int    `koanf:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	EnableRequestLogging bool   `koanf:"enable_request_logging" yaml:"enable_request_logging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Logs: LogsConfig{
			Directory:  "./logs",
			Extensions: []string{".log", ".log.gz"},
		},
		Output: OutputConfig{
			Directory:   "./analysed_logs",
			Formats:     []string{"csv"},
			ArchivePath: "./analysed_logs/archive.duckdb",
			CacheDir:    "./analysed_logs/.cache",
		},
		Extraction: ExtractionConfig{
			ConfigKeys:         append([]string(nil), parser.DefaultConfigKeys...),
			AlgorithmPrefix:    parser.DefaultAlgorithmPrefix,
			AlgorithmScanLines: parser.DefaultAlgorithmScanLines,
		},
		Server: ServerConfig{
			BindAddress:          "127.0.0.1",
			Port:                 8090,
			ReadTimeout:          30,
			WriteTimeout:         30,
			EnableRequestLogging: true,
		},
		Logging: logging.DefaultConfig(),
	}
}

// LoadConfig loads configuration from a YAML file, writing the defaults there first if it
// does not exist. Values are layered defaults < file < EXPLOG_* environment.
func LoadConfig(configPath string) (*AppConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := DefaultConfig().Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := load(data)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(configPath))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}

func load(fileData []byte) (*AppConfig, error) {
	k := koanf.New(".")

	defaults, err := yamlv3.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(fileData), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyEnvironmentLists()
	return cfg, nil
}

// envKey maps EXPLOG_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// applyEnvironmentLists splits comma-separated list values, which is how lists arrive from
// the environment.
func (c *AppConfig) applyEnvironmentLists() {
	c.Logs.Extensions = splitList(c.Logs.Extensions)
	c.Output.Formats = splitList(c.Output.Formats)
	c.Extraction.ConfigKeys = splitList(c.Extraction.ConfigKeys)
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# explog configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Logs.Directory,
		&c.Output.Directory,
		&c.Output.ArchivePath,
		&c.Output.CacheDir,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// Validate reports the first invalid setting.
func (c *AppConfig) Validate() error {
	if c.Logs.Directory == "" {
		return fmt.Errorf("logs.directory must be set")
	}
	if len(c.Logs.Extensions) == 0 {
		return fmt.Errorf("logs.extensions must list at least one extension")
	}
	if c.Output.Directory == "" {
		return fmt.Errorf("output.directory must be set")
	}
	for _, f := range c.Output.Formats {
		if f != "csv" && f != "json" {
			return fmt.Errorf("output.formats: unsupported format %q", f)
		}
	}
	if c.Extraction.AlgorithmScanLines < 0 {
		return fmt.Errorf("extraction.algorithm_scan_lines must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return c.Logging.Validate()
}

// ParserOptions converts the extraction section.
func (c *AppConfig) ParserOptions() parser.Options {
	return parser.Options{
		ConfigKeys:            append([]string(nil), c.Extraction.ConfigKeys...),
		ExtractClientAccuracy: c.Extraction.ExtractClientAccuracy,
		AlgorithmPrefix:       c.Extraction.AlgorithmPrefix,
		AlgorithmScanLines:    c.Extraction.AlgorithmScanLines,
		StrictRounds:          c.Extraction.StrictRounds,
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{c.Output.Directory}
	if c.Output.CacheDir != "" {
		dirs = append(dirs, c.Output.CacheDir)
	}
	if c.Output.ArchivePath != "" {
		dirs = append(dirs, filepath.Dir(c.Output.ArchivePath))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
