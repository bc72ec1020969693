package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/explog-analyzer/explog/internal/parser"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "explog.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be written")

	assert.Equal(t, filepath.Join(dir, "logs"), cfg.Logs.Directory)
	assert.Equal(t, filepath.Join(dir, "analysed_logs"), cfg.Output.Directory)
	assert.Equal(t, filepath.Join(dir, "analysed_logs", "archive.duckdb"), cfg.Output.ArchivePath)
	assert.Equal(t, []string{".log", ".log.gz"}, cfg.Logs.Extensions)
	assert.Equal(t, parser.DefaultConfigKeys, cfg.Extraction.ConfigKeys)
	assert.Equal(t, 30, cfg.Extraction.AlgorithmScanLines)
	assert.False(t, cfg.Extraction.StrictRounds)
	assert.Equal(t, "127.0.0.1:8090", cfg.GetServerAddr())
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "explog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logs:
  directory: /data/logs
extraction:
  config_keys: [exp_name, server.lr]
  strict_rounds: true
output:
  formats: [csv, json]
  archive_path: ""
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/logs", cfg.Logs.Directory)
	assert.Equal(t, []string{"exp_name", "server.lr"}, cfg.Extraction.ConfigKeys)
	assert.True(t, cfg.Extraction.StrictRounds)
	assert.Equal(t, []string{"csv", "json"}, cfg.Output.Formats)
	assert.Empty(t, cfg.Output.ArchivePath)
	assert.Equal(t, "OneshotOurs", cfg.Extraction.AlgorithmPrefix, "unset keys keep defaults")

	opts := cfg.ParserOptions()
	assert.True(t, opts.StrictRounds)
	assert.Equal(t, cfg.Extraction.ConfigKeys, opts.ConfigKeys)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "explog.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	t.Setenv("EXPLOG_SERVER_PORT", "9911")
	t.Setenv("EXPLOG_EXTRACTION_EXTRACT_CLIENT_ACCURACY", "true")
	t.Setenv("EXPLOG_EXTRACTION_CONFIG_KEYS", "exp_name, server.model_name")
	t.Setenv("EXPLOG_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9911, cfg.Server.Port)
	assert.True(t, cfg.Extraction.ExtractClientAccuracy)
	assert.Equal(t, []string{"exp_name", "server.model_name"}, cfg.Extraction.ConfigKeys)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("logs: [unclosed"), 0644))
	_, err := LoadConfig(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("output:\n  formats: [xlsx]\n"), 0644))
	_, err = LoadConfig(invalid)
	assert.ErrorContains(t, err, "xlsx")
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.resolvePaths(dir)

	require.NoError(t, cfg.EnsureDirectories())
	for _, p := range []string{cfg.Output.Directory, cfg.Output.CacheDir, filepath.Dir(cfg.Output.ArchivePath)} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
