package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/explog-analyzer/explog/internal/batch"
	"github.com/explog-analyzer/explog/internal/config"
	"github.com/explog-analyzer/explog/internal/sampler"
	"github.com/explog-analyzer/explog/internal/testutil"
)

// setupWorkspace creates a config location with a logs directory holding one standard log.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	require.NoError(t, os.MkdirAll(logDir, 0755))
	testutil.WriteLog(t, logDir, "20250301_100000.log", testutil.StandardLog().String())
	return dir
}

func executeRoot(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(dir, "explog.yaml"), "--mode", "all", "--preview=false"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	dir := setupWorkspace(t)

	out, err := executeRoot(t, dir, "--start", "2025-03-01-10-00")
	require.NoError(t, err)

	assert.Contains(t, out, "Parsing: 20250301_100000.log")
	assert.Contains(t, out, "All files processed!")
	assert.FileExists(t, filepath.Join(dir, "explog.yaml"))
	assert.FileExists(t, filepath.Join(dir, "analysed_logs", "summary_20250301_100000.csv"))
	assert.FileExists(t, filepath.Join(dir, "analysed_logs", "archive.duckdb"))
}

func TestRootCommand_Diagnostics(t *testing.T) {
	t.Run("malformed start bound", func(t *testing.T) {
		out, err := executeRoot(t, setupWorkspace(t), "--start", "yesterday")
		require.NoError(t, err)
		assert.Contains(t, out, `invalid start "yesterday"`)
		assert.Contains(t, out, "No log files found")
	})

	t.Run("missing log directory", func(t *testing.T) {
		dir := setupWorkspace(t)
		require.NoError(t, os.RemoveAll(filepath.Join(dir, "logs")))

		out, err := executeRoot(t, dir, "--start", "2025-03-01-10-00")
		require.NoError(t, err)
		assert.Contains(t, out, "log directory")
	})

	t.Run("file failure does not fail the batch", func(t *testing.T) {
		dir := setupWorkspace(t)
		// a directory where the CSV should go makes the export fail
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "analysed_logs", "summary_20250301_100000.csv"), 0755))

		out, err := executeRoot(t, dir, "--start", "2025-03-01-10-00")
		require.NoError(t, err)
		assert.Contains(t, out, "Error: ")
		assert.Contains(t, out, "All files processed!")
		assert.Contains(t, out, "1 of 1 files failed.")
	})
}

func TestNewApp(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Logs.Directory = filepath.Join(dir, "logs")
	cfg.Output.Directory = filepath.Join(dir, "out")
	cfg.Output.Formats = []string{"csv", "json"}
	cfg.Output.ArchivePath = ""
	cfg.Output.CacheDir = filepath.Join(dir, "cache")
	require.NoError(t, os.MkdirAll(cfg.Logs.Directory, 0755))
	testutil.WriteLog(t, cfg.Logs.Directory, "20250301_100000.log", testutil.StandardLog().String())

	a, err := newApp(cfg, zap.NewNop(), &bytes.Buffer{})
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.archive)
	require.NotNil(t, a.cache)

	report, err := a.runner.Run(context.Background(), batch.Request{
		Start:   "2025-03-01-10-00",
		Sampler: sampler.Options{Mode: sampler.ModeAll},
	})
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.Equal(t, []string{
		filepath.Join(cfg.Output.Directory, "summary_20250301_100000.csv"),
		filepath.Join(cfg.Output.Directory, "summary_20250301_100000.json"),
	}, report.Files[0].Outputs)
	assert.Equal(t, 1, a.cache.Stats().Count)
}

func TestBuildExporters(t *testing.T) {
	writers, err := buildExporters([]string{"json", "csv"}, t.TempDir(), nil)
	require.NoError(t, err)
	require.Len(t, writers, 2)
	assert.Equal(t, "json", writers[0].Format())
	assert.Equal(t, "csv", writers[1].Format())

	_, err = buildExporters([]string{"xlsx"}, t.TempDir(), nil)
	assert.ErrorContains(t, err, "xlsx")
}

func TestPrintBanner(t *testing.T) {
	out := &bytes.Buffer{}
	printBanner(out, "127.0.0.1:8090", "/data/logs")
	assert.Contains(t, out.String(), "http://127.0.0.1:8090")
	assert.Contains(t, out.String(), "/data/logs")
}
