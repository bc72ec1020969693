package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/explog-analyzer/explog/internal/models"
	"github.com/explog-analyzer/explog/internal/parser"
)

func sampleLog(source string) *models.ParsedLog {
	log := models.NewParsedLog(source)
	log.Summary["exp_name"] = models.Available("cifar_a")
	log.Summary["server.local_epochs"] = models.Available(int64(5))
	log.Summary["server.lr"] = models.Available(0.01)
	log.Summary["algorithm"] = models.NotAvailable
	log.Summary["debug"] = models.Available(false)
	log.Rounds = []models.RoundRecord{
		{"round": 1, "global_test_accuracy": 0.61, "model_variance_mean": 0.00025},
		{"round": 2, "global_test_accuracy": 0.7},
	}
	return log
}

func writeLog(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "20250301_100000.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCache_PutGet(t *testing.T) {
	c, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	in := sampleLog("a.log")
	warnings := []*models.ParseError{{Line: 3, Content: "g_protos_std: 1e400", Reason: "invalid number"}}
	require.NoError(t, c.Put("k1", in, warnings))

	entry, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, in.Source, entry.Log.Source)
	assert.Equal(t, in.Summary, entry.Log.Summary)
	assert.Equal(t, in.Rounds, entry.Log.Rounds)
	assert.Equal(t, warnings, entry.Warnings)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, nil)
	require.NoError(t, err)
	require.NoError(t, c.Put("k1", sampleLog("a.log"), nil))

	reopened, err := New(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1"}, reopened.List())

	entry, ok := reopened.Get("k1")
	require.True(t, ok)
	assert.Len(t, entry.Log.Rounds, 2)

	stats := reopened.Stats()
	assert.Equal(t, 1, stats.Count)
	assert.Positive(t, stats.TotalSize)
}

func TestCache_CorruptSnapshotIsMiss(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad"+snapshotExt), []byte("not zstd"), 0644))

	c, err := New(dir, nil)
	require.NoError(t, err)

	_, ok := c.Get("bad")
	assert.False(t, ok)
	assert.Empty(t, c.List())
	_, err = os.Stat(filepath.Join(dir, "bad"+snapshotExt))
	assert.True(t, os.IsNotExist(err), "corrupt snapshot is removed")
}

func TestCache_Delete(t *testing.T) {
	c, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, c.Put("k1", sampleLog("a.log"), nil))
	require.NoError(t, c.Delete("k1"))

	_, ok := c.Get("k1")
	assert.False(t, ok)
	assert.NoError(t, c.Delete("k1"), "deleting twice is fine")
}

func TestCache_Key(t *testing.T) {
	c, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	logDir := t.TempDir()
	path := writeLog(t, logDir, "Round 1 starts\n")
	opts := parser.Options{ConfigKeys: []string{"exp_name"}}

	k1, err := c.Key(path, opts)
	require.NoError(t, err)
	k2, err := c.Key(path, opts)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	strict := opts
	strict.StrictRounds = true
	k3, err := c.Key(path, strict)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3, "options are part of the key")

	require.NoError(t, os.WriteFile(path, []byte("Round 1 starts\nRound 2 starts\n"), 0644))
	require.NoError(t, os.Chtimes(path, time.Now().Add(time.Hour), time.Now().Add(time.Hour)))
	k4, err := c.Key(path, opts)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k4, "content changes invalidate the key")

	_, err = c.Key(filepath.Join(logDir, "missing.log"), opts)
	var readErr *models.FileReadError
	assert.ErrorAs(t, err, &readErr)
}

func TestCache_ListSorted(t *testing.T) {
	c, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	for _, k := range []string{"k3", "k1", "k2"} {
		require.NoError(t, c.Put(k, sampleLog("a.log"), nil))
	}
	assert.Equal(t, []string{"k1", "k2", "k3"}, c.List())
}
