package export

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/explog-analyzer/explog/internal/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

var testKeys = []string{"server.lr", "exp_name", "algorithm"}

func testSummary() models.ConfigSummary {
	return models.ConfigSummary{
		"exp_name":  models.Available("cifar_a"),
		"server.lr": models.Available(0.01),
		"algorithm": models.NotAvailable,
	}
}

func TestCSVWriter_Write(t *testing.T) {
	t.Run("rounds with summary merged", func(t *testing.T) {
		dir := t.TempDir()
		records := []models.RoundRecord{
			{"round": 1, "global_test_accuracy": 0.61, "g_protos_std": 0.031},
			{"round": 2, "global_test_accuracy": 0.7},
		}

		path, err := NewCSVWriter(dir, testKeys).Write(records, testSummary(), "/logs/20250301_100000.log")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "summary_20250301_100000.csv"), path)

		rows := readCSV(t, path)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"algorithm", "exp_name", "server.lr", "round", "g_protos_std", "global_test_accuracy"}, rows[0])
		assert.Equal(t, []string{"N/A", "cifar_a", "0.01", "1", "0.031", "0.61"}, rows[1])
		assert.Equal(t, []string{"N/A", "cifar_a", "0.01", "2", "", "0.7"}, rows[2])
	})

	t.Run("summary only", func(t *testing.T) {
		dir := t.TempDir()
		path, err := NewCSVWriter(dir, testKeys).Write(nil, testSummary(), "20250301_100000.log.gz")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "summary_20250301_100000.csv"), path)

		rows := readCSV(t, path)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"algorithm", "exp_name", "server.lr"}, rows[0])
		assert.Equal(t, []string{"N/A", "cifar_a", "0.01"}, rows[1])
	})

	t.Run("configured key missing from data gets empty cells", func(t *testing.T) {
		dir := t.TempDir()
		path, err := NewCSVWriter(dir, []string{"zeta"}).Write([]models.RoundRecord{{"round": 4}}, nil, "a.log")
		require.NoError(t, err)
		rows := readCSV(t, path)
		assert.Equal(t, [][]string{{"zeta", "round"}, {"", "4"}}, rows)
	})

	t.Run("nothing to write", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")
		path, err := NewCSVWriter(dir, testKeys).Write(nil, models.ConfigSummary{}, "a.log")
		assert.ErrorIs(t, err, ErrNothingToWrite)
		assert.Empty(t, path)
		_, statErr := os.Stat(dir)
		assert.True(t, errors.Is(statErr, os.ErrNotExist), "no directory or file is created")
	})

	t.Run("unwritable directory", func(t *testing.T) {
		base := t.TempDir()
		blocker := filepath.Join(base, "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

		_, err := NewCSVWriter(filepath.Join(blocker, "out"), testKeys).Write(nil, testSummary(), "a.log")
		var writeErr *models.WriteError
		assert.ErrorAs(t, err, &writeErr)
	})
}

func TestBuildTable_SummaryWins(t *testing.T) {
	table, err := BuildTable(
		[]models.RoundRecord{{"round": 1, "exp_name": "from-record"}},
		models.ConfigSummary{"exp_name": models.Available("from-summary")},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, "from-summary", table.Rows[0]["exp_name"])
	assert.Equal(t, []string{"round", "exp_name"}, table.Columns)
}

func TestJSONWriter_Write(t *testing.T) {
	dir := t.TempDir()
	path, err := NewJSONWriter(dir).Write(
		[]models.RoundRecord{{"round": 1, "global_test_accuracy": 0.5}},
		testSummary(),
		"/logs/20250301_100000.log",
	)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "summary_20250301_100000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Source  string           `json:"source"`
		Summary map[string]any   `json:"summary"`
		Rounds  []map[string]any `json:"rounds"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "/logs/20250301_100000.log", doc.Source)
	assert.Equal(t, "N/A", doc.Summary["algorithm"])
	assert.Equal(t, 0.01, doc.Summary["server.lr"])
	require.Len(t, doc.Rounds, 1)
	assert.Equal(t, 0.5, doc.Rounds[0]["global_test_accuracy"])

	_, err = NewJSONWriter(dir).Write(nil, nil, "x.log")
	assert.ErrorIs(t, err, ErrNothingToWrite)
}
