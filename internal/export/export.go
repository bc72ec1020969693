// Package export writes one summary file per processed log.
package export

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/explog-analyzer/explog/internal/locator"
	"github.com/explog-analyzer/explog/internal/models"
	"github.com/explog-analyzer/explog/internal/pyliteral"
)

// ErrNothingToWrite is returned when there are neither rounds nor summary values.
var ErrNothingToWrite = errors.New("no data to write")

// Writer persists the result of one log.
type Writer interface {
	// Format names the output format, e.g. "csv".
	Format() string
	// Write stores records and summary for source and returns the output path.
	Write(records []models.RoundRecord, summary models.ConfigSummary, source string) (string, error)
}

// Table is the flattened form every writer serialises: one row per round with the summary
// merged into each row, or a single summary row when there are no rounds.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// BuildTable flattens records and summary. configKeys lead the column list in sorted order,
// followed by every other observed key sorted with "round" first. Summary values win over
// record values that share a key.
func BuildTable(records []models.RoundRecord, summary models.ConfigSummary, configKeys []string) (*Table, error) {
	if len(records) == 0 && len(summary) == 0 {
		return nil, ErrNothingToWrite
	}

	rows := make([]map[string]string, 0, len(records))
	seen := make(map[string]struct{})
	for _, rec := range records {
		row := make(map[string]string, len(rec)+len(summary))
		for k, v := range rec {
			row[k] = pyliteral.Format(v)
			seen[k] = struct{}{}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		rows = append(rows, make(map[string]string, len(summary)))
	}
	for k, v := range summary {
		seen[k] = struct{}{}
		for _, row := range rows {
			row[k] = v.String()
		}
	}

	leading := append([]string(nil), configKeys...)
	sort.Strings(leading)
	leadSet := make(map[string]struct{}, len(leading))
	for _, k := range leading {
		leadSet[k] = struct{}{}
	}
	others := make([]string, 0, len(seen))
	for k := range seen {
		if _, ok := leadSet[k]; !ok {
			others = append(others, k)
		}
	}

	return &Table{
		Columns: append(leading, models.OrderKeys(others)...),
		Rows:    rows,
	}, nil
}

// OutputName returns "summary_<base><ext>" for a source log path.
func OutputName(source, ext string) string {
	return "summary_" + locator.BaseName(source) + ext
}

// createOutput makes dir and creates name inside it.
func createOutput(dir, name string) (*os.File, string, error) {
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, path, &models.WriteError{Path: path, Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, path, &models.WriteError{Path: path, Err: err}
	}
	return f, path, nil
}
