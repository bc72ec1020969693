package export

import (
	"encoding/csv"

	"github.com/explog-analyzer/explog/internal/models"
)

// CSVWriter writes summary_<base>.csv files into Dir.
type CSVWriter struct {
	Dir        string
	ConfigKeys []string
}

// NewCSVWriter creates a CSV writer for dir.
func NewCSVWriter(dir string, configKeys []string) *CSVWriter {
	return &CSVWriter{Dir: dir, ConfigKeys: configKeys}
}

func (w *CSVWriter) Format() string { return "csv" }

// Write emits a header row and one row per table row. Cells for absent keys are empty.
func (w *CSVWriter) Write(records []models.RoundRecord, summary models.ConfigSummary, source string) (string, error) {
	table, err := BuildTable(records, summary, w.ConfigKeys)
	if err != nil {
		return "", err
	}

	f, path, err := createOutput(w.Dir, OutputName(source, ".csv"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(table.Columns); err != nil {
		return "", &models.WriteError{Path: path, Err: err}
	}
	cells := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			cells[i] = row[col]
		}
		if err := cw.Write(cells); err != nil {
			return "", &models.WriteError{Path: path, Err: err}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", &models.WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &models.WriteError{Path: path, Err: err}
	}
	return path, nil
}
