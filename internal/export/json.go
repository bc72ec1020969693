package export

import (
	"github.com/goccy/go-json"

	"github.com/explog-analyzer/explog/internal/models"
)

// JSONWriter writes summary_<base>.json files into Dir.
type JSONWriter struct {
	Dir    string
	Indent bool
}

// NewJSONWriter creates a JSON writer for dir.
func NewJSONWriter(dir string) *JSONWriter {
	return &JSONWriter{Dir: dir, Indent: true}
}

func (w *JSONWriter) Format() string { return "json" }

type jsonDocument struct {
	Source  string               `json:"source"`
	Summary models.ConfigSummary `json:"summary"`
	Rounds  []models.RoundRecord `json:"rounds"`
}

func (w *JSONWriter) Write(records []models.RoundRecord, summary models.ConfigSummary, source string) (string, error) {
	if len(records) == 0 && len(summary) == 0 {
		return "", ErrNothingToWrite
	}
	if records == nil {
		records = []models.RoundRecord{}
	}

	f, path, err := createOutput(w.Dir, OutputName(source, ".json"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if w.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(jsonDocument{Source: source, Summary: summary, Rounds: records}); err != nil {
		return "", &models.WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &models.WriteError{Path: path, Err: err}
	}
	return path, nil
}
