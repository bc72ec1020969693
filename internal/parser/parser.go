package parser

import (
	"github.com/explog-analyzer/explog/internal/models"
)

// Parser defines the interface for experiment log parsers.
type Parser interface {
	// Name returns the unique name of the parser.
	Name() string
	// CanParse returns true if this parser recognises the given file.
	CanParse(filePath string) (bool, error)
	// Parse reads and extracts the entire file.
	Parse(filePath string) (*models.ParsedLog, []*models.ParseError, error)
}

// Options configures extraction. Everything the extractor depends on is passed in here
// rather than read from process-wide state.
type Options struct {
	// ConfigKeys lists dotted key-paths to project from the embedded config, plus optionally
	// the derived "algorithm" and "aggregation_method" keys.
	ConfigKeys []string
	// ExtractClientAccuracy enables per-client accuracy columns (client_<K>_acc).
	ExtractClientAccuracy bool
	// AlgorithmPrefix is the literal that starts the algorithm name on its [INFO] line.
	AlgorithmPrefix string
	// AlgorithmScanLines bounds how many leading lines are searched for the algorithm name.
	AlgorithmScanLines int
	// StrictRounds requires global_test_accuracy on every emitted record, including records
	// closed by the next round marker.
	StrictRounds bool
}

// Defaults for Options fields left zero.
const (
	DefaultAlgorithmPrefix    = "OneshotOurs"
	DefaultAlgorithmScanLines = 30
)

// DefaultConfigKeys mirrors the key list most experiment runs are summarised by.
var DefaultConfigKeys = []string{
	"exp_name",
	models.KeyAlgorithm,
	models.KeyAggregationMethod,
	"server.model_name",
	"server.lr",
	"server.local_epochs",
	"lambda_align_initial",
}

func (o Options) withDefaults() Options {
	if o.AlgorithmPrefix == "" {
		o.AlgorithmPrefix = DefaultAlgorithmPrefix
	}
	if o.AlgorithmScanLines <= 0 {
		o.AlgorithmScanLines = DefaultAlgorithmScanLines
	}
	return o
}

func (o Options) requests(key string) bool {
	for _, k := range o.ConfigKeys {
		if k == key {
			return true
		}
	}
	return false
}
