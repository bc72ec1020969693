package models

import (
	"sort"

	"github.com/explog-analyzer/explog/internal/pyliteral"
	"github.com/goccy/go-json"
)

// Derived summary keys, resolved by pattern rather than config path lookup.
const (
	KeyAlgorithm         = "algorithm"
	KeyAggregationMethod = "aggregation_method"
)

// NotAvailableText is how a missing summary value is rendered.
const NotAvailableText = "N/A"

// ConfigValue is a projected configuration value or the "not available" sentinel.
// A value that happens to equal the string "N/A" is still Available.
type ConfigValue struct {
	Value     any  `msgpack:"value"`
	Available bool `msgpack:"available"`
}

// NotAvailable marks a requested key that was not found.
var NotAvailable = ConfigValue{}

// Available wraps a found value.
func Available(v any) ConfigValue {
	return ConfigValue{Value: v, Available: true}
}

// String renders the value for tabular output.
func (v ConfigValue) String() string {
	if !v.Available {
		return NotAvailableText
	}
	return pyliteral.Format(v.Value)
}

// MarshalJSON encodes the sentinel as "N/A" and anything else as its plain value.
func (v ConfigValue) MarshalJSON() ([]byte, error) {
	if !v.Available {
		return json.Marshal(NotAvailableText)
	}
	return json.Marshal(v.Value)
}

// ConfigSummary is the flattened, stable-key subset of a run's configuration.
type ConfigSummary map[string]ConfigValue

// Keys returns the summary keys sorted.
func (s ConfigSummary) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
