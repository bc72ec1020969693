// Package models contains domain types for experiment log extraction.
package models

import (
	"math"
	"sort"
)

// Well-known RoundRecord keys.
const (
	KeyRound              = "round"
	KeyModelVarianceMean  = "model_variance_mean"
	KeyGProtosStd         = "g_protos_std"
	KeyGlobalTestAccuracy = "global_test_accuracy"
)

// RoundRecord maps metric names to scalar values for one training round.
// "round" holds an int; numeric metrics hold float64.
type RoundRecord map[string]any

// NewRoundRecord opens a record for round n.
func NewRoundRecord(n int) RoundRecord {
	return RoundRecord{KeyRound: n}
}

// Round returns the record's round number. Any integer kind is accepted, as are integral
// floats (JSON decoding produces those).
func (r RoundRecord) Round() (int, bool) {
	switch v := r[KeyRound].(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	}
	return 0, false
}

// Complete reports whether the record carries the global test accuracy.
func (r RoundRecord) Complete() bool {
	_, ok := r[KeyGlobalTestAccuracy]
	return ok
}

// Keys returns the record's keys sorted, with "round" first when present.
func (r RoundRecord) Keys() []string {
	return OrderKeys(keysOf(r))
}

// Clone returns a shallow copy.
func (r RoundRecord) Clone() RoundRecord {
	out := make(RoundRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ObservedKeys returns the union of keys across records, sorted with "round" first.
func ObservedKeys(records []RoundRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	return OrderKeys(keys)
}

// OrderKeys sorts keys in place and moves "round" to the front.
func OrderKeys(keys []string) []string {
	sort.Strings(keys)
	for i, k := range keys {
		if k == KeyRound {
			copy(keys[1:i+1], keys[:i])
			keys[0] = KeyRound
			break
		}
	}
	return keys
}

func keysOf(r RoundRecord) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	return keys
}
