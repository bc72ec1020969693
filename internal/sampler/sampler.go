// Package sampler reduces a run's round records to a ceiling-bounded, evenly spaced subset.
package sampler

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/explog-analyzer/explog/internal/models"
)

// Mode selects how records are reduced.
type Mode string

const (
	ModeAll     Mode = "all"
	ModeSampled Mode = "sampled"
)

// DefaultCount is the target sample count when none is given.
const DefaultCount = 10

// ParseMode accepts "all" or "sampled", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAll:
		return ModeAll, nil
	case ModeSampled:
		return ModeSampled, nil
	}
	return "", &models.InputFormatError{Field: "mode", Value: s, Want: "'all' or 'sampled'"}
}

// Options controls a Sample call.
type Options struct {
	Mode  Mode
	Count int
	// MaxRound drops records whose round exceeds it. Nil means no ceiling.
	MaxRound *int
	Logger   *zap.Logger
}

// Ceiling is a convenience for building Options.MaxRound.
func Ceiling(n int) *int {
	return &n
}

func (o Options) String() string {
	ceiling := "none"
	if o.MaxRound != nil {
		ceiling = fmt.Sprint(*o.MaxRound)
	}
	return fmt.Sprintf("mode=%s count=%d max_round=%s", o.Mode, o.Count, ceiling)
}

// Sample filters records by the ceiling and, in sampled mode, keeps at most Count records
// spread evenly across the filtered range. The first and last filtered records are kept
// when Count is at least 2; Count 1 keeps only the first. The result is a new slice; records
// themselves are shared.
func Sample(records []models.RoundRecord, opts Options) []models.RoundRecord {
	count := opts.Count
	if count < 1 {
		count = DefaultCount
	}

	filtered := make([]models.RoundRecord, 0, len(records))
	for _, r := range records {
		if opts.MaxRound != nil {
			// a record without a round never survives a ceiling
			n, ok := r.Round()
			if !ok || n > *opts.MaxRound {
				continue
			}
		}
		filtered = append(filtered, r)
	}

	switch opts.Mode {
	case ModeAll:
		return filtered
	case ModeSampled:
		return pick(filtered, count)
	default:
		logger := opts.Logger
		if logger == nil {
			logger = zap.NewNop()
		}
		logger.Warn("unknown sampling mode, returning all records", zap.String("mode", string(opts.Mode)))
		return filtered
	}
}

// pick returns records at count evenly spaced indices, truncated toward zero.
func pick(records []models.RoundRecord, count int) []models.RoundRecord {
	n := len(records)
	if n <= count {
		return records
	}
	if count == 1 {
		return records[:1:1]
	}

	chosen := make(map[int]struct{}, count)
	for i := 0; i < count; i++ {
		chosen[i*(n-1)/(count-1)] = struct{}{}
	}

	indices := make([]int, 0, len(chosen))
	for idx := range chosen {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := make([]models.RoundRecord, 0, len(indices))
	for _, idx := range indices {
		out = append(out, records[idx])
	}
	return out
}
