package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/explog-analyzer/explog/internal/models"
	"github.com/explog-analyzer/explog/internal/pyliteral"
	"go.uber.org/zap"
)

// floatPattern captures plain and scientific notation numbers.
const floatPattern = `([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)`

// canParseLines bounds how far CanParse looks for a recognisable marker.
const canParseLines = 200

// ExperimentParser extracts a configuration summary and per-round metrics from
// federated-learning experiment logs.
// Format: "YYYY-MM-DD HH:MM:SS [INFO] ..." lines with a one-line "config: {...}" dump,
// "Round N starts" markers and metric announcements.
type ExperimentParser struct {
	opts   Options
	logger *zap.Logger

	configRe      *regexp.Regexp
	algorithmRe   *regexp.Regexp
	aggregationRe *regexp.Regexp
	roundRe       *regexp.Regexp
	clientStartRe *regexp.Regexp
	clientIDRe    *regexp.Regexp
	epochAccRe    *regexp.Regexp
	varianceRe    *regexp.Regexp
	protosStdRe   *regexp.Regexp
	globalAccRe   *regexp.Regexp
}

// NewExperimentParser compiles the line patterns for opts.
func NewExperimentParser(opts Options) *ExperimentParser {
	opts = opts.withDefaults()
	return &ExperimentParser{
		opts:          opts,
		logger:        zap.NewNop(),
		configRe:      regexp.MustCompile(`\[INFO\]\s+config: (\{.*\})`),
		algorithmRe:   regexp.MustCompile(`\[INFO\]\s+(` + regexp.QuoteMeta(opts.AlgorithmPrefix) + `.*)`),
		aggregationRe: regexp.MustCompile(`Using (.*) server aggregation`),
		roundRe:       regexp.MustCompile(`Round (\d+) starts`),
		clientStartRe: regexp.MustCompile(`(?i)starts local trainn?ing`),
		clientIDRe:    regexp.MustCompile(`Client (\d+)`),
		epochAccRe:    regexp.MustCompile(`Epoch \d+ .* test accuracy: ` + floatPattern),
		varianceRe:    regexp.MustCompile(`Model variance: mean: ` + floatPattern),
		protosStdRe:   regexp.MustCompile(`g_protos_std: ` + floatPattern),
		globalAccRe:   regexp.MustCompile(`The test accuracy \(with prototype\) of .*: ` + floatPattern),
	}
}

// WithLogger sets the logger used for non-fatal warnings.
func (p *ExperimentParser) WithLogger(l *zap.Logger) *ExperimentParser {
	if l != nil {
		p.logger = l.Named("parser")
	}
	return p
}

// Options returns the effective options.
func (p *ExperimentParser) Options() Options {
	return p.opts
}

func (p *ExperimentParser) Name() string {
	return "experiment_log"
}

func (p *ExperimentParser) CanParse(filePath string) (bool, error) {
	lines, err := readLines(filePath, canParseLines)
	if err != nil {
		return false, err
	}
	for _, line := range lines {
		if p.roundRe.MatchString(line) || p.configRe.MatchString(line) {
			return true, nil
		}
	}
	return false, nil
}

func (p *ExperimentParser) Parse(filePath string) (*models.ParsedLog, []*models.ParseError, error) {
	lines, err := readLines(filePath, 0)
	if err != nil {
		return nil, nil, &models.FileReadError{Path: filePath, Err: err}
	}
	parsed, warnings := p.ParseLines(filePath, lines)
	return parsed, warnings, nil
}

// ParseLines runs every extraction pass over lines. Problems are reported as warnings; the
// result is always usable.
func (p *ExperimentParser) ParseLines(source string, lines []string) (*models.ParsedLog, []*models.ParseError) {
	result := models.NewParsedLog(source)
	warnings := make([]*models.ParseError, 0)

	full, cfgErr := p.parseFullConfig(source, lines)
	if cfgErr != nil {
		p.logger.Warn("could not parse embedded config", zap.String("source", source), zap.Error(cfgErr))
		warnings = append(warnings, &models.ParseError{
			Line:    cfgErr.Line,
			Content: truncateLine(lines[cfgErr.Line-1]),
			Reason:  cfgErr.Error(),
		})
	}
	result.FullConfig = full

	p.projectSummary(full, result.Summary)
	p.parseAlgorithm(lines, result.Summary)
	p.parseAggregationMethod(lines, result.Summary)

	rounds, roundWarnings := p.parseRounds(lines)
	result.Rounds = rounds
	warnings = append(warnings, roundWarnings...)

	return result, warnings
}

// parseFullConfig parses the first "config: {...}" dump. Later dumps are ignored even when
// the first one is malformed.
func (p *ExperimentParser) parseFullConfig(source string, lines []string) (*pyliteral.Dict, *models.ConfigParseError) {
	for i, line := range lines {
		m := p.configRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, err := pyliteral.Parse(m[1])
		if err != nil {
			return pyliteral.NewDict(), &models.ConfigParseError{Path: source, Line: i + 1, Err: err}
		}
		d, ok := v.(*pyliteral.Dict)
		if !ok {
			return pyliteral.NewDict(), &models.ConfigParseError{
				Path: source,
				Line: i + 1,
				Err:  fmt.Errorf("config literal is a %T, not a mapping", v),
			}
		}
		return d, nil
	}
	return pyliteral.NewDict(), nil
}

func (p *ExperimentParser) projectSummary(full *pyliteral.Dict, summary models.ConfigSummary) {
	for _, path := range p.opts.ConfigKeys {
		if path == models.KeyAlgorithm || path == models.KeyAggregationMethod {
			continue
		}
		v, ok := full.Lookup(path)
		if !ok {
			summary[path] = models.NotAvailable
			continue
		}
		switch v.(type) {
		case *pyliteral.Dict, []any:
			// summaries hold scalars; nested structures are kept in their printed form
			summary[path] = models.Available(pyliteral.Repr(v))
		default:
			summary[path] = models.Available(v)
		}
	}
}

func (p *ExperimentParser) parseAlgorithm(lines []string, summary models.ConfigSummary) {
	limit := p.opts.AlgorithmScanLines
	if limit > len(lines) {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		if m := p.algorithmRe.FindStringSubmatch(line); m != nil {
			summary[models.KeyAlgorithm] = models.Available(strings.TrimSpace(m[1]))
			return
		}
	}
	if p.opts.requests(models.KeyAlgorithm) {
		summary[models.KeyAlgorithm] = models.NotAvailable
	}
}

func (p *ExperimentParser) parseAggregationMethod(lines []string, summary models.ConfigSummary) {
	for _, line := range lines {
		if m := p.aggregationRe.FindStringSubmatch(line); m != nil {
			summary[models.KeyAggregationMethod] = models.Available(strings.TrimSpace(m[1]))
			return
		}
	}
	if p.opts.requests(models.KeyAggregationMethod) {
		summary[models.KeyAggregationMethod] = models.NotAvailable
	}
}

// roundState carries the round pass between lines.
type roundState struct {
	strict  bool
	records []models.RoundRecord
	open    models.RoundRecord

	lastRound    int
	hasLastRound bool

	clientAcc    map[string]float64
	activeClient string
	hasActive    bool

	warnings []*models.ParseError
}

// closeOpen appends the open record if the close policy allows it. atBoundary is true when
// the close was triggered by the next round marker rather than end of input.
func (s *roundState) closeOpen(atBoundary bool, lineNum int) {
	rec := s.open
	s.open = nil
	if rec == nil {
		return
	}
	if (s.strict || !atBoundary) && !rec.Complete() {
		return
	}
	n, _ := rec.Round()
	if s.hasLastRound && n <= s.lastRound {
		s.warnings = append(s.warnings, &models.ParseError{
			Line:   lineNum,
			Reason: fmt.Sprintf("round %d does not advance past round %d, record dropped", n, s.lastRound),
		})
		return
	}
	s.records = append(s.records, rec)
	s.lastRound = n
	s.hasLastRound = true
}

func (p *ExperimentParser) parseRounds(lines []string) ([]models.RoundRecord, []*models.ParseError) {
	s := &roundState{
		strict:    p.opts.StrictRounds,
		records:   make([]models.RoundRecord, 0),
		clientAcc: make(map[string]float64),
	}

	for i, raw := range lines {
		lineNum := i + 1
		line := strings.TrimSpace(raw)

		if p.opts.ExtractClientAccuracy {
			if p.clientStartRe.MatchString(line) {
				if m := p.clientIDRe.FindStringSubmatch(line); m != nil {
					s.activeClient = "client_" + m[1] + "_acc"
					s.hasActive = true
				}
			} else if s.hasActive {
				if v, ok := p.matchFloat(p.epochAccRe, line, lineNum, s); ok {
					s.clientAcc[s.activeClient] = v
				}
			}
		}

		if m := p.roundRe.FindStringSubmatch(line); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				s.warnings = append(s.warnings, &models.ParseError{Line: lineNum, Content: truncateLine(line), Reason: "round number out of range"})
				continue
			}
			if cur, ok := s.open.Round(); !ok || cur != n {
				s.closeOpen(true, lineNum)
				s.open = models.NewRoundRecord(n)
				s.clientAcc = make(map[string]float64)
			}
		}

		if s.open == nil {
			// metrics before the first round marker have no record to land in
			continue
		}

		if v, ok := p.matchFloat(p.varianceRe, line, lineNum, s); ok {
			s.open[models.KeyModelVarianceMean] = v
		}
		if v, ok := p.matchFloat(p.protosStdRe, line, lineNum, s); ok {
			s.open[models.KeyGProtosStd] = v
		}
		if v, ok := p.matchFloat(p.globalAccRe, line, lineNum, s); ok {
			s.open[models.KeyGlobalTestAccuracy] = v
			if p.opts.ExtractClientAccuracy {
				for id, acc := range s.clientAcc {
					s.open[id] = acc
				}
			}
		}
	}

	s.closeOpen(false, len(lines))
	return s.records, s.warnings
}

// matchFloat returns the float captured by re. A match whose number does not parse is
// reported and ignored.
func (p *ExperimentParser) matchFloat(re *regexp.Regexp, line string, lineNum int, s *roundState) (float64, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		s.warnings = append(s.warnings, &models.ParseError{
			Line:    lineNum,
			Content: truncateLine(line),
			Reason:  fmt.Sprintf("invalid number %q", m[1]),
		})
		return 0, false
	}
	return v, true
}

func truncateLine(line string) string {
	const max = 200
	if len(line) <= max {
		return line
	}
	return line[:max] + "..."
}
