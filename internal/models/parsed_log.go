package models

import "github.com/explog-analyzer/explog/internal/pyliteral"

// ParsedLog is the result of extracting one experiment log file.
type ParsedLog struct {
	Source     string          `json:"source"`
	Summary    ConfigSummary   `json:"summary"`
	Rounds     []RoundRecord   `json:"rounds"`
	FullConfig *pyliteral.Dict `json:"-" msgpack:"-"`
}

// NewParsedLog creates an empty ParsedLog for source.
func NewParsedLog(source string) *ParsedLog {
	return &ParsedLog{
		Source:     source,
		Summary:    make(ConfigSummary),
		Rounds:     make([]RoundRecord, 0),
		FullConfig: pyliteral.NewDict(),
	}
}

// Empty reports whether nothing usable was extracted.
func (p *ParsedLog) Empty() bool {
	return len(p.Rounds) == 0 && len(p.Summary) == 0
}

// ParseError represents a non-fatal problem found on a specific line.
type ParseError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}
