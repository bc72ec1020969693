package models

import "fmt"

// InputFormatError reports a malformed user-supplied value such as a timestamp bound.
type InputFormatError struct {
	Field string
	Value string
	Want  string
	Err   error
}

func (e *InputFormatError) Error() string {
	return fmt.Sprintf("invalid %s %q: expected %s", e.Field, e.Value, e.Want)
}

func (e *InputFormatError) Unwrap() error { return e.Err }

// FileReadError reports a log file that could not be opened or read.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// ConfigParseError reports an embedded configuration literal that could not be parsed.
// It is never fatal: extraction continues with an empty configuration.
type ConfigParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("parsing config literal in %s (line %d): %v", e.Path, e.Line, e.Err)
}

func (e *ConfigParseError) Unwrap() error { return e.Err }

// WriteError reports an output file that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
