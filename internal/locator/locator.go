// Package locator finds experiment logs whose file name timestamp falls in a requested range.
package locator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/explog-analyzer/explog/internal/models"
)

const (
	// BoundLayout is the user-facing bound format, YYYY-MM-DD-HH-MM.
	BoundLayout = "2006-01-02-15-04"
	// FileLayout is the timestamp embedded in log file names, YYYYMMDD_HHMMSS.
	FileLayout = "20060102_150405"
)

// DefaultExtensions are the log suffixes recognised when none are configured.
var DefaultExtensions = []string{".log", ".log.gz"}

// Locator scans one directory for timestamped log files.
type Locator struct {
	Dir        string
	Extensions []string
}

// New creates a Locator for dir. Empty extensions fall back to DefaultExtensions.
func New(dir string, extensions ...string) *Locator {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &Locator{Dir: dir, Extensions: extensions}
}

// Find is New(dir).Find(start, end).
func Find(dir, start, end string) ([]string, error) {
	return New(dir).Find(start, end)
}

// DirError reports a log directory that could not be listed.
type DirError struct {
	Dir string
	Err error
}

func (e *DirError) Error() string {
	return fmt.Sprintf("log directory %s: %v", e.Dir, e.Err)
}

func (e *DirError) Unwrap() error { return e.Err }

// Match is a located file with its parsed timestamp.
type Match struct {
	Path string
	Time time.Time
}

// Find returns paths of logs stamped within [start, end], sorted by timestamp. An empty end
// means the same minute as start. Both bounds compare at minute precision, so a file stamped
// 10:05:30 falls outside an end bound of 10:05.
func (l *Locator) Find(start, end string) ([]string, error) {
	matches, err := l.FindMatches(start, end)
	if err != nil {
		return []string{}, err
	}
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = m.Path
	}
	return paths, nil
}

// FindMatches is Find with timestamps attached.
func (l *Locator) FindMatches(start, end string) ([]Match, error) {
	if end == "" {
		end = start
	}
	startTime, err := ParseBound("start", start)
	if err != nil {
		return nil, err
	}
	endTime, err := ParseBound("end", end)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, &DirError{Dir: l.Dir, Err: err}
	}

	matches := make([]Match, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, ok := l.Stamp(entry.Name())
		if !ok {
			continue
		}
		if ts.Before(startTime) || ts.After(endTime) {
			continue
		}
		matches = append(matches, Match{Path: filepath.Join(l.Dir, entry.Name()), Time: ts})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Time.Equal(matches[j].Time) {
			return matches[i].Path < matches[j].Path
		}
		return matches[i].Time.Before(matches[j].Time)
	})
	return matches, nil
}

// Stamp extracts the timestamp from a recognised log file name.
func (l *Locator) Stamp(name string) (time.Time, bool) {
	for _, ext := range l.Extensions {
		if !strings.HasSuffix(name, ext) {
			continue
		}
		base := strings.TrimSuffix(name, ext)
		ts, err := time.ParseInLocation(FileLayout, base, time.Local)
		if err != nil {
			continue
		}
		return ts, true
	}
	return time.Time{}, false
}

// ParseBound parses a YYYY-MM-DD-HH-MM bound. field names the bound in the error.
func ParseBound(field, value string) (time.Time, error) {
	ts, err := time.ParseInLocation(BoundLayout, strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}, &models.InputFormatError{Field: field, Value: value, Want: "YYYY-MM-DD-HH-MM", Err: err}
	}
	return ts, nil
}

// BaseName strips the directory and any recognised log extension from path.
func BaseName(path string, extensions ...string) string {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	name := filepath.Base(path)
	// longest suffix first so ".log.gz" wins over ".gz"
	sorted := append([]string(nil), extensions...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	for _, ext := range sorted {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}
