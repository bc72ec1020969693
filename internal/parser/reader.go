package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const (
	utf8BOM       = "\xEF\xBB\xBF"
	maxLineLength = 16 * 1024 * 1024 // config dumps can be very long single lines
)

// openLog opens path for reading, transparently decompressing .gz files. The returned
// closer releases every underlying handle.
func openLog(path string) (io.Reader, func() error, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return file, file.Close, nil
	}

	zr, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	return zr, func() error {
		zerr := zr.Close()
		if ferr := file.Close(); ferr != nil {
			return ferr
		}
		return zerr
	}, nil
}

// readLines reads up to limit lines (all lines when limit <= 0). A leading BOM is stripped
// and invalid UTF-8 is replaced rather than rejected.
func readLines(path string, limit int) ([]string, error) {
	r, closeFn, err := openLog(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	lines := make([]string, 0, 1024)
	for scanner.Scan() {
		line := scanner.Text()
		if len(lines) == 0 {
			line = strings.TrimPrefix(line, utf8BOM)
		}
		lines = append(lines, strings.ToValidUTF8(line, "�"))
		if limit > 0 && len(lines) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
