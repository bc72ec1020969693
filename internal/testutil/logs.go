// logs.go - Synthetic experiment log fixtures for testing
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

// LogBuilder assembles an experiment log line by line, stamping each line one second after
// the previous one.
type LogBuilder struct {
	lines []string
	clock time.Time
}

// NewLogBuilder starts a log at 2025-03-01 10:00:00.
func NewLogBuilder() *LogBuilder {
	return &LogBuilder{clock: time.Date(2025, 3, 1, 10, 0, 0, 0, time.Local)}
}

// Info appends an [INFO] line.
func (b *LogBuilder) Info(format string, args ...any) *LogBuilder {
	b.lines = append(b.lines, fmt.Sprintf("%s [INFO]  %s", b.clock.Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...)))
	b.clock = b.clock.Add(time.Second)
	return b
}

// Raw appends a line verbatim.
func (b *LogBuilder) Raw(line string) *LogBuilder {
	b.lines = append(b.lines, line)
	return b
}

// Algorithm appends the algorithm banner line.
func (b *LogBuilder) Algorithm(name string) *LogBuilder {
	return b.Info("%s", name)
}

// Config appends the one-line config dump.
func (b *LogBuilder) Config(literal string) *LogBuilder {
	return b.Info("config: %s", literal)
}

// Aggregation appends the aggregation method announcement.
func (b *LogBuilder) Aggregation(method string) *LogBuilder {
	return b.Info("Training | Using %s server aggregation.", method)
}

// Round describes the metric lines emitted for one round. Nil fields are omitted.
type Round struct {
	N              int
	ClientEpochAcc map[int][]float64
	Variance       *float64
	ProtosStd      *float64
	GlobalAcc      *float64
}

// F is a convenience for the optional Round fields.
func F(v float64) *float64 {
	return &v
}

// Round appends a round marker followed by its metric lines.
func (b *LogBuilder) Round(r Round) *LogBuilder {
	b.Info("Round %d starts", r.N)
	clients := make([]int, 0, len(r.ClientEpochAcc))
	for client := range r.ClientEpochAcc {
		clients = append(clients, client)
	}
	sort.Ints(clients)
	for _, client := range clients {
		accs := r.ClientEpochAcc[client]
		b.Info("Client %d Starts Local Trainning", client)
		for i, acc := range accs {
			b.Info("Epoch %d / %d test accuracy: %v", i+1, len(accs), acc)
		}
	}
	if r.Variance != nil {
		b.Info("Model variance: mean: %v", *r.Variance)
	}
	if r.ProtosStd != nil {
		b.Info("g_protos_std: %v", *r.ProtosStd)
	}
	if r.GlobalAcc != nil {
		b.Info("The test accuracy (with prototype) of global model: %v", *r.GlobalAcc)
	}
	return b
}

// CompleteRounds appends rounds first..last with every metric present.
func (b *LogBuilder) CompleteRounds(first, last int) *LogBuilder {
	for n := first; n <= last; n++ {
		b.Round(Round{
			N:         n,
			Variance:  F(float64(n) * 1e-4),
			ProtosStd: F(float64(n) / 100),
			GlobalAcc: F(0.5 + float64(n)/1000),
		})
	}
	return b
}

// String returns the log content with a trailing newline.
func (b *LogBuilder) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}

// StandardLog is a small two-round log with a config dump, algorithm and aggregation lines.
func StandardLog() *LogBuilder {
	return NewLogBuilder().
		Algorithm("OneshotOurs V7").
		Config(`{'exp_name': 'cifar_a', 'server': {'model_name': 'resnet18', 'lr': 0.01, 'local_epochs': 5}, 'lambda_align_initial': 0.5}`).
		Aggregation("IFFI").
		CompleteRounds(1, 2)
}

// WriteLog writes content to dir/name and returns the path.
func WriteLog(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test log: %v", err)
	}
	return path
}

// WriteGzipLog writes gzip-compressed content to dir/name and returns the path.
func WriteGzipLog(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatalf("failed to compress test log: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to compress test log: %v", err)
	}
	return path
}
