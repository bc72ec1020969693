// Package store archives extracted round records in a DuckDB database so runs can be
// queried across batches.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sort"
	"time"

	"github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/explog-analyzer/explog/internal/models"
)

// Archive stores batches, summaries and round metrics. Round records are kept in long form
// (one row per metric) so per-client columns need no schema changes.
type Archive struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// BatchInfo describes one batch run.
type BatchInfo struct {
	ID        string
	StartedAt time.Time
	Start     string
	End       string
	Sampling  string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS batches (
		batch_id   VARCHAR PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		range_start VARCHAR,
		range_end   VARCHAR,
		sampling    VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS summaries (
		batch_id  VARCHAR NOT NULL,
		source    VARCHAR NOT NULL,
		key       VARCHAR NOT NULL,
		value     VARCHAR,
		available BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rounds (
		batch_id VARCHAR NOT NULL,
		source   VARCHAR NOT NULL,
		round    BIGINT NOT NULL,
		metric   VARCHAR NOT NULL,
		value    DOUBLE NOT NULL
	)`,
}

// Open opens or creates the archive at path. An empty path opens an in-memory database.
func Open(path string, logger *zap.Logger) (*Archive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("archive")

	connector, err := duckdb.NewConnector(path, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				logger.Warn("pragma failed", zap.String("pragma", pragma), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create archive schema: %w", err)
		}
	}

	logger.Debug("archive opened", zap.String("path", path))
	return &Archive{db: db, path: path, logger: logger}, nil
}

// Path returns the database file path ("" for in-memory).
func (a *Archive) Path() string {
	return a.path
}

// BeginBatch records a batch row.
func (a *Archive) BeginBatch(ctx context.Context, info BatchInfo) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO batches (batch_id, started_at, range_start, range_end, sampling) VALUES (?, ?, ?, ?, ?)`,
		info.ID, info.StartedAt, info.Start, info.End, info.Sampling)
	if err != nil {
		return fmt.Errorf("failed to record batch: %w", err)
	}
	return nil
}

// Store appends the summary and round records of one source file to a batch using the
// native Appender API. Non-numeric metric values are skipped.
func (a *Archive) Store(ctx context.Context, batchID, source string, summary models.ConfigSummary, records []models.RoundRecord) error {
	conn, err := a.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	rows := 0
	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		summaries, err := duckdb.NewAppenderFromConn(dConn, "", "summaries")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer summaries.Close()

		for _, key := range summary.Keys() {
			v := summary[key]
			var value any
			if v.Available {
				value = v.String()
			}
			if err := summaries.AppendRow(batchID, source, key, value, v.Available); err != nil {
				return fmt.Errorf("failed to append summary %s: %w", key, err)
			}
		}
		if err := summaries.Flush(); err != nil {
			return err
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "rounds")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for _, rec := range records {
			n, ok := rec.Round()
			if !ok {
				continue
			}
			for _, metric := range rec.Keys() {
				if metric == models.KeyRound {
					continue
				}
				value, ok := toFloat(rec[metric])
				if !ok {
					continue
				}
				if err := appender.AppendRow(batchID, source, int64(n), metric, value); err != nil {
					return fmt.Errorf("failed to append round %d: %w", n, err)
				}
				rows++
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}

	a.logger.Debug("archived file", zap.String("batch", batchID), zap.String("source", source), zap.Int("rows", rows))
	return nil
}

// Rounds rebuilds the archived round records of source within a batch, ordered by round.
func (a *Archive) Rounds(ctx context.Context, batchID, source string) ([]models.RoundRecord, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT round, metric, value FROM rounds WHERE batch_id = ? AND source = ? ORDER BY round, metric`,
		batchID, source)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	byRound := make(map[int]models.RoundRecord)
	order := make([]int, 0)
	for rows.Next() {
		var (
			round  int64
			metric string
			value  float64
		)
		if err := rows.Scan(&round, &metric, &value); err != nil {
			return nil, fmt.Errorf("failed to scan round row: %w", err)
		}
		n := int(round)
		rec, ok := byRound[n]
		if !ok {
			rec = models.NewRoundRecord(n)
			byRound[n] = rec
			order = append(order, n)
		}
		rec[metric] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Ints(order)
	out := make([]models.RoundRecord, 0, len(order))
	for _, n := range order {
		out = append(out, byRound[n])
	}
	return out, nil
}

// Summary returns the archived summary of source within a batch. Values come back in their
// rendered string form.
func (a *Archive) Summary(ctx context.Context, batchID, source string) (models.ConfigSummary, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT key, value, available FROM summaries WHERE batch_id = ? AND source = ?`,
		batchID, source)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer rows.Close()

	out := make(models.ConfigSummary)
	for rows.Next() {
		var (
			key       string
			value     sql.NullString
			available bool
		)
		if err := rows.Scan(&key, &value, &available); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		if available {
			out[key] = models.Available(value.String)
		} else {
			out[key] = models.NotAvailable
		}
	}
	return out, rows.Err()
}

// Batches lists recorded batches, newest first.
func (a *Archive) Batches(ctx context.Context) ([]BatchInfo, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT batch_id, started_at, range_start, range_end, sampling FROM batches ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	out := make([]BatchInfo, 0)
	for rows.Next() {
		var b BatchInfo
		var start, end, sampling sql.NullString
		if err := rows.Scan(&b.ID, &b.StartedAt, &start, &end, &sampling); err != nil {
			return nil, fmt.Errorf("failed to scan batch row: %w", err)
		}
		b.Start, b.End, b.Sampling = start.String, end.String, sampling.String
		out = append(out, b)
	}
	return out, rows.Err()
}

// Close closes the database.
func (a *Archive) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
