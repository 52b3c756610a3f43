// Package executor runs validated SELECT statements against the query
// database and collects rows as column-name maps.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/query"
)

// ErrExecutionFailed wraps every database error raised while running a query.
var ErrExecutionFailed = errors.New("query execution failed")

// Defaults.
const (
	DefaultMaxRows = 1000
	DefaultTimeout = 30 * time.Second
)

// Source provides the connection pool. connector.Connector satisfies it.
type Source interface {
	DB() *sqlx.DB
}

// Executor runs queries with a row cap and a per-query timeout.
type Executor struct {
	source  Source
	maxRows int
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an Executor. maxRows <= 0 selects DefaultMaxRows and
// timeout <= 0 selects DefaultTimeout.
func New(source Source, maxRows int, timeout time.Duration, logger *slog.Logger) *Executor {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{source: source, maxRows: maxRows, timeout: timeout, logger: logger}
}

// MaxRows returns the row cap.
func (e *Executor) MaxRows() int { return e.maxRows }

// Run validates, sanitizes and executes sql. A rejected statement returns the
// *query.ValidationError and never reaches the database. At most MaxRows rows
// are returned; extra rows are dropped without error.
func (e *Executor) Run(ctx context.Context, sql string) (*model.QueryResult, error) {
	if err := query.Validate(sql).Err(); err != nil {
		return nil, err
	}
	sql = query.Sanitize(sql)

	db := e.source.DB()
	if db == nil {
		return nil, fmt.Errorf("%w: database not connected", ErrExecutionFailed)
	}

	queryCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	rows, err := db.QueryxContext(queryCtx, sql)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}

	records := make([]map[string]interface{}, 0)
	truncated := false
	for rows.Next() {
		if len(records) >= e.maxRows {
			truncated = true
			break
		}
		row := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("%w: scan row: %v", ErrExecutionFailed, err)
		}
		cleanMapValues(row)
		records = append(records, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}

	e.logger.Debug("query executed",
		"rows", len(records),
		"truncated", truncated,
		"duration", time.Since(start),
	)
	return &model.QueryResult{Columns: columns, Rows: records}, nil
}

// cleanMapValues converts []byte values to strings so rows serialize as
// text instead of base64.
func cleanMapValues(m map[string]interface{}) {
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			m[k] = string(b)
		}
	}
}
