// Package timescale implements the telemetry store on TimescaleDB
package timescale

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/wfr-racing/slicks/internal/telemetry"
	"github.com/wfr-racing/slicks/pkg/config"
)

// Client wraps a TimescaleDB connection pool
type Client struct {
	db     *sql.DB
	config *config.Config
	logger *slog.Logger
}

var _ telemetry.Store = (*Client)(nil)

// NewClient creates a new TimescaleDB client
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config: cfg,
		logger: logger,
	}
}

// Connect establishes connection to the database
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to TimescaleDB",
		"host", c.config.PostgresHost,
		"port", c.config.PostgresPort,
		"database", c.config.PostgresDB)

	db, err := sql.Open("postgres", c.config.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open timescale connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(c.config.PostgresMaxConnections)
	db.SetMaxIdleConns(c.config.PostgresMaxIdleConns)
	db.SetConnMaxLifetime(c.config.PostgresConnMaxLifetime)

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping timescale: %w", err)
	}

	c.db = db
	c.logger.Info("Connected to TimescaleDB successfully")

	return nil
}

// Disconnect closes the database connection
func (c *Client) Disconnect() error {
	if c.db == nil {
		return nil
	}

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close timescale connection: %w", err)
	}

	c.db = nil
	c.logger.Info("Disconnected from TimescaleDB")

	return nil
}

// QueryPoints returns raw samples in [start, end), optionally restricted to
// the named signals, ordered by time
func (c *Client) QueryPoints(ctx context.Context, start, end time.Time, signals []string) ([]telemetry.Point, error) {
	query := fmt.Sprintf(
		`SELECT time, signal_name, value FROM %s WHERE time >= $1 AND time < $2`,
		pq.QuoteIdentifier(c.config.PostgresTable))
	args := []interface{}{start.UTC(), end.UTC()}
	if len(signals) > 0 {
		query += ` AND signal_name = ANY($3)`
		args = append(args, pq.Array(signals))
	}
	query += ` ORDER BY time`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, telemetry.ClassifyQueryError(fmt.Errorf("point query failed: %w", err))
	}
	defer rows.Close()

	var points []telemetry.Point
	for rows.Next() {
		var p telemetry.Point
		if err := rows.Scan(&p.Time, &p.Signal, &p.Value); err != nil {
			return nil, telemetry.ClassifyQueryError(fmt.Errorf("point scan failed: %w", err))
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, telemetry.ClassifyQueryError(fmt.Errorf("point query failed: %w", err))
	}
	return points, nil
}

// QueryDistinctSignals returns the signal names seen in [start, end)
func (c *Client) QueryDistinctSignals(ctx context.Context, start, end time.Time) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT DISTINCT signal_name FROM %s WHERE time >= $1 AND time < $2`,
		pq.QuoteIdentifier(c.config.PostgresTable))

	rows, err := c.db.QueryContext(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, telemetry.ClassifyQueryError(fmt.Errorf("signal query failed: %w", err))
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, telemetry.ClassifyQueryError(fmt.Errorf("signal scan failed: %w", err))
		}
		if name != "" {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, telemetry.ClassifyQueryError(fmt.Errorf("signal query failed: %w", err))
	}
	return names, nil
}

// QueryActivityBins returns time buckets with their row counts for [start, end).
// Empty buckets are excluded.
func (c *Client) QueryActivityBins(ctx context.Context, start, end time.Time, bin time.Duration) ([]telemetry.ActivityBin, error) {
	query := fmt.Sprintf(
		`SELECT time_bucket($1::interval, time, $2::timestamptz) AS bucket, COUNT(*) AS n FROM %s `+
			`WHERE time >= $2 AND time < $3 GROUP BY bucket HAVING COUNT(*) > 0 ORDER BY bucket`,
		pq.QuoteIdentifier(c.config.PostgresTable))

	interval := fmt.Sprintf("%d seconds", int64(bin.Seconds()))
	rows, err := c.db.QueryContext(ctx, query, interval, start.UTC(), end.UTC())
	if err != nil {
		return nil, telemetry.ClassifyQueryError(fmt.Errorf("activity query failed: %w", err))
	}
	defer rows.Close()

	var bins []telemetry.ActivityBin
	for rows.Next() {
		var b telemetry.ActivityBin
		if err := rows.Scan(&b.Start, &b.Rows); err != nil {
			return nil, telemetry.ClassifyQueryError(fmt.Errorf("activity scan failed: %w", err))
		}
		b.Start = b.Start.UTC()
		bins = append(bins, b)
	}
	if err := rows.Err(); err != nil {
		return nil, telemetry.ClassifyQueryError(fmt.Errorf("activity query failed: %w", err))
	}
	return bins, nil
}

// HasData reports whether any rows exist in [start, end)
func (c *Client) HasData(ctx context.Context, start, end time.Time) (bool, error) {
	query := fmt.Sprintf(
		`SELECT 1 FROM %s WHERE time >= $1 AND time < $2 LIMIT 1`,
		pq.QuoteIdentifier(c.config.PostgresTable))

	var one int
	err := c.db.QueryRowContext(ctx, query, start.UTC(), end.UTC()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, telemetry.ClassifyQueryError(fmt.Errorf("existence query failed: %w", err))
	}
	return true, nil
}
