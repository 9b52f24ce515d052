// Package influx implements the telemetry store on InfluxDB 3 using IOx SQL.
package influx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"

	"github.com/wfr-racing/slicks/internal/telemetry"
	"github.com/wfr-racing/slicks/pkg/config"
)

// Client queries race telemetry from an InfluxDB 3 database
type Client struct {
	client *influxdb3.Client
	logger *slog.Logger
	table  string
}

var _ telemetry.Store = (*Client)(nil)

// NewClient connects to InfluxDB 3 using the configured host and token
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	client, err := influxdb3.New(influxdb3.ClientConfig{
		Host:         cfg.InfluxURL,
		Token:        cfg.InfluxToken,
		Organization: cfg.InfluxOrg,
		Database:     cfg.InfluxDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create influxdb client: %w", err)
	}

	table := fmt.Sprintf("%q.%q", cfg.InfluxSchema, cfg.TableName())
	logger.Info("Connected to InfluxDB", "host", cfg.InfluxURL, "database", cfg.InfluxDB, "table", table)

	return &Client{
		client: client,
		logger: logger,
		table:  table,
	}, nil
}

// Close releases the underlying connection
func (c *Client) Close() error {
	return c.client.Close()
}

// QueryPoints returns raw samples in [start, end), optionally restricted to
// the named signals, ordered by time
func (c *Client) QueryPoints(ctx context.Context, start, end time.Time, signals []string) ([]telemetry.Point, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT time, "signalName", value FROM %s WHERE time >= %s AND time < %s`,
		c.table, sqlTimestamp(start), sqlTimestamp(end))
	if len(signals) > 0 {
		quoted := make([]string, len(signals))
		for i, s := range signals {
			quoted[i] = sqlString(s)
		}
		fmt.Fprintf(&sb, ` AND "signalName" IN (%s)`, strings.Join(quoted, ", "))
	}
	sb.WriteString(" ORDER BY time")

	it, err := c.client.Query(ctx, sb.String())
	if err != nil {
		return nil, telemetry.ClassifyQueryError(fmt.Errorf("point query failed: %w", err))
	}

	var points []telemetry.Point
	for it.Next() {
		row := it.Value()
		ts, ok := toTime(row["time"])
		if !ok {
			continue
		}
		name, _ := row["signalName"].(string)
		value, ok := toFloat(row["value"])
		if !ok {
			continue
		}
		points = append(points, telemetry.Point{Time: ts, Signal: name, Value: value})
	}
	return points, nil
}

// QueryDistinctSignals returns the signal names seen in [start, end)
func (c *Client) QueryDistinctSignals(ctx context.Context, start, end time.Time) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT "signalName" FROM %s WHERE time >= %s AND time < %s`,
		c.table, sqlTimestamp(start), sqlTimestamp(end))

	it, err := c.client.Query(ctx, query)
	if err != nil {
		return nil, telemetry.ClassifyQueryError(fmt.Errorf("signal query failed: %w", err))
	}

	var names []string
	for it.Next() {
		if name, ok := it.Value()["signalName"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// QueryActivityBins returns time buckets with their row counts for [start, end).
// Empty buckets are excluded.
func (c *Client) QueryActivityBins(ctx context.Context, start, end time.Time, bin time.Duration) ([]telemetry.ActivityBin, error) {
	query := fmt.Sprintf(
		`SELECT DATE_BIN(INTERVAL '%s', time, %s) AS bucket, COUNT(*) AS n FROM %s `+
			`WHERE time >= %s AND time < %s GROUP BY bucket HAVING COUNT(*) > 0 ORDER BY bucket`,
		binInterval(bin), sqlTimestamp(start), c.table, sqlTimestamp(start), sqlTimestamp(end))

	it, err := c.client.Query(ctx, query)
	if err != nil {
		return nil, telemetry.ClassifyQueryError(fmt.Errorf("activity query failed: %w", err))
	}

	var bins []telemetry.ActivityBin
	for it.Next() {
		row := it.Value()
		ts, ok := toTime(row["bucket"])
		if !ok {
			continue
		}
		count, ok := toInt64(row["n"])
		if !ok {
			continue
		}
		bins = append(bins, telemetry.ActivityBin{Start: ts.UTC(), Rows: count})
	}
	return bins, nil
}

// HasData reports whether any rows exist in [start, end)
func (c *Client) HasData(ctx context.Context, start, end time.Time) (bool, error) {
	query := fmt.Sprintf(`SELECT time FROM %s WHERE time >= %s AND time < %s LIMIT 1`,
		c.table, sqlTimestamp(start), sqlTimestamp(end))

	it, err := c.client.Query(ctx, query)
	if err != nil {
		return false, telemetry.ClassifyQueryError(fmt.Errorf("existence query failed: %w", err))
	}
	return it.Next(), nil
}

// sqlTimestamp renders t as an IOx SQL timestamp literal in UTC
func sqlTimestamp(t time.Time) string {
	return fmt.Sprintf("TIMESTAMP '%s'", t.UTC().Format("2006-01-02T15:04:05.000000Z"))
}

// sqlString renders s as a single-quoted SQL string literal
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// binInterval renders a bucket width as an SQL interval body
func binInterval(bin time.Duration) string {
	switch bin {
	case time.Hour:
		return "1 hour"
	case 24 * time.Hour:
		return "1 day"
	default:
		return fmt.Sprintf("%d seconds", int64(bin.Seconds()))
	}
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	}
	return time.Time{}, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
