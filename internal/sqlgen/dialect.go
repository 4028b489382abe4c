package sqlgen

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect renders the engine-specific pieces of a statement.
type Dialect interface {
	Name() string
	// Placeholder renders the n-th (1-based) bound parameter.
	Placeholder(n int) string
	// Percentile returns a continuous percentile aggregate, if supported.
	Percentile(column string, fraction float64) (string, bool)
	// Stddev returns a sample standard deviation aggregate, if supported.
	Stddev(column string) (string, bool)
	// DateOf casts a timestamp to its calendar date.
	DateOf(ts string) string
	// Bucket floors a timestamp to "day" or "hour".
	Bucket(ts, unit string) string
	// Seconds is the elapsed seconds between two timestamp expressions.
	Seconds(from, to string) string
}

// ParseDialect maps a configuration name to a Dialect. The empty name is
// DuckDB.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "duckdb":
		return DuckDB{}, nil
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	case "mysql", "mariadb":
		return MySQL{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
}

// DuckDB is the default target.
type DuckDB struct{}

func (DuckDB) Name() string           { return "duckdb" }
func (DuckDB) Placeholder(int) string { return "?" }

func (DuckDB) Percentile(column string, fraction float64) (string, bool) {
	return fmt.Sprintf("QUANTILE_CONT(%s, %s)", column, formatFloat(fraction)), true
}

func (DuckDB) Stddev(column string) (string, bool) {
	return fmt.Sprintf("STDDEV(%s)", column), true
}

func (DuckDB) DateOf(ts string) string { return fmt.Sprintf("CAST(%s AS DATE)", ts) }

func (DuckDB) Bucket(ts, unit string) string {
	return fmt.Sprintf("date_trunc('%s', %s)", unit, ts)
}

func (DuckDB) Seconds(from, to string) string {
	return fmt.Sprintf("EXTRACT(EPOCH FROM (%s - %s))", to, from)
}

// Postgres numbers its placeholders.
type Postgres struct{}

func (Postgres) Name() string             { return "postgres" }
func (Postgres) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Postgres) Percentile(column string, fraction float64) (string, bool) {
	return fmt.Sprintf("PERCENTILE_CONT(%s) WITHIN GROUP (ORDER BY %s)", formatFloat(fraction), column), true
}

func (Postgres) Stddev(column string) (string, bool) {
	return fmt.Sprintf("STDDEV(%s)", column), true
}

func (Postgres) DateOf(ts string) string { return fmt.Sprintf("CAST(%s AS DATE)", ts) }

func (Postgres) Bucket(ts, unit string) string {
	return fmt.Sprintf("date_trunc('%s', %s)", unit, ts)
}

func (Postgres) Seconds(from, to string) string {
	return fmt.Sprintf("EXTRACT(EPOCH FROM (%s - %s))", to, from)
}

// MySQL has no percentile aggregate.
type MySQL struct{}

func (MySQL) Name() string           { return "mysql" }
func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) Percentile(string, float64) (string, bool) { return "", false }

func (MySQL) Stddev(column string) (string, bool) {
	return fmt.Sprintf("STDDEV_SAMP(%s)", column), true
}

func (MySQL) DateOf(ts string) string { return fmt.Sprintf("DATE(%s)", ts) }

func (MySQL) Bucket(ts, unit string) string {
	if unit == "hour" {
		return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-%%m-%%d %%H:00:00')", ts)
	}
	return fmt.Sprintf("DATE(%s)", ts)
}

func (MySQL) Seconds(from, to string) string {
	return fmt.Sprintf("TIMESTAMPDIFF(SECOND, %s, %s)", from, to)
}

// SQLite has neither percentile nor standard deviation aggregates.
type SQLite struct{}

func (SQLite) Name() string           { return "sqlite" }
func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) Percentile(string, float64) (string, bool) { return "", false }
func (SQLite) Stddev(string) (string, bool)              { return "", false }

func (SQLite) DateOf(ts string) string { return fmt.Sprintf("DATE(%s)", ts) }

func (SQLite) Bucket(ts, unit string) string {
	if unit == "hour" {
		return fmt.Sprintf("strftime('%%Y-%%m-%%d %%H:00:00', %s)", ts)
	}
	return fmt.Sprintf("DATE(%s)", ts)
}

func (SQLite) Seconds(from, to string) string {
	return fmt.Sprintf("((julianday(%s) - julianday(%s)) * 86400.0)", to, from)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
