// Package runner executes compiled statements through database/sql.
package runner

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/sayoon01/ald-nl2sql-stats/internal/sqlgen"
)

// DefaultMaxRows caps how many rows Query reads.
const DefaultMaxRows = 1000

// Runner owns one connection pool.
type Runner struct {
	db      *sql.DB
	driver  string
	maxRows int
	logger  *slog.Logger
}

// Rows is a fully read result set. Byte slices are returned as strings.
type Rows struct {
	Columns   []string `json:"columns" yaml:"columns"`
	Values    [][]any  `json:"rows" yaml:"rows"`
	Truncated bool     `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// DriverName maps a configured driver name to the registered database/sql
// driver.
func DriverName(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx":
		return "pgx", nil
	case "mysql", "mariadb":
		return "mysql", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

// DialectFor is the SQL dialect a driver understands.
func DialectFor(driver string) (sqlgen.Dialect, error) {
	name, err := DriverName(driver)
	if err != nil {
		return nil, err
	}
	if name == "pgx" {
		name = "postgres"
	}
	return sqlgen.ParseDialect(name)
}

// Open validates the DSN, opens the pool and pings it.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	name, err := DriverName(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: empty dsn", name)
	}

	switch name {
	case "pgx":
		if _, err := pgx.ParseConfig(dsn); err != nil {
			return nil, fmt.Errorf("invalid postgres dsn: %w", err)
		}
	case "mysql":
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if name == "sqlite" {
		// an in-memory database exists per connection
		db.SetMaxOpenConns(1)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", name, err)
	}

	logger.Debug("database connected", "driver", name)
	return &Runner{db: db, driver: name, maxRows: DefaultMaxRows, logger: logger}, nil
}

// DB exposes the pool, mostly for fixtures.
func (r *Runner) DB() *sql.DB { return r.db }

func (r *Runner) Driver() string { return r.driver }

// SetMaxRows changes the row cap. Non-positive means unlimited.
func (r *Runner) SetMaxRows(n int) { r.maxRows = n }

// Query runs st with its bound parameters.
func (r *Runner) Query(ctx context.Context, st sqlgen.Statement) (*Rows, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx, st.SQL, st.Params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", st.Template, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := &Rows{Columns: cols, Values: [][]any{}}

	for rows.Next() {
		if r.maxRows > 0 && len(out.Values) == r.maxRows {
			out.Truncated = true
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out.Values = append(out.Values, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.logger.Debug("query finished",
		"template", st.Template,
		"rows", len(out.Values),
		"elapsed", time.Since(start),
	)
	return out, nil
}

func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
