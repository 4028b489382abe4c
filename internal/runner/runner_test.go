package runner

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayoon01/ald-nl2sql-stats/internal/intent"
	"github.com/sayoon01/ald-nl2sql-stats/internal/pipeline"
	"github.com/sayoon01/ald-nl2sql-stats/internal/schema"
	"github.com/sayoon01/ald-nl2sql-stats/internal/sqlgen"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixture = []string{
	`CREATE TABLE traces_dedup (
		timestamp TEXT NOT NULL,
		trace_id TEXT NOT NULL,
		step_name TEXT NOT NULL,
		pressact REAL,
		vg11 REAL
	)`,
	`INSERT INTO traces_dedup VALUES
		('2024-01-01 00:00:00', 'trace_001', 'A', 1, NULL),
		('2024-01-01 00:00:10', 'trace_001', 'A', 3, 0.5),
		('2024-01-01 00:00:20', 'trace_001', 'B', 10, 0.7),
		('2024-01-02 01:00:00', 'trace_002', 'A', 2, 0.4),
		('2024-01-02 01:00:30', 'trace_002', 'B', 20, 0.9)`,
}

func openFixture(t *testing.T) *Runner {
	t.Helper()
	ctx := context.Background()
	r, err := Open(ctx, "sqlite", ":memory:", quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	for _, stmt := range fixture {
		_, err := r.DB().ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	return r
}

func sqliteEngine(t *testing.T) *pipeline.Engine {
	t.Helper()
	e, err := pipeline.New(pipeline.Options{Dialect: "sqlite", Logger: quietLogger()})
	require.NoError(t, err)
	return e
}

func TestQueryGroupedRanking(t *testing.T) {
	r := openFixture(t)
	e := sqliteEngine(t)

	res, err := e.Ask("grouped-by-step pressact average top5")
	require.NoError(t, err)

	rows, err := r.Query(context.Background(), res.Statement)
	require.NoError(t, err)
	assert.Equal(t, []string{"step_name", "value"}, rows.Columns)
	require.Len(t, rows.Values, 2)
	assert.Equal(t, "B", rows.Values[0][0])
	assert.InDelta(t, 15.0, rows.Values[0][1], 1e-9)
	assert.Equal(t, "A", rows.Values[1][0])
	assert.InDelta(t, 2.0, rows.Values[1][1], 1e-9)
	assert.False(t, rows.Truncated)
}

func TestQueryTraceComparison(t *testing.T) {
	r := openFixture(t)
	e := sqliteEngine(t)

	res, err := e.Ask("trace_001 and trace_002 pressure compare")
	require.NoError(t, err)

	rows, err := r.Query(context.Background(), res.Statement)
	require.NoError(t, err)
	assert.Equal(t, []string{"step_name", "value_a", "value_b", "diff", "diff_signed"}, rows.Columns)
	require.Len(t, rows.Values, 2)
	first := rows.Values[0]
	assert.Equal(t, "B", first[0])
	assert.InDelta(t, 10.0, first[1], 1e-9)
	assert.InDelta(t, 20.0, first[2], 1e-9)
	assert.InDelta(t, 10.0, first[3], 1e-9)
	assert.InDelta(t, -10.0, first[4], 1e-9)
}

func TestQueryDwellTime(t *testing.T) {
	r := openFixture(t)
	c, err := sqlgen.New(schema.NewStore(schema.Builtin()), sqlgen.Options{Dialect: sqlgen.SQLite{}})
	require.NoError(t, err)

	st, err := c.Compile(intent.ParsedIntent{
		Metric:   intent.MetricAvg,
		GroupBy:  intent.GroupStep,
		Order:    intent.OrderDesc,
		Category: intent.CategoryStability,
		Flags:    intent.Flags{IsDwellTime: true},
	})
	require.NoError(t, err)

	rows, err := r.Query(context.Background(), st)
	require.NoError(t, err)
	require.Len(t, rows.Values, 2)
	assert.Equal(t, "A", rows.Values[0][0])
	assert.InDelta(t, 5.0, rows.Values[0][1], 1e-3)
	assert.InDelta(t, 10.0, rows.Values[0][2], 1e-3)
}

func TestQueryFilteredDateRange(t *testing.T) {
	r := openFixture(t)
	e := sqliteEngine(t)

	res, err := e.Ask("2024-01-02 pressact max")
	require.NoError(t, err)
	require.Equal(t, "2024-01-02", res.Intent.Filters.DateStart)

	rows, err := r.Query(context.Background(), res.Statement)
	require.NoError(t, err)
	require.Len(t, rows.Values, 1)
	assert.InDelta(t, 20.0, rows.Values[0][0], 1e-9)
}

func TestQueryMaxRows(t *testing.T) {
	r := openFixture(t)
	r.SetMaxRows(1)

	rows, err := r.Query(context.Background(), sqlgen.Statement{SQL: "SELECT trace_id FROM traces_dedup", Params: []any{}})
	require.NoError(t, err)
	assert.Len(t, rows.Values, 1)
	assert.True(t, rows.Truncated)
}

func TestQueryError(t *testing.T) {
	r := openFixture(t)
	_, err := r.Query(context.Background(), sqlgen.Statement{SQL: "SELECT nope FROM missing", Template: sqlgen.TemplateSingle})
	assert.ErrorContains(t, err, "query single")
}

func TestOpenValidation(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, "oracle", "x", quietLogger())
	assert.Error(t, err)

	_, err = Open(ctx, "sqlite", " ", quietLogger())
	assert.Error(t, err)

	_, err = Open(ctx, "mysql", "not a dsn", quietLogger())
	assert.ErrorContains(t, err, "invalid mysql dsn")
}

func TestDialectFor(t *testing.T) {
	for driver, want := range map[string]string{
		"postgres": "postgres",
		"pgx":      "postgres",
		"mysql":    "mysql",
		"sqlite3":  "sqlite",
	} {
		d, err := DialectFor(driver)
		require.NoError(t, err, driver)
		assert.Equal(t, want, d.Name())
	}
	_, err := DialectFor("duckdb")
	assert.Error(t, err)
}
