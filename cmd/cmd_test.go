package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayoon01/ald-nl2sql-stats/internal/intent"
	"github.com/sayoon01/ald-nl2sql-stats/internal/runner"
	"github.com/sayoon01/ald-nl2sql-stats/internal/settings"
)

// resetFlags restores every flag in the tree so Execute calls do not leak
// into each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)
	cfgFile = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseCommandJSON(t *testing.T) {
	out, err := run(t, "parse", "VG11 pressure average", "-o", "json")
	require.NoError(t, err)

	var p intent.ParsedIntent
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "vg11", p.Field)
	assert.Equal(t, intent.MetricAvg, p.Metric)
	assert.Equal(t, intent.CategoryRanking, p.Category)
}

func TestAskCommandText(t *testing.T) {
	out, err := run(t, "ask", "grouped-by-step", "pressact", "average", "top5", "--dialect", "postgres")
	require.NoError(t, err)
	assert.Contains(t, out, "Template:   grouped (postgres)")
	assert.Contains(t, out, "GROUP BY step_name")
	assert.Contains(t, out, "Params:     (none)")
	assert.Contains(t, out, "top_n=5")
}

func TestAskCommandExecute(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "traces.db")
	r, err := runner.Open(context.Background(), "sqlite", dsn, logger)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE traces_dedup (timestamp TEXT, trace_id TEXT, step_name TEXT, pressact REAL)`,
		`INSERT INTO traces_dedup VALUES
			('2024-01-01 00:00:00', 'trace_001', 'A', 1.5),
			('2024-01-01 00:00:05', 'trace_001', 'B', 4.5)`,
	} {
		_, err := r.DB().Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, r.Close())

	out, err := run(t, "ask", "스텝별 압력 평균", "--execute", "--driver", "sqlite", "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "(sqlite)")
	assert.Contains(t, out, "STEP_NAME")
	assert.Contains(t, out, "4.5")
	assert.Contains(t, out, "(2 rows)")
}

func TestAskCommandExecuteNeedsDatabase(t *testing.T) {
	_, err := run(t, "ask", "압력 평균", "--execute")
	assert.ErrorContains(t, err, "--execute needs a database")
}

func TestSQLCommandFromStdin(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)
	cfgFile = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(`{"metric":"max","field":"vg11","analysis_type":"ranking","filters":{"trace_id":"trace_007"}}`))
	rootCmd.SetArgs([]string{"sql", "--dialect", "mysql"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "SELECT MAX(vg11) AS value")
	assert.Contains(t, out.String(), `Params: 1="trace_007"`)
}

func TestSuggestCommand(t *testing.T) {
	out, err := run(t, "suggest", "비교", "-n", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[comparison]")

	out, err = run(t, "suggest", "--popular", "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, "압력 평균\n", out)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aldq.yaml")

	out, err := run(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file created")

	out, err = run(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestOverridesFromFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("schema", "", "")
	fs.String("rules", "", "")
	fs.String("dialect", "", "")
	fs.String("table", "", "")
	fs.String("driver", "", "")
	fs.String("dsn", "", "")
	fs.Float64("z-threshold", 1, "")
	fs.Bool("include-stats", false, "")
	fs.Bool("debug", false, "")
	require.NoError(t, fs.Parse([]string{"--dialect", "sqlite", "--z-threshold", "2.5"}))

	o := overridesFromFlags(fs)
	assert.Equal(t, "sqlite", o.Dialect)
	require.NotNil(t, o.OutlierThreshold)
	assert.Equal(t, 2.5, *o.OutlierThreshold)
	assert.Nil(t, o.IncludeStats, "unset flags leave config in charge")
	assert.Nil(t, o.Debug)
	assert.Empty(t, o.SchemaPath)
}

func TestExecutionSettings(t *testing.T) {
	s := settings.Settings{Dialect: settings.DefaultDialect}
	_, err := executionSettings(s, false)
	assert.Error(t, err)

	s.Database = settings.Database{Driver: "postgres", DSN: "postgres://localhost/ald"}
	got, err := executionSettings(s, false)
	require.NoError(t, err)
	assert.Equal(t, "postgres", got.Dialect)

	s.Dialect = "mysql"
	got, err = executionSettings(s, true)
	require.NoError(t, err)
	assert.Equal(t, "mysql", got.Dialect, "explicit dialect is kept")
}

func TestDecodeIntent(t *testing.T) {
	p, err := decodeIntent([]byte("analysis_type: group_profile\ngroup_by: date\n"))
	require.NoError(t, err)
	assert.Equal(t, intent.MetricAvg, p.Metric)
	assert.Equal(t, intent.OrderDesc, p.Order)
	assert.Equal(t, intent.GroupDate, p.GroupBy)

	_, err = decodeIntent([]byte("metric: avg\n"))
	assert.ErrorContains(t, err, "analysis_type")
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "(none)", formatParams(nil))
	assert.Equal(t, `1="a" 2="2024-01-01"`, formatParams([]any{"a", "2024-01-01"}))
	assert.Equal(t, "NULL", formatCell(nil))
	assert.Equal(t, "15", formatCell(15.0))
	assert.Equal(t, "0.1235", formatCell(0.123456))

	var buf bytes.Buffer
	renderRows(&buf, &runner.Rows{Columns: []string{"step_name", "value"}, Values: [][]any{{"A", 2.0}}, Truncated: true})
	assert.Contains(t, buf.String(), "STEP_NAME  VALUE")
	assert.Contains(t, buf.String(), "(1 rows, truncated)")

	var js bytes.Buffer
	require.NoError(t, writeStructured(&js, "json", map[string]string{"sql": "a < b"}))
	assert.Contains(t, js.String(), `"a < b"`)
	assert.Error(t, writeStructured(&js, "xml", nil))
}

func TestDBPing(t *testing.T) {
	out, err := run(t, "db", "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "No database configured.")

	dsn := filepath.Join(t.TempDir(), "ping.db")
	out, err = run(t, "db", "ping", "--driver", "sqlite", "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "Connected (sqlite, sqlite dialect)")
}
