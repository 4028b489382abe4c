package pipeline

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayoon01/ald-nl2sql-stats/internal/intent"
	"github.com/sayoon01/ald-nl2sql-stats/internal/sqlgen"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	opts.Logger = quietLogger()
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func TestAskGroupedRanking(t *testing.T) {
	e := newEngine(t, Options{})

	res, err := e.Ask("grouped-by-step pressact average top5")
	require.NoError(t, err)

	_, err = uuid.Parse(res.RequestID)
	assert.NoError(t, err)
	assert.Equal(t, intent.GroupStep, res.Intent.GroupBy)
	assert.Equal(t,
		"SELECT step_name, AVG(pressact) AS value\nFROM traces_dedup\nGROUP BY step_name\nORDER BY value DESC\nLIMIT 5",
		res.Statement.SQL)
	assert.Equal(t, sqlgen.TemplateGrouped, res.Statement.Template)
}

func TestAskTraceComparison(t *testing.T) {
	e := newEngine(t, Options{})

	res, err := e.Ask("trace_001 and trace_002 pressure compare")
	require.NoError(t, err)
	assert.Equal(t, intent.CategoryComparison, res.Intent.Category)
	assert.Equal(t, sqlgen.TemplateComparison, res.Statement.Template)
	assert.Equal(t, []any{"trace_001", "trace_002", "trace_001", "trace_002"}, res.Statement.Params)
	assert.Contains(t, res.Statement.SQL, "ORDER BY diff DESC\nLIMIT 5")
}

func TestAskOutlierThreshold(t *testing.T) {
	e := newEngine(t, Options{OutlierThreshold: 3})

	res, err := e.Ask("pressure outlier")
	require.NoError(t, err)
	assert.Equal(t, sqlgen.TemplateOutlier, res.Statement.Template)
	assert.Contains(t, res.Statement.SQL, "z_score > 3 ")
}

func TestAskPostgres(t *testing.T) {
	e := newEngine(t, Options{Dialect: "postgres"})

	res, err := e.Ask("standard_trace_001 vg11 max")
	require.NoError(t, err)
	assert.Equal(t, "SELECT MAX(vg11) AS value\nFROM traces_dedup\nWHERE trace_id = $1", res.Statement.SQL)
	assert.Equal(t, []any{"standard_trace_001"}, res.Statement.Params)
	assert.Equal(t, "postgres", res.Statement.Dialect)
}

func TestAskMissingSchemaDegrades(t *testing.T) {
	e := newEngine(t, Options{SchemaPath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.True(t, e.Store().IsEmpty())

	res, err := e.Ask("압력 평균")
	var unresolved *intent.UnresolvedFieldError
	require.ErrorAs(t, err, &unresolved)
	assert.Empty(t, res.Statement.SQL)
	assert.NotEmpty(t, res.RequestID)
}

func TestAskDisallowedColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
meta:
  allowed_columns: [flow_a]
columns:
  flow_a: {aliases: [유량]}
  secret_col: {aliases: [비밀]}
`), 0o644))

	e := newEngine(t, Options{SchemaPath: path})

	res, err := e.Ask("secret_col average")
	var disallowed *sqlgen.DisallowedFieldError
	require.ErrorAs(t, err, &disallowed)
	assert.Equal(t, "secret_col", res.Intent.Field)
	assert.Empty(t, res.Statement.SQL)

	res, err = e.Ask("유량 평균")
	require.NoError(t, err)
	assert.Contains(t, res.Statement.SQL, "AVG(flow_a)")
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Dialect: "oracle", Logger: quietLogger()})
	assert.Error(t, err)

	_, err = New(Options{Table: "a b", Logger: quietLogger()})
	assert.Error(t, err)
}

func TestParseAndNormalize(t *testing.T) {
	e := newEngine(t, Options{})

	nt := e.Normalize("VG11 pressure average")
	assert.Contains(t, nt.Tokens(), "vg11")

	p, err := e.Parse("VG11 pressure average")
	require.NoError(t, err)
	assert.Equal(t, "vg11", p.Field)
}

func TestDefaultIsShared(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestAskConcurrent(t *testing.T) {
	e := newEngine(t, Options{})
	questions := []string{
		"VG11 pressure average",
		"grouped-by-step pressact average top5",
		"trace_001 and trace_002 pressure compare",
		"pressure outlier",
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		for _, q := range questions {
			wg.Add(1)
			go func(q string) {
				defer wg.Done()
				_, err := e.Ask(q)
				assert.NoError(t, err)
			}(q)
		}
	}
	wg.Wait()
}
