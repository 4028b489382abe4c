package intent

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayoon01/ald-nl2sql-stats/internal/resolve"
	"github.com/sayoon01/ald-nl2sql-stats/internal/schema"
	"github.com/sayoon01/ald-nl2sql-stats/internal/textnorm"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newExtractor(t *testing.T, def *schema.Definition) *Extractor {
	t.Helper()
	store := schema.NewStore(def)
	return New(store, textnorm.New(store), resolve.New(resolve.Builtin()), WithLogger(quietLogger()))
}

func uintPtr(n uint) *uint { return &n }

func TestExtractScenarios(t *testing.T) {
	x := newExtractor(t, schema.Builtin())

	t.Run("numbered channel beats generic pressure", func(t *testing.T) {
		p, err := x.Extract("VG11 pressure average")
		require.NoError(t, err)
		assert.Equal(t, "vg11", p.Field)
		assert.Equal(t, MetricAvg, p.Metric)
		assert.Equal(t, CategoryRanking, p.Category)
		assert.Equal(t, GroupNone, p.GroupBy)
		assert.Nil(t, p.Limit)
	})

	t.Run("grouped ranking", func(t *testing.T) {
		p, err := x.Extract("grouped-by-step pressact average top5")
		require.NoError(t, err)
		assert.Equal(t, GroupStep, p.GroupBy)
		assert.Equal(t, uintPtr(5), p.Limit)
		assert.Equal(t, CategoryRanking, p.Category)
		assert.Equal(t, "pressact", p.Field)
		assert.True(t, p.Filters.IsZero())
	})

	t.Run("trace comparison", func(t *testing.T) {
		p, err := x.Extract("trace_001 and trace_002 pressure compare")
		require.NoError(t, err)
		assert.Equal(t, []string{"trace_001", "trace_002"}, p.Filters.TraceIDs)
		assert.Empty(t, p.Filters.TraceID)
		assert.True(t, p.Flags.IsTraceCompare)
		assert.Equal(t, CategoryComparison, p.Category)
	})

	t.Run("outlier on generic pressure", func(t *testing.T) {
		p, err := x.Extract("pressure outlier")
		require.NoError(t, err)
		assert.Equal(t, "pressact", p.Field)
		assert.True(t, p.Flags.IsOutlier)
		assert.Equal(t, CategoryStability, p.Category)
	})

	t.Run("limit alone", func(t *testing.T) {
		p, err := x.Extract("5 items")
		require.NoError(t, err)
		assert.Equal(t, uintPtr(5), p.Limit)
		assert.Equal(t, GroupNone, p.GroupBy)
		assert.True(t, p.Filters.IsZero())
		assert.Equal(t, Flags{}, p.Flags)
		assert.Equal(t, OrderDesc, p.Order)
	})

	t.Run("bare step mention is not grouping", func(t *testing.T) {
		p, err := x.Extract("stepX average")
		require.NoError(t, err)
		assert.Equal(t, GroupNone, p.GroupBy)
	})

	t.Run("grouping phrase is not a filter", func(t *testing.T) {
		p, err := x.Extract("grouped by step, average")
		require.NoError(t, err)
		assert.Equal(t, GroupStep, p.GroupBy)
		assert.Empty(t, p.Filters.StepName)
		assert.Empty(t, p.Filters.StepNames)
		assert.Equal(t, CategoryGroupProfile, p.Category)
	})
}

func TestExtractFields(t *testing.T) {
	x := newExtractor(t, schema.Builtin())

	tests := []struct {
		in     string
		field  string
		metric Metric
	}{
		{"게이지11 압력 평균", "vg11", MetricAvg},
		{"질소 유량 평균", "mfcmon_n2_1", MetricAvg},
		{"질소가스유량 최대", "mfcmon_n2_1", MetricMax},
		{"암모니아 표준편차", "mfcmon_nh3", MetricStd},
		{"압력 설정값 평균", "pressset", MetricAvg},
		{"apc 밸브 설정 최대", "apcvalveset", MetricMax},
		{"압력", "pressact", MetricAvg},
		{"압력 개수", "pressact", MetricCount},
		{"결측률", "pressact", MetricNullRatio},
		{"압력 95퍼센타일", "pressact", MetricP95},
		{"중앙값 온도", "tempact_c", MetricP50},
		{"상부온도 최솟값", "tempact_u", MetricMin},
		{"pressact vg12 max", "vg12", MetricMax},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := x.Extract(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.field, p.Field)
			assert.Equal(t, tt.metric, p.Metric)
		})
	}
}

func TestExtractFiltersAndFlags(t *testing.T) {
	x := newExtractor(t, schema.Builtin())

	t.Run("step filter", func(t *testing.T) {
		p, err := x.Extract("step STANDBY 압력 최대")
		require.NoError(t, err)
		assert.Equal(t, "STANDBY", p.Filters.StepName)
		assert.Equal(t, MetricMax, p.Metric)
		assert.Equal(t, CategoryRanking, p.Category)
	})

	t.Run("two steps compare", func(t *testing.T) {
		p, err := x.Extract("standard_trace_001 b.fill 단계 vs a.fill 단계 압력")
		require.NoError(t, err)
		assert.Equal(t, "standard_trace_001", p.Filters.TraceID)
		assert.Equal(t, []string{"B.FILL", "A.FILL"}, p.Filters.StepNames)
		assert.False(t, p.Flags.IsTraceCompare)
		assert.Equal(t, CategoryComparison, p.Category)
	})

	t.Run("compare keyword without ids", func(t *testing.T) {
		p, err := x.Extract("두 공정의 압력 비교")
		require.NoError(t, err)
		assert.True(t, p.Flags.IsTraceCompare)
		assert.Equal(t, CategoryComparison, p.Category)
	})

	t.Run("date range in any order", func(t *testing.T) {
		p, err := x.Extract("2024-01-31까지 2024-01-01부터 상부 온도 최대")
		require.NoError(t, err)
		assert.Equal(t, "2024-01-01", p.Filters.DateStart)
		assert.Equal(t, "2024-01-31", p.Filters.DateEnd)
		assert.Equal(t, "tempact_u", p.Field)
	})

	t.Run("single end bound", func(t *testing.T) {
		p, err := x.Extract("2024/2/10까지 압력 평균")
		require.NoError(t, err)
		assert.Empty(t, p.Filters.DateStart)
		assert.Equal(t, "2024-02-10", p.Filters.DateEnd)
	})

	t.Run("english markers", func(t *testing.T) {
		p, err := x.Extract("pressure average until 2024-03-05")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-05", p.Filters.DateEnd)

		p, err = x.Extract("pressure average since 2024-03-05")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-05", p.Filters.DateStart)
	})

	t.Run("invalid date ignored", func(t *testing.T) {
		p, err := x.Extract("2024-02-30 압력")
		require.NoError(t, err)
		assert.True(t, p.Filters.IsZero())
	})

	t.Run("ascending ranking", func(t *testing.T) {
		p, err := x.Extract("하위 3개 스텝별 압력 평균")
		require.NoError(t, err)
		assert.Equal(t, OrderAsc, p.Order)
		assert.Equal(t, uintPtr(3), p.Limit)
		assert.Equal(t, GroupStep, p.GroupBy)
		assert.Equal(t, CategoryRanking, p.Category)
	})

	t.Run("time grouping wins", func(t *testing.T) {
		p, err := x.Extract("일별 공정별 질소 유량 평균")
		require.NoError(t, err)
		assert.Equal(t, GroupDate, p.GroupBy)
		assert.Equal(t, CategoryGroupProfile, p.Category)
	})

	t.Run("stability beats grouping", func(t *testing.T) {
		p, err := x.Extract("스텝별 체류시간")
		require.NoError(t, err)
		assert.True(t, p.Flags.IsDwellTime)
		assert.Equal(t, GroupStep, p.GroupBy)
		assert.Equal(t, CategoryStability, p.Category)

		p, err = x.Extract("압력 오버슈트")
		require.NoError(t, err)
		assert.True(t, p.Flags.IsOvershoot)
		assert.Equal(t, CategoryStability, p.Category)
	})
}

func TestExtractLongestMetricAlias(t *testing.T) {
	def, err := schema.Parse([]byte(`
columns:
  pressact:
    aliases: [압력]
metrics:
  avg: {aliases: [평균]}
  max: {aliases: [최대 평균]}
`), quietLogger())
	require.NoError(t, err)

	x := newExtractor(t, def)
	p, err := x.Extract("최대 평균 압력")
	require.NoError(t, err)
	assert.Equal(t, MetricMax, p.Metric)
}

func TestExtractEmptySchema(t *testing.T) {
	x := newExtractor(t, schema.Empty())

	p, err := x.Extract("pressure average")
	var unresolved *UnresolvedFieldError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, MetricAvg, unresolved.Metric)
	assert.Empty(t, p.Field)
}

func TestExtractLexiconOverride(t *testing.T) {
	def, err := schema.Parse([]byte(`
columns:
  pressact:
    aliases: [압력]
metrics:
  avg: {aliases: [평균]}
keywords:
  compare: [대조]
`), quietLogger())
	require.NoError(t, err)

	x := newExtractor(t, def)
	p, err := x.Extract("압력 대조")
	require.NoError(t, err)
	assert.Equal(t, CategoryComparison, p.Category)

	p, err = x.Extract("압력 비교")
	require.NoError(t, err)
	assert.Equal(t, CategoryRanking, p.Category)
}

func TestDecideCategoryPriority(t *testing.T) {
	limit := uint(3)
	tests := []struct {
		name string
		p    ParsedIntent
		want Category
	}{
		{"compare flag", ParsedIntent{Flags: Flags{IsTraceCompare: true, IsOutlier: true}}, CategoryComparison},
		{"multi step", ParsedIntent{Filters: Filters{StepNames: []string{"A", "B"}}}, CategoryComparison},
		{"stability", ParsedIntent{GroupBy: GroupStep, Flags: Flags{IsStableAvg: true}}, CategoryStability},
		{"grouped with limit", ParsedIntent{GroupBy: GroupTrace, Limit: &limit}, CategoryRanking},
		{"grouped", ParsedIntent{GroupBy: GroupHour}, CategoryGroupProfile},
		{"fallback", ParsedIntent{}, CategoryRanking},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decideCategory(tt.p))
		})
	}
}
