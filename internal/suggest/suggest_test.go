package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayoon01/ald-nl2sql-stats/internal/schema"
)

func builtinCatalog() *Catalog {
	return New(schema.NewStore(schema.Builtin()), nil)
}

func TestSuggestMatchesFirst(t *testing.T) {
	c := builtinCatalog()

	got := c.Suggest("비교", 3)
	require.Len(t, got, 3)
	assert.Equal(t, "standard_trace_001과 standard_trace_002 압력 비교", got[0].Question)
	assert.Equal(t, KindComparison, got[0].Kind)
	assert.Equal(t, "압력 평균", got[1].Question, "remaining slots are topped up in catalog order")
}

func TestSuggestCaseInsensitive(t *testing.T) {
	c := builtinCatalog()

	got := c.Matches("RF")
	require.NotEmpty(t, got)
	for _, s := range got {
		assert.Contains(t, s.Question, "rf")
	}
}

func TestSuggestLimit(t *testing.T) {
	c := builtinCatalog()

	assert.Len(t, c.Suggest("", 0), DefaultLimit)
	assert.Len(t, c.Suggest("압력", 2), 2)
	assert.Len(t, c.Suggest("", 1000), len(c.Matches("")))
}

func TestCatalogIncludesSchemaFields(t *testing.T) {
	c := builtinCatalog()

	all := c.Matches("")
	assert.Len(t, all, len(templates)+len(schema.Builtin().Order))
	assert.Contains(t, all, Suggestion{Question: "게이지11 압력 평균", Kind: KindSingle})

	empty := New(nil, nil)
	assert.Len(t, empty.Matches(""), len(templates))
}

func TestByTopic(t *testing.T) {
	assert.Equal(t, []string{"질소 1 유량 평균", "암모니아 유량 평균"}, ByTopic("유량"))
	assert.Equal(t, []string{"rf 전력 평균", "스텝별 rf 전력 평균"}, ByTopic("RF"))

	all := ByTopic("")
	assert.Contains(t, all, "압력 오버슈트")
	assert.IsIncreasing(t, all)

	assert.Equal(t, all, ByTopic("unknown"))
	assert.Len(t, Topics(), len(topics))
}

func TestPopular(t *testing.T) {
	assert.Len(t, Popular(DefaultPopularLimit), 5)
	assert.Equal(t, []string{"압력 평균", "스텝별 압력 평균"}, Popular(2))
	assert.Len(t, Popular(100), 5)

	p := Popular(1)
	p[0] = "mutated"
	assert.Equal(t, "압력 평균", Popular(1)[0])
}
