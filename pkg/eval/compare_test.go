package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

func TestRank(t *testing.T) {
	reports := []*models.EvaluationReport{
		{Strategy: "no_context", AvgAnswerCorrectness: models.Average{Value: 0.2, Count: 10}},
		{Strategy: "broken"},
		{Strategy: "rag", AvgAnswerCorrectness: models.Average{Value: 0.9, Count: 10}},
		{Strategy: "few_shot", AvgAnswerCorrectness: models.Average{Value: 0.7, Count: 10}},
	}

	got, err := Rank(reports, models.MetricAnswerCorrectness)
	require.NoError(t, err)

	var order []string
	for i, r := range got {
		order = append(order, r.Report.Strategy)
		assert.Equal(t, i+1, r.Position)
	}
	assert.Equal(t, []string{"rag", "few_shot", "no_context", "broken"}, order)
	assert.False(t, got[3].Value.Defined())
}

func TestRank_ZeroBeatsUndefined(t *testing.T) {
	reports := []*models.EvaluationReport{
		{Strategy: "undefined"},
		{Strategy: "zero", ExactMatchRate: models.Average{Value: 0, Count: 5}},
	}
	got, err := Rank(reports, models.MetricExactMatch)
	require.NoError(t, err)
	assert.Equal(t, "zero", got[0].Report.Strategy)
}

func TestRank_UnknownMetric(t *testing.T) {
	_, err := Rank([]*models.EvaluationReport{{}}, models.Metric("bleu"))
	assert.Error(t, err)
}
