package eval

import (
	"sort"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// Ranking is one row of a strategy comparison.
type Ranking struct {
	Position int
	Report   *models.EvaluationReport
	Value    models.Average
}

// Rank orders reports by metric, best first. Undefined values rank last and ties
// keep the input order.
func Rank(reports []*models.EvaluationReport, metric models.Metric) ([]Ranking, error) {
	rankings := make([]Ranking, 0, len(reports))
	for _, r := range reports {
		v, err := r.Metric(metric)
		if err != nil {
			return nil, err
		}
		rankings = append(rankings, Ranking{Report: r, Value: v})
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		a, b := rankings[i].Value, rankings[j].Value
		if a.Defined() != b.Defined() {
			return a.Defined()
		}
		return a.Value > b.Value
	})
	for i := range rankings {
		rankings[i].Position = i + 1
	}
	return rankings, nil
}
