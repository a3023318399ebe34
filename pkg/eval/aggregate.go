package eval

import (
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// Aggregate averages every score column and tallies row errors. Nil scores are
// skipped; a column with no values is left undefined. results must be aligned
// with records.
func Aggregate(strategy string, records []models.ScoreRecord, results []models.GenerationResult) *models.EvaluationReport {
	report := &models.EvaluationReport{
		Strategy: strategy,
		Rows:     len(records),
		Records:  records,
	}

	var (
		queryRel, queryCor, answerRel, answerCor []*float64
		exact, execution                         []bool
	)
	for _, rec := range records {
		queryRel = append(queryRel, rec.QueryRelevancy)
		queryCor = append(queryCor, rec.QueryCorrectness)
		answerRel = append(answerRel, rec.AnswerRelevancy)
		answerCor = append(answerCor, rec.AnswerCorrectness)
		exact = append(exact, rec.QueryExactMatch)
		execution = append(execution, rec.ExecutionAccuracy)

		report.Errors.Add(rec.ErrorKind)
		if rec.JudgeFailures > 0 {
			report.Errors.JudgeUnavailable++
		}
	}
	for _, res := range results {
		if res.Timeout {
			report.Errors.Timeouts++
		}
	}

	report.AvgQueryRelevancy = models.Mean(queryRel)
	report.AvgQueryCorrectness = models.Mean(queryCor)
	report.AvgAnswerRelevancy = models.Mean(answerRel)
	report.AvgAnswerCorrectness = models.Mean(answerCor)
	report.ExactMatchRate = models.Rate(exact)
	report.ExecutionAccuracyRate = models.Rate(execution)
	return report
}
