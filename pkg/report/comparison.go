package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/eval"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// WriteComparison renders ranked reports as an aligned table.
func WriteComparison(out io.Writer, rankings []eval.Ranking, metric models.Metric) error {
	fmt.Fprintf(out, "Ranked by %s\n", metric)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSTRATEGY\tQUERY REL\tQUERY COR\tANSWER REL\tANSWER COR\tEXACT\tEXEC\tERRORS\tTIMEOUTS\tJUDGE N/A")
	for _, rk := range rankings {
		r := rk.Report
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			rk.Position,
			DisplayName(r.Strategy),
			FormatAverage(r.AvgQueryRelevancy),
			FormatAverage(r.AvgQueryCorrectness),
			FormatAverage(r.AvgAnswerRelevancy),
			FormatAverage(r.AvgAnswerCorrectness),
			FormatAverage(r.ExactMatchRate),
			FormatAverage(r.ExecutionAccuracyRate),
			r.Errors.Rows(),
			r.Errors.Timeouts,
			r.Errors.JudgeUnavailable,
		)
	}
	return w.Flush()
}
