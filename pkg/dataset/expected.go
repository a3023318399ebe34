package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/graph"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/logging"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// ExpectedStats summarizes a GenerateExpected pass.
type ExpectedStats struct {
	Rows   int
	Failed int
}

// GenerateExpected executes the cypher column of every input row and writes the row back out with
// an expected_output column: the records as JSON, or an error marker when the query failed.
// Input columns are preserved in their original order. A failing query does not stop the pass;
// cancellation of ctx does.
func GenerateExpected(ctx context.Context, qs graph.QueryService, in io.Reader, out io.Writer, logger *zap.Logger) (ExpectedStats, error) {
	var stats ExpectedStats

	table, err := readTable(in)
	if err != nil {
		return stats, err
	}
	ci, ok := table.index[ColumnCypher]
	if !ok {
		return stats, fmt.Errorf("%w: input has no cypher column", apperrors.ErrDatasetIntegrity)
	}

	header := table.header
	ei, replace := table.index[ColumnExpectedOutput]
	if !replace {
		header = append(append([]string{}, header...), ColumnExpectedOutput)
	}

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return stats, fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range table.rows {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		query := row[ci]

		var answer string
		records, err := qs.Execute(ctx, query)
		if err != nil {
			stats.Failed++
			logger.Warn("Query failed while generating expected output",
				zap.String("query", logging.SanitizeQuery(query)),
				zap.Error(err))
			answer = models.ErrorMarker(err)
		} else {
			answer = models.RecordsText(records)
		}

		if replace {
			row[ei] = answer
		} else {
			row = append(row, answer)
		}
		if err := w.Write(row); err != nil {
			return stats, fmt.Errorf("failed to write row: %w", err)
		}
		stats.Rows++
	}

	w.Flush()
	return stats, w.Error()
}
