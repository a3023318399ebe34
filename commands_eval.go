package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/eval"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/report"
)

func buildEvaluateCmd(configPath *string) *cobra.Command {
	var strategies []string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate strategies against the test split",
		Long: `Generate a query for every test question with each strategy, execute it,
score it and write <strategy>_results.csv plus a block in the summary file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, *configPath, strategies)
		},
	}
	cmd.Flags().StringSliceVarP(&strategies, "strategies", "s", nil, "Strategies to evaluate (default from config: no_context,few_shot,rag)")
	return cmd
}

func buildCompareCmd(configPath *string) *cobra.Command {
	var (
		strategies []string
		rankBy     string
		persisted  bool
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Evaluate strategies and rank them by a metric",
		Long: `Evaluate the requested strategies and print them ranked by one metric.
With --persisted, rank the most recent stored run of each strategy instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, *configPath, strategies, rankBy, persisted)
		},
	}
	cmd.Flags().StringSliceVarP(&strategies, "strategies", "s", nil, "Strategies to compare (default from config)")
	cmd.Flags().StringVar(&rankBy, "rank-by", "", "Metric to rank by (default from config: answer_correctness)")
	cmd.Flags().BoolVar(&persisted, "persisted", false, "Rank stored runs instead of evaluating")
	return cmd
}

func buildRunsCmd(configPath *string) *cobra.Command {
	var (
		strategy string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored evaluation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, *configPath, strategy, limit)
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "Only list runs of this strategy")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs")
	return cmd
}

func runEvaluate(cmd *cobra.Command, configPath string, strategies []string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = evaluate(cmd, a, strategies)
	return err
}

func evaluate(cmd *cobra.Command, a *app, strategies []string) ([]*models.EvaluationReport, error) {
	if len(strategies) == 0 {
		strategies = a.cfg.Eval.StrategyList()
	}
	ctx := cmd.Context()

	svc, err := a.EvaluationService(ctx, strategies)
	if err != nil {
		return nil, err
	}
	reports, err := svc.Evaluate(ctx, strategies)
	for _, r := range reports {
		if werr := report.WriteSummary(cmd.OutOrStdout(), r); werr != nil {
			return reports, werr
		}
	}
	if err != nil {
		return reports, err
	}
	a.logger.Info("Evaluation complete",
		zap.Strings("strategies", strategies),
		zap.String("output_dir", a.cfg.Eval.OutputDir))
	return reports, nil
}

func runCompare(cmd *cobra.Command, configPath string, strategies []string, rankBy string, persisted bool) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if rankBy == "" {
		rankBy = a.cfg.Eval.RankBy
	}
	if persisted {
		return comparePersisted(cmd, a, strategies, rankBy)
	}

	reports, err := evaluate(cmd, a, strategies)
	if err != nil {
		return err
	}
	return printRanking(cmd.OutOrStdout(), reports, rankBy)
}

func comparePersisted(cmd *cobra.Command, a *app, strategies []string, rankBy string) error {
	ctx := cmd.Context()
	runs, err := a.Runs(ctx)
	if err != nil {
		return err
	}
	if runs == nil {
		return fmt.Errorf("--persisted needs a results database (set PGHOST)")
	}
	if len(strategies) == 0 {
		strategies = a.cfg.Eval.StrategyList()
	}

	var reports []*models.EvaluationReport
	for _, s := range strategies {
		latest, err := runs.ListByStrategy(ctx, s, 1)
		if err != nil {
			return err
		}
		if len(latest) == 0 {
			a.logger.Warn("No stored run for strategy", zap.String("strategy", s))
			continue
		}
		reports = append(reports, latest[0])
	}
	return printRanking(cmd.OutOrStdout(), reports, rankBy)
}

func printRanking(out io.Writer, reports []*models.EvaluationReport, rankBy string) error {
	metric := models.Metric(rankBy)
	rankings, err := eval.Rank(reports, metric)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	return report.WriteComparison(out, rankings, metric)
}

func runRuns(cmd *cobra.Command, configPath, strategy string, limit int) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	runs, err := a.Runs(ctx)
	if err != nil {
		return err
	}
	if runs == nil {
		return fmt.Errorf("no results database configured (set PGHOST)")
	}

	var list []*models.EvaluationReport
	if strategy != "" {
		list, err = runs.ListByStrategy(ctx, strategy, limit)
	} else {
		list, err = runs.ListRecent(ctx, limit)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range list {
		fmt.Fprintf(out, "%s  %-10s  %s  rows=%d  answer_correctness=%s  errors=%d\n",
			r.ID, r.Strategy, r.CompletedAt.Format("2006-01-02 15:04:05"), r.Rows,
			report.FormatAverage(r.AvgAnswerCorrectness), r.Errors.Rows())
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No runs.")
	}
	return nil
}
