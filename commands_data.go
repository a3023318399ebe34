package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/dataset"
)

func buildSplitCmd(configPath *string) *cobra.Command {
	var (
		source   string
		testSize float64
		seed     int64
	)

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split the labelled dataset into train and test files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd, *configPath, source, testSize, seed)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Labelled dataset (default from config: cypher_eval_with_results.csv)")
	cmd.Flags().Float64Var(&testSize, "test-size", 0, "Fraction of rows held out for testing (default from config: 0.3)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Shuffle seed (default from config: 42)")
	return cmd
}

func buildExpectedCmd(configPath *string) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "expected",
		Short: "Run the reference queries and record their outputs",
		Long: `Execute the cypher column of every row against the graph and write the
dataset back with an expected_output column. Rows whose query fails keep an
error marker instead of records.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpected(cmd, *configPath, input, output)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Question/cypher CSV (default from config: cypher_eval.csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output CSV (default from config: cypher_eval_with_results.csv)")
	return cmd
}

func runSplit(cmd *cobra.Command, configPath, source string, testSize float64, seed int64) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if source == "" {
		source = a.cfg.Dataset.Source
	}
	if testSize == 0 {
		testSize = a.cfg.Dataset.TestSize
	}
	if !cmd.Flags().Changed("seed") {
		seed = a.cfg.Dataset.Seed
	}

	files := a.DatasetFiles()
	train, test, err := dataset.SplitFile(a.DataPath(source), files, testSize, seed)
	if err != nil {
		return err
	}

	a.logger.Info("Dataset split",
		zap.Int("train", len(train)),
		zap.Int("test", len(test)),
		zap.Int64("seed", seed))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d training rows to %s and %d test rows to %s\n",
		len(train), files.Train, len(test), files.Test)
	return nil
}

func runExpected(cmd *cobra.Command, configPath, input, output string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if input == "" {
		input = a.cfg.Dataset.Queries
	}
	if output == "" {
		output = a.cfg.Dataset.Source
	}
	ctx := cmd.Context()

	g, err := a.Graph(ctx)
	if err != nil {
		return err
	}

	in, err := os.Open(a.DataPath(input))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer in.Close()

	outPath := a.DataPath(output)
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}

	stats, err := dataset.GenerateExpected(ctx, g, in, out, a.logger)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s (%d failed)\n", stats.Rows, outPath, stats.Failed)
	return nil
}
