// Command ekaya-cypher-eval translates logistics questions into Cypher, answers
// them from Neo4j, and compares query generation strategies.
//
//	ekaya-cypher-eval populate            # load shipments.json into the graph
//	ekaya-cypher-eval expected            # run reference queries, write expected outputs
//	ekaya-cypher-eval split               # train/test split
//	ekaya-cypher-eval compare             # evaluate every strategy and rank them
//	ekaya-cypher-eval serve               # chat API, /health, /metrics, /api/runs
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := buildRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "ekaya-cypher-eval",
		Short:         "Natural-language to Cypher assistant and strategy evaluation harness",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", envOr("CONFIG_PATH", "config.yaml"), "Path to YAML configuration file")

	rootCmd.AddCommand(
		buildEvaluateCmd(&configPath),
		buildCompareCmd(&configPath),
		buildRunsCmd(&configPath),
		buildSplitCmd(&configPath),
		buildExpectedCmd(&configPath),
		buildPopulateCmd(&configPath),
		buildSchemaCmd(&configPath),
		buildClearCmd(&configPath),
		buildAskCmd(&configPath),
		buildServeCmd(&configPath),
		buildMigrateCmd(&configPath),
	)
	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
