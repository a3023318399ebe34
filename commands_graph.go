package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/dataset"
)

func buildPopulateCmd(configPath *string) *cobra.Command {
	var (
		file       string
		clearFirst bool
	)

	cmd := &cobra.Command{
		Use:   "populate",
		Short: "Load shipment records into the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPopulate(cmd, *configPath, file, clearFirst)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Shipments JSON (default from config: shipments.json)")
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "Delete every node before loading")
	return cmd
}

func buildSchemaCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the graph schema as given to the models",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			g, err := a.Graph(cmd.Context())
			if err != nil {
				return err
			}
			schema, err := g.GetSchema(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), schema.Text())
			return nil
		},
	}
}

func buildClearCmd(configPath *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every node and relationship in the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the graph without --yes")
			}
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			g, err := a.Graph(cmd.Context())
			if err != nil {
				return err
			}
			return g.ClearDatabase(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

func runPopulate(cmd *cobra.Command, configPath, file string, clearFirst bool) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if file == "" {
		file = a.cfg.Dataset.ShipmentsFile
	}
	shipments, err := dataset.LoadShipments(a.DataPath(file))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	g, err := a.Graph(ctx)
	if err != nil {
		return err
	}
	if clearFirst {
		if err := g.ClearDatabase(ctx); err != nil {
			return err
		}
	}

	n, err := g.LoadShipments(ctx, shipments)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d shipments\n", n)
	return nil
}
