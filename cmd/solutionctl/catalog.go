package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terra-clan/solution-builder/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the seed catalog",
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check <dir>",
	Short: "Load a catalog directory and report what it contains",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogCheck,
}

func init() {
	catalogCmd.AddCommand(catalogCheckCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogCheck(cmd *cobra.Command, args []string) error {
	loader := catalog.NewLoader()
	if err := loader.LoadFromDir(args[0]); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "industries:             %d\n", len(loader.Industries()))
	fmt.Fprintf(out, "technologies:           %d\n", len(loader.Technologies()))
	fmt.Fprintf(out, "global parameters:      %d\n", len(loader.GlobalParameters()))
	fmt.Fprintf(out, "calculation categories: %d\n", len(loader.CalculationCategories()))

	for _, ref := range loader.CalculationCategories() {
		fmt.Fprintf(out, "  - %s (%s)\n", ref.Name, ref.Color)
	}
	return nil
}
