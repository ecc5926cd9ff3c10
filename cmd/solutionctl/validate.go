package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terra-clan/solution-builder/internal/catalog"
	"github.com/terra-clan/solution-builder/internal/parameters"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate parameter files",
	Long:  "Check every modifiable parameter in the given YAML files with the same rules the service applies on save",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0

	for _, path := range args {
		params, err := catalog.ValidateParametersFile(path)
		if err == nil {
			fmt.Fprintf(out, "%s: ok (%d parameters)\n", path, len(params))
			continue
		}

		failed++
		var verrs parameters.ValidationErrors
		if !errors.As(err, &verrs) {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			continue
		}

		fmt.Fprintf(out, "%s: %d invalid parameter(s)\n", path, len(verrs))
		for _, pe := range verrs {
			fmt.Fprintf(out, "  - %s: %v\n", displayName(pe), pe.Err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed validation", failed, len(args))
	}
	return nil
}

func displayName(pe parameters.ParameterError) string {
	switch {
	case pe.Name != "":
		return pe.Name
	case pe.ParameterID != "":
		return pe.ParameterID
	default:
		return "(unnamed)"
	}
}
