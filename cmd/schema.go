package main

import (
	"fmt"

	"github.com/cwbudde/letterfit/internal/opt"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the run configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := opt.Schema()
		if err != nil {
			return fmt.Errorf("failed to build schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
