package main

import (
	"fmt"

	"github.com/greenoffice/leadchat/internal/validator"
	"github.com/greenoffice/leadchat/pkg/flow"
	"github.com/greenoffice/leadchat/pkg/knowledge"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the questionnaire and configuration for consistency",
	Long: `Loads the configuration, crawls the question graph from its entry question and
reports dead links, unreachable questions and malformed rules. When knowledge.file
is set, the knowledge table is parsed too.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("configuration: %w", err)
		}
		if err := validator.ValidateGraph(flow.Default()); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		if path := cfg.Knowledge.File; path != "" {
			table, err := knowledge.LoadFile(path)
			if err != nil {
				return fmt.Errorf("knowledge table: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Knowledge table %s has %d facts.\n", path, len(table.Facts()))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Graph is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
