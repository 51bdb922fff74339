package main

import (
	"fmt"

	"github.com/greenoffice/leadchat/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the questionnaire as a Mermaid flowchart",
	Long: `Prints the question graph in Mermaid syntax.
With --session, the questions that session visited and its current question are highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		var overlay *graph.GraphOverlay
		if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
			view, err := app.Service.Transcript(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("loading session '%s': %w", sessionID, err)
			}
			if view.State != nil {
				overlay = &graph.GraphOverlay{
					VisitedNodes: view.State.History,
					CurrentNode:  view.State.CurrentNodeID,
				}
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(app.Service.Engine().Graph(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("session", "s", "", "Highlight the path of this session")
}
