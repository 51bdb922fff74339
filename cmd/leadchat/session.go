package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage conversation state",
	Long:  `List, inspect, and remove conversation state in the configured backend (memory, file or redis).`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		sessions, err := app.Store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		fmt.Fprintln(out, "Sessions:")
		for _, s := range sessions {
			fmt.Fprintln(out, "- "+s)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Show the state, score and transcript of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		view, err := app.Service.Transcript(cmd.Context(), sessionID)
		if err != nil {
			return fmt.Errorf("loading session '%s': %w", sessionID, err)
		}

		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if all, _ := cmd.Flags().GetBool("all"); all {
			if args, err = app.Store.List(cmd.Context()); err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		var errs []error
		for _, sessionID := range args {
			if err := app.Store.Delete(cmd.Context(), sessionID); err != nil {
				errs = append(errs, fmt.Errorf("removing '%s': %w", sessionID, err))
				continue
			}
			fmt.Fprintf(out, "Removed session '%s'\n", sessionID)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every stored session")
}
