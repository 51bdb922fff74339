package main

import (
	"fmt"

	"github.com/greenoffice/leadchat"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of leadchat",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "leadchat version %s\n", leadchat.ShortVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
