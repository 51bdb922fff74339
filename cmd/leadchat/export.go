package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/greenoffice/leadchat/pkg/admin"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export captured leads as CSV",
	Long: `Writes one CSV row per session that captured an e-mail address.
Use --range (today, wtd, mtd, all) and --min-score to narrow the export.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rangeFlag, _ := cmd.Flags().GetString("range")
		minScore, _ := cmd.Flags().GetInt("min-score")
		output, _ := cmd.Flags().GetString("output")

		r, err := admin.ParseRange(rangeFlag)
		if err != nil {
			return err
		}

		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		records, err := app.Service.Repository().ListSessions(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		now := time.Now()
		filter := admin.Filter{Range: r, MinScore: minScore, Location: app.Config.Location()}
		records = filter.Apply(records, now)

		var w io.Writer = cmd.OutOrStdout()
		if output != "" {
			if output == "auto" {
				output = admin.ExportFilename(now.In(app.Config.Location()))
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := admin.WriteCSV(w, records, app.Service.Engine().Graph()); err != nil {
			return err
		}
		if output != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported leads to %s\n", output)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("range", "all", "Creation date range: today, wtd, mtd or all")
	exportCmd.Flags().Int("min-score", 0, "Only export sessions scoring at least this much")
	exportCmd.Flags().StringP("output", "o", "", `Write to this file instead of stdout ("auto" picks a dated name)`)
}
