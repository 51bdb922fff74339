package main

import (
	"os"

	"github.com/greenoffice/leadchat"
	"github.com/greenoffice/leadchat/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const maxWidth = 100

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the concierge in the terminal",
	Long: `Runs a conversation in the terminal. Answer with option numbers, labels or values.
Type "/ask <question>" to ask about the venue at any time, and "quit" to leave;
pass --session to continue later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		plain, _ := cmd.Flags().GetBool("plain")

		app, err := leadchat.New(cmd.Context(), cfg, leadchat.WithLogger(quietLogger(cmd, cfg)))
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		render := tui.Renderer(tui.Plain)
		if fd := int(os.Stdout.Fd()); !plain && term.IsTerminal(fd) {
			width, _, err := term.GetSize(fd)
			if err != nil || width > maxWidth {
				width = maxWidth
			}
			tui.PrintBanner(out, leadchat.Version)
			render = tui.NewRenderer(width)
		}

		_, err = tui.NewChat(app.Service, cmd.InOrStdin(), out, render).Run(cmd.Context(), sessionID)
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "", "Session ID to start or resume")
	chatCmd.Flags().Bool("plain", false, "Disable markdown rendering and the banner")
}
