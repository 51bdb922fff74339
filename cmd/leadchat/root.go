package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/greenoffice/leadchat"
	"github.com/greenoffice/leadchat/internal/config"
	"github.com/greenoffice/leadchat/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "leadchat",
	Short:         "Green Office Villas lead qualification chat",
	Long:          `leadchat qualifies retreat leads through a guided conversation, answers venue questions and notifies sales about captured leads.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: leadchat.yaml in . or ./configs)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(config.Options{File: file, EnvFile: envFile})
	if err != nil {
		return nil, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// quietLogger keeps interactive commands readable: warnings and errors only,
// unless --debug is set.
func quietLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}
	return logging.NewWithWriter(os.Stderr, level, cfg.Log.JSON)
}

// newApp loads the configuration and assembles the application.
func newApp(cmd *cobra.Command, opts ...leadchat.Option) (*leadchat.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return leadchat.New(cmd.Context(), cfg, opts...)
}
