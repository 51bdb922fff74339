package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/greenoffice/leadchat"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the chat API, the admin dashboard endpoints and /metrics.
Idle conversations are marked abandoned every --sweep interval.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		sweep, _ := cmd.Flags().GetDuration("sweep")

		app, err := leadchat.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		handler, err := app.Handler()
		if err != nil {
			return err
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			app.Logger.Info("Starting leadchat server", "addr", srv.Addr, "version", leadchat.ShortVersion(), "state", cfg.State.Backend)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			app.Logger.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.Logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				return srv.Close()
			}
			return nil
		})

		if sweep > 0 && cfg.Admin.StaleAfter > 0 {
			g.Go(func() error {
				ticker := time.NewTicker(sweep)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
						if _, err := app.Service.MarkStale(ctx, cfg.Admin.StaleAfter); err != nil {
							app.Logger.Warn("Stale session sweep failed", "error", err)
						}
					}
				}
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
		app.Logger.Info("Server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides server.port)")
	serveCmd.Flags().Duration("sweep", time.Hour, "Interval between stale session sweeps (0 disables)")
}
