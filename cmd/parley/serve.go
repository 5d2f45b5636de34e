package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/cli"
	httpAdapter "github.com/parley-ai/parley/pkg/adapters/http"
	"github.com/parley-ai/parley/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve <agent>",
	Short: "Start the HTTP server for an agent",
	Long:  `Starts one agent behind a JSON API: list tools, invoke tools, health, and Prometheus metrics.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		port, _ := cmd.Flags().GetString("port")
		logger := newLogger(cmd)

		cfg, err := cli.LoadConfig(configPath)
		if err != nil {
			return err
		}

		metrics := observability.New()
		agent, err := cli.NewAgent(args[0], cfg.DataDir, logger, metrics.Hooks())
		if err != nil {
			return err
		}

		handler := httpAdapter.NewHandler(agent,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetrics(metrics.Handler()))

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: handler,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", srv.Addr, "agent", agent.Name())
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				if closeErr := srv.Close(); closeErr != nil {
					return fmt.Errorf("failed to stop server: %w", closeErr)
				}
				return fmt.Errorf("graceful shutdown did not complete: %w", err)
			}
			return nil
		}
	},
}

func init() {
	serveCmd.Flags().String("port", "8080", "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}
