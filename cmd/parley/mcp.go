package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/cli"
	mcpAdapter "github.com/parley-ai/parley/pkg/adapters/mcp"
	"github.com/parley-ai/parley/pkg/domain"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp <agent>",
	Short: "Expose an agent as an MCP server",
	Long:  `Serves the agent's tools over the Model Context Protocol, on stdio by default or over SSE with --sse.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		sse, _ := cmd.Flags().GetBool("sse")
		port, _ := cmd.Flags().GetInt("port")
		logger := newLogger(cmd)

		cfg, err := cli.LoadConfig(configPath)
		if err != nil {
			return err
		}

		agent, err := cli.NewAgent(args[0], cfg.DataDir, logger, domain.LifecycleHooks{})
		if err != nil {
			return err
		}

		srv := mcpAdapter.NewServer(agent, mcpAdapter.WithLogger(logger))

		if sse {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ServeSSE(ctx, port)
		}
		return srv.ServeStdio()
	},
}

func init() {
	mcpCmd.Flags().Bool("sse", false, "Serve over SSE instead of stdio")
	mcpCmd.Flags().Int("port", 3001, "Port for SSE mode")
	rootCmd.AddCommand(mcpCmd)
}
