package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley runs tool-driven conversational agents",
	Long: `Parley is a toolkit for conversational agents whose behavior is a set of
named tools over durable JSON state. Pick an agent variant, then drive it
interactively, over HTTP, or from an MCP host.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Local development convenience; absent files are fine.
		_ = godotenv.Load(".env.local")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "parley.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return logging.New(l)
}
