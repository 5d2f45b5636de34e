package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run <agent>",
	Short: "Start an interactive tool shell for an agent",
	Long: `Starts a shell that plays the conversational layer by hand: each line is a
tool invocation, like add_item {"item": "espresso"}, and every result is
the string the agent would speak.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		sessionID, _ := cmd.Flags().GetString("session")
		fresh, _ := cmd.Flags().GetBool("fresh")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err := cli.Run(ctx, cli.RunOptions{
			AgentName:  args[0],
			SessionID:  sessionID,
			Fresh:      fresh,
			ConfigPath: configPath,
			Logger:     newLogger(cmd),
		})
		if err != nil {
			return fmt.Errorf("run failed: %w", err)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("session", "", "Session ID to resume (defaults to a new session)")
	runCmd.Flags().Bool("fresh", false, "Discard any persisted state for the session first")
	rootCmd.AddCommand(runCmd)
}
