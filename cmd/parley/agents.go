package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/cli"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the available agent variants",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range cli.AgentNames() {
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}
