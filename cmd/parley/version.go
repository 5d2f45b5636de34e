package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of parley",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("parley version %s\n", parley.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
