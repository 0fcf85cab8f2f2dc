package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Himanshu040604/PregelFlow"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of pregelflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pregelflow version %s\n", strings.TrimSpace(pregelflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
