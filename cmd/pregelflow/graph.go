package main

import (
	"github.com/spf13/cobra"

	"github.com/Himanshu040604/PregelFlow/internal/cli"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [session-id]",
	Short: "Export the research graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the research graph. With a session id, its latest checkpoint is overlaid.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sessionID string
		if len(args) > 0 {
			sessionID = args[0]
		}
		return withApp(cmd, func(app *cli.App) error {
			return cli.WriteGraph(cmd.Context(), app, cmd.OutOrStdout(), sessionID)
		})
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
