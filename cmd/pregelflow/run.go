package main

import (
	"github.com/spf13/cobra"

	"github.com/Himanshu040604/PregelFlow/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive research session",
	Long: `Prompts for a topic, runs the research graph and prints the report.
Type 'exit' or 'quit' (any case) to leave. An interrupted run is resumed
on the next start unless engine.auto_resume is off.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		fresh, _ := cmd.Flags().GetBool("fresh")
		plain, _ := cmd.Flags().GetBool("plain")
		return withApp(cmd, func(app *cli.App) error {
			return cli.Run(cmd.Context(), app, cli.RunOptions{
				JSON:   jsonMode,
				Fresh:  fresh,
				Plain:  plain,
				Stdin:  cmd.InOrStdin(),
				Stdout: cmd.OutOrStdout(),
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	for _, c := range []*cobra.Command{runCmd, rootCmd} {
		c.Flags().Bool("json", false, "Run in JSON mode (JSON Lines input/output)")
		c.Flags().Bool("fresh", false, "Delete the session history before starting")
		c.Flags().Bool("plain", false, "Disable the banner and markdown rendering")
	}
	// 'run' is the default if no command is provided
	rootCmd.RunE = runCmd.RunE
	rootCmd.Args = cobra.NoArgs
}
