package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Himanshu040604/PregelFlow/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Exposes sessions over HTTP: runs, resume, checkpoint history, the graph,
server-sent commit events and Prometheus metrics on /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return withApp(cmd, func(app *cli.App) error {
			if cmd.Flags().Changed("addr") {
				app.Config.Server.Addr, _ = cmd.Flags().GetString("addr")
			}
			return cli.Serve(ctx, app, nil)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
}
