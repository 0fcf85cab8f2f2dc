package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Himanshu040604/PregelFlow/internal/cli"
	"github.com/Himanshu040604/PregelFlow/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "pregelflow",
	Short: "PregelFlow runs the multi-source research workflow",
	Long: `PregelFlow answers a topic by fanning out to weather, news and market
sources in parallel, then synthesizing one report. Every wavefront is
checkpointed, so sessions survive restarts and interrupted runs resume.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default "+config.DefaultPath+" if present)")
	flags.StringP("session", "s", "", "Session id")
	flags.String("store", "", "Checkpoint store driver: memory, file, sqlite or redis")
	flags.String("store-path", "", "Store directory (file) or database file (sqlite)")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
}

// loadConfig reads the config file and applies the global flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	mustExist := path != ""
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path, mustExist)
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"session", &cfg.Session},
		{"store", &cfg.Store.Driver},
		{"store-path", &cfg.Store.Path},
		{"log-level", &cfg.Log.Level},
		{"log-format", &cfg.Log.Format},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.dst, _ = cmd.Flags().GetString(o.flag)
		}
	}
	return cfg, nil
}

// withApp wires the app for a command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(*cli.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	app, err := cli.NewApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
