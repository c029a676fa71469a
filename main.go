// Command catload loads an Amazon product metadata dump into the catalog store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/CatalogLoad/config"
	param "github.com/CatalogLoad/param"
	slog "github.com/CatalogLoad/syslog"

	"github.com/spf13/cobra"
)

const (
	logid = "catload: "
)

func syslog(s string) {
	slog.Log(logid, s)
}

var (
	cfgFile      string
	envFile      string
	input        string
	workers      int
	batchSize    int
	abortOnError bool
	debug        bool
)

var rootCmd = &cobra.Command{
	Use:           "catload",
	Short:         "Load an Amazon product metadata dump into a relational catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		slog.Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML config file")
	pf.StringVar(&envFile, "env", ".env", "dotenv file, ignored when missing")
	pf.BoolVar(&debug, "debug", false, "debug logging")

	for _, c := range []*cobra.Command{loadCmd, parseCmd} {
		c.Flags().StringVarP(&input, "input", "f", "", "dump to read: a path, - for stdin, or s3://bucket/key")
		c.Flags().IntVar(&workers, "workers", param.Workers, "concurrent normalize routines")
		c.Flags().BoolVar(&abortOnError, "abort-on-error", false, "stop at the first block that fails to parse")
	}
	loadCmd.Flags().IntVar(&batchSize, "batch-size", param.BatchSize, "rows per INSERT statement")

	rootCmd.AddCommand(loadCmd, parseCmd, schemaCmd)
}

// loadConfig reads the config file and environment, then applies flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {

	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input = input
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = batchSize
	}
	if flags.Changed("abort-on-error") && abortOnError {
		cfg.OnParseError = param.OnErrorAbort
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if err := slog.Init(cfg.Log.Mode, debug || cfg.Log.Debug); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		syslog(fmt.Sprintf("Exited due to error: %s", err))
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
