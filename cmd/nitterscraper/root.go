package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"nitterscraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd runs a scrape when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "nitterscraper [accounts...]",
	Short: "Collect recent posts from public accounts through Nitter mirrors",
	Long: `nitterscraper fetches the most recent posts of a list of public accounts
from a pool of Nitter mirrors and writes them to a single table.

Mirrors are tried in order for every account; a failing mirror is followed by
a short cooldown before the next one is tried. Accounts are processed one at a
time with a fixed pause between them.

With no arguments the configured accounts are scraped. Accounts given as
arguments replace the configured list.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetQuiet(quiet || logLevel == "error")

		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			ui.PrintLogo()
		}
	},
	RunE: runScrape,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		ui.PrintError("Error", err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.nitterscraper.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	addScrapeFlags(rootCmd)

	rootCmd.SetVersionTemplate(`nitterscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
