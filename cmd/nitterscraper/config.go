package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"nitterscraper/pkg/config"
	"nitterscraper/pkg/ui"
)

const defaultConfigPath = ".nitterscraper.yaml"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage nitterscraper configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (NITTERSCRAPER_*, also read from .env)
  - Configuration file
  - Default values`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file containing every option at its default value.

The file is created as '.nitterscraper.yaml' in the current directory unless a
different path is given with --config.`,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from all sources and check that a run could start:
endpoints must be absolute http(s) URLs, and the fetch mode, output format and
log level must be known values.`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	ui.PrintInfo("Next", "edit the accounts and endpoints, then run 'nitterscraper config validate'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, warnings, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	for _, w := range warnings {
		ui.PrintWarning(w)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	source := configFile
	if source == "" {
		source = "(defaults and environment)"
	}
	ui.PrintInfo("Validating configuration", source)

	cfg, warnings, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration has errors")
		for _, line := range strings.Split(err.Error(), "\n") {
			ui.PrintError("  - " + line)
		}
		return fmt.Errorf("invalid configuration")
	}

	for _, w := range warnings {
		ui.PrintWarning("warning: " + w)
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Accounts", fmt.Sprintf("%d", len(cfg.Accounts)))
	ui.PrintInfo("Endpoints", fmt.Sprintf("%d", len(cfg.Endpoints)))
	ui.PrintInfo("Posts per account", fmt.Sprintf("%d", cfg.PostsPerAccount))
	ui.PrintInfo("Account delay", cfg.AccountDelay.String())
	ui.PrintInfo("Output", cfg.Output.Path)
	ui.PrintInfo("Log level", cfg.Logging.Level)
	return nil
}
