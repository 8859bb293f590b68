package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"imgcrawl/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imgcrawl [query...]",
	Short: "Build image datasets from search engine results",
	Long: `imgcrawl downloads images for one or more search queries into a
directory per query, ready to be used as a training dataset.

Features:
  - Paged result crawling with automatic backoff on empty pages
  - Watermarked stock photo hosts are skipped
  - Every file is checked to be a real image
  - Identical images are saved only once per run
  - A manifest.json per query records where each image came from`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.ArbitraryArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && queryFile == "" {
			return cmd.Help()
		}
		return runCrawl(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.imgcrawl.yaml or $HOME/.imgcrawl.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Crawl flags also live on the root so "imgcrawl cat" works
	addCrawlFlags(rootCmd)

	rootCmd.SetVersionTemplate(`imgcrawl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
