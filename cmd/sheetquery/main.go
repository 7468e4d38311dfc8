// Package main provides the CLI entry point for sheetquery.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukaji3/sheetquery-go/pkg/config"
)

var (
	configPath string
	envFile    string
	sourcePath string
	sourceURL  string
	verbose    bool
	pretty     bool

	cfg *config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sheetquery",
		Short: "Query the sheets of a spreadsheet workbook",
		Long: `sheetquery keeps the sheets of an .xlsx/.xlsm workbook in memory and
answers cell, range and search queries against them, from the command line
or over a JSON HTTP API. The workbook is read from a local file or fetched
from a share link or s3:// object.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Config file (.yaml, .json or .toml)")
	flags.StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading SHEETQUERY_* variables")
	flags.StringVar(&sourcePath, "file", "", "Local workbook path (overrides source.path)")
	flags.StringVar(&sourceURL, "url", "", "Share link or s3://bucket/key (overrides source.url)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	flags.BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")

	rootCmd.AddCommand(
		newServeCmd(),
		newHeadersCmd(),
		newCellCmd(),
		newRangeCmd(),
		newSearchCmd(),
		newInfoCmd(),
		newInspectCmd(),
	)
	return rootCmd
}

// loadConfig resolves configuration from defaults, file, environment and
// flags, in increasing precedence, then configures logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return err
		}
	} else {
		cfg = config.DefaultConfig()
	}
	config.LoadFromEnv(cfg)

	if sourcePath != "" {
		cfg.Source.Path = sourcePath
	}
	if sourceURL != "" {
		cfg.Source.URL = sourceURL
	}
	cfg.Resolve()

	return setupLogging(cfg.Log, verbose)
}

func setupLogging(lc config.LogConfig, verbose bool) error {
	level, err := log.ParseLevel(lc.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if verbose {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	switch lc.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})
	}
	// keep stdout for command output
	log.SetOutput(os.Stderr)
	return nil
}

// writeJSON writes v to w as JSON.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	return nil
}
