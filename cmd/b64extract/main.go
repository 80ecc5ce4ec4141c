package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/httpseal/trafficsift/internal/config"
	"github.com/httpseal/trafficsift/pkg/extract"
	"github.com/httpseal/trafficsift/pkg/logger"
	"github.com/httpseal/trafficsift/pkg/traffic"
)

const (
	version = "0.1.0"
)

var (
	// Input
	inputFormat string
	minLength   int
	decompress  bool
	strict      bool

	// Report
	outputFile   string
	outputFormat string

	// Logging
	verbose    bool
	quiet      bool
	logFile    string
	configFile string
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "b64extract [flags] <path-to-document>",
		Short: "Extract decoded Base64 strings from captured HTTP traffic",
		Long: `b64extract reads a Burp Suite XML export or a HAR file, decodes every
captured request and response, and prints each distinct quoted Base64 token
that decodes to printable text, sorted, one per line.

An unreadable or malformed document produces no output and a warning on
stderr. Use --strict to turn that into a failure.

Examples:
  # Print decoded strings from a Burp export
  b64extract traffic.xml

  # Include gzip/br/zstd compressed bodies, report as JSON with sources
  b64extract --decompress --format json -o findings.json session.har

  # Fail instead of printing nothing on a broken document
  b64extract --strict traffic.xml`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		RunE:          runExtract,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Input
	rootCmd.Flags().StringVar(&inputFormat, "input-format", string(config.InputAuto), "Input format: auto, burp, har")
	rootCmd.Flags().IntVar(&minLength, "min-length", config.DefaultMinTokenLength, "Minimum length of a quoted Base64 candidate")
	rootCmd.Flags().BoolVar(&decompress, "decompress", false, "Also scan de-chunked and decompressed HTTP bodies")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when the document cannot be read or parsed")

	// Report
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the report to a file instead of stdout")
	rootCmd.Flags().StringVar(&outputFormat, "format", string(config.FormatText), "Report format: text, json, csv")

	// Logging
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress diagnostics on stderr")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Also write logs to this file (rotated)")
	rootCmd.Flags().StringVar(&configFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/trafficsift/config.json)")

	return rootCmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	if err := validateFlags(); err != nil {
		return err
	}

	cfg, err := buildConfig(args[0])
	if err != nil {
		return err
	}

	log, err := logger.NewWithOptions(logger.Options{
		Verbose: cfg.Verbose,
		Quiet:   cfg.Quiet,
		LogFile: cfg.LogFile,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	records, err := traffic.ReadFile(cfg.InputFile, cfg.InputFormat)
	if err != nil {
		if cfg.Strict {
			return err
		}
		log.Warn("No strings extracted: %v", err)
	}

	ex := extract.New(extract.Options{
		Decompress:     cfg.Decompress,
		MinTokenLength: cfg.MinTokenLength,
	}, log)
	ex.AddAll(records)

	stats := ex.Stats()
	log.Debug("Scanned %d records (%d fields, %d skipped): %d candidates, %d rejected, %d distinct strings",
		stats.Records, stats.Fields, stats.SkippedFields, stats.Candidates, stats.Rejected, stats.Findings)

	return writeOutput(cmd.OutOrStdout(), cfg, ex.Findings())
}

// buildConfig combines the command line with the config file
func buildConfig(inputFile string) (*config.Config, error) {
	cfg := config.New()
	cfg.Verbose = verbose
	cfg.Quiet = quiet
	cfg.LogFile = logFile
	cfg.InputFile = inputFile
	cfg.InputFormat = config.InputFormat(inputFormat)
	cfg.OutputFile = outputFile
	cfg.OutputFormat = config.OutputFormat(outputFormat)
	cfg.Decompress = decompress
	cfg.MinTokenLength = minLength
	cfg.Strict = strict

	path := configFile
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	fileConfig, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	cfg.MergeWithFileConfig(fileConfig)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeOutput(stdout io.Writer, cfg *config.Config, findings []extract.Finding) error {
	if cfg.OutputFile == "" {
		return extract.WriteReport(stdout, cfg.OutputFormat, findings)
	}

	f, err := os.Create(cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := extract.WriteReport(f, cfg.OutputFormat, findings); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}

// validateFlags validates command line flags
func validateFlags() error {
	if minLength < config.MinTokenLength || minLength > config.MaxTokenLength {
		return fmt.Errorf("min-length must be between %d and %d", config.MinTokenLength, config.MaxTokenLength)
	}
	if verbose && quiet {
		return fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}
	return nil
}
