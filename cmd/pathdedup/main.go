package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/httpseal/trafficsift/internal/config"
	"github.com/httpseal/trafficsift/pkg/logger"
	"github.com/httpseal/trafficsift/pkg/pathnorm"
)

const (
	version = "0.1.0"
)

// shutdownTimeout bounds the wait for the reader after a signal
var shutdownTimeout = 2 * time.Second

var (
	placeholder string
	verbose     bool
	logFile     string
	configFile  string
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pathdedup [flags]",
		Short: "Drop URL paths that differ only in their numbers",
		Long: `pathdedup reads URL paths from stdin, one per line, and prints the first
path of every shape. Two paths share a shape when they are equal after each
run of digits is replaced by a placeholder, so /users/1/profile and
/users/2/profile collapse into one line.

Examples:
  # Deduplicate crawler output
  cat paths.txt | pathdedup

  # Use a different placeholder when comparing
  pathdedup --placeholder N < paths.txt`,
		Version:       version,
		Args:          cobra.NoArgs,
		RunE:          runDedup,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().StringVar(&placeholder, "placeholder", config.DefaultPlaceholder, "Text that replaces each run of digits when comparing paths")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Also write logs to this file (rotated)")
	rootCmd.Flags().StringVar(&configFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/trafficsift/config.json)")

	return rootCmd
}

func runDedup(cmd *cobra.Command, args []string) error {
	cfg := config.New()
	cfg.Verbose = verbose
	cfg.LogFile = logFile
	cfg.Placeholder = placeholder

	path := configFile
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	fileConfig, err := config.LoadConfigFile(path)
	if err != nil {
		return err
	}
	cfg.MergeWithFileConfig(fileConfig)
	if err := cfg.Validate(); err != nil {
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

	// Setup signal handling for a clean stop
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	return run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cfg, log, sigChan)
}

// run processes input until EOF or a signal. A signal is not an error.
func run(ctx context.Context, in io.Reader, out io.Writer, cfg *config.Config, log logger.Logger, sigChan <-chan os.Signal) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Debug("Normalizing paths with placeholder %q", cfg.Placeholder)

	runChan := make(chan error, 1)
	go func() {
		runChan <- pathnorm.Run(ctx, in, out, pathnorm.Options{Placeholder: cfg.Placeholder})
	}()

	// Wait for either end of input or signal
	select {
	case err := <-runChan:
		if err != nil {
			log.Error("Normalization failed: %v", err)
			return err
		}
		log.Debug("Reached end of input")
	case sig := <-sigChan:
		log.Debug("Received signal %v, stopping", sig)
		cancel()

		// The reader may be blocked on input that never arrives
		select {
		case <-runChan:
		case <-time.After(shutdownTimeout):
			log.Debug("Input still blocked after %v, exiting", shutdownTimeout)
		}
	}

	return nil
}
