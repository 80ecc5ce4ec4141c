package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger interface for logging functionality
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Options controls where and how much StandardLogger writes
type Options struct {
	Verbose bool      // Enable debug messages
	Quiet   bool      // Drop console output
	LogFile string    // Also write JSON logs to this file, rotated
	Writer  io.Writer // Console destination, stderr when nil
}

// StandardLogger implements Logger on top of zerolog
type StandardLogger struct {
	logger zerolog.Logger
	file   io.Closer
}

// New creates a console logger on stderr. Stdout is reserved for tool output.
func New(verbose bool) Logger {
	l, err := NewWithOptions(Options{Verbose: verbose})
	if err != nil {
		return Nop()
	}
	return l
}

// NewWithOptions creates a logger writing to the console and optionally to a
// rotated log file
func NewWithOptions(opts Options) (*StandardLogger, error) {
	var writers []io.Writer

	if !opts.Quiet {
		out := opts.Writer
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    true,
			TimeFormat: "15:04:05",
		})
	}

	l := &StandardLogger{}
	if opts.LogFile != "" {
		if err := checkLogFile(opts.LogFile); err != nil {
			return nil, err
		}
		rolling := &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		writers = append(writers, rolling)
		l.file = rolling
	}

	if len(writers) == 0 {
		l.logger = zerolog.Nop()
		return l, nil
	}

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	l.logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Logger()
	return l, nil
}

// checkLogFile creates the log directory and opens the file once
func checkLogFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	return f.Close()
}

// Nop returns a logger that discards everything
func Nop() Logger {
	return &StandardLogger{logger: zerolog.Nop()}
}

// Debug logs debug messages (only in verbose mode)
func (l *StandardLogger) Debug(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

// Info logs informational messages
func (l *StandardLogger) Info(format string, args ...interface{}) {
	l.logger.Info().Msgf(format, args...)
}

// Warn logs warning messages
func (l *StandardLogger) Warn(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

// Error logs error messages
func (l *StandardLogger) Error(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

// Close releases the log file, if any
func (l *StandardLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
