package log

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// LogVerbosityInfo is the verbosity level for info logging.
	LogVerbosityInfo = 0
	// LogVerbosityDebug is the verbosity level for debug logging.
	LogVerbosityDebug = 2
	// LogVerbosityTrace is the verbosity level for trace logging.
	LogVerbosityTrace = 9

	// FormatText specifies a textual log output.
	FormatText = "text"
	// FormatJSON specifies a JSON log output.
	FormatJSON = "json"
)

type logCtxKeyType struct{}

var logCtxKey logCtxKeyType

// Config represents the configuration settings for the logger.
type Config struct {
	// Verbosity specifies the verbosity level. 0 is info, 2 debug, 9 trace.
	Verbosity int
	// Format specifies the log output format, text or json.
	Format string
	// Output specifies the output destination, stderr, stdout or a file path.
	Output string
}

// Configure applies cfg to the standard logger.
func Configure(cfg *Config) error {
	configureVerbosity(cfg)

	if err := configureFormatter(cfg); err != nil {
		return fmt.Errorf("configuring log formatter: %w", err)
	}

	if err := configureOutput(cfg); err != nil {
		return fmt.Errorf("configuring log output: %w", err)
	}

	return nil
}

// GetLogger returns the logger entry stored in ctx, or an entry on the
// standard logger if none was stored.
func GetLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(logCtxKey).(*logrus.Entry); ok {
		return logger
	}

	return logrus.NewEntry(logrus.StandardLogger())
}

// WithLogger stores a logger entry in the returned context.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, logCtxKey, logger)
}

func configureVerbosity(cfg *Config) {
	logrus.SetLevel(logrus.InfoLevel)

	if cfg.Verbosity >= LogVerbosityTrace {
		logrus.SetLevel(logrus.TraceLevel)
	} else if cfg.Verbosity >= LogVerbosityDebug {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func configureFormatter(cfg *Config) error {
	switch strings.ToLower(cfg.Format) {
	case FormatText:
		logrus.SetFormatter(&logrus.TextFormatter{})
	case FormatJSON:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return invalidLogFormatError{format: cfg.Format}
	}

	return nil
}

func configureOutput(cfg *Config) error {
	switch cfg.Output {
	case "":
		return ErrLogOutputRequired
	case "stderr":
		logrus.SetOutput(os.Stderr)
	case "stdout":
		logrus.SetOutput(os.Stdout)
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file %s: %w", cfg.Output, err)
		}

		logrus.SetOutput(file)
	}

	return nil
}
