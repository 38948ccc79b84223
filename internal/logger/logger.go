package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Config holds the logger configuration.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	// File is the log file used when Output is "file".
	File string `mapstructure:"file"`
}

// Writer resolves the configured output destination.
func (c Config) Writer() io.Writer {
	switch c.Output {
	case "stderr":
		return os.Stderr
	case "file":
		name := c.File
		if name == "" {
			name = "ci-warden.log"
		}
		file, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			fmt.Printf("Failed to open log file: %v\n", err)
			return os.Stdout
		}
		return file
	default:
		return os.Stdout
	}
}

// NewLogger initializes a new slog logger based on the provided configuration.
// A nil output falls back to the destination named in the configuration.
func NewLogger(cfg Config, output io.Writer) *slog.Logger {
	if output == nil {
		output = cfg.Writer()
	}

	level := new(slog.Level)
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		*level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler).With("service", "ci-warden")
}
