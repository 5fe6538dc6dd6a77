// Package logger initializes and configures the global zerolog instance.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds configuration options for the application logger.
type Config struct {
	Level      string `long:"level" env:"LEVEL" description:"Log level (trace, debug, info, warn, error)" default:"info" json:"level"`
	Format     string `long:"format" env:"FORMAT" description:"Log format (text or json)" default:"console" json:"format"`
	Output     string `long:"output" env:"OUTPUT" description:"Log output (stdout, stderr or file path)" default:"stderr" json:"output"`
	MaxSize    int    `long:"max-size" env:"MAX_SIZE" description:"Rotate log file after this many megabytes" default:"100" json:"max_size"`
	MaxBackups int    `long:"max-backups" env:"MAX_BACKUPS" description:"Rotated log files to keep" default:"5" json:"max_backups"`
	MaxAge     int    `long:"max-age" env:"MAX_AGE" description:"Days to keep rotated log files" default:"14" json:"max_age"`
}

// Setup initializes the global logger based on the provided configuration options.
// File output is rotated by size.
func Setup(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	writer := output(cfg)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(writer).With().Timestamp().Logger()
		return
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        writer,
		TimeFormat: time.RFC3339,
	}

	// Colors only for a terminal and when NO_COLOR is not set
	if f, ok := writer.(*os.File); !ok || os.Getenv("NO_COLOR") != "" || !isTerminal(f) {
		consoleWriter.NoColor = true
	}

	log.Logger = log.Output(consoleWriter)
}

func output(cfg Config) io.Writer {
	switch cfg.Output {
	case "stdout":
		return os.Stdout
	case "stderr", "":
		return os.Stderr
	}

	// Probe the path first so a bad location falls back to stderr instead of failing on first write
	f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		tempLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		tempLogger.Error().Err(err).Str("path", cfg.Output).Msg("Failed to open log file, falling back to stderr")
		return os.Stderr
	}
	_ = f.Close()

	return &lumberjack.Logger{
		Filename:   cfg.Output,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	}
}

// isTerminal checks if the provided file descriptor refers to a character device (terminal).
func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}

	return (stat.Mode() & os.ModeCharDevice) != 0
}
