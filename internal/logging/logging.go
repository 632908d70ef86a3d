// Package logging provides structured logging functionality.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "mexc-trader", "logs", "bot.log"),
		MaxSize:    50,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	if cfg.File {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = os.Stdout
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	return zerolog.New(writer).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// WithAccount adds an account id to the logger context.
func WithAccount(logger zerolog.Logger, accountID string) zerolog.Logger {
	return logger.With().Str("account", accountID).Logger()
}

// WithPosition adds a position id to the logger context.
func WithPosition(logger zerolog.Logger, positionID string) zerolog.Logger {
	return logger.With().Str("position_id", positionID).Logger()
}

// LogSignal logs a signal evaluation.
func LogSignal(logger zerolog.Logger, action string, confidence float64, reasons []string) {
	logger.Info().
		Str("event", "signal").
		Str("action", action).
		Float64("confidence", confidence).
		Strs("reasons", reasons).
		Msg("Signal evaluated")
}

// LogOrder logs an order placement.
func LogOrder(logger zerolog.Logger, kind, side string, quantity, price float64) {
	logger.Info().
		Str("event", "order").
		Str("kind", kind).
		Str("side", side).
		Float64("quantity", quantity).
		Float64("price", price).
		Msg("Order placed")
}

// LogTick logs the outcome of one tick.
func LogTick(logger zerolog.Logger, outcome string, reasons []string, err error) {
	event := logger.Info().
		Str("event", "tick").
		Str("outcome", outcome)
	if len(reasons) > 0 {
		event = event.Strs("reasons", reasons)
	}
	if err != nil {
		logger.Error().
			Str("event", "tick").
			Str("outcome", outcome).
			Err(err).
			Msg("Tick failed")
		return
	}
	event.Msg("Tick completed")
}
