// Package logging builds the application logger from configuration
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/amirphl/counter-app/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger writing to the outputs selected in cfg and the closer for any file output
func New(cfg config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var (
		writers []io.Writer
		closer  io.Closer = nopCloser{}
	)

	if cfg.Output == "stdout" || cfg.Output == "both" || cfg.Output == "" {
		if cfg.Format == "text" {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
		} else {
			writers = append(writers, os.Stdout)
		}
	}

	if cfg.Output == "file" || cfg.Output == "both" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		writers = append(writers, rotating)
		closer = rotating
	}

	logger := NewWithWriter(io.MultiWriter(writers...), level)
	if cfg.EnableCaller {
		logger = logger.With().Caller().Logger()
	}

	return logger, closer, nil
}

// NewWithWriter returns a UTC timestamped logger on w
func NewWithWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
