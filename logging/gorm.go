package logging

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

// gormWriter forwards GORM's printf-style output to zerolog
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Warn().Str("component", "gorm").Msg(fmt.Sprintf(format, args...))
}

// NewGormLogger returns a GORM logger that reports errors and, when slowQueryLog is set,
// statements slower than slowThreshold.
func NewGormLogger(log zerolog.Logger, slowQueryLog bool, slowThreshold time.Duration) gormlogger.Interface {
	level := gormlogger.Error
	if slowQueryLog {
		level = gormlogger.Warn
	}
	return gormlogger.New(gormWriter{log: log}, gormlogger.Config{
		SlowThreshold:             slowThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
