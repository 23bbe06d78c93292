// Package logging builds the prefixed loggers used across the tracker.
package logging

import (
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger with the given prefix. When path is non-empty the
// logger appends to a size-rotated file there (watch mode runs for days
// on shared machines); otherwise it writes to stderr.
func New(prefix, path string) *log.Logger {
	if path == "" {
		return log.New(os.Stderr, prefix, log.LstdFlags)
	}
	return log.New(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}, prefix, log.LstdFlags)
}
