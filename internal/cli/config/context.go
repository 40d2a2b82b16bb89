package config

import (
	"context"
	"log/slog"
)

// loggerKey is used to store the logger in context. It lives here so the
// commands package can retrieve the logger without importing the cli
// package (which would cycle).
type loggerKey struct{}

// LoggerKey returns the context key used for storing the logger.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
