package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs an upstream HTTP exchange at a level matching its status
func LogRequest(log Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration":    duration,
	}

	switch {
	case statusCode >= 500:
		log.ErrorWithFields("upstream server error", fields)
	case statusCode >= 400:
		log.WarnWithFields("upstream client error", fields)
	default:
		log.DebugWithFields("upstream request completed", fields)
	}
}

// LogResolve logs the outcome of a media resolution
func LogResolve(log Logger, kind, id, outcome string, duration time.Duration) {
	fields := map[string]interface{}{
		"kind":     kind,
		"id":       id,
		"outcome":  outcome,
		"duration": duration,
	}

	if outcome == "ok" {
		log.InfoWithFields("media resolved", fields)
		return
	}
	log.WarnWithFields("media not resolved", fields)
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}

func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
