// Package utils holds small cross-cutting helpers.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// Slow-operation thresholds
const (
	SlowOperation = 30 * time.Second
	SlowQuery     = 5 * time.Second
)

// OperationTimer provides a defer-friendly way to measure operation duration
//
// Usage:
//
//	func MyFunction() {
//	    defer utils.OperationTimer("my_function", log)()
//	}
func OperationTimer(operation string, log zerolog.Logger) func() time.Duration {
	start := time.Now()

	return func() time.Duration {
		duration := time.Since(start)

		log.Debug().
			Str("operation", operation).
			Dur("duration_ms", duration).
			Msg("Operation completed")

		if duration > SlowOperation {
			log.Warn().
				Str("operation", operation).
				Dur("duration", duration).
				Msg("Slow operation detected")
		}
		return duration
	}
}

// MeasureDBQuery measures database query performance
func MeasureDBQuery(queryName string, log zerolog.Logger) func(rows int64) time.Duration {
	start := time.Now()

	return func(rows int64) time.Duration {
		duration := time.Since(start)

		log.Debug().
			Str("query", queryName).
			Dur("duration_ms", duration).
			Int64("rows", rows).
			Msg("Database query completed")

		if duration > SlowQuery {
			log.Warn().
				Str("query", queryName).
				Dur("duration", duration).
				Int64("rows", rows).
				Msg("Slow database query detected")
		}
		return duration
	}
}
