package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// slowOperation marks the point where a duration gets a warn instead of
// a debug line. Pipeline runs and market refreshes normally finish in
// seconds even over a full 5y range.
const slowOperation = 30 * time.Second

// OperationTimer measures an operation for a defer site:
//
//	defer utils.OperationTimer("pipeline_run", log)()
func OperationTimer(operation string, log zerolog.Logger) func() {
	start := time.Now()

	return func() {
		elapsed := time.Since(start)
		event := log.Debug()
		msg := "Operation completed"
		if elapsed > slowOperation {
			event = log.Warn()
			msg = "Slow operation detected"
		}
		event.Str("operation", operation).Dur("duration_ms", elapsed).Msg(msg)
	}
}
