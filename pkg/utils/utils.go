package utils

import (
	"context"
	"runtime"
	"strings"

	"golang-backtest/pkg/logger"
)

// ContainsString checks if a slice of strings contains a specific string.
func ContainsString(slice []string, str string) bool {
	for _, item := range slice {
		if item == str {
			return true
		}
	}
	return false
}

func ToPointer[T any](value T) *T {
	return &value
}

// ShouldContinue reports whether ctx is still live, logging the caller once
// it has been cancelled.
func ShouldContinue(ctx context.Context, log *logger.Logger) bool {
	select {
	case <-ctx.Done():
		pc, _, _, ok := runtime.Caller(1)
		funcName := "unknown"
		if ok {
			fn := runtime.FuncForPC(pc)
			if fn != nil {
				parts := strings.Split(fn.Name(), "/")
				funcName = parts[len(parts)-1]
			}
		}

		log.WarnContext(ctx, "Context cancelled",
			logger.StringField("caller", funcName),
			logger.ErrorField(ctx.Err()),
		)
		return false
	default:
		return true
	}
}
