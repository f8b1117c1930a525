package client

import (
	"context"
	"errors"

	"github.com/kjstillabower/soil-monitor-service/internal/circuitbreaker"
)

// ErrorCategory is a stable label for error classification in metrics and fallback logs.
type ErrorCategory string

const (
	ErrorCategoryTimeout     ErrorCategory = "timeout"
	ErrorCategoryTransport   ErrorCategory = "transport"
	ErrorCategoryDecode      ErrorCategory = "decode"
	ErrorCategoryApplication ErrorCategory = "application"
	ErrorCategoryRateLimited ErrorCategory = "rate_limited"
	ErrorCategoryUpstream5xx ErrorCategory = "upstream_5xx"
	ErrorCategoryStatus      ErrorCategory = "unexpected_status"
	ErrorCategoryCircuitOpen ErrorCategory = "circuit_open"
	ErrorCategoryUnknown     ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		return ErrorCategoryCircuitOpen
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return ErrorCategoryTimeout
	case errors.Is(err, ErrTransport):
		return ErrorCategoryTransport
	case errors.Is(err, ErrDecode):
		return ErrorCategoryDecode
	case errors.Is(err, ErrApplication):
		return ErrorCategoryApplication
	case errors.Is(err, ErrRateLimited):
		return ErrorCategoryRateLimited
	case errors.Is(err, ErrUpstreamFailure):
		return ErrorCategoryUpstream5xx
	case errors.Is(err, ErrUnexpectedStatus):
		return ErrorCategoryStatus
	}
	return ErrorCategoryUnknown
}
