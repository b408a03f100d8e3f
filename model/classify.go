package model

import (
	"context"
	"errors"
	"net/http"

	"github.com/NikhilKumarMandal/multi-agent-system/core"
)

// ClassifyStatus maps a provider HTTP status to the gateway error taxonomy.
// Rate limits, timeouts, conflicts and server errors are transient; any
// other status means the request or response broke the contract.
func ClassifyStatus(provider string, status int, err error) error {
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusConflict,
		status == http.StatusTooManyRequests,
		status >= http.StatusInternalServerError:
		return &core.ModelUnavailableError{Provider: provider, Err: err}
	default:
		return &core.ModelProtocolError{Reason: provider + " rejected the request", Err: err}
	}
}

// ClassifyTransport wraps a non-HTTP failure. Context cancellation passes
// through unchanged so callers can detect aborts.
func ClassifyTransport(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &core.ModelUnavailableError{Provider: provider, Err: err}
}
