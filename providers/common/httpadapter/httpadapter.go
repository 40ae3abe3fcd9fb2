// Package httpadapter normalizes vendor HTTP responses and transport errors
// into one outcome taxonomy shared by the provider clients.
package httpadapter

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// OutcomeClass is the normalized provider-outcome taxonomy.
type OutcomeClass string

const (
	OutcomeSuccess               OutcomeClass = "success"
	OutcomeTimeout               OutcomeClass = "timeout"
	OutcomeOverload              OutcomeClass = "overload"
	OutcomeBlocked               OutcomeClass = "blocked"
	OutcomeInfrastructureFailure OutcomeClass = "infrastructure_failure"
	OutcomeCancelled             OutcomeClass = "cancelled"
)

// Outcome is a normalized provider-call result.
type Outcome struct {
	Class      OutcomeClass
	Retryable  bool
	Reason     string
	StatusCode int
	BackoffMS  int64
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Class == OutcomeSuccess
}

// Err converts a non-success outcome into an error carrying its reason.
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	return &OutcomeError{Outcome: o}
}

// OutcomeError wraps a non-success outcome as an error value.
type OutcomeError struct {
	Outcome Outcome
}

func (e *OutcomeError) Error() string {
	if e.Outcome.StatusCode > 0 {
		return "provider call failed: " + e.Outcome.Reason + " status=" + strconv.Itoa(e.Outcome.StatusCode)
	}
	return "provider call failed: " + e.Outcome.Reason
}

// Retryable reports whether the failing call may be retried or failed over.
func (e *OutcomeError) Retryable() bool {
	return e.Outcome.Retryable
}

// NormalizeNetworkError maps transport-level errors to normalized outcomes.
func NormalizeNetworkError(err error) Outcome {
	if errors.Is(err, context.Canceled) {
		return Outcome{Class: OutcomeCancelled, Retryable: false, Reason: "provider_cancelled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Outcome{Class: OutcomeTimeout, Retryable: true, Reason: "provider_timeout"}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Outcome{Class: OutcomeTimeout, Retryable: true, Reason: "provider_timeout"}
	}
	return Outcome{Class: OutcomeInfrastructureFailure, Retryable: true, Reason: "provider_transport_error"}
}

// NormalizeStatus maps an HTTP status and Retry-After header to a normalized outcome.
func NormalizeStatus(status int, retryAfter string) Outcome {
	outcome := Outcome{StatusCode: status}
	switch {
	case status >= 200 && status <= 299:
		outcome.Class = OutcomeSuccess
		return outcome
	case status == http.StatusTooManyRequests:
		outcome.Class = OutcomeOverload
		outcome.Retryable = true
		outcome.Reason = "provider_overload"
		outcome.BackoffMS = retryAfterToMS(retryAfter)
		return outcome
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		outcome.Class = OutcomeTimeout
		outcome.Retryable = true
		outcome.Reason = "provider_timeout"
		return outcome
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		outcome.Class = OutcomeBlocked
		outcome.Reason = "provider_auth_or_policy_block"
		return outcome
	case status >= 400 && status <= 499:
		outcome.Class = OutcomeBlocked
		outcome.Reason = "provider_client_error"
		return outcome
	default:
		outcome.Class = OutcomeInfrastructureFailure
		outcome.Retryable = true
		outcome.Reason = "provider_server_error"
		return outcome
	}
}

// ReadBodySample reads at most maxBytes and reports truncation.
func ReadBodySample(reader io.Reader, maxBytes int) ([]byte, bool, error) {
	if maxBytes < 1 {
		maxBytes = 8192
	}
	payload, err := io.ReadAll(io.LimitReader(reader, int64(maxBytes+1)))
	if err != nil {
		return nil, false, err
	}
	if len(payload) > maxBytes {
		return payload[:maxBytes], true, nil
	}
	return payload, false, nil
}

func retryAfterToMS(retryAfter string) int64 {
	if strings.TrimSpace(retryAfter) == "" {
		return 500
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(retryAfter))
	if err != nil || seconds < 1 {
		return 500
	}
	return int64(seconds) * 1000
}
