package explorer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedResponse is returned when the explorer answers with a body
	// that is not the expected JSON envelope or result shape.
	ErrMalformedResponse = errors.New("malformed explorer response")

	// ErrInvalidBlockNumber is returned when a block lookup result is not an
	// unsigned decimal integer.
	ErrInvalidBlockNumber = errors.New("invalid block number")
)

// noRecordsMessage is what Etherscan returns (with status "0") for an
// address without transactions in the requested range.
const noRecordsMessage = "No transactions found"

// APIError is a well-formed explorer response with status "0".
type APIError struct {
	Action  string
	Message string
	Result  string
}

func (e *APIError) Error() string {
	if e.Result != "" && e.Result != e.Message {
		return fmt.Sprintf("explorer API %s: %s: %s", e.Action, e.Message, e.Result)
	}
	return fmt.Sprintf("explorer API %s: %s", e.Action, e.Message)
}

// RateLimited reports whether the explorer rejected the call for exceeding
// its request rate. Such calls are retried.
func (e *APIError) RateLimited() bool {
	return strings.Contains(strings.ToLower(e.Result), "rate limit") ||
		strings.Contains(strings.ToLower(e.Message), "rate limit")
}

// StatusError is a non-2xx HTTP response from the explorer.
type StatusError struct {
	Action     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "…"
	}
	return fmt.Sprintf("explorer %s: HTTP %d: %s", e.Action, e.StatusCode, body)
}

// Retryable reports whether the status code is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == 408 || e.StatusCode == 429 || e.StatusCode >= 500
}
