package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Mohsinsiddi/w3gas/internal/chain"
	"github.com/Mohsinsiddi/w3gas/internal/explorer"
	"github.com/Mohsinsiddi/w3gas/internal/gas"
)

// Error codes returned in the "code" field of error bodies.
const (
	codeInvalidRequest    = "invalid_request"
	codeUnknownPeriod     = "unknown_time_period"
	codeUnknownChain      = "unknown_chain"
	codeUpstream          = "upstream_error"
	codeUpstreamMalformed = "upstream_malformed"
	codeUpstreamTimeout   = "upstream_timeout"
	codeCancelled         = "request_cancelled"
	codeNotFound          = "not_found"
	codeInternal          = "internal_error"
)

// statusClientClosedRequest is the de facto status for a client that went
// away before the response was ready.
const statusClientClosedRequest = 499

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Error: msg, Code: code})
}

// classify maps a calculation error to an HTTP status and error code.
func classify(err error) (int, string) {
	var apiErr *explorer.APIError
	var statusErr *explorer.StatusError
	var netErr net.Error

	switch {
	case errors.Is(err, gas.ErrInvalidAddress):
		return http.StatusBadRequest, codeInvalidRequest
	case errors.Is(err, gas.ErrUnknownPeriod):
		return http.StatusBadRequest, codeUnknownPeriod
	case errors.Is(err, chain.ErrChainNotFound):
		return http.StatusBadRequest, codeUnknownChain
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, codeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, codeUpstreamTimeout
	case errors.Is(err, explorer.ErrMalformedResponse),
		errors.Is(err, explorer.ErrInvalidBlockNumber),
		errors.Is(err, gas.ErrInvalidGasUsed):
		return http.StatusBadGateway, codeUpstreamMalformed
	case errors.As(err, &apiErr), errors.As(err, &statusErr):
		return http.StatusBadGateway, codeUpstream
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return http.StatusGatewayTimeout, codeUpstreamTimeout
		}
		return http.StatusBadGateway, codeUpstream
	}
	return http.StatusInternalServerError, codeInternal
}
