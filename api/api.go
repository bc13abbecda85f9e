// Package api exposes the forum ledger over HTTP and API Gateway.
//
// Both transports accept the JSON execute and query envelopes, take the caller
// principal from the host (a header for HTTP, the authorizer context for
// Lambda) and map ledger errors to status codes the same way.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jacentio/forumledger/forum"
)

// Error kinds returned in the "kind" field of error bodies.
const (
	KindCounterOverflow = "counter_overflow"
	KindNotFound        = "not_found"
	KindInvalidRequest  = "invalid_request"
	KindUnauthenticated = "unauthenticated"
	KindInternal        = "internal"
)

// ackBody acknowledges a successful execute. CreateThread returns no id.
var ackBody = []byte("{}")

// Response is a transport-neutral reply.
type Response struct {
	Status int
	Body   []byte
}

// ErrorBody is the JSON shape of every error reply.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Server adapts a forum.Ledger to request/response transports.
type Server struct {
	ledger *forum.Ledger
	logger *slog.Logger
}

// NewServer creates a new Server. A nil logger falls back to slog.Default().
func NewServer(ledger *forum.Ledger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ledger: ledger,
		logger: logger,
	}
}

// Execute decodes and applies an execute envelope on behalf of caller.
func (s *Server) Execute(ctx context.Context, caller forum.Principal, body []byte) Response {
	if caller == "" {
		return s.errorResponse(forum.ErrUnauthenticated)
	}
	msg, err := forum.DecodeExecuteMsg(body)
	if err != nil {
		return s.errorResponse(err)
	}
	if err := s.ledger.Execute(ctx, caller, msg); err != nil {
		return s.errorResponse(err)
	}
	return Response{Status: http.StatusOK, Body: ackBody}
}

// Query decodes and answers a query envelope. Queries need no caller.
func (s *Server) Query(ctx context.Context, body []byte) Response {
	msg, err := forum.DecodeQueryMsg(body)
	if err != nil {
		return s.errorResponse(err)
	}
	out, err := s.ledger.Query(ctx, msg)
	if err != nil {
		return s.errorResponse(err)
	}
	return Response{Status: http.StatusOK, Body: out}
}

// classify maps an error to its status code and kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, forum.ErrCounterOverflow):
		return http.StatusConflict, KindCounterOverflow
	case errors.Is(err, forum.ErrNotFound):
		return http.StatusNotFound, KindNotFound
	case errors.Is(err, forum.ErrInvalidRequest):
		return http.StatusBadRequest, KindInvalidRequest
	case errors.Is(err, forum.ErrUnauthenticated):
		return http.StatusUnauthorized, KindUnauthenticated
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

func (s *Server) errorResponse(err error) Response {
	status, kind := classify(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		msg = "internal error"
	}

	body, _ := json.Marshal(ErrorBody{Error: msg, Kind: kind})
	return Response{Status: status, Body: body}
}
