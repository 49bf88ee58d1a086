package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tripdesk/backend/internal/splitwise"
)

// ErrorResponse is the envelope every error body uses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code and a human-readable
// message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// notFoundBody returns an ErrorResponse for a missing resource.
// The caller supplies the human-readable message (e.g. "trip not found")
// because the handler is the layer that knows what was being looked up.
func notFoundBody(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "not_found", Message: message}}
}

// validationBody returns an ErrorResponse for a domain validation failure.
// The message is extracted from the wrapped domain.ErrValidation error.
func validationBody(err error) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: unwrapMessage(err)}}
}

// requestBody returns an ErrorResponse for a bad request rejected before
// reaching the service layer (e.g. missing or malformed body).
func requestBody(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: message}}
}

// conflictBody returns an ErrorResponse for a state-conflict failure. The
// message is extracted from the wrapped domain.ErrConflict child.
func conflictBody(err error) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "conflict", Message: unwrapMessage(err)}}
}

// forbiddenBody returns an ErrorResponse for an authorization failure by an
// authenticated user (non-creator mutation, wrong department).
func forbiddenBody(err error) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "not_authorized", Message: unwrapMessage(err)}}
}

// unauthorizedBody returns an ErrorResponse for a failed authentication
// attempt (bad credentials, bad reset code, bad oauth state).
func unauthorizedBody(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "unauthorized", Message: message}}
}

// providerBody returns an ErrorResponse carrying the expense provider's own
// verdict, so callers see what the provider rejected.
func providerBody(perr *splitwise.Error) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "provider_error", Message: perr.Message}}
}

// unwrapMessage extracts the human-readable part from a wrapped sentinel error.
// e.g. "service.TripService.Create: validation error: title is required"
// → "title is required".
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	// Strip the call-site prefix the service layer wraps with.
	if strings.HasPrefix(msg, "service.") {
		if i := strings.Index(msg, ": "); i >= 0 {
			msg = msg[i+2:]
		}
	}
	for _, prefix := range []string{
		"validation error: ",
		"not authorized: ",
		"state conflict: ",
	} {
		if rest, ok := strings.CutPrefix(msg, prefix); ok {
			return rest
		}
	}
	return msg
}

// respond writes v as a JSON body with the given status.
func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
	}
}

// decode reads the request body into dst, rejecting unknown fields so typos
// in payloads fail loudly instead of silently zeroing a field.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// respondProviderOr500 resolves errors from endpoints whose work lives on the
// provider side: a provider verdict becomes 502 with the provider's message, a
// timed-out call becomes 504, anything else is an internal error.
func (s *Server) respondProviderOr500(w http.ResponseWriter, r *http.Request, err error) {
	var perr *splitwise.Error
	if errors.As(err, &perr) {
		s.respond(w, http.StatusBadGateway, providerBody(perr))
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		s.respond(w, http.StatusGatewayTimeout, ErrorResponse{Error: ErrorDetail{
			Code: "provider_error", Message: "expense provider timed out",
		}})
		return
	}
	s.internalError(w, r, err)
}

// internalError logs the unexpected error and answers a bare 500. The error's
// content never reaches the caller.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.ErrorContext(r.Context(), "unhandled error", "method", r.Method, "path", r.URL.Path, "error", err)
	s.respond(w, http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{
		Code: "internal_error", Message: "internal server error",
	}})
}
