package ipc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/veloxhq/velox/internal/acl"
)

// Error codes returned to callers. Policy codes are shared with the acl
// package so a decision's code passes through unchanged.
const (
	CodePermissionDenied     = acl.CodePermissionDenied
	CodeScopeViolation       = acl.CodeScopeViolation
	CodeUnknownCommand       = "UnknownCommand"
	CodeHandlerError         = "HandlerError"
	CodeInvalidConfiguration = acl.CodeInvalidConfiguration
)

// ResponseKind discriminates the shape of a Response.
type ResponseKind int

const (
	// KindResult is a JSON success value, encoded as {"result": v}.
	KindResult ResponseKind = iota
	// KindBinary is a raw byte payload delivered without JSON framing.
	KindBinary
	// KindError is a structured failure, encoded as
	// {"error": {"code": ..., "message": ...}}.
	KindError
	// KindPending is an internal placeholder referencing a deferred slot.
	// The transport decides how to surface it; the eventual settled
	// response replaces it.
	KindPending
)

// Response is the caller-visible outcome of one invocation: a success
// value, a raw binary payload, a structured error, or a pending marker
// for a deferred result.
type Response struct {
	kind       ResponseKind
	result     any
	body       []byte
	code       string
	message    string
	deferredID string
}

// Ok returns a success response carrying a JSON-encodable value.
func Ok(value any) Response {
	return Response{kind: KindResult, result: value}
}

// Binary returns a raw byte payload response.
func Binary(body []byte) Response {
	return Response{kind: KindBinary, body: body}
}

// Fail returns a structured error response.
func Fail(code, message string) Response {
	return Response{kind: KindError, code: code, message: message}
}

// Failf returns a structured error response with a formatted message.
func Failf(code, format string, args ...any) Response {
	return Fail(code, fmt.Sprintf(format, args...))
}

// Pending returns the placeholder response for a deferred slot.
func Pending(d *Deferred) Response {
	return Response{kind: KindPending, deferredID: d.ID()}
}

// Kind returns the response shape.
func (r Response) Kind() ResponseKind { return r.kind }

// Result returns the success value. Valid only for KindResult.
func (r Response) Result() any { return r.result }

// Body returns the raw payload. Valid only for KindBinary.
func (r Response) Body() []byte { return r.body }

// IsError reports whether the response is a structured error.
func (r Response) IsError() bool { return r.kind == KindError }

// ErrorCode returns the error code, or "" for non-error responses.
func (r Response) ErrorCode() string { return r.code }

// ErrorMessage returns the error message, or "" for non-error responses.
func (r Response) ErrorMessage() string { return r.message }

// IsPending reports whether the response references a deferred slot.
func (r Response) IsPending() bool { return r.kind == KindPending }

// DeferredID returns the deferred slot id for pending responses.
func (r Response) DeferredID() string { return r.deferredID }

// responseError is the wire form of a structured error.
type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MarshalJSON encodes the transport shapes: {"result": v} for success,
// {"error": {"code", "message"}} for failures and {"pending": {"id"}} for
// deferred placeholders. Binary responses have no JSON form; transports
// send Body() verbatim.
func (r Response) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case KindResult:
		return json.Marshal(struct {
			Result any `json:"result"`
		}{r.result})
	case KindError:
		return json.Marshal(struct {
			Error responseError `json:"error"`
		}{responseError{Code: r.code, Message: r.message}})
	case KindPending:
		return json.Marshal(struct {
			Pending struct {
				ID string `json:"id"`
			} `json:"pending"`
		}{struct {
			ID string `json:"id"`
		}{r.deferredID}})
	default:
		return nil, errors.New("binary response is delivered as raw bytes, not JSON")
	}
}

// CommandError lets a handler fail with a caller-visible code. The code
// and message are preserved verbatim in the error response. Plain errors
// returned by handlers are wrapped under CodeHandlerError instead.
type CommandError struct {
	Code    string
	Message string
}

func (e *CommandError) Error() string {
	return e.Code + ": " + e.Message
}
