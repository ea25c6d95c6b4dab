package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// Transport errors.
var (
	ErrUnreachable       = errors.New("device unreachable")
	ErrMalformedResponse = errors.New("malformed response")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrServer            = errors.New("device error")
	ErrInvalidURL        = errors.New("invalid device url")
)

// ErrorCode is a device-reported error code from the response envelope.
type ErrorCode string

// Error codes returned by the login endpoints.
const (
	CodeAuthRequired         ErrorCode = "auth_required"
	CodeInvalidToken         ErrorCode = "invalid_token"
	CodePendingToken         ErrorCode = "pending_token"
	CodeInsufficientRights   ErrorCode = "insufficient_rights"
	CodeDeniedFromExternalIP ErrorCode = "denied_from_external_ip"
	CodeInvalidRequest       ErrorCode = "invalid_request"
	CodeRateLimited          ErrorCode = "rate_limited"
	CodeNewAppsDenied        ErrorCode = "new_apps_denied"
	CodeAppsDenied           ErrorCode = "apps_denied"
	CodeInternalError        ErrorCode = "internal_error"
)

// IsAuth reports whether the code means the presented credential or session
// was rejected.
func (c ErrorCode) IsAuth() bool {
	switch c {
	case CodeAuthRequired, CodeInvalidToken, CodePendingToken,
		CodeInsufficientRights, CodeDeniedFromExternalIP:
		return true
	default:
		return false
	}
}

// APIError is a failed exchange: a non-2xx status, or an envelope with
// success=false.
type APIError struct {
	StatusCode int
	Code       ErrorCode
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("device error %s (http %d): %s", e.Code, e.StatusCode, e.Message)
	case e.Code != "":
		return fmt.Sprintf("device error %s (http %d)", e.Code, e.StatusCode)
	default:
		return fmt.Sprintf("device error: http %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
}

// Is maps the error onto the transport sentinels so callers can use
// errors.Is(err, transport.ErrUnauthorized).
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized ||
			e.StatusCode == http.StatusForbidden ||
			e.Code.IsAuth()
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrServer:
		return e.StatusCode >= http.StatusInternalServerError || e.Code == CodeInternalError
	default:
		return false
	}
}

// AsAPIError returns the *APIError in err's chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
