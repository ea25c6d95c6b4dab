// Package transport provides the HTTP+JSON transport to the gateway API.
//
// The transport layer handles:
//   - Building URLs from the device root and the versioned API path
//   - JSON request bodies and the response envelope
//   - Request headers (the session header is supplied by callers)
//   - Mapping HTTP status codes and device error codes to sentinel errors
//   - Protocol tracing of every exchange
//
// # Response Envelope
//
// Every API response (except /api_version at the device root) is wrapped:
//
//	{"success": true,  "result": {...}}
//	{"success": false, "error_code": "invalid_token", "msg": "..."}
//
// The transport unwraps successful results into the caller's value and turns
// failures into *APIError.
//
// # Error Taxonomy
//
//   - ErrUnreachable: connection refused, DNS failure, request timeout
//   - ErrMalformedResponse: body is not the expected JSON
//   - ErrUnauthorized: HTTP 401/403 or an authentication error code
//   - ErrNotFound: HTTP 404
//   - ErrServer: HTTP 5xx or internal_error
//
// Nothing is retried here; callers decide.
package transport
