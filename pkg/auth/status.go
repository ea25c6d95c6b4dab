package auth

import "strings"

// AuthorizationStatus is the state of a pairing request on the device.
type AuthorizationStatus uint8

const (
	// AuthorizationUnknown - the device sent a status this client does not
	// know. Polling continues.
	AuthorizationUnknown AuthorizationStatus = iota

	// AuthorizationPending - waiting for the user to answer on the device.
	AuthorizationPending

	// AuthorizationTimeout - the user did not answer in time.
	AuthorizationTimeout

	// AuthorizationGranted - the application is authorized.
	AuthorizationGranted

	// AuthorizationDenied - the user refused the application.
	AuthorizationDenied
)

// String returns the status as the device spells it.
func (s AuthorizationStatus) String() string {
	switch s {
	case AuthorizationUnknown:
		return "unknown"
	case AuthorizationPending:
		return "pending"
	case AuthorizationTimeout:
		return "timeout"
	case AuthorizationGranted:
		return "granted"
	case AuthorizationDenied:
		return "denied"
	default:
		return "invalid"
	}
}

// Terminal reports whether polling stops at this status.
func (s AuthorizationStatus) Terminal() bool {
	switch s {
	case AuthorizationTimeout, AuthorizationGranted, AuthorizationDenied:
		return true
	default:
		return false
	}
}

// ParseAuthorizationStatus maps a device status string. Unrecognized
// values map to AuthorizationUnknown.
func ParseAuthorizationStatus(s string) AuthorizationStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return AuthorizationPending
	case "timeout":
		return AuthorizationTimeout
	case "granted":
		return AuthorizationGranted
	case "denied":
		return AuthorizationDenied
	default:
		return AuthorizationUnknown
	}
}
