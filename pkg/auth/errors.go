package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/fbxctl/fbx-go/pkg/transport"
)

// Auth errors.
var (
	// ErrUnauthenticated means no granted application is stored.
	ErrUnauthenticated = errors.New("application not authorized")

	// ErrAuthFailed means the device rejected the session password.
	ErrAuthFailed = errors.New("session authentication failed")

	ErrPairingDenied  = errors.New("pairing denied on device")
	ErrPairingTimeout = errors.New("pairing timed out on device")

	// ErrProtocol means a response lacked a field the exchange requires.
	ErrProtocol = errors.New("protocol error")

	// ErrNoChallenge means the device returned no challenge to answer.
	ErrNoChallenge = fmt.Errorf("%w: no challenge available", ErrProtocol)

	// ErrInternal means password derivation failed.
	ErrInternal = errors.New("internal error")

	ErrNoPendingPairing = errors.New("no pending pairing")

	ErrInvalidConfig = errors.New("invalid manager config")
)

// Remedy tells the caller what to do about an error.
type Remedy uint8

const (
	// RemedyNone - nothing specific; report the error.
	RemedyNone Remedy = iota

	// RemedyRepair - pair the application again.
	RemedyRepair

	// RemedyRetry - the device had a transient problem; try again later.
	RemedyRetry

	// RemedyCheckNetwork - the device could not be reached.
	RemedyCheckNetwork

	// RemedyCheckConfig - the device does not serve the configured API path.
	RemedyCheckConfig
)

// String returns the remedy name.
func (r Remedy) String() string {
	switch r {
	case RemedyNone:
		return "NONE"
	case RemedyRepair:
		return "REPAIR"
	case RemedyRetry:
		return "RETRY"
	case RemedyCheckNetwork:
		return "CHECK_NETWORK"
	case RemedyCheckConfig:
		return "CHECK_CONFIG"
	default:
		return "UNKNOWN"
	}
}

// RemedyFor classifies err.
func RemedyFor(err error) Remedy {
	if err == nil || errors.Is(err, context.Canceled) {
		return RemedyNone
	}

	if apiErr, ok := transport.AsAPIError(err); ok && apiErr.Code == transport.CodeRateLimited {
		return RemedyRetry
	}

	switch {
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrAuthFailed),
		errors.Is(err, ErrPairingDenied),
		errors.Is(err, ErrPairingTimeout),
		errors.Is(err, ErrNoPendingPairing),
		errors.Is(err, ErrInternal),
		errors.Is(err, transport.ErrUnauthorized):
		return RemedyRepair
	case errors.Is(err, transport.ErrNotFound):
		return RemedyCheckConfig
	case errors.Is(err, transport.ErrUnreachable),
		errors.Is(err, context.DeadlineExceeded):
		return RemedyCheckNetwork
	case errors.Is(err, transport.ErrServer),
		errors.Is(err, transport.ErrMalformedResponse),
		errors.Is(err, ErrProtocol):
		return RemedyRetry
	default:
		return RemedyNone
	}
}

// isRejection reports whether err is the device refusing the request, as
// opposed to a network, server or API path failure.
func isRejection(err error) bool {
	apiErr, ok := transport.AsAPIError(err)
	if !ok {
		return false
	}
	return !errors.Is(apiErr, transport.ErrServer) && !errors.Is(apiErr, transport.ErrNotFound)
}
