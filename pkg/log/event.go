package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// RequestID correlates the request and response of one HTTP exchange (UUID).
	RequestID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// AppID is the application identifier, when known.
	AppID string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Exchange    *ExchangeEvent    `cbor:"10,keyasint,omitempty"` // Transport layer
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"` // Pairing/session state
	Error       *ErrorEventData   `cbor:"12,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the HTTP layer.
	LayerTransport Layer = 0
	// LayerAuth is the pairing and session layer.
	LayerAuth Layer = 1
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerAuth:
		return "AUTH"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates an HTTP request or response.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ExchangeEvent captures one side of an HTTP exchange.
type ExchangeEvent struct {
	// Method is the HTTP method.
	Method string `cbor:"1,keyasint"`

	// Path is the request path relative to the device root.
	Path string `cbor:"2,keyasint"`

	// StatusCode is the HTTP status (response only).
	StatusCode int `cbor:"3,keyasint,omitempty"`

	// Success mirrors the envelope's success flag (response only).
	Success *bool `cbor:"4,keyasint,omitempty"`

	// ErrorCode is the device error code, if any (response only).
	ErrorCode string `cbor:"5,keyasint,omitempty"`

	// Authenticated reports whether a session header was attached (request only).
	Authenticated bool `cbor:"6,keyasint,omitempty"`

	// Duration is the round trip time (response only). Stored as nanoseconds.
	Duration *time.Duration `cbor:"7,keyasint,omitempty"`
}

// StateChangeEvent captures pairing and session lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityApplication indicates an application record change.
	StateEntityApplication StateEntity = 0
	// StateEntitySession indicates a session change.
	StateEntitySession StateEntity = 1
	// StateEntityAuthorization indicates a polled authorization status.
	StateEntityAuthorization StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityApplication:
		return "APPLICATION"
	case StateEntitySession:
		return "SESSION"
	case StateEntityAuthorization:
		return "AUTHORIZATION"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the device error code (if applicable).
	Code string `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
