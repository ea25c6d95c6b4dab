package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Record errors.
var (
	ErrCorruptState   = errors.New("corrupt credential state")
	ErrOrphanSession  = errors.New("session record requires a granted application")
	ErrSecretNotFound = errors.New("app token not found")
)

// AppStatus is the pairing status of the application.
type AppStatus uint8

const (
	// AppStatusPending - registered, waiting for approval on the device.
	AppStatusPending AppStatus = iota

	// AppStatusGranted - approved; the app token can open sessions.
	AppStatusGranted
)

// String returns the status name.
func (s AppStatus) String() string {
	switch s {
	case AppStatusPending:
		return "pending"
	case AppStatusGranted:
		return "granted"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s AppStatus) MarshalText() ([]byte, error) {
	switch s {
	case AppStatusPending, AppStatusGranted:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("invalid app status %d", uint8(s))
	}
}

// UnmarshalText decodes a status name.
func (s *AppStatus) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "pending":
		*s = AppStatusPending
	case "granted":
		*s = AppStatusGranted
	default:
		return fmt.Errorf("%w: unknown app status %q", ErrCorruptState, text)
	}
	return nil
}

// AppRecord identifies this client to the device.
type AppRecord struct {
	AppID      string `json:"app_id"`
	AppVersion string `json:"app_version"`

	// SharedSecret is the app token. Never log it; it is only ever used as
	// HMAC key material.
	SharedSecret string `json:"app_token,omitempty"`

	// TrackID identifies the latest registration, so a poll can resume
	// after a restart.
	TrackID int `json:"track_id"`

	Status       AppStatus  `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	AuthorizedAt *time.Time `json:"authorized_at,omitempty"`
}

// Granted reports whether the application may open sessions.
func (a *AppRecord) Granted() bool {
	return a != nil && a.Status == AppStatusGranted
}

// HasSecret reports whether an app token is held.
func (a *AppRecord) HasSecret() bool {
	return a != nil && a.SharedSecret != ""
}

// Grant marks the application granted. AuthorizedAt is set only the first
// time.
func (a *AppRecord) Grant(now time.Time) error {
	if !a.HasSecret() {
		return fmt.Errorf("%w: grant without app token", ErrCorruptState)
	}
	a.Status = AppStatusGranted
	if a.AuthorizedAt == nil {
		t := now
		a.AuthorizedAt = &t
	}
	return nil
}

// Validate checks the record invariants.
func (a *AppRecord) Validate() error {
	if a.AppID == "" {
		return fmt.Errorf("%w: missing app_id", ErrCorruptState)
	}
	if a.Status == AppStatusGranted && a.SharedSecret == "" {
		return fmt.Errorf("%w: granted application without app token", ErrCorruptState)
	}
	return nil
}

// Clone returns a deep copy.
func (a *AppRecord) Clone() *AppRecord {
	if a == nil {
		return nil
	}
	c := *a
	if a.AuthorizedAt != nil {
		t := *a.AuthorizedAt
		c.AuthorizedAt = &t
	}
	return &c
}

// String never includes the app token.
func (a *AppRecord) String() string {
	return fmt.Sprintf("AppRecord{app_id=%s status=%s track_id=%d secret=%s}",
		a.AppID, a.Status, a.TrackID, redact(a.SharedSecret))
}

// LogValue keeps the app token out of structured logs.
func (a *AppRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("app_id", a.AppID),
		slog.String("status", a.Status.String()),
		slog.Int("track_id", a.TrackID),
	)
}

// SessionRecord caches the session token. The device is the source of truth;
// the token may have expired there at any time.
type SessionRecord struct {
	Token     string    `json:"session_token"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a copy.
func (s *SessionRecord) Clone() *SessionRecord {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// String never includes the token.
func (s *SessionRecord) String() string {
	return fmt.Sprintf("SessionRecord{created_at=%s token=%s}", s.CreatedAt.Format(time.RFC3339), redact(s.Token))
}

// LogValue keeps the token out of structured logs.
func (s *SessionRecord) LogValue() slog.Value {
	return slog.GroupValue(slog.Time("created_at", s.CreatedAt))
}

func redact(secret string) string {
	if secret == "" {
		return "<none>"
	}
	return "<redacted>"
}

// checkPair enforces the cross-record invariant.
func checkPair(app *AppRecord, session *SessionRecord) error {
	if app != nil {
		if err := app.Validate(); err != nil {
			return err
		}
	}
	if session != nil && !app.Granted() {
		return ErrOrphanSession
	}
	return nil
}

// StateVersion is the current version of the state file format.
const StateVersion = 1

// CredentialState is the on-disk form of the records.
type CredentialState struct {
	Version int            `json:"version"`
	SavedAt time.Time      `json:"saved_at"`
	App     *AppRecord     `json:"app,omitempty"`
	Session *SessionRecord `json:"session,omitempty"`

	// SecretInKeyring records that the app token lives in the keyring.
	SecretInKeyring bool `json:"secret_in_keyring,omitempty"`
}

func decodeState(data []byte) (*CredentialState, error) {
	state := &CredentialState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("%w: unsupported state version %d", ErrCorruptState, state.Version)
	}
	return state, nil
}
