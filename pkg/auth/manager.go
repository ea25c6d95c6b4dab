package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fbxctl/fbx-go/pkg/api"
	"github.com/fbxctl/fbx-go/pkg/log"
	"github.com/fbxctl/fbx-go/pkg/persistence"
)

// DefaultPollInterval is the delay between authorization polls.
const DefaultPollInterval = 2 * time.Second

// Device is the subset of the device API the manager needs. *api.Client
// implements it.
type Device interface {
	Authorize(ctx context.Context, req api.AuthorizeRequest) (*api.AuthorizeResult, error)
	AuthorizationStatus(ctx context.Context, trackID int) (*api.AuthorizationProgress, error)
	Login(ctx context.Context, sessionToken string) (*api.LoginResult, error)
	StartSession(ctx context.Context, req api.SessionStartRequest) (*api.SessionStartResult, error)
	Logout(ctx context.Context, sessionToken string) error
}

var _ Device = (*api.Client)(nil)

// CredentialStore persists the application and session records.
type CredentialStore interface {
	Load() (*persistence.AppRecord, *persistence.SessionRecord, error)
	Save(app *persistence.AppRecord, session *persistence.SessionRecord) error
}

var (
	_ CredentialStore = (*persistence.FileStore)(nil)
	_ CredentialStore = (*persistence.MemoryStore)(nil)
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Device talks to the device API.
	Device Device

	// Store holds the credential records.
	Store CredentialStore

	// Identity is presented when registering.
	Identity Identity

	// PollInterval is the delay between authorization polls (default: 2s).
	PollInterval time.Duration

	// OnProgress, if set, is called with every polled status.
	OnProgress func(AuthorizationStatus)

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives credential state changes.
	// If nil, nothing is recorded.
	ProtocolLogger log.Logger
}

// Manager runs the pairing and session flows against one device.
//
// A Manager holds no credential state of its own; every step reads and
// writes the Store. Only one flow should run at a time per store.
type Manager struct {
	device       Device
	store        CredentialStore
	identity     Identity
	pollInterval time.Duration
	onProgress   func(AuthorizationStatus)
	logger       *slog.Logger
	plog         log.Logger

	now func() time.Time
}

// NewManager creates a Manager.
func NewManager(config ManagerConfig) (*Manager, error) {
	if config.Device == nil || config.Store == nil {
		return nil, fmt.Errorf("%w: device and store are required", ErrInvalidConfig)
	}
	if config.Identity.AppID == "" || config.Identity.AppVersion == "" {
		return nil, fmt.Errorf("%w: app id and version are required", ErrInvalidConfig)
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Manager{
		device:       config.Device,
		store:        config.Store,
		identity:     config.Identity.withDefaults(),
		pollInterval: config.PollInterval,
		onProgress:   config.OnProgress,
		logger:       logger,
		plog:         log.OrNoop(config.ProtocolLogger),
		now:          time.Now,
	}, nil
}

// Identity returns the identity presented when registering.
func (m *Manager) Identity() Identity {
	return m.identity
}

func (m *Manager) load() (*persistence.AppRecord, *persistence.SessionRecord, error) {
	app, session, err := m.store.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load credentials: %w", err)
	}
	return app, session, nil
}

func (m *Manager) save(app *persistence.AppRecord, session *persistence.SessionRecord) error {
	if err := m.store.Save(app, session); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (m *Manager) logState(entity log.StateEntity, appID, oldState, newState, reason string) {
	m.plog.Log(log.Event{
		Timestamp: m.now(),
		Direction: log.DirectionIn,
		Layer:     log.LayerAuth,
		Category:  log.CategoryState,
		AppID:     appID,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
