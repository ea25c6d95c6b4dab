package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fbxctl/fbx-go/pkg/api"
	"github.com/fbxctl/fbx-go/pkg/log"
	"github.com/fbxctl/fbx-go/pkg/persistence"
)

// Registration is the outcome of RegisterApplication.
type Registration struct {
	AppID   string
	TrackID int

	// SharedSecret is the issued app token.
	SharedSecret string
}

// String never includes the app token.
func (r *Registration) String() string {
	return fmt.Sprintf("Registration{app_id=%s track_id=%d}", r.AppID, r.TrackID)
}

// RegisterApplication asks the device to authorize this application and
// stores a Pending record. The previous session is dropped, and a previous
// record for the same app id only keeps its CreatedAt and AuthorizedAt.
// The request is not retried.
func (m *Manager) RegisterApplication(ctx context.Context) (*Registration, error) {
	id := m.identity
	res, err := m.device.Authorize(ctx, api.AuthorizeRequest{
		AppID:      id.AppID,
		AppName:    id.AppName,
		AppVersion: id.AppVersion,
		DeviceName: id.DeviceName,
	})
	if err != nil {
		return nil, fmt.Errorf("register application: %w", err)
	}
	if res.AppToken == "" {
		return nil, fmt.Errorf("%w: authorize response without app_token", ErrProtocol)
	}
	if res.TrackID <= 0 {
		return nil, fmt.Errorf("%w: authorize response without track_id", ErrProtocol)
	}

	app := &persistence.AppRecord{
		AppID:        id.AppID,
		AppVersion:   id.AppVersion,
		SharedSecret: res.AppToken,
		TrackID:      res.TrackID,
		Status:       persistence.AppStatusPending,
		CreatedAt:    m.now(),
	}
	m.carryForward(app)
	if err := m.save(app, nil); err != nil {
		return nil, err
	}

	m.logger.Info("application registered, confirm on the device",
		slog.String("app_id", app.AppID),
		slog.Int("track_id", app.TrackID),
		slog.String("device_name", id.DeviceName))
	m.logState(log.StateEntityApplication, app.AppID, "", app.Status.String(), "registered")

	return &Registration{AppID: app.AppID, TrackID: app.TrackID, SharedSecret: res.AppToken}, nil
}

// carryForward copies the timestamps of a stored record for the same app id
// onto app. An unreadable store is ignored; registering replaces it anyway.
func (m *Manager) carryForward(app *persistence.AppRecord) {
	prev, _, err := m.store.Load()
	if err != nil {
		m.logger.Debug("previous credentials unreadable", slog.Any("error", err))
		return
	}
	if prev == nil || prev.AppID != app.AppID {
		return
	}
	if !prev.CreatedAt.IsZero() {
		app.CreatedAt = prev.CreatedAt
	}
	if prev.AuthorizedAt != nil {
		t := *prev.AuthorizedAt
		app.AuthorizedAt = &t
	}
}
