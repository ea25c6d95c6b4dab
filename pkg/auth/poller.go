package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fbxctl/fbx-go/pkg/log"
	"github.com/fbxctl/fbx-go/pkg/persistence"
)

// PollOnce checks the pending registration once. The stored record is
// written only when the device reports granted.
//
// An application that is already granted reports AuthorizationGranted
// without contacting the device.
func (m *Manager) PollOnce(ctx context.Context) (AuthorizationStatus, error) {
	app, _, err := m.load()
	if err != nil {
		return AuthorizationUnknown, err
	}
	if app.Granted() {
		return AuthorizationGranted, nil
	}
	if app == nil || app.TrackID <= 0 || !app.HasSecret() {
		return AuthorizationUnknown, ErrNoPendingPairing
	}

	progress, err := m.device.AuthorizationStatus(ctx, app.TrackID)
	if err != nil {
		return AuthorizationUnknown, fmt.Errorf("poll authorization %d: %w", app.TrackID, err)
	}

	status := ParseAuthorizationStatus(progress.Status)
	m.logger.Debug("authorization polled",
		slog.Int("track_id", app.TrackID),
		slog.String("status", status.String()),
		slog.String("raw", progress.Status))
	m.logState(log.StateEntityAuthorization, app.AppID, "", status.String(), progress.Status)

	if status != AuthorizationGranted {
		return status, nil
	}

	granted := app.Clone()
	if err := granted.Grant(m.now()); err != nil {
		return AuthorizationUnknown, err
	}
	if err := m.save(granted, nil); err != nil {
		return AuthorizationUnknown, err
	}
	m.logger.Info("application granted", slog.String("app_id", granted.AppID))
	m.logState(log.StateEntityApplication, granted.AppID,
		persistence.AppStatusPending.String(), granted.Status.String(), "granted on device")

	return status, nil
}

// WaitForAuthorization polls until the device reports a terminal status.
// There is no iteration limit; cancel ctx to stop early. Cancellation leaves
// the pending record untouched so a later call can resume it.
func (m *Manager) WaitForAuthorization(ctx context.Context) error {
	for {
		status, err := m.PollOnce(ctx)
		if err != nil {
			return err
		}
		if m.onProgress != nil {
			m.onProgress(status)
		}

		switch status {
		case AuthorizationGranted:
			return nil
		case AuthorizationDenied:
			return ErrPairingDenied
		case AuthorizationTimeout:
			return ErrPairingTimeout
		}

		if err := sleep(ctx, m.pollInterval); err != nil {
			return fmt.Errorf("wait for authorization: %w", err)
		}
	}
}
