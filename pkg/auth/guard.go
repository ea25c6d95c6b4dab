package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fbxctl/fbx-go/pkg/transport"
)

// EnsureSession returns a session token the device accepts, renewing it at
// most once. It never pairs: without a granted application it fails with
// ErrUnauthenticated.
//
// A probe that fails for any reason other than the device rejecting the
// token is returned unchanged and does not trigger renewal.
func (m *Manager) EnsureSession(ctx context.Context) (string, error) {
	app, session, err := m.load()
	if err != nil {
		return "", err
	}
	if !app.Granted() {
		return "", ErrUnauthenticated
	}

	if session == nil {
		m.logger.Debug("no session stored, negotiating")
		renewed, err := m.negotiate(ctx, app, nil, nil)
		if err != nil {
			return "", err
		}
		return renewed.Token, nil
	}

	login, err := m.device.Login(ctx, session.Token)
	switch {
	case err == nil && login.LoggedIn:
		return session.Token, nil
	case err == nil:
		m.logger.Debug("session expired on device, renewing")
		if !login.HasChallenge() {
			login = nil
		}
	case errors.Is(err, transport.ErrUnauthorized):
		m.logger.Debug("session rejected on device, renewing", slog.Any("error", err))
		login = nil
	default:
		return "", fmt.Errorf("probe session: %w", err)
	}

	renewed, err := m.negotiate(ctx, app, nil, login)
	if err != nil {
		return "", err
	}
	return renewed.Token, nil
}
