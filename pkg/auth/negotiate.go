package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fbxctl/fbx-go/pkg/api"
	"github.com/fbxctl/fbx-go/pkg/log"
	"github.com/fbxctl/fbx-go/pkg/persistence"
)

// NegotiateSession opens a new session, replacing any stored one, and
// returns its token.
func (m *Manager) NegotiateSession(ctx context.Context) (string, error) {
	app, _, err := m.load()
	if err != nil {
		return "", err
	}
	if !app.Granted() {
		return "", ErrUnauthenticated
	}

	session, err := m.negotiate(ctx, app, nil, nil)
	if err != nil {
		return "", err
	}
	return session.Token, nil
}

// negotiate runs the challenge/response exchange.
//
// current is the session believed valid, or nil. login is a /login result
// already fetched by the caller, or nil to fetch one. When the device
// reports logged_in and current is set, current is returned unchanged.
func (m *Manager) negotiate(ctx context.Context, app *persistence.AppRecord, current *persistence.SessionRecord, login *api.LoginResult) (*persistence.SessionRecord, error) {
	if login == nil {
		var token string
		if current != nil {
			token = current.Token
		}
		var err error
		login, err = m.device.Login(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("login status: %w", err)
		}
	}

	if login.LoggedIn && current != nil {
		return current, nil
	}
	if !login.HasChallenge() {
		return nil, ErrNoChallenge
	}

	password, err := DerivePassword(app.SharedSecret, *login.Challenge)
	if err != nil {
		return nil, err
	}

	appVersion := app.AppVersion
	if appVersion == "" {
		appVersion = m.identity.AppVersion
	}
	res, err := m.device.StartSession(ctx, api.SessionStartRequest{
		AppID:      app.AppID,
		AppVersion: appVersion,
		Password:   password,
	})
	if err != nil {
		if isRejection(err) {
			m.logState(log.StateEntitySession, app.AppID, "", "rejected", err.Error())
			return nil, fmt.Errorf("%w: %w", ErrAuthFailed, err)
		}
		return nil, fmt.Errorf("start session: %w", err)
	}
	if res.SessionToken == "" {
		return nil, fmt.Errorf("%w: session response without session_token", ErrProtocol)
	}

	session := &persistence.SessionRecord{Token: res.SessionToken, CreatedAt: m.now()}
	if err := m.save(app, session); err != nil {
		return nil, err
	}

	m.logger.Debug("session opened", slog.String("app_id", app.AppID))
	m.logState(log.StateEntitySession, app.AppID, "", "open", "negotiated")
	return session, nil
}
