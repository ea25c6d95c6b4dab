package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fbxctl/fbx-go/pkg/log"
	"github.com/fbxctl/fbx-go/pkg/persistence"
	"github.com/fbxctl/fbx-go/pkg/transport"
)

// Pair runs the first-time flow: register, wait for the user to approve on
// the device, open a session. It returns the session token.
func (m *Manager) Pair(ctx context.Context) (string, error) {
	if _, err := m.RegisterApplication(ctx); err != nil {
		return "", err
	}
	if err := m.WaitForAuthorization(ctx); err != nil {
		return "", err
	}
	return m.NegotiateSession(ctx)
}

// Status describes the stored credentials.
type Status struct {
	AppID        string
	Registered   bool
	AppStatus    persistence.AppStatus
	TrackID      int
	CreatedAt    time.Time
	AuthorizedAt *time.Time

	HasSession       bool
	SessionCreatedAt time.Time

	// LoggedIn is the device's answer to a probe with the stored session.
	// It is only probed when a session is stored.
	LoggedIn bool
}

// Status reports the stored credentials and whether the device still
// accepts the stored session. It never renews.
//
// When the probe fails the returned Status is still filled from the store.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	app, session, err := m.load()
	if err != nil {
		return nil, err
	}

	st := &Status{}
	if app == nil {
		return st, nil
	}
	st.AppID = app.AppID
	st.Registered = true
	st.AppStatus = app.Status
	st.TrackID = app.TrackID
	st.CreatedAt = app.CreatedAt
	st.AuthorizedAt = app.AuthorizedAt

	if session == nil {
		return st, nil
	}
	st.HasSession = true
	st.SessionCreatedAt = session.CreatedAt

	login, err := m.device.Login(ctx, session.Token)
	if errors.Is(err, transport.ErrUnauthorized) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("probe session: %w", err)
	}
	st.LoggedIn = login.LoggedIn
	return st, nil
}

// Logout closes the stored session on the device and drops it from the
// store. The application record is kept. Without a session it does nothing.
func (m *Manager) Logout(ctx context.Context) error {
	app, session, err := m.load()
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	if err := m.device.Logout(ctx, session.Token); err != nil && !errors.Is(err, transport.ErrUnauthorized) {
		return fmt.Errorf("logout: %w", err)
	}
	if err := m.save(app, nil); err != nil {
		return err
	}
	m.logState(log.StateEntitySession, app.AppID, "open", "closed", "logout")
	return nil
}
