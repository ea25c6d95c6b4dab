package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fbxctl/fbx-go/pkg/auth"
)

// RunLogin pairs the application and opens a session. With resume, a
// pending registration from an earlier run is polled instead of starting a
// new one.
func RunLogin(ctx context.Context, app *App, w io.Writer, resume bool) error {
	m := app.Manager

	waitErr := auth.ErrNoPendingPairing
	if resume {
		waitErr = m.WaitForAuthorization(ctx)
	}
	if errors.Is(waitErr, auth.ErrNoPendingPairing) {
		reg, err := m.RegisterApplication(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Registered %s (track id %d).\n", reg.AppID, reg.TrackID)
		fmt.Fprintf(w, "Approve %q on the device screen.\n", m.Identity().DeviceName)
		waitErr = m.WaitForAuthorization(ctx)
	}
	if waitErr != nil {
		return waitErr
	}
	fmt.Fprintln(w, "Application authorized.")

	if _, err := m.NegotiateSession(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "Session opened.")
	return nil
}

// RunStatus prints the stored credentials and whether the device accepts
// the session.
func RunStatus(ctx context.Context, app *App, w io.Writer) error {
	st, err := app.Manager.Status(ctx)
	if st == nil {
		return err
	}

	fmt.Fprintf(w, "Device:      %s\n", app.Config.BaseURL)
	fmt.Fprintf(w, "State file:  %s\n", app.Store.Path())
	if !st.Registered {
		fmt.Fprintln(w, "Application: not registered")
		return err
	}
	fmt.Fprintf(w, "Application: %s (%s)\n", st.AppID, st.AppStatus)
	fmt.Fprintf(w, "Track id:    %d\n", st.TrackID)
	fmt.Fprintf(w, "Registered:  %s\n", st.CreatedAt.Format(time.RFC3339))
	if st.AuthorizedAt != nil {
		fmt.Fprintf(w, "Authorized:  %s\n", st.AuthorizedAt.Format(time.RFC3339))
	}

	switch {
	case !st.HasSession:
		fmt.Fprintln(w, "Session:     none")
	case err != nil:
		fmt.Fprintf(w, "Session:     opened %s, device not reachable\n", st.SessionCreatedAt.Format(time.RFC3339))
	case st.LoggedIn:
		fmt.Fprintf(w, "Session:     active (opened %s)\n", st.SessionCreatedAt.Format(time.RFC3339))
	default:
		fmt.Fprintf(w, "Session:     expired (opened %s)\n", st.SessionCreatedAt.Format(time.RFC3339))
	}
	return err
}

// RunRenew opens a new session even if the current one is valid.
func RunRenew(ctx context.Context, app *App, w io.Writer) error {
	if _, err := app.Manager.NegotiateSession(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "Session renewed.")
	return nil
}

// RunToken prints a valid session token, renewing it when needed.
func RunToken(ctx context.Context, app *App, w io.Writer) error {
	token, err := app.Manager.EnsureSession(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, token)
	return nil
}

// RunLogout closes the session on the device.
func RunLogout(ctx context.Context, app *App, w io.Writer) error {
	if err := app.Manager.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "Logged out.")
	return nil
}

// RunReset forgets the application and session.
func RunReset(app *App, w io.Writer) error {
	if err := app.Store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(w, "Credentials removed. Revoke the application on the device as well.")
	return nil
}

// RunVersion prints the device API description.
func RunVersion(ctx context.Context, app *App, w io.Writer) error {
	info, err := app.Client.APIVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Model:       %s (%s)\n", info.BoxModelName, info.BoxModel)
	fmt.Fprintf(w, "Device name: %s\n", info.DeviceName)
	fmt.Fprintf(w, "API version: %s\n", info.APIVersion)
	if base, err := info.BasePath(); err == nil {
		fmt.Fprintf(w, "API base:    %s\n", base)
	}
	if info.HTTPSAvailable {
		fmt.Fprintf(w, "HTTPS:       %s:%d\n", info.APIDomain, info.HTTPSPort)
	}
	if v, err := info.Version(); err == nil && v.Major != app.Config.APIMajor() {
		fmt.Fprintf(w, "Note: configured api_version is v%d, device offers v%d\n", app.Config.APIMajor(), v.Major)
	}
	return nil
}
