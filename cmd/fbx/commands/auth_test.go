package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbxctl/fbx-go/pkg/auth"
	"github.com/fbxctl/fbx-go/pkg/config"
	"github.com/fbxctl/fbx-go/pkg/log"
	"github.com/fbxctl/fbx-go/pkg/transport"
)

func ok(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "result": result})
}

// newDevice serves a device that grants every registration on the first
// poll and accepts any password.
func newDevice(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api_version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"device_name":"Freebox Server","box_model":"fbxgw-r1/full","box_model_name":"Freebox v6","api_version":"8.2","api_base_url":"/api/","api_domain":"abc.fbxos.fr","https_available":true,"https_port":12345}`)
	})
	mux.HandleFunc("POST /api/v8/login/authorize", func(w http.ResponseWriter, r *http.Request) {
		ok(w, map[string]any{"app_token": "app-secret", "track_id": 1})
	})
	mux.HandleFunc("GET /api/v8/login/authorize/{id}", func(w http.ResponseWriter, r *http.Request) {
		ok(w, map[string]any{"status": "granted"})
	})
	mux.HandleFunc("GET /api/v8/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(transport.HeaderAppAuth) == "sess-1" {
			ok(w, map[string]any{"logged_in": true})
			return
		}
		ok(w, map[string]any{"logged_in": false, "challenge": "c"})
	})
	mux.HandleFunc("POST /api/v8/login/session", func(w http.ResponseWriter, r *http.Request) {
		ok(w, map[string]any{"session_token": "sess-1"})
	})
	mux.HandleFunc("POST /api/v8/login/logout/", func(w http.ResponseWriter, r *http.Request) {
		ok(w, nil)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, baseURL string) *App {
	t.Helper()
	cfg := config.Default()
	cfg.BaseURL = baseURL
	cfg.StateDir = t.TempDir()
	cfg.PollInterval = time.Millisecond
	cfg.ProtocolLog = filepath.Join(t.TempDir(), "trace.flog")
	require.NoError(t, cfg.Validate())

	app, err := NewApp(cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func TestAuthCommandsLifecycle(t *testing.T) {
	srv := newDevice(t)
	app := newTestApp(t, srv.URL)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, RunStatus(ctx, app, &out))
	assert.Contains(t, out.String(), "not registered")

	_, err := app.Manager.EnsureSession(ctx)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)

	out.Reset()
	require.NoError(t, RunLogin(ctx, app, &out, false))
	assert.Contains(t, out.String(), "track id 1")
	assert.Contains(t, out.String(), "Session opened.")

	out.Reset()
	require.NoError(t, RunToken(ctx, app, &out))
	assert.Equal(t, "sess-1\n", out.String())

	out.Reset()
	require.NoError(t, RunStatus(ctx, app, &out))
	assert.Contains(t, out.String(), "(granted)")
	assert.Contains(t, out.String(), "Session:     active")

	out.Reset()
	require.NoError(t, RunLogout(ctx, app, &out))
	_, session, err := app.Store.Load()
	require.NoError(t, err)
	assert.Nil(t, session)

	out.Reset()
	require.NoError(t, RunReset(app, &out))
	_, err = os.Stat(app.Store.Path())
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, app.Close())
	reader, err := log.NewReader(app.Config.ProtocolLog)
	require.NoError(t, err)
	defer reader.Close()
	first, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, log.LayerTransport, first.Layer)
}

func TestRunLoginResume(t *testing.T) {
	srv := newDevice(t)
	app := newTestApp(t, srv.URL)

	var out bytes.Buffer
	require.NoError(t, RunLogin(context.Background(), app, &out, true))
	assert.Contains(t, out.String(), "Registered", "no pending pairing falls back to registering")
	assert.Contains(t, out.String(), "Session opened.")
}

func TestRunVersion(t *testing.T) {
	srv := newDevice(t)
	app := newTestApp(t, srv.URL)

	var out bytes.Buffer
	require.NoError(t, RunVersion(context.Background(), app, &out))
	output := out.String()
	assert.Contains(t, output, "Freebox v6")
	assert.Contains(t, output, "API version: 8.2")
	assert.Contains(t, output, "API base:    /api/v8")
	assert.True(t, strings.Contains(output, "abc.fbxos.fr:12345"))
	assert.NotContains(t, output, "Note:")
}

func TestRunTokenUnreachable(t *testing.T) {
	srv := newDevice(t)
	app := newTestApp(t, srv.URL)
	require.NoError(t, RunLogin(context.Background(), app, &bytes.Buffer{}, false))
	srv.Close()

	err := RunToken(context.Background(), app, &bytes.Buffer{})
	assert.ErrorIs(t, err, transport.ErrUnreachable)
	assert.Contains(t, Hint(err), "reachable")
}

func TestHint(t *testing.T) {
	assert.Contains(t, Hint(auth.ErrUnauthenticated), "fbx auth login")
	assert.Contains(t, Hint(auth.ErrNoChallenge), "try again")
	assert.Contains(t, Hint(&transport.APIError{StatusCode: http.StatusNotFound}), "api_version")
	assert.Empty(t, Hint(nil))
}
