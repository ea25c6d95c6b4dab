package persistence

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func grantedApp(t *testing.T) *AppRecord {
	t.Helper()
	app := &AppRecord{
		AppID:        "fr.freebox.fbxctl",
		AppVersion:   "1.0",
		SharedSecret: "s3cr3t-app-token",
		TrackID:      42,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, app.Grant(time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC)))
	return app
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "state.json"))

	app, session, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, app)
	assert.Nil(t, session)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := NewFileStore(path)

	app := grantedApp(t)
	session := &SessionRecord{Token: "sess-1", CreatedAt: time.Date(2026, 1, 2, 4, 0, 0, 0, time.UTC)}
	require.NoError(t, store.Save(app, session))

	gotApp, gotSession, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, gotApp)
	require.NotNil(t, gotSession)

	assert.Equal(t, app.AppID, gotApp.AppID)
	assert.Equal(t, app.SharedSecret, gotApp.SharedSecret)
	assert.Equal(t, AppStatusGranted, gotApp.Status)
	assert.Equal(t, 42, gotApp.TrackID)
	require.NotNil(t, gotApp.AuthorizedAt)
	assert.True(t, app.AuthorizedAt.Equal(*gotApp.AuthorizedAt))
	assert.Equal(t, "sess-1", gotSession.Token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())
}

func TestFileStoreStatusOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)

	app := &AppRecord{AppID: "a", SharedSecret: "tok", TrackID: 7}
	require.NoError(t, store.Save(app, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status": "pending"`)
	assert.NotContains(t, string(data), `"session"`)
}

func TestFileStoreSaveRejectsOrphanSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)

	pending := &AppRecord{AppID: "a", SharedSecret: "tok"}
	err := store.Save(pending, &SessionRecord{Token: "x"})
	assert.ErrorIs(t, err, ErrOrphanSession)

	err = store.Save(nil, &SessionRecord{Token: "x"})
	assert.ErrorIs(t, err, ErrOrphanSession)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing should be written")
}

func TestFileStoreSaveRejectsGrantedWithoutSecret(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "state.json"))

	err := store.Save(&AppRecord{AppID: "a", Status: AppStatusGranted}, nil)
	assert.ErrorIs(t, err, ErrCorruptState)
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", "{not json"},
		{"unknown status", `{"version":1,"app":{"app_id":"a","app_token":"t","status":"weird"}}`},
		{"future version", `{"version":99}`},
		{"granted without token", `{"version":1,"app":{"app_id":"a","status":"granted"}}`},
		{"session without grant", `{"version":1,"app":{"app_id":"a","app_token":"t","status":"pending"},"session":{"session_token":"s"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o600))

			_, _, err := NewFileStore(path).Load()
			require.Error(t, err)
			assert.True(t,
				strings.Contains(err.Error(), ErrCorruptState.Error()) ||
					strings.Contains(err.Error(), ErrOrphanSession.Error()),
				"unexpected error: %v", err)
		})
	}
}

func TestFileStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(grantedApp(t), nil))
	require.NoError(t, store.Clear())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Clearing twice is fine.
	require.NoError(t, store.Clear())
}

func TestFileStoreKeyring(t *testing.T) {
	keyring.MockInit()

	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)
	store.SetSecretStore(NewKeyringSecrets("fbx-go-test"))

	app := grantedApp(t)
	require.NoError(t, store.Save(app, &SessionRecord{Token: "sess"}))

	t.Run("token kept out of file", func(t *testing.T) {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(data), app.SharedSecret)
		assert.Contains(t, string(data), `"secret_in_keyring": true`)
	})

	t.Run("load restores token", func(t *testing.T) {
		gotApp, gotSession, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, app.SharedSecret, gotApp.SharedSecret)
		assert.Equal(t, "sess", gotSession.Token)
	})

	t.Run("load without keyring fails", func(t *testing.T) {
		_, _, err := NewFileStore(path).Load()
		assert.ErrorIs(t, err, ErrSecretNotFound)
	})

	t.Run("clear removes keyring entry", func(t *testing.T) {
		require.NoError(t, store.Clear())
		_, err := keyring.Get("fbx-go-test", app.AppID)
		assert.ErrorIs(t, err, keyring.ErrNotFound)
	})
}

// blockingSecrets runs onSet once, after the first Set reaches the keyring.
type blockingSecrets struct {
	SecretStore
	onSet func()
}

func (b *blockingSecrets) Set(appID, secret string) error {
	if err := b.SecretStore.Set(appID, secret); err != nil {
		return err
	}
	if b.onSet != nil {
		b.onSet()
		b.onSet = nil
	}
	return nil
}

func TestFileStoreKeyringFailedWriteKeepsToken(t *testing.T) {
	keyring.MockInit()

	root := t.TempDir()
	stateDir := filepath.Join(root, "state")
	path := filepath.Join(stateDir, "credentials.json")

	secrets := &blockingSecrets{SecretStore: NewKeyringSecrets("fbx-go-test")}
	store := NewFileStore(path)
	store.SetSecretStore(secrets)

	granted := grantedApp(t)
	require.NoError(t, store.Save(granted, &SessionRecord{Token: "sess"}))

	// Replace the state directory with a plain file once the new token is
	// in the keyring, so the state file write fails.
	parked := filepath.Join(root, "parked")
	secrets.onSet = func() {
		require.NoError(t, os.Rename(stateDir, parked))
		require.NoError(t, os.WriteFile(stateDir, []byte("x"), 0o600))
	}

	pending := &AppRecord{
		AppID:        granted.AppID,
		AppVersion:   granted.AppVersion,
		SharedSecret: "new-pending-token",
		TrackID:      43,
		Status:       AppStatusPending,
	}
	require.Error(t, store.Save(pending, nil))

	require.NoError(t, os.Remove(stateDir))
	require.NoError(t, os.Rename(parked, stateDir))

	app, session, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, AppStatusGranted, app.Status)
	assert.Equal(t, 42, app.TrackID)
	assert.Equal(t, "s3cr3t-app-token", app.SharedSecret)
	assert.Equal(t, "sess", session.Token)
}

func TestFileStoreKeyringFailedFirstWriteLeavesNoToken(t *testing.T) {
	keyring.MockInit()

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	store := NewFileStore(filepath.Join(blocker, "credentials.json"))
	store.SetSecretStore(NewKeyringSecrets("fbx-go-test"))

	app := grantedApp(t)
	require.Error(t, store.Save(app, nil))

	_, err := keyring.Get("fbx-go-test", app.AppID)
	assert.ErrorIs(t, err, keyring.ErrNotFound)
}

func TestKeyringSecrets(t *testing.T) {
	keyring.MockInit()
	secrets := NewKeyringSecrets("")

	_, err := secrets.Get("missing")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	require.NoError(t, secrets.Set("app", "one"))
	require.NoError(t, secrets.Set("app", "two"))
	got, err := secrets.Get("app")
	require.NoError(t, err)
	assert.Equal(t, "two", got)

	require.NoError(t, secrets.Delete("app"))
	require.NoError(t, secrets.Delete("app"))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(nil, nil)

	app, session, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, app)
	assert.Nil(t, session)

	granted := grantedApp(t)
	require.NoError(t, store.Save(granted, &SessionRecord{Token: "s"}))
	assert.Equal(t, 1, store.Saves())

	// Load hands out copies.
	app, _, err = store.Load()
	require.NoError(t, err)
	app.SharedSecret = "changed"
	app2, _, _ := store.Load()
	assert.Equal(t, granted.SharedSecret, app2.SharedSecret)

	assert.ErrorIs(t, store.Save(nil, &SessionRecord{Token: "s"}), ErrOrphanSession)
	assert.Equal(t, 1, store.Saves())
}
