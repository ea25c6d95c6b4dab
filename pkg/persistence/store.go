package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore persists the credential records to a JSON file.
type FileStore struct {
	mu      sync.Mutex
	path    string
	secrets SecretStore
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// SetSecretStore moves the app token out of the state file into s.
func (s *FileStore) SetSecretStore(secrets SecretStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets = secrets
}

// Path returns the state file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the records. Both are nil when the file doesn't exist.
func (s *FileStore) Load() (*AppRecord, *SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.readState()
	if err != nil || state == nil {
		return nil, nil, err
	}

	if state.App != nil && state.SecretInKeyring {
		if s.secrets == nil {
			return nil, nil, fmt.Errorf("%w: state expects a keyring but none is configured", ErrSecretNotFound)
		}
		secret, err := s.secrets.Get(state.App.AppID)
		if err != nil {
			return nil, nil, err
		}
		state.App.SharedSecret = secret
	}

	if err := checkPair(state.App, state.Session); err != nil {
		return nil, nil, err
	}
	return state.App, state.Session, nil
}

// Save replaces both records. A nil record is removed.
func (s *FileStore) Save(app *AppRecord, session *SessionRecord) error {
	if err := checkPair(app, session); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := &CredentialState{
		Version: StateVersion,
		SavedAt: time.Now(),
		App:     app.Clone(),
		Session: session.Clone(),
	}

	if s.secrets == nil || state.App == nil || state.App.SharedSecret == "" {
		return s.writeState(state)
	}

	appID := state.App.AppID
	previous, err := s.secrets.Get(appID)
	hadPrevious := err == nil
	if err != nil && !errors.Is(err, ErrSecretNotFound) {
		return fmt.Errorf("read app token: %w", err)
	}

	if err := s.secrets.Set(appID, state.App.SharedSecret); err != nil {
		return fmt.Errorf("store app token: %w", err)
	}
	state.App.SharedSecret = ""
	state.SecretInKeyring = true

	if err := s.writeState(state); err != nil {
		// The file on disk still describes the previous token.
		var restoreErr error
		if hadPrevious {
			restoreErr = s.secrets.Set(appID, previous)
		} else {
			restoreErr = s.secrets.Delete(appID)
		}
		if restoreErr != nil {
			return fmt.Errorf("%w (restore app token: %w)", err, restoreErr)
		}
		return err
	}
	return nil
}

func (s *FileStore) writeState(state *CredentialState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data)
}

// Clear removes the state file and any keyring entry it points to.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.readState()
	if err != nil && !errors.Is(err, ErrCorruptState) {
		return err
	}
	if state != nil && state.App != nil && state.SecretInKeyring && s.secrets != nil {
		if err := s.secrets.Delete(state.App.AppID); err != nil {
			return fmt.Errorf("delete app token: %w", err)
		}
	}

	err = os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FileStore) readState() (*CredentialState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeState(data)
}

// writeFileAtomic writes data to a private temp file next to path and renames
// it into place, so a crash never leaves a half-written state file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// MemoryStore keeps the records in memory. Used in tests and by callers that
// manage persistence themselves.
type MemoryStore struct {
	mu      sync.Mutex
	app     *AppRecord
	session *SessionRecord
	saves   int
}

// NewMemoryStore creates a store holding app and session.
func NewMemoryStore(app *AppRecord, session *SessionRecord) *MemoryStore {
	return &MemoryStore{app: app.Clone(), session: session.Clone()}
}

// Load returns copies of the records.
func (s *MemoryStore) Load() (*AppRecord, *SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.app.Clone(), s.session.Clone(), nil
}

// Save replaces both records.
func (s *MemoryStore) Save(app *AppRecord, session *SessionRecord) error {
	if err := checkPair(app, session); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.app = app.Clone()
	s.session = session.Clone()
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
