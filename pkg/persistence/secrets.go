package persistence

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the keyring service name app tokens are filed under.
const DefaultKeyringService = "fbx-go"

// SecretStore keeps app tokens outside the state file, keyed by app id.
type SecretStore interface {
	Get(appID string) (string, error)
	Set(appID, secret string) error
	Delete(appID string) error
}

// KeyringSecrets stores app tokens in the OS keyring (Secret Service,
// macOS Keychain, Windows Credential Manager).
type KeyringSecrets struct {
	service string
}

// NewKeyringSecrets creates a keyring-backed SecretStore. An empty service
// uses DefaultKeyringService.
func NewKeyringSecrets(service string) *KeyringSecrets {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringSecrets{service: service}
}

// Get returns the app token for appID.
func (k *KeyringSecrets) Get(appID string) (string, error) {
	secret, err := keyring.Get(k.service, appID)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: keyring entry %s/%s", ErrSecretNotFound, k.service, appID)
	}
	if err != nil {
		return "", fmt.Errorf("keyring get: %w", err)
	}
	return secret, nil
}

// Set stores the app token for appID, replacing any previous one.
func (k *KeyringSecrets) Set(appID, secret string) error {
	if err := keyring.Set(k.service, appID, secret); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

// Delete removes the app token for appID. Missing entries are not an error.
func (k *KeyringSecrets) Delete(appID string) error {
	err := keyring.Delete(k.service, appID)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("keyring delete: %w", err)
}

var _ SecretStore = (*KeyringSecrets)(nil)
