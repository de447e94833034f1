package secret

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const keyringService = "tabular"

// KeyringStore implements SecretStore on top of the OS credential manager
// (macOS Keychain, Windows Credential Manager, libsecret on Linux).
type KeyringStore struct {
	ring keyring.Keyring
}

// NewKeyringStore opens the credential store for this app's service name.
func NewKeyringStore() (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return &KeyringStore{ring: ring}, nil
}

// Set stores a secret, replacing any existing value under the same key.
func (k *KeyringStore) Set(key string, value []byte) error {
	if err := k.ring.Set(keyring.Item{Key: key, Data: value}); err != nil {
		return fmt.Errorf("keyring set %q: %w", key, err)
	}
	return nil
}

// Get retrieves a secret. Returns empty slice and nil error if the key
// doesn't exist.
func (k *KeyringStore) Get(key string) ([]byte, error) {
	item, err := k.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("keyring get %q: %w", key, err)
	}
	return item.Data, nil
}

// Delete removes a secret. Missing keys are not an error.
func (k *KeyringStore) Delete(key string) error {
	if err := k.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("keyring delete %q: %w", key, err)
	}
	return nil
}
