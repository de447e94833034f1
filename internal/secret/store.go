package secret

import "fmt"

// SecretStore provides a pluggable interface for storing sensitive data
// such as database passwords and SSH credentials. The default implementation
// uses the OS credential manager via 99designs/keyring, but can be swapped
// for Vault, env vars, etc.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// Key builders. Secrets are namespaced by the kind of credential and the
// owning record's id so a connection and an SSH profile with the same id
// never collide.

func DBPasswordKey(connectionID string) string {
	return fmt.Sprintf("db:%s", connectionID)
}

func SSHPasswordKey(profileID string) string {
	return fmt.Sprintf("ssh:%s", profileID)
}

func SSHPassphraseKey(profileID string) string {
	return fmt.Sprintf("ssh-passphrase:%s", profileID)
}
