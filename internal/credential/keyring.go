package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "boardhub"

// tokenKey is the keyring entry holding the session token.
const tokenKey = "session-token"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/boardhub/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("boardhub-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// GetToken retrieves the stored session token, or empty string when none
// is stored.
func GetToken() (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(tokenKey)
	if err == keyring.ErrKeyNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting session token: %w", err)
	}

	return string(item.Data), nil
}

// SetToken stores the session token in the system keyring.
func SetToken(token string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  tokenKey,
		Data: []byte(token),
	})
	if err != nil {
		return fmt.Errorf("setting session token: %w", err)
	}

	return nil
}

// DeleteToken removes the session token from the system keyring.
func DeleteToken() error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(tokenKey)
	if err != nil && err != keyring.ErrKeyNotFound {
		return fmt.Errorf("deleting session token: %w", err)
	}

	return nil
}
