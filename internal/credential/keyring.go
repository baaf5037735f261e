package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "messagelist"

// ring is swapped out in tests.
var ring = openKeyring

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	kr, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/messagelist/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("messagelist-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return kr, nil
}

// SourcePasswordKey is the keyring key of the IMAP password of source id.
func SourcePasswordKey(id string) string {
	return "imap-password-" + id
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	kr, err := ring()
	if err != nil {
		return "", err
	}

	item, err := kr.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	kr, err := ring()
	if err != nil {
		return err
	}

	err = kr.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	kr, err := ring()
	if err != nil {
		return err
	}

	err = kr.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
