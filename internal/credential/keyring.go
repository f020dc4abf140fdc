package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "daily-docket"

// Well-known credential keys.
const (
	WebhookToken = "webhook-token"
	IMAPPassword = "imap-password"
)

// Keys lists every credential the application reads.
var Keys = []string{WebhookToken, IMAPPassword}

// ErrNotFound is returned when a credential has not been stored.
var ErrNotFound = errors.New("credential not found")

// Source looks up secrets by key.
type Source interface {
	Get(key string) (string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(key string) (string, error)

// Get calls f(key).
func (f SourceFunc) Get(key string) (string, error) { return f(key) }

// System is the Source backed by the OS keyring.
var System Source = SourceFunc(Get)

func fileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "credentials")
	}
	return filepath.Join(home, ".config", "daily-docket", "credentials")
}

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
		FileDir:                  fileDir(),
		FilePasswordFunc:         keyring.FixedStringPrompt("daily-docket-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential from the system keyring. A missing key
// yields an error wrapping ErrNotFound.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential in the system keyring.
func Set(key, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(value),
		Label:       "Daily Docket " + key,
		Description: "daily-docket " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential from the system keyring. Deleting a key
// that was never stored is not an error.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// Lookup returns the credential for key, or "" when it is absent. Other
// keyring failures are returned.
func Lookup(src Source, key string) (string, error) {
	if src == nil {
		return "", nil
	}
	v, err := src.Get(key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}
