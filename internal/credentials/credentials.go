// Package credentials keeps the CLI's API key in the OS keyring.
package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "habitstreak"
	account = "api-key"
)

var (
	// ErrNotFound is returned when no API key is stored.
	ErrNotFound = errors.New("api key not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be reached.
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

func GetAPIKey() (string, error) {
	key, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return key, nil
}

func SetAPIKey(key string) error {
	if key == "" {
		return errors.New("api key cannot be empty")
	}
	if err := keyring.Set(service, account, key); err != nil {
		return fmt.Errorf("failed to store api key in keyring: %w", err)
	}
	return nil
}

func DeleteAPIKey() error {
	err := keyring.Delete(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete api key from keyring: %w", err)
	}
	return nil
}

// Resolve prefers an explicitly configured token and falls back to the
// keyring. A missing or unreachable keyring yields "" without error.
func Resolve(configured string) string {
	if configured != "" {
		return configured
	}
	key, err := GetAPIKey()
	if err != nil {
		return ""
	}
	return key
}
