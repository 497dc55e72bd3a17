// Package credentials keeps the Claude session key in the operating system keyring.
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
)

const (
	serviceName   = "claudexport"
	sessionKeyKey = "session_key"
)

var (
	// ErrNotStored is returned when no session key has been saved.
	ErrNotStored = errors.New("no session key stored")
	// ErrEmptyKey is returned when saving an empty session key.
	ErrEmptyKey = errors.New("session key is empty")
)

// Store reads and writes the session key.
type Store struct {
	ring keyring.Keyring
}

// Open opens the platform keyring.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              serviceName,
		KeychainTrustApplication: true,
		LibSecretCollectionName:  serviceName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return New(ring), nil
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// SessionKey returns the stored session key.
func (s *Store) SessionKey() (string, error) {
	item, err := s.ring.Get(sessionKeyKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotStored
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session key: %w", err)
	}
	return string(item.Data), nil
}

// SetSessionKey saves key, replacing any previous one.
func (s *Store) SetSessionKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	err := s.ring.Set(keyring.Item{
		Key:         sessionKeyKey,
		Data:        []byte(key),
		Label:       "Claude session key",
		Description: "sessionKey cookie used by claudexport",
	})
	if err != nil {
		return fmt.Errorf("failed to save session key: %w", err)
	}
	return nil
}

// DeleteSessionKey removes the stored session key. Removing a missing key is not an error.
func (s *Store) DeleteSessionKey() error {
	err := s.ring.Remove(sessionKeyKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete session key: %w", err)
	}
	return nil
}
