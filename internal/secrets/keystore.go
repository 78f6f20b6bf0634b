// Package secrets keeps the explorer API key out of plain-text config by
// storing it in the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

const keychainService = "w3gas"

// APIKeyName is the keychain entry holding the explorer API key.
const APIKeyName = "explorer-api-key"

// ErrNotFound is returned when no secret is stored under a name.
var ErrNotFound = errors.New("secret not found")

// Store reads and writes named secrets.
type Store interface {
	Get(name string) (string, error)
	Set(name, value string) error
	Delete(name string) error
}

// Keystore wraps OS keychain access.
type Keystore struct {
	ring keyring.Keyring
}

// KeystoreConfig selects where file-backed secrets live when no desktop
// keychain is available.
type KeystoreConfig struct {
	FileDir      string
	FilePassword string
}

// OpenKeystore returns a keystore backed by the OS keychain, falling back to
// an encrypted file under cfg.FileDir.
func OpenKeystore(cfg KeystoreConfig) (*Keystore, error) {
	kc := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  cfg.FileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(cfg.FilePassword),
	}

	// On Linux without a GUI, fall back to file-based storage.
	if runtime.GOOS == "linux" {
		kc.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(kc)
	if err != nil {
		kc.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
		ring, err = keyring.Open(kc)
		if err != nil {
			return nil, fmt.Errorf("opening keychain: %w", err)
		}
	}
	return &Keystore{ring: ring}, nil
}

// NewKeystore wraps an already opened keyring.
func NewKeystore(ring keyring.Keyring) *Keystore {
	return &Keystore{ring: ring}
}

func ref(name string) string { return keychainService + "." + name }

// Get fetches a secret by name.
func (k *Keystore) Get(name string) (string, error) {
	item, err := k.ring.Get(ref(name))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return string(item.Data), nil
}

// Set stores a secret under name, replacing any previous value.
func (k *Keystore) Set(name, value string) error {
	err := k.ring.Set(keyring.Item{
		Key:   ref(name),
		Data:  []byte(value),
		Label: "w3gas " + name,
	})
	if err != nil {
		return fmt.Errorf("keychain store: %w", err)
	}
	return nil
}

// Delete removes a stored secret. Deleting a missing secret is not an error.
func (k *Keystore) Delete(name string) error {
	if err := k.ring.Remove(ref(name)); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

// Memory is a Store that keeps secrets in memory (for tests).
type Memory struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemory creates an in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return v, nil
}

func (m *Memory) Set(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = value
	return nil
}

func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, name)
	return nil
}

// Mask hides all but the last four characters of a secret for display.
func Mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
