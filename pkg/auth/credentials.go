// Package auth keeps SOCKS5 proxy passwords out of configuration files.
// Credentials are stored in the system keychain when one is available
// and in an encrypted file otherwise.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"imgcrawl/pkg/config"
)

// ProxyCredential holds the login for one proxy address
type ProxyCredential struct {
	Address      string    `json:"address"`
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves the credential under its address
	Store(cred *ProxyCredential) error

	// Retrieve gets the credential for a proxy address
	Retrieve(address string) (*ProxyCredential, error)

	// Delete removes the credential for a proxy address
	Delete(address string) error

	// Exists checks if a credential exists for address
	Exists(address string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager keeping its encrypted file in dir.
// An empty dir selects the per-user configuration directory.
func NewManager(dir string) (*Manager, error) {
	var stores []CredentialStore

	// Try keyring first (system keychain)
	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over the given stores, tried in order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the credential using the first store that accepts it
func (m *Manager) Store(cred *ProxyCredential) error {
	if cred == nil || cred.Address == "" {
		return errors.New("proxy address is required")
	}
	if cred.Username == "" {
		return errors.New("proxy username is required")
	}

	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(cred); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets the credential from the first store that has it
func (m *Manager) Retrieve(address string) (*ProxyCredential, error) {
	for _, store := range m.stores {
		if cred, err := store.Retrieve(address); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("%w for proxy %s", ErrCredentialsNotFound, address)
}

// Delete removes the credential from all stores
func (m *Manager) Delete(address string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(address); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w for proxy %s", ErrCredentialsNotFound, address)
	}
	return nil
}

// Resolve fills in the proxy login from the stores when cfg names a proxy
// but carries no password. It reports whether a stored credential was used.
func (m *Manager) Resolve(cfg *config.NetworkConfig) bool {
	if cfg.ProxyAddress == "" || cfg.ProxyPassword != "" {
		return false
	}
	cred, err := m.Retrieve(cfg.ProxyAddress)
	if err != nil {
		return false
	}
	if cfg.ProxyUsername != "" && cfg.ProxyUsername != cred.Username {
		return false
	}
	cfg.ProxyUsername = cred.Username
	cfg.ProxyPassword = cred.Password
	return true
}

// ConfigDir returns the per-user configuration directory, creating it
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "imgcrawl")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "imgcrawl")
	default: // Linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "imgcrawl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "imgcrawl")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// Sanitize returns a copy of cred with the password masked
func Sanitize(cred *ProxyCredential) *ProxyCredential {
	if cred == nil {
		return nil
	}
	c := *cred
	c.Password = maskString(c.Password)
	return &c
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:2] + "..." + s[len(s)-2:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
