package auth

import "sync"

// MemoryStore implements CredentialStore in memory. Err, when set, is
// returned by every operation.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]ProxyCredential
	Err   error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[string]ProxyCredential)}
}

func (m *MemoryStore) Store(cred *ProxyCredential) error {
	if m.Err != nil {
		return m.Err
	}
	if cred == nil || cred.Address == "" {
		return ErrInvalidCredentials
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[cred.Address] = *cred
	return nil
}

func (m *MemoryStore) Retrieve(address string) (*ProxyCredential, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cred, ok := m.creds[address]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &cred, nil
}

func (m *MemoryStore) Delete(address string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[address]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.creds, address)
	return nil
}

func (m *MemoryStore) Exists(address string) bool {
	_, err := m.Retrieve(address)
	return err == nil
}

// Len returns the number of stored credentials
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.creds)
}
