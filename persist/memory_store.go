package persist

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// MemoryStore implements Store entirely in process memory. Nothing survives
// the process; it exists for tests and for embedding the engine in callers
// that manage their own durability.
type MemoryStore struct {
	mu     sync.RWMutex
	config []byte
	vaults map[string][]byte
	closed bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vaults: make(map[string][]byte),
	}
}

func (m *MemoryStore) SaveConfig(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("config data cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("store is closed")
	}
	m.config = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) LoadConfig() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if m.config == nil {
		return nil, os.ErrNotExist
	}
	return append([]byte(nil), m.config...), nil
}

func (m *MemoryStore) ConfigExists() (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, fmt.Errorf("store is closed")
	}
	return m.config != nil, nil
}

func (m *MemoryStore) SaveVault(slot string, blob []byte, expectedVersion string) (string, error) {
	if err := validateSlot(slot); err != nil {
		return "", err
	}
	if len(blob) == 0 {
		return "", fmt.Errorf("vault blob cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", fmt.Errorf("store is closed")
	}

	if expectedVersion != "" {
		currentVersion := ""
		if existing, ok := m.vaults[slot]; ok {
			currentVersion = calculateFileVersion(existing)
		}
		if currentVersion != expectedVersion {
			return "", ConcurrencyError{
				ExpectedVersion: expectedVersion,
				ActualVersion:   currentVersion,
				Operation:       "SaveVault",
			}
		}
	}

	m.vaults[slot] = append([]byte(nil), blob...)
	return calculateFileVersion(blob), nil
}

func (m *MemoryStore) LoadVault(slot string) (*VersionedData, error) {
	if err := validateSlot(slot); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, fmt.Errorf("store is closed")
	}

	blob, ok := m.vaults[slot]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &VersionedData{
		Data:      append([]byte(nil), blob...),
		Version:   calculateFileVersion(blob),
		Timestamp: time.Now(),
	}, nil
}

func (m *MemoryStore) VaultExists(slot string) (bool, error) {
	if err := validateSlot(slot); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, fmt.Errorf("store is closed")
	}
	_, ok := m.vaults[slot]
	return ok, nil
}

func (m *MemoryStore) DeleteVault(slot string) error {
	if err := validateSlot(slot); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("store is closed")
	}
	delete(m.vaults, slot)
	return nil
}

func (m *MemoryStore) Ping() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryStore) GetType() string {
	return string(StoreTypeMemory)
}
