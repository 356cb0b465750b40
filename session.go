package calcpro

import (
	"fmt"
	"sync"
	"time"

	"github.com/awnumar/memguard"
)

// Session is one unlocked vault: the evidence repository for whichever
// identity the PIN matched.
//
// The session owns the only in-memory plaintext copy of the collection and
// the only in-memory copy of the PIN, the latter sealed in a memguard
// enclave and opened briefly per storage operation. Lock discards both.
// Exactly one vault can be meaningfully open at a time in the application;
// switching identities is an explicit lock-then-unlock cycle.
//
// Every mutation is a full load-modify-save cycle against the store, run
// under the session mutex so concurrent callers cannot interleave their
// read-modify-write sequences.
type Session struct {
	vault    *Vault
	identity Identity
	pin      *memguard.Enclave

	mu      sync.Mutex
	items   []EvidenceItem
	version string
	locked  bool
}

// Identity reports which vault this session addresses.
func (s *Session) Identity() Identity {
	return s.identity
}

// List returns the current in-memory collection, newest first. The slice is
// a copy; mutating it does not touch the session state.
func (s *Session) List() []EvidenceItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EvidenceItem(nil), s.items...)
}

// Refresh reloads the collection from durable storage and returns it. A
// load failure leaves the in-memory state untouched and surfaces as an
// error; it is never presented as an empty list.
func (s *Session) Refresh() ([]EvidenceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked {
		return nil, ErrSessionLocked
	}

	pin, err := s.openPin()
	if err != nil {
		return nil, err
	}

	items, version, err := s.vault.loadItems(pin, s.identity)
	if err != nil {
		return nil, err
	}

	s.items = items
	s.version = version
	return append([]EvidenceItem(nil), items...), nil
}

// Add stamps and stores a new evidence record, and returns it.
//
// The operation is a decrypt-modify-encrypt-write cycle: the current
// collection is loaded fresh from storage, the new record is prepended
// (newest-first by insertion, not by timestamp field), and the full
// collection is written back. If the load fails the add is aborted and
// reported; proceeding as if the vault were empty would destroy existing
// evidence on write-back.
func (s *Session) Add(input NewItem) (EvidenceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked {
		return EvidenceItem{}, ErrSessionLocked
	}
	if !input.Type.valid() {
		return EvidenceItem{}, fmt.Errorf("unknown evidence type %q", input.Type)
	}

	pin, err := s.openPin()
	if err != nil {
		return EvidenceItem{}, err
	}

	items, version, err := s.vault.loadItems(pin, s.identity)
	if err != nil {
		s.vault.audit.Log("add_item", false, map[string]interface{}{
			"error": "load failed",
		})
		return EvidenceItem{}, fmt.Errorf("add aborted: %w", err)
	}

	id := newItemID()
	item := EvidenceItem{
		ID:        id,
		Type:      input.Type,
		Title:     input.Title,
		Content:   input.Content,
		Timestamp: time.Now().UnixMilli(),
		Metadata:  s.vault.metadata.Build(string(input.Type), id, input.Extras),
		Encrypted: true,
	}

	updated := append([]EvidenceItem{item}, items...)

	newVersion, err := s.vault.saveItems(updated, pin, s.identity, version)
	if err != nil {
		return EvidenceItem{}, err
	}

	s.items = updated
	s.version = newVersion

	s.vault.audit.Log("add_item", true, map[string]interface{}{
		"item_type":  string(input.Type),
		"item_count": len(updated),
	})
	return item, nil
}

// Remove deletes the record with the given id and returns the removed
// record, so the caller can delete any media file it references; the
// repository manages only the metadata record. On load failure the remove
// aborts as a no-op rather than risk data loss.
func (s *Session) Remove(id string) (EvidenceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked {
		return EvidenceItem{}, ErrSessionLocked
	}

	pin, err := s.openPin()
	if err != nil {
		return EvidenceItem{}, err
	}

	items, version, err := s.vault.loadItems(pin, s.identity)
	if err != nil {
		s.vault.audit.Log("remove_item", false, map[string]interface{}{
			"error": "load failed",
		})
		return EvidenceItem{}, fmt.Errorf("remove aborted: %w", err)
	}

	var removed *EvidenceItem
	remaining := make([]EvidenceItem, 0, len(items))
	for i := range items {
		if items[i].ID == id && removed == nil {
			removed = &items[i]
			continue
		}
		remaining = append(remaining, items[i])
	}

	if removed == nil {
		return EvidenceItem{}, ErrItemNotFound
	}

	newVersion, err := s.vault.saveItems(remaining, pin, s.identity, version)
	if err != nil {
		return EvidenceItem{}, err
	}

	s.items = remaining
	s.version = newVersion

	s.vault.audit.Log("remove_item", true, map[string]interface{}{
		"item_count": len(remaining),
	})
	return *removed, nil
}

// Lock ends the session: the in-memory collection is cleared and the held
// PIN is discarded. All subsequent repository calls fail with
// ErrSessionLocked. Locking twice is harmless.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked {
		return
	}
	s.locked = true

	// No residual plaintext: drop every record before releasing the slice.
	for i := range s.items {
		s.items[i] = EvidenceItem{}
	}
	s.items = nil
	s.version = ""
	s.pin = nil

	s.vault.audit.Log("lock", true, nil)
}

// openPin briefly opens the PIN enclave and returns the PIN for a single
// storage operation.
func (s *Session) openPin() (string, error) {
	if s.pin == nil {
		return "", ErrSessionLocked
	}
	buffer, err := s.pin.Open()
	if err != nil {
		return "", fmt.Errorf("failed to access session PIN: %w", err)
	}
	defer buffer.Destroy()
	return string(buffer.Bytes()), nil
}
