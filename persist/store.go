package persist

import (
	"fmt"
	"time"
)

// Slot names for the two vault identities. Each slot holds one opaque
// encrypted blob; the store never sees plaintext.
const (
	SlotSecret = "secret"
	SlotDecoy  = "decoy"
)

// VersionedData represents data with its version information
type VersionedData struct {
	Data      []byte
	Version   string // content hash of the stored blob
	Timestamp time.Time
}

// Store defines the interface for persisting vault data.
//
// A store manages exactly two kinds of records: the small config record
// (PIN hashes and the setup flag, kept in a location intended for small
// sensitive values) and one encrypted evidence blob per vault slot. All
// blob data passed to this interface is already encrypted by the vault
// layer.
//
// Absence and failure are distinct: loading an absent record returns an
// error satisfying errors.Is(err, os.ErrNotExist), which callers treat as
// a valid empty vault. Any other load error is a hard failure and must
// never be treated as "empty" -- doing so would let a later save overwrite
// real data with nothing.
type Store interface {

	// Config record

	// SaveConfig overwrites the config record wholesale.
	SaveConfig(data []byte) error

	// LoadConfig retrieves the config record. Returns an error satisfying
	// os.ErrNotExist when setup has never been completed.
	LoadConfig() ([]byte, error)

	// ConfigExists checks whether a config record is present.
	ConfigExists() (bool, error)

	// Vault slots

	// SaveVault writes the encrypted blob for the named slot, fully
	// replacing prior content. If expectedVersion is non-empty and does
	// not match the slot's current version, a ConcurrencyError is
	// returned and nothing is written.
	SaveVault(slot string, blob []byte, expectedVersion string) (newVersion string, err error)

	// LoadVault reads the current blob for the named slot. Returns an
	// error satisfying os.ErrNotExist when the slot has never been
	// written (including any legacy location).
	LoadVault(slot string) (*VersionedData, error)

	// VaultExists checks whether the named slot holds a blob.
	VaultExists(slot string) (bool, error)

	// DeleteVault removes the named slot's blob. Deleting an absent slot
	// is not an error.
	DeleteVault(slot string) error

	// Health and utilities

	// Ping tests that the backing medium is usable.
	Ping() error

	// Close releases any resources the store holds.
	Close() error

	// GetType retrieves the type of store being used.
	GetType() string
}

// ConcurrencyError represents version conflict errors
type ConcurrencyError struct {
	ExpectedVersion string
	ActualVersion   string
	Operation       string
}

func (e ConcurrencyError) Error() string {
	return fmt.Sprintf("version conflict in %s: expected version %s, but found %s",
		e.Operation, e.ExpectedVersion, e.ActualVersion)
}

func (e ConcurrencyError) IsConcurrencyError() bool {
	return true
}
