// Package calcpro implements the encrypted dual-vault storage engine behind
// the calculator shell: PIN-derived keys, an authenticated payload cipher,
// durable per-identity storage, and the evidence repository that every
// capture and deletion flows through.
package calcpro

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/Ch4lkP0wd3r/CalcPro/audit"
	"github.com/Ch4lkP0wd3r/CalcPro/forensic"
	"github.com/Ch4lkP0wd3r/CalcPro/internal/crypto"
	"github.com/Ch4lkP0wd3r/CalcPro/internal/mem"
	"github.com/Ch4lkP0wd3r/CalcPro/persist"
	"github.com/awnumar/memguard"
)

// Initialize memguard in init function to ensure it's set up before any vault operation
func init() {
	memguard.CatchInterrupt()
}

// appConfig is the process-wide setup record: the two PIN hashes and the
// setup flag. Created once at first-run setup, overwritten wholesale by
// re-setup, mutated never.
type appConfig struct {
	SecretPinHash string `json:"secretPinHash"`
	DecoyPinHash  string `json:"decoyPinHash"`
	IsSetup       bool   `json:"isSetup"`
}

// dummyHash has the shape of a real PIN hash. When setup has never run the
// selector still compares the candidate against two hashes, so the
// not-set-up path keeps the same shape as the wrong-PIN path.
var dummyHash = crypto.HashPin("\x00calcpro-unset\x00")

// Vault is the storage engine. It owns the durable store and the audit
// logger; unlocked plaintext lives only in Sessions handed out by Unlock.
type Vault struct {
	store    persist.Store
	audit    audit.Logger
	metadata *forensic.Builder
	policy   PinPolicy

	// Memory protection
	memoryProtectionLevel mem.ProtectionLevel

	mu     sync.RWMutex
	closed bool
}

// New creates a Vault backed by a filesystem store rooted at
// options.BasePath.
func New(options Options) (*Vault, error) {
	store, err := persist.NewFileSystemStore(options.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	auditLogger, err := audit.NewLogger(options.Audit)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit logger: %w", err)
	}

	return NewWithStore(options, store, auditLogger)
}

// NewWithStore creates a Vault with the specified storage backend and audit
// logger.
//
// Initialization steps:
//  1. Validates configuration options
//  2. Tests storage backend connectivity
//  3. Sets up memory protection (best-effort)
//
// A nil auditLogger installs a no-op logger. The engine holds no key
// material between operations; every load and save derives its key from the
// session PIN at the moment of use.
func NewWithStore(options Options, store persist.Store, auditLogger audit.Logger) (*Vault, error) {
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if err := store.Ping(); err != nil {
		return nil, fmt.Errorf("storage backend not available: %w", err)
	}
	if auditLogger == nil {
		auditLogger = audit.NewNoOpLogger()
	}

	v := &Vault{
		store:    store,
		audit:    auditLogger,
		metadata: forensic.NewBuilder(options.Device),
		policy:   options.PinPolicy,
	}

	if options.EnableMemoryLock {
		level, err := mem.Lock()
		if err != nil {
			// Reduced protection is acceptable; refusal to run is not.
			v.audit.Log("memory_lock", false, map[string]interface{}{
				"error": err.Error(),
			})
		}
		v.memoryProtectionLevel = level
	}

	return v, nil
}

// Setup provisions the two vaults.
//
// The decoy PIN is rejected before hashing when it equals the secret PIN;
// two identical hashes would make the selector's result arbitrary. Both
// PINs are checked against the configured policy. Re-running Setup
// overwrites the config record wholesale; existing vault blobs are left in
// place and, being sealed under the old PINs, surface as load failures
// rather than silently vanishing. Use Destroy first for a clean slate.
func (v *Vault) Setup(secretPIN, decoyPIN string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrVaultClosed
	}

	if err := v.policy.Check(secretPIN); err != nil {
		return fmt.Errorf("secret PIN rejected: %w", err)
	}
	if err := v.policy.Check(decoyPIN); err != nil {
		return fmt.Errorf("decoy PIN rejected: %w", err)
	}
	if secretPIN == decoyPIN {
		return ErrDuplicatePIN
	}

	config := appConfig{
		SecretPinHash: crypto.HashPin(secretPIN),
		DecoyPinHash:  crypto.HashPin(decoyPIN),
		IsSetup:       true,
	}

	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := v.store.SaveConfig(data); err != nil {
		v.audit.Log("setup", false, map[string]interface{}{
			"error": "failed to save config",
		})
		return fmt.Errorf("failed to save config: %w", err)
	}

	v.audit.Log("setup", true, nil)
	return nil
}

// IsSetup reports whether first-run setup has completed.
func (v *Vault) IsSetup() (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return false, ErrVaultClosed
	}

	config, err := v.loadConfig()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return config.IsSetup, nil
}

// Verify is the vault selector: it decides whether a candidate PIN
// addresses the secret vault, the decoy vault, or nothing.
//
// The candidate is hashed exactly once and compared against both stored
// hashes with constant-time comparison; both comparisons always execute, in
// the same order, whether or not the first one matches. Wrong PIN, unknown
// PIN and setup-never-completed all collapse to IdentityInvalid. The only
// error returned is storage unavailability, which is fatal to the operation
// and retried solely by the user trying again.
func (v *Vault) Verify(pin string) (Identity, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return IdentityInvalid, ErrVaultClosed
	}
	return v.verifyLocked(pin)
}

func (v *Vault) verifyLocked(pin string) (Identity, error) {
	secretHash := dummyHash
	decoyHash := dummyHash
	isSetup := false

	config, err := v.loadConfig()
	if err == nil {
		secretHash = config.SecretPinHash
		decoyHash = config.DecoyPinHash
		isSetup = config.IsSetup
	} else if !errors.Is(err, os.ErrNotExist) {
		return IdentityInvalid, err
	}

	candidate := crypto.HashPin(pin)

	// Evaluate both comparisons before branching on either.
	secretMatch := subtle.ConstantTimeCompare([]byte(candidate), []byte(secretHash)) == 1
	decoyMatch := subtle.ConstantTimeCompare([]byte(candidate), []byte(decoyHash)) == 1

	if !isSetup {
		return IdentityInvalid, nil
	}
	if secretMatch {
		return IdentitySecret, nil
	}
	if decoyMatch {
		return IdentityDecoy, nil
	}
	return IdentityInvalid, nil
}

// Unlock authenticates a PIN and, on success, opens a session over the
// matched vault with its evidence collection decrypted into memory.
//
// A failed authentication returns ErrInvalidPIN with no further detail; the
// audit event for an unlock attempt records success or failure but never
// which identity matched. A blob that exists but cannot be decrypted or
// does not match the evidence schema fails the unlock with ErrLoadFailed --
// it is never presented as an empty vault.
func (v *Vault) Unlock(pin string) (*Session, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, ErrVaultClosed
	}

	identity, err := v.verifyLocked(pin)
	if err != nil {
		v.audit.Log("unlock", false, map[string]interface{}{
			"error": "storage unavailable",
		})
		return nil, err
	}
	if identity == IdentityInvalid {
		v.audit.Log("unlock", false, nil)
		return nil, ErrInvalidPIN
	}

	items, version, err := v.loadItems(pin, identity)
	if err != nil {
		v.audit.Log("unlock", false, map[string]interface{}{
			"error": "load failed",
		})
		return nil, err
	}

	v.audit.Log("unlock", true, nil)

	return &Session{
		vault:    v,
		identity: identity,
		pin:      memguard.NewEnclave([]byte(pin)),
		items:    items,
		version:  version,
	}, nil
}

// Status reports the engine's durable state for diagnostics.
type Status struct {
	IsSetup          bool                `json:"is_setup"`
	StoreType        string              `json:"store_type"`
	MemoryProtection mem.ProtectionLevel `json:"memory_protection"`
}

// Status returns setup and storage diagnostics. It deliberately says
// nothing about individual vault slots; slot presence is only observable
// through a successful unlock.
func (v *Vault) Status() (Status, error) {
	isSetup, err := v.IsSetup()
	if err != nil {
		return Status{}, err
	}
	return Status{
		IsSetup:          isSetup,
		StoreType:        v.store.GetType(),
		MemoryProtection: v.memoryProtectionLevel,
	}, nil
}

// Destroy removes both vault blobs. The config record is left untouched;
// run Setup again to rotate PINs. Destruction is deliberate and explicit --
// Setup never deletes evidence on its own.
func (v *Vault) Destroy() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrVaultClosed
	}

	for _, identity := range []Identity{IdentitySecret, IdentityDecoy} {
		if err := v.store.DeleteVault(identity.slot()); err != nil {
			v.audit.Log("destroy", false, map[string]interface{}{
				"error": err.Error(),
			})
			return fmt.Errorf("failed to delete vault data: %w", err)
		}
	}

	v.audit.Log("destroy", true, nil)
	return nil
}

// Close releases the store and the audit logger. Open sessions keep their
// in-memory items but all further load/save operations fail.
func (v *Vault) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	v.closed = true

	if v.memoryProtectionLevel == mem.ProtectionFull {
		_ = mem.Unlock()
	}

	var errs []error
	if err := v.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	if err := v.audit.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close audit logger: %w", err))
	}
	return errors.Join(errs...)
}

func (v *Vault) loadConfig() (*appConfig, error) {
	data, err := v.store.LoadConfig()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var config appConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("malformed config record: %w", err)
	}
	return &config, nil
}

// loadItems reads and decrypts one vault slot.
//
// An absent slot is a valid empty vault: empty collection, empty version.
// A present slot that fails decryption or schema validation returns
// ErrLoadFailed. The two outcomes must never be conflated; treating a
// failed decrypt as empty would let the next save destroy real evidence.
func (v *Vault) loadItems(pin string, identity Identity) ([]EvidenceItem, string, error) {
	versioned, err := v.store.LoadVault(identity.slot())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []EvidenceItem{}, "", nil
		}
		return nil, "", fmt.Errorf("failed to read vault slot: %w", err)
	}

	plaintext, err := crypto.DecryptWithPin(versioned.Data, pin)
	if err != nil {
		return nil, "", ErrLoadFailed
	}

	items, err := decodeItems(plaintext)
	if err != nil {
		// Malformed persisted JSON is treated identically to decryption
		// failure: abort, do not overwrite.
		return nil, "", ErrLoadFailed
	}

	return items, versioned.Version, nil
}

// saveItems encrypts and persists the full collection for one slot,
// overwriting prior content. The envelope is fully assembled in memory
// before the store write begins, and the store write itself is atomic.
func (v *Vault) saveItems(items []EvidenceItem, pin string, identity Identity, expectedVersion string) (string, error) {
	plaintext, err := encodeItems(items)
	if err != nil {
		return "", err
	}

	blob, err := crypto.EncryptWithPin(plaintext, pin)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt vault data: %w", err)
	}

	newVersion, err := v.store.SaveVault(identity.slot(), blob, expectedVersion)
	if err != nil {
		v.audit.Log("save", false, map[string]interface{}{
			"error": err.Error(),
		})
		return "", fmt.Errorf("failed to write vault slot: %w", err)
	}

	v.audit.Log("save", true, map[string]interface{}{
		"item_count": len(items),
		"blob_size":  len(blob),
	})
	return newVersion, nil
}
