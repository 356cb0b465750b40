package calcpro

import "errors"

var (
	// ErrInvalidPIN is the single outcome for every failed authentication:
	// wrong PIN, no such vault, or setup never completed. Collapsing these
	// cases is a security property of the decoy mechanism, not a
	// convenience.
	ErrInvalidPIN = errors.New("incorrect code")

	// ErrLoadFailed means a vault blob exists but could not be read back:
	// decryption failed or the decrypted payload did not match the
	// expected evidence schema. It is never reported as an empty vault,
	// and any in-progress mutation must abort when it occurs.
	ErrLoadFailed = errors.New("vault data could not be read")

	// ErrDuplicatePIN rejects a decoy PIN equal to the secret PIN at
	// setup time, before either is hashed or stored.
	ErrDuplicatePIN = errors.New("decoy PIN must differ from secret PIN")

	// ErrPinPolicy rejects a PIN that fails the configured policy.
	ErrPinPolicy = errors.New("PIN does not meet policy")

	// ErrSessionLocked is returned by repository operations on a session
	// that has been locked.
	ErrSessionLocked = errors.New("session is locked")

	// ErrItemNotFound is returned by Remove when no item has the given id.
	ErrItemNotFound = errors.New("evidence item not found")

	// ErrVaultClosed is returned by operations on a closed engine.
	ErrVaultClosed = errors.New("vault is closed")
)
