package calcpro

import (
	"testing"

	"github.com/Ch4lkP0wd3r/CalcPro/forensic"
	"github.com/Ch4lkP0wd3r/CalcPro/persist"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) (*Vault, *persist.MemoryStore) {
	t.Helper()

	store := persist.NewMemoryStore()
	options := Options{
		PinPolicy: DefaultPinPolicy(),
		Device: forensic.DeviceInfo{
			Brand: "testbrand",
			Model: "testmodel",
		},
	}

	vault, err := NewWithStore(options, store, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vault.Close() })

	return vault, store
}

func TestSetupRejectsDuplicatePin(t *testing.T) {
	vault, store := newTestVault(t)

	err := vault.Setup("1234", "1234")
	require.ErrorIs(t, err, ErrDuplicatePIN)

	// Rejection happened before anything was hashed or stored
	exists, err := store.ConfigExists()
	require.NoError(t, err)
	require.False(t, exists)
}

func TestSetupEnforcesPinPolicy(t *testing.T) {
	vault, _ := newTestVault(t)

	require.ErrorIs(t, vault.Setup("12", "0000"), ErrPinPolicy)
	require.ErrorIs(t, vault.Setup("1234", "00"), ErrPinPolicy)
	require.ErrorIs(t, vault.Setup("abcd", "0000"), ErrPinPolicy)

	// Policy is a parameter, not a hardcoded rule
	permissive := Options{PinPolicy: PinPolicy{}}
	vault2, err := NewWithStore(permissive, persist.NewMemoryStore(), nil)
	require.NoError(t, err)
	defer vault2.Close()
	require.NoError(t, vault2.Setup("a", "b"))
}

func TestVerifyVaultSeparation(t *testing.T) {
	vault, _ := newTestVault(t)
	require.NoError(t, vault.Setup("1234", "0000"))

	identity, err := vault.Verify("1234")
	require.NoError(t, err)
	require.Equal(t, IdentitySecret, identity)

	identity, err = vault.Verify("0000")
	require.NoError(t, err)
	require.Equal(t, IdentityDecoy, identity)

	identity, err = vault.Verify("9999")
	require.NoError(t, err)
	require.Equal(t, IdentityInvalid, identity)
}

func TestVerifyBeforeSetup(t *testing.T) {
	vault, _ := newTestVault(t)

	// Every PIN is invalid until setup completes, with no distinct error
	for _, pin := range []string{"1234", "0000", ""} {
		identity, err := vault.Verify(pin)
		require.NoError(t, err)
		require.Equal(t, IdentityInvalid, identity)
	}

	_, err := vault.Unlock("1234")
	require.ErrorIs(t, err, ErrInvalidPIN)
}

func TestUnlockWrongPinIsOpaque(t *testing.T) {
	vault, _ := newTestVault(t)
	require.NoError(t, vault.Setup("1234", "0000"))

	_, err := vault.Unlock("9999")
	require.ErrorIs(t, err, ErrInvalidPIN)
	// The error carries nothing beyond the generic message
	require.EqualError(t, err, "incorrect code")
}

func TestUnlockEmptyVault(t *testing.T) {
	vault, _ := newTestVault(t)
	require.NoError(t, vault.Setup("1234", "0000"))

	session, err := vault.Unlock("1234")
	require.NoError(t, err)
	defer session.Lock()

	// Freshly set-up vault is a valid empty collection, not a failure
	require.Equal(t, IdentitySecret, session.Identity())
	require.Empty(t, session.List())
}

func TestUnlockCorruptBlobFailsLoudly(t *testing.T) {
	vault, store := newTestVault(t)
	require.NoError(t, vault.Setup("1234", "0000"))

	_, err := store.SaveVault(persist.SlotSecret, []byte("not an envelope"), "")
	require.NoError(t, err)

	// A blob that cannot be read is never presented as an empty vault
	_, err = vault.Unlock("1234")
	require.ErrorIs(t, err, ErrLoadFailed)

	// The decoy is unaffected
	session, err := vault.Unlock("0000")
	require.NoError(t, err)
	defer session.Lock()
	require.Empty(t, session.List())
}

func TestReSetupOverwritesConfigWholesale(t *testing.T) {
	vault, _ := newTestVault(t)
	require.NoError(t, vault.Setup("1234", "0000"))
	require.NoError(t, vault.Setup("2468", "1357"))

	identity, err := vault.Verify("1234")
	require.NoError(t, err)
	require.Equal(t, IdentityInvalid, identity)

	identity, err = vault.Verify("2468")
	require.NoError(t, err)
	require.Equal(t, IdentitySecret, identity)
}

func TestDestroyRemovesBothSlots(t *testing.T) {
	vault, store := newTestVault(t)
	require.NoError(t, vault.Setup("1234", "0000"))

	session, err := vault.Unlock("1234")
	require.NoError(t, err)
	_, err = session.Add(NewItem{Type: TypeNote, Title: "doomed", Content: "x"})
	require.NoError(t, err)
	session.Lock()

	require.NoError(t, vault.Destroy())

	for _, slot := range []string{persist.SlotSecret, persist.SlotDecoy} {
		exists, err := store.VaultExists(slot)
		require.NoError(t, err)
		require.False(t, exists)
	}

	// Config survives: the PINs still authenticate, vaults are empty
	session, err = vault.Unlock("1234")
	require.NoError(t, err)
	defer session.Lock()
	require.Empty(t, session.List())
}

func TestEndToEndScenario(t *testing.T) {
	vault, _ := newTestVault(t)

	require.NoError(t, vault.Setup("2468", "1357"))

	// Unlock the secret vault: empty
	session, err := vault.Unlock("2468")
	require.NoError(t, err)
	require.Equal(t, IdentitySecret, session.Identity())
	require.Empty(t, session.List())

	// Add a note
	added, err := session.Add(NewItem{Type: TypeNote, Title: "Test", Content: "body"})
	require.NoError(t, err)

	items := session.List()
	require.Len(t, items, 1)
	require.Equal(t, added.ID, items[0].ID)

	// Lock, then open the decoy: storage-disjoint, empty
	session.Lock()

	decoySession, err := vault.Unlock("1357")
	require.NoError(t, err)
	require.Equal(t, IdentityDecoy, decoySession.Identity())
	require.Empty(t, decoySession.List())
	decoySession.Lock()

	// The secret vault persisted across lock cycles
	session, err = vault.Unlock("2468")
	require.NoError(t, err)
	defer session.Lock()

	items = session.List()
	require.Len(t, items, 1)
	require.Equal(t, "Test", items[0].Title)
	require.Equal(t, TypeNote, items[0].Type)
	require.NotEmpty(t, items[0].Metadata.ChainOfCustodyID)
}

func TestClosedVaultRefusesOperations(t *testing.T) {
	vault, _ := newTestVault(t)
	require.NoError(t, vault.Setup("1234", "0000"))
	require.NoError(t, vault.Close())

	require.ErrorIs(t, vault.Setup("2468", "1357"), ErrVaultClosed)

	_, err := vault.Verify("1234")
	require.ErrorIs(t, err, ErrVaultClosed)

	_, err = vault.Unlock("1234")
	require.ErrorIs(t, err, ErrVaultClosed)
}
