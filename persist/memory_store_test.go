package persist

import "testing"

func TestMemoryStoreClosedRejectsAllOperations(t *testing.T) {
	store := NewMemoryStore()

	if err := store.SaveConfig([]byte("config")); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	if _, err := store.SaveVault(SlotSecret, []byte("blob"), ""); err != nil {
		t.Fatalf("SaveVault() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := store.SaveConfig([]byte("x")); err == nil {
		t.Error("SaveConfig succeeded on closed store")
	}
	if _, err := store.LoadConfig(); err == nil {
		t.Error("LoadConfig succeeded on closed store")
	}
	if _, err := store.ConfigExists(); err == nil {
		t.Error("ConfigExists succeeded on closed store")
	}
	if _, err := store.SaveVault(SlotSecret, []byte("x"), ""); err == nil {
		t.Error("SaveVault succeeded on closed store")
	}
	if _, err := store.LoadVault(SlotSecret); err == nil {
		t.Error("LoadVault succeeded on closed store")
	}
	if _, err := store.VaultExists(SlotSecret); err == nil {
		t.Error("VaultExists succeeded on closed store")
	}
	if err := store.DeleteVault(SlotSecret); err == nil {
		t.Error("DeleteVault succeeded on closed store")
	}
	if err := store.Ping(); err == nil {
		t.Error("Ping succeeded on closed store")
	}
}
