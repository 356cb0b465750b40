package persist

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFileSystemLayout(t *testing.T) {
	baseDir := t.TempDir()
	store, err := NewFileSystemStore(baseDir)
	if err != nil {
		t.Fatalf("Failed to create FileSystemStore: %v", err)
	}
	defer store.Close()

	if err = store.SaveConfig([]byte(`{"isSetup":true}`)); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	if _, err = store.SaveVault(SlotSecret, []byte("blob"), ""); err != nil {
		t.Fatalf("SaveVault failed: %v", err)
	}

	// Config lives apart from the bulk evidence blobs
	if _, err = os.Stat(filepath.Join(baseDir, "config", "app.json")); err != nil {
		t.Errorf("Config record not at expected path: %v", err)
	}
	if _, err = os.Stat(filepath.Join(baseDir, "vaults", "vault_data_secret")); err != nil {
		t.Errorf("Vault blob not at expected path: %v", err)
	}
}

func TestFileSystemPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions not applicable on windows")
	}

	baseDir := t.TempDir()
	store, err := NewFileSystemStore(baseDir)
	if err != nil {
		t.Fatalf("Failed to create FileSystemStore: %v", err)
	}
	defer store.Close()

	if _, err = store.SaveVault(SlotDecoy, []byte("blob"), ""); err != nil {
		t.Fatalf("SaveVault failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(baseDir, "vaults", "vault_data_decoy"))
	if err != nil {
		t.Fatalf("Failed to stat vault blob: %v", err)
	}
	if perm := info.Mode().Perm(); perm != FilePermissions {
		t.Errorf("Vault blob permissions = %o, want %o", perm, FilePermissions)
	}

	info, err = os.Stat(filepath.Join(baseDir, "vaults"))
	if err != nil {
		t.Fatalf("Failed to stat vaults directory: %v", err)
	}
	if perm := info.Mode().Perm(); perm != DirPermissions {
		t.Errorf("Vaults directory permissions = %o, want %o", perm, DirPermissions)
	}
}

func TestLegacyFallbackAndMigration(t *testing.T) {
	baseDir := t.TempDir()
	legacyBlob := []byte(`{"salt":"legacy","data":"legacy"}`)

	// Simulate a pre-1.x layout: flat file at the base path, no vaults dir
	if err := os.WriteFile(filepath.Join(baseDir, "vault_data_secret"), legacyBlob, 0600); err != nil {
		t.Fatalf("Failed to write legacy blob: %v", err)
	}

	store, err := NewFileSystemStore(baseDir)
	if err != nil {
		t.Fatalf("Failed to create FileSystemStore: %v", err)
	}
	defer store.Close()

	if exists, _ := store.VaultExists(SlotSecret); !exists {
		t.Fatal("VaultExists does not see the legacy blob")
	}

	loaded, err := store.LoadVault(SlotSecret)
	if err != nil {
		t.Fatalf("LoadVault failed to fall back to legacy location: %v", err)
	}
	if !bytes.Equal(loaded.Data, legacyBlob) {
		t.Errorf("Legacy blob content mismatch")
	}

	// The read migrated the blob into the primary slot
	migrated, err := os.ReadFile(filepath.Join(baseDir, "vaults", "vault_data_secret"))
	if err != nil {
		t.Fatalf("Blob was not migrated into the primary slot: %v", err)
	}
	if !bytes.Equal(migrated, legacyBlob) {
		t.Errorf("Migrated blob content mismatch")
	}
	if _, err = os.Stat(filepath.Join(baseDir, "vault_data_secret")); !os.IsNotExist(err) {
		t.Errorf("Legacy file still present after migration")
	}

	// Subsequent loads hit the primary slot
	loaded2, err := store.LoadVault(SlotSecret)
	if err != nil {
		t.Fatalf("LoadVault after migration failed: %v", err)
	}
	if !bytes.Equal(loaded2.Data, legacyBlob) {
		t.Errorf("Post-migration blob content mismatch")
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	baseDir := t.TempDir()
	store, err := NewFileSystemStore(baseDir)
	if err != nil {
		t.Fatalf("Failed to create FileSystemStore: %v", err)
	}
	defer store.Close()

	for i := 0; i < 10; i++ {
		if _, err = store.SaveVault(SlotSecret, []byte("generation"), ""); err != nil {
			t.Fatalf("SaveVault failed: %v", err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(baseDir, "vaults"))
	if err != nil {
		t.Fatalf("Failed to read vaults directory: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != "vault_data_secret" {
			t.Errorf("Unexpected file left behind: %s", entry.Name())
		}
	}
}
