package persist

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ch4lkP0wd3r/CalcPro/internal/debug"
)

const (
	FilePermissions os.FileMode = 0600
	DirPermissions  os.FileMode = 0700
)

// FileSystemStore implements Store on the local filesystem.
//
// Layout under basePath:
//
//	config/app.json          - config record (PIN hashes, setup flag)
//	vaults/vault_data_secret - encrypted blob, secret slot
//	vaults/vault_data_decoy  - encrypted blob, decoy slot
//
// Pre-1.x versions stored blobs flat at basePath/vault_data_<slot>; LoadVault
// transparently falls back to that legacy location and opportunistically
// migrates the blob into the primary slot on successful read.
type FileSystemStore struct {
	basePath   string
	configDir  string // basePath/config/
	vaultsDir  string // basePath/vaults/
	configFile string // basePath/config/app.json
}

// NewFileSystemStore initializes and returns a new instance of FileSystemStore
func NewFileSystemStore(basePath string) (*FileSystemStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}

	fs := &FileSystemStore{
		basePath:   basePath,
		configDir:  filepath.Join(basePath, "config"),
		vaultsDir:  filepath.Join(basePath, "vaults"),
		configFile: filepath.Join(basePath, "config", "app.json"),
	}

	for _, dir := range []string{fs.basePath, fs.configDir, fs.vaultsDir} {
		if err := os.MkdirAll(dir, DirPermissions); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return fs, nil
}

// NewFileSystemStoreFromConfig creates a FileSystemStore from StoreConfig
func NewFileSystemStoreFromConfig(config StoreConfig) (*FileSystemStore, error) {
	basePath, ok := config.Config["base_path"].(string)
	if !ok {
		return nil, fmt.Errorf("base_path is required for filesystem store")
	}
	return NewFileSystemStore(basePath)
}

// SaveConfig overwrites the config record wholesale. The record lives apart
// from the bulk evidence blobs, in the directory reserved for small
// sensitive values.
func (fs *FileSystemStore) SaveConfig(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("config data cannot be empty")
	}
	if err := os.MkdirAll(fs.configDir, DirPermissions); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return writeSecureFile(fs.configFile, data, FilePermissions)
}

func (fs *FileSystemStore) LoadConfig() ([]byte, error) {
	data, err := os.ReadFile(fs.configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return data, nil
}

func (fs *FileSystemStore) ConfigExists() (bool, error) {
	return fileExists(fs.configFile)
}

// SaveVault with optimistic concurrency control
func (fs *FileSystemStore) SaveVault(slot string, blob []byte, expectedVersion string) (string, error) {
	if err := validateSlot(slot); err != nil {
		return "", err
	}
	if len(blob) == 0 {
		return "", fmt.Errorf("vault blob cannot be empty")
	}

	// Validate expected version if provided
	if expectedVersion != "" {
		currentVersion, err := fs.getFileVersion(fs.vaultFile(slot))
		if err != nil {
			return "", fmt.Errorf("failed to check current version: %w", err)
		}
		if currentVersion != expectedVersion {
			return "", ConcurrencyError{
				ExpectedVersion: expectedVersion,
				ActualVersion:   currentVersion,
				Operation:       "SaveVault",
			}
		}
	}

	if err := os.MkdirAll(fs.vaultsDir, DirPermissions); err != nil {
		return "", fmt.Errorf("failed to create vaults directory: %w", err)
	}

	if err := writeSecureFile(fs.vaultFile(slot), blob, FilePermissions); err != nil {
		return "", err
	}

	return calculateFileVersion(blob), nil
}

// LoadVault returns the versioned blob for a slot, falling back to the
// legacy flat-file location when the primary slot is absent.
func (fs *FileSystemStore) LoadVault(slot string) (*VersionedData, error) {
	if err := validateSlot(slot); err != nil {
		return nil, err
	}

	path := fs.vaultFile(slot)
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs.loadLegacyVault(slot)
		}
		return nil, fmt.Errorf("failed to stat vault blob: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load vault blob: %w", err)
	}

	debug.Print("LoadVault: read %d bytes for slot %s\n", len(data), slot)

	return &VersionedData{
		Data:      data,
		Version:   calculateFileVersion(data),
		Timestamp: fileInfo.ModTime(),
	}, nil
}

// loadLegacyVault reads the pre-1.x flat-file location and migrates the blob
// into the primary slot. Migration is best-effort: a failed migration write
// never fails the read.
func (fs *FileSystemStore) loadLegacyVault(slot string) (*VersionedData, error) {
	legacyPath := fs.legacyVaultFile(slot)
	fileInfo, err := os.Stat(legacyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to stat legacy vault blob: %w", err)
	}

	data, err := os.ReadFile(legacyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load legacy vault blob: %w", err)
	}

	debug.Print("loadLegacyVault: migrating %d bytes for slot %s\n", len(data), slot)

	// Opportunistic migration into the primary slot
	if err := os.MkdirAll(fs.vaultsDir, DirPermissions); err == nil {
		if err := writeSecureFile(fs.vaultFile(slot), data, FilePermissions); err == nil {
			_ = os.Remove(legacyPath)
		}
	}

	return &VersionedData{
		Data:      data,
		Version:   calculateFileVersion(data),
		Timestamp: fileInfo.ModTime(),
	}, nil
}

func (fs *FileSystemStore) VaultExists(slot string) (bool, error) {
	if err := validateSlot(slot); err != nil {
		return false, err
	}
	exists, err := fileExists(fs.vaultFile(slot))
	if err != nil || exists {
		return exists, err
	}
	return fileExists(fs.legacyVaultFile(slot))
}

func (fs *FileSystemStore) DeleteVault(slot string) error {
	if err := validateSlot(slot); err != nil {
		return err
	}
	for _, path := range []string{fs.vaultFile(slot), fs.legacyVaultFile(slot)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete vault blob: %w", err)
		}
	}
	return nil
}

func (fs *FileSystemStore) GetType() string {
	return string(StoreTypeFileSystem)
}

func (fs *FileSystemStore) Ping() error {
	_, err := os.Stat(fs.basePath)
	return err
}

func (fs *FileSystemStore) Close() error {
	return nil
}

func (fs *FileSystemStore) vaultFile(slot string) string {
	return filepath.Join(fs.vaultsDir, "vault_data_"+slot)
}

func (fs *FileSystemStore) legacyVaultFile(slot string) string {
	return filepath.Join(fs.basePath, "vault_data_"+slot)
}

// getFileVersion returns the current version of a file, empty string if the
// file does not exist yet.
func (fs *FileSystemStore) getFileVersion(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return calculateFileVersion(data), nil
}

func calculateFileVersion(data []byte) string {
	// Use MD5 hash of file contents as version identifier
	hash := md5.Sum(data)
	return hex.EncodeToString(hash[:])
}

// writeSecureFile writes data atomically: temp file in the target directory,
// fsync, chmod, rename. A crash mid-write leaves the previously written
// version intact.
func writeSecureFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err = tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err = tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err = os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func validateSlot(slot string) error {
	switch slot {
	case SlotSecret, SlotDecoy:
		return nil
	}
	if strings.TrimSpace(slot) == "" {
		return fmt.Errorf("slot cannot be empty")
	}
	return fmt.Errorf("unknown vault slot: %s", slot)
}
