// Package media stores the raw bytes of captured photo, video and audio
// evidence. Evidence records hold only the relative filename returned by
// Persist; the bytes themselves never enter the encrypted vault blobs.
package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	filePermissions os.FileMode = 0600
	dirPermissions  os.FileMode = 0700
)

// Store is a flat directory of media files keyed by generated names.
type Store struct {
	baseDir string
}

// NewStore creates the media directory if needed and returns a Store over it.
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("media directory is required")
	}
	if err := os.MkdirAll(baseDir, dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Persist moves the file at tempPath into the media directory under a
// generated name and returns that relative name. The temp file is removed
// on success.
func (s *Store) Persist(tempPath, itemType string) (string, error) {
	src, err := os.Open(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to open captured file: %w", err)
	}
	defer src.Close()

	name := generateName(itemType, filepath.Ext(tempPath))
	target := filepath.Join(s.baseDir, name)

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePermissions)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}

	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("failed to copy media file: %w", err)
	}

	if err = dst.Sync(); err != nil {
		_ = dst.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("failed to sync media file: %w", err)
	}

	if err = dst.Close(); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("failed to close media file: %w", err)
	}

	_ = os.Remove(tempPath)

	return name, nil
}

// Resolve returns the absolute path for a relative media name.
func (s *Store) Resolve(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, name), nil
}

// Delete removes a media file. Deleting an absent file is not an error; the
// metadata record may outlive the bytes.
func (s *Store) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.baseDir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete media file: %w", err)
	}
	return nil
}

// generateName builds a unique media filename: type, capture instant, random
// suffix, original extension.
func generateName(itemType, ext string) string {
	random := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s_%d_%s%s", itemType, time.Now().UnixMilli(), random, strings.ToLower(ext))
}

// validateName rejects anything that could escape the media directory.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("media name cannot be empty")
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("invalid media name: %s", name)
	}
	return nil
}
