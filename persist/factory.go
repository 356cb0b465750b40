package persist

import "fmt"

// StoreConfig provides configuration for the available storage backends.
type StoreConfig struct {
	// Type specifies the storage backend to be used.
	Type StoreType `json:"type"`

	// Config contains backend-specific settings. For the filesystem store
	// the only required key is "base_path".
	Config map[string]interface{} `json:"config"`
}

// StoreType represents the different types of storage backends that can be used.
type StoreType string

// Supported storage types.
const (
	// StoreTypeFileSystem stores records under a base directory on the
	// local filesystem. This is the backend the application uses.
	StoreTypeFileSystem StoreType = "filesystem"

	// StoreTypeMemory keeps records in process memory only.
	StoreTypeMemory StoreType = "memory"
)

// NewStore factory function to create storage backends
func NewStore(config StoreConfig) (Store, error) {
	switch config.Type {
	case StoreTypeFileSystem:
		return NewFileSystemStoreFromConfig(config)

	case StoreTypeMemory:
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}
