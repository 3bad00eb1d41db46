package interfaces

// LoadProviderSymbol is the name every provider library exports. Its value
// must be a func() any returning a ProviderMaker or a KeyValueMaker.
const LoadProviderSymbol = "LoadProvider"

// ProviderMaker is returned by a storage provider library.
type ProviderMaker interface {
	Make() (StorageProvider, error)
}

// KeyValueMaker is returned by a key-value provider library.
type KeyValueMaker interface {
	Make() (KeyValueClient, error)
}

// Well-known provider identifiers.
const (
	ProviderGCS  = "@nimbella/storage-gcs"
	ProviderS3   = "@nimbella/storage-s3"
	ProviderFile = "@nimbella/storage-file"

	// DefaultStorageProvider is used when a credential blob names no provider.
	DefaultStorageProvider = ProviderGCS
)
