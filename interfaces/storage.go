package interfaces

import (
	"context"
	"time"
)

// CredentialBlob is the structured form of the credentials supplied by the
// environment. Only ProviderKey has shared semantics; every other key is
// private to the provider that reads it.
type CredentialBlob map[string]any

// ProviderKey is the blob key naming the provider that owns the credentials.
const ProviderKey = "provider"

// Provider returns the provider identifier recorded in the blob, if any.
func (b CredentialBlob) Provider() (string, bool) {
	v, ok := b[ProviderKey]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Clone returns a shallow copy of the blob.
func (b CredentialBlob) Clone() CredentialBlob {
	out := make(CredentialBlob, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// SettableFileMetadata is the metadata a caller may set on a file.
type SettableFileMetadata struct {
	ContentType  string
	CacheControl string
}

// FileMetadata describes a stored object.
type FileMetadata struct {
	Name         string
	StorageClass string
	Size         int64
	ETag         string
	Updated      time.Time
}

// SaveOptions are passed to RemoteFile.Save.
type SaveOptions struct {
	Metadata *SettableFileMetadata
}

// DownloadOptions are passed to RemoteFile.Download. When Destination is set
// the content is written to that local path instead of being returned.
type DownloadOptions struct {
	Destination string
}

// UploadOptions are passed to StorageClient.Upload.
type UploadOptions struct {
	// Destination is the object name; defaults to the local path.
	Destination string
	// Gzip compresses the content and sets Content-Encoding.
	Gzip     bool
	Metadata *SettableFileMetadata
}

// GetFilesOptions are passed to StorageClient.Files.
type GetFilesOptions struct {
	Prefix string
}

// DeleteFilesOptions are passed to StorageClient.DeleteFiles.
type DeleteFilesOptions struct {
	Prefix string
	// Force continues deleting after individual failures.
	Force bool
}

// WebsiteOptions configure static website behavior of a web bucket.
type WebsiteOptions struct {
	MainPageSuffix string
	NotFoundPage   string
}

// SignedURLVersion selects the signing scheme.
type SignedURLVersion string

const (
	SignedURLV2 SignedURLVersion = "v2"
	SignedURLV4 SignedURLVersion = "v4"
)

// SignedURLAction is the operation the signed URL authorizes.
type SignedURLAction string

const (
	SignedURLRead   SignedURLAction = "read"
	SignedURLWrite  SignedURLAction = "write"
	SignedURLDelete SignedURLAction = "delete"
)

// SignedURLOptions are passed to RemoteFile.SignedURL.
type SignedURLOptions struct {
	Version     SignedURLVersion
	Action      SignedURLAction
	Expires     time.Time
	ContentType string
}

// RemoteFile is a handle on one object in a bucket. Obtaining a RemoteFile
// does not imply the object exists.
type RemoteFile interface {
	// Name returns the object name.
	Name() string

	// Save replaces the object content.
	Save(ctx context.Context, data []byte, opts *SaveOptions) error

	// SetMetadata replaces the settable metadata of an existing object.
	SetMetadata(ctx context.Context, meta SettableFileMetadata) error

	// GetMetadata returns the object metadata.
	GetMetadata(ctx context.Context) (FileMetadata, error)

	// Exists reports whether the object exists.
	Exists(ctx context.Context) (bool, error)

	// Delete removes the object.
	Delete(ctx context.Context) error

	// Download returns the object content, or writes it to
	// opts.Destination and returns an empty slice.
	Download(ctx context.Context, opts *DownloadOptions) ([]byte, error)

	// SignedURL returns a time-limited pre-authorized URL for the object.
	SignedURL(ctx context.Context, opts SignedURLOptions) (string, error)

	// Native exposes the backend handle for provider-specific operations.
	Native() Native
}

// StorageClient is a handle on one bucket (web or data) of a namespace.
type StorageClient interface {
	// URL returns the root URL of a web bucket, or "" for a data bucket.
	URL() string

	// BucketName returns the computed bucket name.
	BucketName() string

	// SetWebsite configures static website behavior.
	SetWebsite(ctx context.Context, website WebsiteOptions) error

	// DeleteFiles deletes every object matching opts and returns the names
	// that were deleted. When some deletions fail the error is a
	// *MultiError holding one entry per failure and the returned slice
	// still lists the successes.
	DeleteFiles(ctx context.Context, opts *DeleteFilesOptions) ([]string, error)

	// Upload copies the local file at path into the bucket.
	Upload(ctx context.Context, path string, opts *UploadOptions) error

	// File returns a handle for name. This is purely local.
	File(name string) RemoteFile

	// Files lists the objects in the bucket.
	Files(ctx context.Context, opts *GetFilesOptions) ([]RemoteFile, error)

	// Native exposes the backend handle for provider-specific operations.
	Native() Native

	// Close releases the connections held by the client. The client and
	// its files must not be used afterwards.
	Close() error
}

// StorageProvider builds clients for one storage backend.
type StorageProvider interface {
	// Client returns a client for the web or data bucket of namespace.
	// Returns ErrInsufficientCredentials when required credential fields are
	// absent and ErrNoValidURL when a web bucket URL cannot be derived.
	Client(ctx context.Context, namespace, apiHost string, web bool, credentials CredentialBlob) (StorageClient, error)

	// PrepareCredentials converts a raw blob into the form Client expects.
	// Every provider other than the default tags the result with its
	// identifier under ProviderKey.
	PrepareCredentials(original CredentialBlob) (CredentialBlob, error)

	// Identifier returns the stable provider identifier.
	Identifier() string
}
