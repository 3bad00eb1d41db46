// Package interfaces defines the contracts shared by the SDK core and the
// provider libraries, separating interface definitions from implementations.
//
// # Capability Interfaces
//
//   - StorageProvider: builds StorageClient values for one storage backend and
//     normalizes that backend's credentials
//   - StorageClient: a handle on the web or data bucket of a namespace
//   - RemoteFile: a handle on one object in a bucket
//   - KeyValueClient: a backend-neutral view of a key-value store
//
// Handles expose their backend through Native, a closed union tagged by
// Backend (S3Native, GCSNative, FileNative, RedisNative).
//
// # Plugin Contract
//
// A provider library exports LoadProviderSymbol as a func() any. The value it
// returns is a ProviderMaker (storage) or a KeyValueMaker (key-value), whose
// Make method yields the provider instance.
//
// # Error Types
//
// Every layer reports failures with the sentinels in this package, wrapped
// with context by the constructors (UnknownProvider, CouldNotLoadProvider,
// CorruptCredentials, ...). Callers match them with errors.Is:
//
//	client, err := router.StorageClient(ctx, true)
//	if errors.Is(err, interfaces.ErrInsufficientEnvironment) {
//	    // namespace or API host missing
//	}
//
// Batch deletes aggregate failures in a *MultiError, which matches ErrMultiple
// and unwraps to each constituent failure.
package interfaces
