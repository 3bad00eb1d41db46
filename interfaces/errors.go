package interfaces

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotImplemented is returned when a provider does not support an operation.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNoCredentialsFound is returned when the credential blob is absent or empty.
	ErrNoCredentialsFound = errors.New("no object store credentials found")

	// ErrCorruptCredentials is returned when the credential blob cannot be parsed.
	ErrCorruptCredentials = errors.New("corrupt object store credentials")

	// ErrInsufficientEnvironment is returned when the namespace or API host is not set.
	ErrInsufficientEnvironment = errors.New("insufficient environment")

	// ErrNoValidURL is returned when the URL of a web bucket cannot be derived.
	ErrNoValidURL = errors.New("no valid URL for web bucket")

	// ErrInsufficientCredentials is returned when a credential blob lacks
	// fields required by its provider.
	ErrInsufficientCredentials = errors.New("insufficient credentials")

	// ErrDeletionFailed is returned for each object a batch delete could not remove.
	ErrDeletionFailed = errors.New("deletion failed")

	// ErrMultiple is matched by every *MultiError.
	ErrMultiple = errors.New("multiple errors")

	// ErrInvalidInput is returned when caller-supplied arguments are rejected.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCouldNotOpenResource is returned when a local file or remote
	// resource cannot be opened.
	ErrCouldNotOpenResource = errors.New("could not open resource")

	// ErrUnknownProvider is returned when a provider identifier has no entry
	// in the library table.
	ErrUnknownProvider = errors.New("unknown storage provider")

	// ErrCouldNotLoadProvider is returned when a provider library cannot be
	// loaded or does not honor the plugin contract.
	ErrCouldNotLoadProvider = errors.New("could not load provider")

	// ErrNoKeyValueStore is returned when the key-value store connection
	// parameters are missing from the environment.
	ErrNoKeyValueStore = errors.New("no key-value store available")
)

// NotImplemented reports that operation is not supported by a provider.
func NotImplemented(operation string) error {
	return fmt.Errorf("%w: %s", ErrNotImplemented, operation)
}

// CorruptCredentials carries the raw blob that failed to parse.
func CorruptCredentials(raw string) error {
	return fmt.Errorf("%w: %s", ErrCorruptCredentials, raw)
}

// DeletionFailed carries the reason reported by the backend.
func DeletionFailed(reason string) error {
	return fmt.Errorf("%w: %s", ErrDeletionFailed, reason)
}

// InvalidInput carries a description of the rejected input.
func InvalidInput(detail string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, detail)
}

// CouldNotOpenResource carries the path or URL that could not be opened.
func CouldNotOpenResource(path string) error {
	return fmt.Errorf("%w: %s", ErrCouldNotOpenResource, path)
}

// UnknownProvider carries the identifier that was requested.
func UnknownProvider(id string) error {
	return fmt.Errorf("%w: %s", ErrUnknownProvider, id)
}

// CouldNotLoadProvider carries the lowest-level diagnostic of the failed load.
func CouldNotLoadProvider(detail string) error {
	return fmt.Errorf("%w: %s", ErrCouldNotLoadProvider, detail)
}

// MultiError aggregates the failures of a batch operation. It never collapses
// to its first element, so callers see every constituent failure.
type MultiError struct {
	Errs []error
}

// NewMultiError returns nil when errs is empty and a *MultiError otherwise.
// Nested MultiErrors are flattened.
func NewMultiError(errs []error) error {
	flat := make([]error, 0, len(errs))
	for _, err := range errs {
		var me *MultiError
		if errors.As(err, &me) {
			flat = append(flat, me.Errs...)
			continue
		}
		if err != nil {
			flat = append(flat, err)
		}
	}
	if len(flat) == 0 {
		return nil
	}
	return &MultiError{Errs: flat}
}

func (e *MultiError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d error(s): %s", len(e.Errs), strings.Join(msgs, "; "))
}

// Unwrap exposes the constituent errors to errors.Is and errors.As.
func (e *MultiError) Unwrap() []error {
	return e.Errs
}

// Is reports true for ErrMultiple.
func (e *MultiError) Is(target error) bool {
	return target == ErrMultiple
}
