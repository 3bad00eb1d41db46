package provider

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ruteri/serverless-sdk/interfaces"
	"github.com/ruteri/serverless-sdk/metrics"
)

// ErrResolverClosed is returned by Client after Close.
var ErrResolverClosed = errors.New("key-value resolver closed")

// KeyValueResolver holds the single key-value client of the process.
//
// Unlike Registry it caches failures: once the first resolution fails every
// later call returns the same error without another load attempt. A broken
// key-value setup does not heal within a process, so failing fast is the
// policy for this path.
type KeyValueResolver struct {
	mu       sync.Mutex
	resolved bool
	client   interfaces.KeyValueClient
	err      error

	lib    Library
	loader Loader
	log    *slog.Logger
}

// NewKeyValueResolver creates a resolver for the LibraryRedis library.
func NewKeyValueResolver(cfg Config, loader Loader, log *slog.Logger) *KeyValueResolver {
	if log == nil {
		log = slog.Default()
	}
	return &KeyValueResolver{
		lib:    cfg.LibraryFor(LibraryRedis),
		loader: loader,
		log:    log,
	}
}

// Client returns the key-value client, loading it on the first call.
func (k *KeyValueResolver) Client() (interfaces.KeyValueClient, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.resolved {
		if k.err != nil {
			metrics.ProviderResolutions.WithLabelValues(k.lib.Name, "error").Inc()
		} else {
			metrics.ProviderResolutions.WithLabelValues(k.lib.Name, "cached").Inc()
		}
		return k.client, k.err
	}

	start := time.Now()
	k.client, k.err = k.load()
	k.resolved = true
	metrics.ProviderLoadDuration.WithLabelValues(k.lib.Name).Observe(time.Since(start).Seconds())

	if k.err != nil {
		metrics.ProviderResolutions.WithLabelValues(k.lib.Name, "error").Inc()
		k.log.Error("Failed to load key-value provider",
			slog.String("path", k.lib.Path),
			"err", k.err,
			slog.Duration("duration", time.Since(start)))
		return nil, k.err
	}

	metrics.ProviderResolutions.WithLabelValues(k.lib.Name, "loaded").Inc()
	k.log.Debug("Loaded key-value provider",
		slog.String("path", k.lib.Path),
		slog.Duration("duration", time.Since(start)))
	return k.client, nil
}

func (k *KeyValueResolver) load() (interfaces.KeyValueClient, error) {
	v, err := instantiate(k.loader, k.lib)
	if err != nil {
		return nil, err
	}

	maker, ok := v.(interfaces.KeyValueMaker)
	if !ok {
		return nil, interfaces.CouldNotLoadProvider(
			fmt.Sprintf("%s: entry point returned %T, not a key-value maker", k.lib.Path, v))
	}

	client, err := guardedMake(k.lib, maker.Make)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, interfaces.CouldNotLoadProvider(k.lib.Name + ": maker returned no client")
	}
	return client, nil
}

// Close closes the client if one was created. Later calls to Client return
// ErrResolverClosed.
func (k *KeyValueResolver) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	client := k.client
	k.resolved, k.client, k.err = true, nil, ErrResolverClosed
	if client == nil {
		return nil
	}
	return client.Close()
}
