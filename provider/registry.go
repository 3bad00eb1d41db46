package provider

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ruteri/serverless-sdk/interfaces"
	"github.com/ruteri/serverless-sdk/metrics"
)

// Registry resolves storage provider identifiers to provider instances,
// loading the implementing library on first use and caching the result for
// the life of the registry. Failed resolutions are not cached.
//
// The check-load-insert sequence runs under one mutex, so concurrent callers
// never load the same library twice nor observe a half-built provider.
type Registry struct {
	mu        sync.Mutex
	providers map[string]interfaces.StorageProvider
	libraries map[string]string

	cfg    Config
	loader Loader
	log    *slog.Logger
}

// NewRegistry creates an empty registry over DefaultLibraries.
func NewRegistry(cfg Config, loader Loader, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	libs := make(map[string]string, len(DefaultLibraries))
	for id, name := range DefaultLibraries {
		libs[id] = name
	}
	return &Registry{
		providers: make(map[string]interfaces.StorageProvider),
		libraries: libs,
		cfg:       cfg,
		loader:    loader,
		log:       log,
	}
}

// AddLibrary maps an additional provider identifier to a library name.
func (r *Registry) AddLibrary(id, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.libraries[id] = name
}

// Register inserts an already constructed provider under its identifier.
func (r *Registry) Register(p interfaces.StorageProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Identifier()] = p
}

// Resolve returns the provider for id.
//
// Returns ErrUnknownProvider, without attempting a load, when id has no
// library, and ErrCouldNotLoadProvider when the library cannot be loaded or
// does not honor the plugin contract.
func (r *Registry) Resolve(id string) (interfaces.StorageProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[id]; ok {
		metrics.ProviderResolutions.WithLabelValues(id, "cached").Inc()
		return p, nil
	}

	name, ok := r.libraries[id]
	if !ok {
		metrics.ProviderResolutions.WithLabelValues(id, "error").Inc()
		return nil, interfaces.UnknownProvider(id)
	}

	lib := r.cfg.LibraryFor(name)
	start := time.Now()
	p, err := r.load(lib)
	metrics.ProviderLoadDuration.WithLabelValues(lib.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderResolutions.WithLabelValues(id, "error").Inc()
		r.log.Error("Failed to load storage provider",
			slog.String("provider", id),
			slog.String("path", lib.Path),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, err
	}

	// Keyed by the provider's own identifier; the requested id is kept as an
	// alias so it never triggers a second load.
	r.providers[p.Identifier()] = p
	if id != p.Identifier() {
		r.providers[id] = p
	}

	metrics.ProviderResolutions.WithLabelValues(id, "loaded").Inc()
	r.log.Debug("Loaded storage provider",
		slog.String("provider", id),
		slog.String("identifier", p.Identifier()),
		slog.String("path", lib.Path),
		slog.Duration("duration", time.Since(start)))

	return p, nil
}

// Providers returns the identifiers currently resolved, sorted.
func (r *Registry) Providers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) load(lib Library) (interfaces.StorageProvider, error) {
	v, err := instantiate(r.loader, lib)
	if err != nil {
		return nil, err
	}

	maker, ok := v.(interfaces.ProviderMaker)
	if !ok {
		return nil, interfaces.CouldNotLoadProvider(
			fmt.Sprintf("%s: entry point returned %T, not a storage provider maker", lib.Path, v))
	}

	p, err := guardedMake(lib, maker.Make)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", interfaces.ErrCouldNotLoadProvider, lib.Name, err)
	}
	if p == nil {
		return nil, interfaces.CouldNotLoadProvider(lib.Name + ": maker returned no provider")
	}
	return p, nil
}

// instantiate loads lib and calls its entry point. A panic inside the
// library is reported as ErrCouldNotLoadProvider.
func instantiate(loader Loader, lib Library) (v any, err error) {
	if loader == nil {
		return nil, interfaces.CouldNotLoadProvider("no loader configured")
	}

	fn, err := loader.Load(lib)
	if err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			v = nil
			err = interfaces.CouldNotLoadProvider(fmt.Sprintf("%s: entry point panicked: %v", lib.Path, rec))
		}
	}()
	return fn(), nil
}

// guardedMake calls a maker obtained from lib. A panic is reported as
// ErrCouldNotLoadProvider.
func guardedMake[T any](lib Library, fn func() (T, error)) (v T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			var zero T
			v = zero
			err = interfaces.CouldNotLoadProvider(fmt.Sprintf("%s: maker panicked: %v", lib.Path, rec))
		}
	}()
	return fn()
}
