// Package sdk is the entry point for function code. An SDK owns the provider
// registry, the key-value singleton and the credential router of a process;
// create one at startup and share it.
//
//	s, err := sdk.New(sdk.ConfigFromEnv(log))
//	bucket, err := s.StorageClient(ctx, false)
//	kv, err := s.KeyValueClient()
package sdk

import (
	"context"
	"log/slog"

	"github.com/ruteri/serverless-sdk/credentials"
	"github.com/ruteri/serverless-sdk/interfaces"
	"github.com/ruteri/serverless-sdk/libfetch"
	"github.com/ruteri/serverless-sdk/provider"
)

type Config struct {
	Provider provider.Config
	Env      credentials.Env

	// Source supplies the credential blob, the environment when nil.
	Source credentials.Source
	// Loader opens provider libraries, shared libraries when nil.
	Loader provider.Loader
	// Fetcher downloads libraries for EnsureLibrary, plain HTTP when nil.
	Fetcher libfetch.Fetcher

	Log *slog.Logger
}

// ConfigFromEnv reads every setting from the process environment. A Vault
// credential source is configured when NIMBELLA_SDK_VAULT_PATH is set.
func ConfigFromEnv(log *slog.Logger) (Config, error) {
	source, err := credentials.SourceFromEnv(log)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Provider: provider.ConfigFromEnv(),
		Env:      credentials.EnvFromOS(),
		Source:   source,
		Log:      log,
	}, nil
}

type SDK struct {
	registry  *provider.Registry
	kv        *provider.KeyValueResolver
	router    *credentials.Router
	installer *libfetch.Installer
	env       credentials.Env
	log       *slog.Logger
}

func New(cfg Config) *SDK {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	loader := cfg.Loader
	if loader == nil {
		loader = provider.NewPluginLoader()
	}

	registry := provider.NewRegistry(cfg.Provider, loader, log)
	return &SDK{
		registry:  registry,
		kv:        provider.NewKeyValueResolver(cfg.Provider, loader, log),
		router:    credentials.NewRouter(cfg.Env, cfg.Source, registry, log),
		installer: libfetch.NewInstaller(cfg.Provider, cfg.Fetcher, log),
		env:       cfg.Env,
		log:       log,
	}
}

// StorageClient returns a client for the web or data bucket of the
// namespace, routed to the provider named by the credentials.
func (s *SDK) StorageClient(ctx context.Context, web bool) (interfaces.StorageClient, error) {
	return s.router.Client(ctx, web)
}

// KeyValueClient returns the process-wide key-value client. The first
// outcome, client or error, is returned on every later call.
func (s *SDK) KeyValueClient() (interfaces.KeyValueClient, error) {
	return s.kv.Client()
}

// EnsureLibrary installs the named provider library where the registry looks
// for it. An empty source falls back to NIMBELLA_SDK_SOURCE and then to the
// libraries action of the namespace.
func (s *SDK) EnsureLibrary(ctx context.Context, name, source string) (string, error) {
	source, err := libfetch.ResolveSource(source, s.env.Namespace, s.env.APIHost)
	if err != nil {
		return "", err
	}
	return s.installer.Ensure(ctx, name, source)
}

// Resolve returns the storage provider registered under id.
func (s *SDK) Resolve(id string) (interfaces.StorageProvider, error) {
	return s.registry.Resolve(id)
}

// Providers lists the identifiers resolved so far.
func (s *SDK) Providers() []string {
	return s.registry.Providers()
}

func (s *SDK) Router() *credentials.Router {
	return s.router
}

// Close releases the key-value connection, if any.
func (s *SDK) Close() error {
	return s.kv.Close()
}
