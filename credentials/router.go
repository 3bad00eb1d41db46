// Package credentials routes the environment-supplied credential blob to the
// storage provider that owns it.
package credentials

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ruteri/serverless-sdk/interfaces"
)

// Resolver returns the provider registered under an identifier.
// *provider.Registry satisfies it.
type Resolver interface {
	Resolve(id string) (interfaces.StorageProvider, error)
}

// Router turns the deployment environment into a storage client.
type Router struct {
	env      Env
	source   Source
	resolver Resolver
	log      *slog.Logger
}

func NewRouter(env Env, source Source, resolver Resolver, log *slog.Logger) *Router {
	if source == nil {
		source = EnvSource{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		env:      env,
		source:   source,
		resolver: resolver,
		log:      log,
	}
}

// Env returns the environment the router was built with.
func (r *Router) Env() Env {
	return r.env
}

// Credentials reads and parses the credential blob.
//
// The checks run in a fixed order: an incomplete environment yields
// ErrInsufficientEnvironment before the blob is read, an empty blob yields
// ErrNoCredentialsFound, and a blob that is not a JSON object yields
// ErrCorruptCredentials.
func (r *Router) Credentials(ctx context.Context) (interfaces.CredentialBlob, error) {
	if !r.env.Complete() {
		return nil, interfaces.ErrInsufficientEnvironment
	}

	raw, err := r.source.Blob(ctx)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, interfaces.ErrNoCredentialsFound
	}
	return Parse(raw)
}

// Provider resolves the provider owning the current credentials and returns
// it together with the credentials it prepared.
func (r *Router) Provider(ctx context.Context) (interfaces.StorageProvider, interfaces.CredentialBlob, error) {
	creds, err := r.Credentials(ctx)
	if err != nil {
		return nil, nil, err
	}

	id, err := ProviderID(creds)
	if err != nil {
		return nil, nil, err
	}

	p, err := r.resolver.Resolve(id)
	if err != nil {
		return nil, nil, err
	}

	prepared, err := p.PrepareCredentials(creds)
	if err != nil {
		return nil, nil, err
	}
	return p, prepared, nil
}

// Client returns a client for the web bucket when web is set, otherwise for
// the data bucket.
func (r *Router) Client(ctx context.Context, web bool) (interfaces.StorageClient, error) {
	p, creds, err := r.Provider(ctx)
	if err != nil {
		return nil, err
	}

	client, err := p.Client(ctx, r.env.Namespace, r.env.APIHost, web, creds)
	if err != nil {
		r.log.Error("Failed to create storage client",
			slog.String("provider", p.Identifier()),
			slog.Bool("web", web),
			"err", err)
		return nil, err
	}

	r.log.Debug("Created storage client",
		slog.String("provider", p.Identifier()),
		slog.String("bucket", client.BucketName()),
		slog.Bool("web", web))
	return client, nil
}

// Parse decodes a raw credential blob. Anything but a JSON object is
// reported as ErrCorruptCredentials.
func Parse(raw string) (interfaces.CredentialBlob, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, interfaces.CorruptCredentials(raw)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, interfaces.CorruptCredentials(raw)
	}
	return interfaces.CredentialBlob(obj), nil
}

// ProviderID returns the provider named by creds, defaulting to
// interfaces.DefaultStorageProvider when the field is absent or empty.
func ProviderID(creds interfaces.CredentialBlob) (string, error) {
	v, ok := creds[interfaces.ProviderKey]
	if !ok || v == nil {
		return interfaces.DefaultStorageProvider, nil
	}
	id, ok := creds.Provider()
	if !ok {
		return "", interfaces.CorruptCredentials("provider field is not a string")
	}
	if id == "" {
		return interfaces.DefaultStorageProvider, nil
	}
	return id, nil
}
