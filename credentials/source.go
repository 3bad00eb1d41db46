package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/serverless-sdk/interfaces"
)

// Configuration of the optional Vault credential source. VAULT_ADDR and
// VAULT_TOKEN are picked up by the Vault client itself.
const (
	EnvVaultPath  = "NIMBELLA_SDK_VAULT_PATH"
	EnvVaultField = "NIMBELLA_SDK_VAULT_FIELD"

	DefaultVaultField = "storage_key"
)

// Source yields the raw credential blob. An empty string with a nil error
// means no credentials are configured.
type Source interface {
	Blob(ctx context.Context) (string, error)
}

// EnvSource reads the blob from __NIM_STORAGE_KEY.
type EnvSource struct{}

func (EnvSource) Blob(ctx context.Context) (string, error) {
	return os.Getenv(EnvStorageKey), nil
}

// StaticSource is a fixed blob.
type StaticSource string

func (s StaticSource) Blob(ctx context.Context) (string, error) {
	return string(s), nil
}

// VaultSource reads the blob from one field of a KV v2 secret.
type VaultSource struct {
	client *api.Client
	mount  string
	path   string
	field  string
	log    *slog.Logger
}

// NewVaultSource creates a source reading <mount>/data/<path> through client.
// secretPath has the form "<mount>/<path>", e.g. "secret/nimbella/storage".
func NewVaultSource(client *api.Client, secretPath, field string, log *slog.Logger) (*VaultSource, error) {
	secretPath = strings.Trim(secretPath, "/")
	mount, path, ok := strings.Cut(secretPath, "/")
	if !ok || mount == "" || path == "" {
		return nil, interfaces.InvalidInput(fmt.Sprintf("vault secret path %q is not of the form <mount>/<path>", secretPath))
	}
	if field == "" {
		field = DefaultVaultField
	}
	if log == nil {
		log = slog.Default()
	}
	return &VaultSource{
		client: client,
		mount:  mount,
		path:   path,
		field:  field,
		log:    log,
	}, nil
}

// Blob returns the configured field. A string value is returned as is; an
// object value is re-encoded as JSON.
func (s *VaultSource) Blob(ctx context.Context) (string, error) {
	start := time.Now()
	path := fmt.Sprintf("%s/data/%s", s.mount, s.path)

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("Failed to read credentials from Vault",
			slog.String("path", path),
			"err", err)
		return "", fmt.Errorf("%w: %v", interfaces.ErrCouldNotOpenResource, err)
	}

	if secret == nil || secret.Data == nil {
		s.log.Debug("No credentials in Vault", slog.String("path", path))
		return "", nil
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return "", interfaces.CorruptCredentials(fmt.Sprintf("vault secret %s has no data", path))
	}

	var blob string
	switch v := data[s.field].(type) {
	case nil:
		return "", nil
	case string:
		blob = v
	case map[string]any:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", interfaces.CorruptCredentials(err.Error())
		}
		blob = string(raw)
	default:
		return "", interfaces.CorruptCredentials(fmt.Sprintf("vault field %s has type %T", s.field, v))
	}

	s.log.Debug("Read credentials from Vault",
		slog.String("path", path),
		slog.String("field", s.field),
		slog.Duration("duration", time.Since(start)))
	return blob, nil
}

// SourceFromEnv returns a VaultSource when NIMBELLA_SDK_VAULT_PATH is set,
// otherwise EnvSource.
func SourceFromEnv(log *slog.Logger) (Source, error) {
	secretPath := os.Getenv(EnvVaultPath)
	if secretPath == "" {
		return EnvSource{}, nil
	}

	client, err := api.NewClient(api.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	return NewVaultSource(client, secretPath, os.Getenv(EnvVaultField), log)
}
