package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gstorage "cloud.google.com/go/storage"
	"github.com/ruteri/serverless-sdk/interfaces"
	"github.com/ruteri/serverless-sdk/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const publicURLBase = "https://storage.googleapis.com"

// ServiceAccountKey holds the fields of a service-account key this provider
// reads. The full blob is handed to the client library unchanged.
type ServiceAccountKey struct {
	ClientEmail string `mapstructure:"client_email"`
	PrivateKey  string `mapstructure:"private_key"`
	ProjectID   string `mapstructure:"project_id"`
	WebURL      string `mapstructure:"weburl"`
}

type clientFactory func(ctx context.Context, keyJSON []byte) (*gstorage.Client, error)

func newStorageClient(ctx context.Context, keyJSON []byte) (*gstorage.Client, error) {
	return gstorage.NewClient(ctx, option.WithCredentialsJSON(keyJSON))
}

// Provider builds Google Cloud Storage clients. It is the default provider,
// so its credentials are stored untagged.
type Provider struct {
	log       *slog.Logger
	newClient clientFactory
}

func NewProvider(log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}
	return &Provider{log: log, newClient: newStorageClient}
}

func (p *Provider) Identifier() string {
	return interfaces.ProviderGCS
}

// PrepareCredentials returns the blob untouched.
func (p *Provider) PrepareCredentials(original interfaces.CredentialBlob) (interfaces.CredentialBlob, error) {
	return original, nil
}

// Client returns a client for the web or data bucket of namespace.
func (p *Provider) Client(ctx context.Context, namespace, apiHost string, web bool, creds interfaces.CredentialBlob) (interfaces.StorageClient, error) {
	var key ServiceAccountKey
	if err := storage.DecodeCredentials(creds, &key); err != nil {
		return nil, err
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, interfaces.ErrInsufficientCredentials
	}

	bucket := storage.BucketName(apiHost, namespace, web)

	var webURL string
	if web {
		webURL = key.WebURL
		if webURL == "" {
			webURL = fmt.Sprintf("%s/%s", publicURLBase, bucket)
		}
	}

	keyJSON, err := json.Marshal(serviceAccountJSON(creds))
	if err != nil {
		return nil, interfaces.CorruptCredentials(err.Error())
	}

	client, err := p.newClient(ctx, keyJSON)
	if err != nil {
		p.log.Error("Failed to create GCS client",
			slog.String("bucket", bucket),
			"err", err)
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	p.log.Debug("Created GCS client",
		slog.String("bucket", bucket),
		slog.String("project", key.ProjectID))

	return NewClient(client, bucket, webURL, key, p.log), nil
}

// serviceAccountJSON strips the keys that are not part of a service-account
// key file.
func serviceAccountJSON(creds interfaces.CredentialBlob) map[string]any {
	out := make(map[string]any, len(creds))
	for k, v := range creds {
		switch k {
		case interfaces.ProviderKey, "weburl":
			continue
		}
		out[k] = v
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "service_account"
	}
	return out
}

// Client is a handle on one bucket.
type Client struct {
	client *gstorage.Client
	bucket *gstorage.BucketHandle
	name   string
	url    string
	key    ServiceAccountKey
	log    *slog.Logger
}

// NewClient wraps client for bucket. key supplies the signing identity for
// signed URLs. A non-empty url marks a web bucket.
func NewClient(client *gstorage.Client, bucket, url string, key ServiceAccountKey, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
		url:    url,
		key:    key,
		log:    log,
	}
}

func (c *Client) URL() string        { return c.url }
func (c *Client) BucketName() string { return c.name }

func (c *Client) Native() interfaces.Native {
	return interfaces.GCSNative{Client: c.client, Bucket: c.bucket}
}

// Close closes the underlying storage client.
func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		c.log.Warn("Failed to close GCS client", slog.String("bucket", c.name), "err", err)
		return err
	}
	return nil
}

func (c *Client) SetWebsite(ctx context.Context, website interfaces.WebsiteOptions) error {
	_, err := c.bucket.Update(ctx, gstorage.BucketAttrsToUpdate{
		Website: &gstorage.BucketWebsite{
			MainPageSuffix: website.MainPageSuffix,
			NotFoundPage:   website.NotFoundPage,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to configure website of %s: %w", c.name, err)
	}
	return nil
}

// DeleteFiles deletes every matching object one by one, collecting failures
// as ErrDeletionFailed entries.
func (c *Client) DeleteFiles(ctx context.Context, opts *interfaces.DeleteFilesOptions) ([]string, error) {
	start := time.Now()

	names, err := c.list(ctx, storage.DeletePrefix(opts))
	if err != nil {
		return nil, err
	}

	deleted := []string{}
	var errs []error
	for _, name := range names {
		if err := c.bucket.Object(name).Delete(ctx); err != nil {
			errs = append(errs, interfaces.DeletionFailed(fmt.Sprintf("%s: %v", name, err)))
			continue
		}
		deleted = append(deleted, name)
	}

	c.log.Debug("Deleted files from GCS",
		slog.String("bucket", c.name),
		slog.Int("deleted", len(deleted)),
		slog.Int("failed", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return deleted, interfaces.NewMultiError(errs)
}

func (c *Client) Upload(ctx context.Context, path string, opts *interfaces.UploadOptions) error {
	data, err := storage.ReadUpload(path, opts)
	if err != nil {
		return err
	}

	w := c.writer(ctx, storage.UploadKey(path, opts), storage.UploadMetadata(opts))
	if opts != nil && opts.Gzip {
		w.ContentEncoding = "gzip"
	}
	if err := write(w, data); err != nil {
		return fmt.Errorf("failed to upload %s to GCS: %w", path, err)
	}
	return nil
}

func (c *Client) File(name string) interfaces.RemoteFile {
	return &File{client: c, object: c.bucket.Object(name), name: name}
}

func (c *Client) Files(ctx context.Context, opts *interfaces.GetFilesOptions) ([]interfaces.RemoteFile, error) {
	names, err := c.list(ctx, storage.Prefix(opts))
	if err != nil {
		return nil, err
	}

	files := make([]interfaces.RemoteFile, 0, len(names))
	for _, name := range names {
		files = append(files, c.File(name))
	}
	return files, nil
}

func (c *Client) list(ctx context.Context, prefix string) ([]string, error) {
	query := &gstorage.Query{Prefix: prefix}
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, err
	}

	var names []string
	it := c.bucket.Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			c.log.Error("Failed to list GCS objects",
				slog.String("bucket", c.name),
				slog.String("prefix", prefix),
				"err", err)
			return nil, fmt.Errorf("failed to list objects in %s: %w", c.name, err)
		}
		names = append(names, attrs.Name)
	}
}

func (c *Client) writer(ctx context.Context, name string, meta interfaces.SettableFileMetadata) *gstorage.Writer {
	w := c.bucket.Object(name).NewWriter(ctx)
	w.ContentType = meta.ContentType
	w.CacheControl = meta.CacheControl
	if c.url != "" {
		w.PredefinedACL = "publicRead"
	}
	return w
}

func write(w *gstorage.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// File is a handle on one object.
type File struct {
	client *Client
	object *gstorage.ObjectHandle
	name   string
}

func (f *File) Name() string { return f.name }

func (f *File) Native() interfaces.Native {
	return interfaces.GCSNative{Client: f.client.client, Bucket: f.client.bucket, Object: f.object}
}

func (f *File) Save(ctx context.Context, data []byte, opts *interfaces.SaveOptions) error {
	w := f.client.writer(ctx, f.name, storage.SaveMetadata(opts))
	if err := write(w, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", f.name, err)
	}
	return nil
}

func (f *File) SetMetadata(ctx context.Context, meta interfaces.SettableFileMetadata) error {
	var update gstorage.ObjectAttrsToUpdate
	if meta.ContentType != "" {
		update.ContentType = meta.ContentType
	}
	if meta.CacheControl != "" {
		update.CacheControl = meta.CacheControl
	}
	if _, err := f.object.Update(ctx, update); err != nil {
		return fmt.Errorf("failed to set metadata of %s: %w", f.name, err)
	}
	return nil
}

func (f *File) GetMetadata(ctx context.Context) (interfaces.FileMetadata, error) {
	attrs, err := f.object.Attrs(ctx)
	if err != nil {
		return interfaces.FileMetadata{}, fmt.Errorf("failed to get metadata of %s: %w", f.name, err)
	}
	return interfaces.FileMetadata{
		Name:         attrs.Name,
		StorageClass: attrs.StorageClass,
		Size:         attrs.Size,
		ETag:         attrs.Etag,
		Updated:      attrs.Updated,
	}, nil
}

func (f *File) Exists(ctx context.Context) (bool, error) {
	_, err := f.object.Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gstorage.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check %s: %w", f.name, err)
}

func (f *File) Delete(ctx context.Context) error {
	if err := f.object.Delete(ctx); err != nil {
		return interfaces.DeletionFailed(fmt.Sprintf("%s: %v", f.name, err))
	}
	return nil
}

func (f *File) Download(ctx context.Context, opts *interfaces.DownloadOptions) ([]byte, error) {
	r, err := f.object.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", f.name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return storage.Deliver(data, opts)
}

// SignedURL signs with the service-account key of the client. Both v2 and
// v4 signatures are supported; v4 is the default.
func (f *File) SignedURL(ctx context.Context, opts interfaces.SignedURLOptions) (string, error) {
	return signURL(f.client.name, f.name, f.client.key, opts)
}

func signURL(bucket, object string, key ServiceAccountKey, opts interfaces.SignedURLOptions) (string, error) {
	if !opts.Expires.After(time.Now()) {
		return "", interfaces.InvalidInput("signed URL expiry is in the past")
	}

	var scheme gstorage.SigningScheme
	switch opts.Version {
	case interfaces.SignedURLV4, "":
		scheme = gstorage.SigningSchemeV4
	case interfaces.SignedURLV2:
		scheme = gstorage.SigningSchemeV2
	default:
		return "", interfaces.InvalidInput(fmt.Sprintf("unknown signing version %q", opts.Version))
	}

	var method string
	switch opts.Action {
	case interfaces.SignedURLRead, "":
		method = http.MethodGet
	case interfaces.SignedURLWrite:
		method = http.MethodPut
	case interfaces.SignedURLDelete:
		method = http.MethodDelete
	default:
		return "", interfaces.InvalidInput(fmt.Sprintf("unknown signed URL action %q", opts.Action))
	}

	signed, err := gstorage.SignedURL(bucket, object, &gstorage.SignedURLOptions{
		GoogleAccessID: key.ClientEmail,
		PrivateKey:     []byte(key.PrivateKey),
		Method:         method,
		Expires:        opts.Expires,
		ContentType:    opts.ContentType,
		Scheme:         scheme,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign URL for %s: %w", object, err)
	}
	return signed, nil
}

// Maker is returned by LoadProvider.
type Maker struct{}

func (Maker) Make() (interfaces.StorageProvider, error) {
	return NewProvider(slog.Default()), nil
}

// LoadProvider is the library entry point.
func LoadProvider() any {
	return Maker{}
}
