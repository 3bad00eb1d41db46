package file

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ruteri/serverless-sdk/interfaces"
	"github.com/ruteri/serverless-sdk/storage"
)

const (
	metaDir      = ".meta"
	storageClass = "LOCAL"
)

// StorageKey is the credential blob understood by this provider.
type StorageKey struct {
	Root   string `mapstructure:"root"`
	WebURL string `mapstructure:"weburl"`
}

// Provider stores buckets as directories under a local root. It is meant
// for development and tests.
type Provider struct {
	log *slog.Logger
}

func NewProvider(log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}
	return &Provider{log: log}
}

func (p *Provider) Identifier() string {
	return interfaces.ProviderFile
}

func (p *Provider) PrepareCredentials(original interfaces.CredentialBlob) (interfaces.CredentialBlob, error) {
	return storage.Tag(original, interfaces.ProviderFile), nil
}

// Client returns a client for <root>/<bucket>, creating the directory.
func (p *Provider) Client(ctx context.Context, namespace, apiHost string, web bool, creds interfaces.CredentialBlob) (interfaces.StorageClient, error) {
	var key StorageKey
	if err := storage.DecodeCredentials(creds, &key); err != nil {
		return nil, err
	}
	if key.Root == "" {
		return nil, interfaces.ErrInsufficientCredentials
	}

	bucket := storage.BucketName(apiHost, namespace, web)

	var webURL string
	if web {
		webURL = key.WebURL
		if webURL == "" {
			webURL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(key.Root, bucket))}).String()
		}
	}

	return NewClient(key.Root, bucket, webURL, p.log)
}

// Client is a handle on one bucket directory.
type Client struct {
	root   string
	bucket string
	url    string
	log    *slog.Logger

	remove func(name string) error
}

func NewClient(root, bucket, url string, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}

	c := &Client{
		root:   root,
		bucket: bucket,
		url:    url,
		log:    log,
		remove: os.Remove,
	}
	if err := os.MkdirAll(c.dir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create bucket directory: %w", err)
	}
	return c, nil
}

func (c *Client) URL() string        { return c.url }
func (c *Client) BucketName() string { return c.bucket }

func (c *Client) Native() interfaces.Native {
	return interfaces.FileNative{Path: c.dir()}
}

// Close is a no-op; the client holds no open handles between calls.
func (c *Client) Close() error { return nil }

func (c *Client) dir() string {
	return filepath.Join(c.root, c.bucket)
}

func (c *Client) websitePath() string {
	return filepath.Join(c.root, metaDir, c.bucket+".website.json")
}

// SetWebsite records the website configuration next to the bucket.
func (c *Client) SetWebsite(ctx context.Context, website interfaces.WebsiteOptions) error {
	return writeJSON(c.websitePath(), website)
}

// Website returns the configuration stored by SetWebsite.
func (c *Client) Website() (interfaces.WebsiteOptions, error) {
	var website interfaces.WebsiteOptions
	err := readJSON(c.websitePath(), &website)
	return website, err
}

// DeleteFiles removes every matching file. Failures are collected as
// ErrDeletionFailed entries.
func (c *Client) DeleteFiles(ctx context.Context, opts *interfaces.DeleteFilesOptions) ([]string, error) {
	names, err := c.list(storage.DeletePrefix(opts))
	if err != nil {
		return nil, err
	}

	deleted := []string{}
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, interfaces.DeletionFailed(fmt.Sprintf("%s: %v", name, err)))
			continue
		}
		if err := c.remove(c.objectPath(name)); err != nil {
			errs = append(errs, interfaces.DeletionFailed(fmt.Sprintf("%s: %v", name, err)))
			continue
		}
		_ = os.Remove(c.metaPath(name))
		deleted = append(deleted, name)
	}

	c.log.Debug("Deleted files",
		slog.String("bucket", c.dir()),
		slog.Int("deleted", len(deleted)),
		slog.Int("failed", len(errs)))

	return deleted, interfaces.NewMultiError(errs)
}

func (c *Client) Upload(ctx context.Context, path string, opts *interfaces.UploadOptions) error {
	data, err := storage.ReadUpload(path, opts)
	if err != nil {
		return err
	}

	meta := objectMeta{SettableFileMetadata: storage.UploadMetadata(opts)}
	if opts != nil && opts.Gzip {
		meta.ContentEncoding = "gzip"
	}

	f, err := c.file(storage.UploadKey(path, opts))
	if err != nil {
		return err
	}
	return f.write(data, meta)
}

// File returns a handle for name. Names that would escape the bucket
// directory yield a handle whose operations fail with ErrInvalidInput.
func (c *Client) File(name string) interfaces.RemoteFile {
	f, err := c.file(name)
	if err != nil {
		return &File{client: c, name: name, err: err}
	}
	return f
}

func (c *Client) file(name string) (*File, error) {
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return nil, interfaces.InvalidInput(fmt.Sprintf("object name %q leaves the bucket", name))
	}
	return &File{client: c, name: name}, nil
}

func (c *Client) Files(ctx context.Context, opts *interfaces.GetFilesOptions) ([]interfaces.RemoteFile, error) {
	names, err := c.list(storage.Prefix(opts))
	if err != nil {
		return nil, err
	}

	files := make([]interfaces.RemoteFile, 0, len(names))
	for _, name := range names {
		files = append(files, &File{client: c, name: name})
	}
	return files, nil
}

// list returns the slash-separated names of the files under the bucket that
// start with prefix, sorted.
func (c *Client) list(prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(c.dir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(c.dir(), path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.dir(), err)
	}
	sort.Strings(names)
	return names, nil
}

func (c *Client) objectPath(name string) string {
	return filepath.Join(c.dir(), filepath.FromSlash(name))
}

func (c *Client) metaPath(name string) string {
	return filepath.Join(c.root, metaDir, c.bucket, filepath.FromSlash(name)+".json")
}

type objectMeta struct {
	interfaces.SettableFileMetadata
	ContentEncoding string `json:",omitempty"`
}

// File is a handle on one file of the bucket.
type File struct {
	client *Client
	name   string
	err    error
}

func (f *File) Name() string { return f.name }

func (f *File) Native() interfaces.Native {
	return interfaces.FileNative{Path: f.client.objectPath(f.name)}
}

func (f *File) Save(ctx context.Context, data []byte, opts *interfaces.SaveOptions) error {
	if f.err != nil {
		return f.err
	}
	return f.write(data, objectMeta{SettableFileMetadata: storage.SaveMetadata(opts)})
}

func (f *File) write(data []byte, meta objectMeta) error {
	path := f.client.objectPath(f.name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := writeJSON(f.client.metaPath(f.name), meta); err != nil {
		return err
	}

	f.client.log.Debug("Stored file",
		slog.String("path", path),
		slog.Int("size", len(data)))
	return nil
}

func (f *File) SetMetadata(ctx context.Context, meta interfaces.SettableFileMetadata) error {
	if f.err != nil {
		return f.err
	}
	if _, err := os.Stat(f.client.objectPath(f.name)); err != nil {
		return fmt.Errorf("failed to set metadata of %s: %w", f.name, err)
	}

	var stored objectMeta
	if err := readJSON(f.client.metaPath(f.name), &stored); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	stored.SettableFileMetadata = meta
	return writeJSON(f.client.metaPath(f.name), stored)
}

func (f *File) GetMetadata(ctx context.Context) (interfaces.FileMetadata, error) {
	if f.err != nil {
		return interfaces.FileMetadata{}, f.err
	}

	path := f.client.objectPath(f.name)
	data, err := os.ReadFile(path)
	if err != nil {
		return interfaces.FileMetadata{}, fmt.Errorf("failed to get metadata of %s: %w", f.name, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return interfaces.FileMetadata{}, fmt.Errorf("failed to get metadata of %s: %w", f.name, err)
	}

	return interfaces.FileMetadata{
		Name:         f.name,
		StorageClass: storageClass,
		Size:         info.Size(),
		ETag:         fmt.Sprintf("%x", sha256.Sum256(data)),
		Updated:      info.ModTime(),
	}, nil
}

// Settable returns the metadata last set on the file.
func (f *File) Settable() (interfaces.SettableFileMetadata, error) {
	var stored objectMeta
	if err := readJSON(f.client.metaPath(f.name), &stored); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return interfaces.SettableFileMetadata{}, err
	}
	return stored.SettableFileMetadata, nil
}

func (f *File) Exists(ctx context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, err := os.Stat(f.client.objectPath(f.name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (f *File) Delete(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	if err := f.client.remove(f.client.objectPath(f.name)); err != nil {
		return interfaces.DeletionFailed(fmt.Sprintf("%s: %v", f.name, err))
	}
	_ = os.Remove(f.client.metaPath(f.name))
	return nil
}

func (f *File) Download(ctx context.Context, opts *interfaces.DownloadOptions) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := os.ReadFile(f.client.objectPath(f.name))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return storage.Deliver(data, opts)
}

// SignedURL returns the file:// URL of the object. Local files need no
// signature, so the options are only validated.
func (f *File) SignedURL(ctx context.Context, opts interfaces.SignedURLOptions) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	switch opts.Action {
	case "", interfaces.SignedURLRead, interfaces.SignedURLWrite, interfaces.SignedURLDelete:
	default:
		return "", interfaces.InvalidInput(fmt.Sprintf("unknown signed URL action %q", opts.Action))
	}

	abs, err := filepath.Abs(f.client.objectPath(f.name))
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
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
