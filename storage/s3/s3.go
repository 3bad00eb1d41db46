package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/ruteri/serverless-sdk/interfaces"
	"github.com/ruteri/serverless-sdk/storage"
)

const (
	defaultRegion = "us-east-1"
	aclPublicRead = "public-read"

	// DeleteObjects accepts at most this many keys per request.
	maxDeleteBatch = 1000
)

// Credentials are the static keys of the storage key.
type Credentials struct {
	AccessKeyID     string `mapstructure:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
}

// StorageKey is the credential blob understood by this provider.
type StorageKey struct {
	Credentials Credentials `mapstructure:"credentials"`
	Region      string      `mapstructure:"region"`
	Endpoint    string      `mapstructure:"endpoint"`
	WebURL      string      `mapstructure:"weburl"`
}

// Provider builds clients for S3 and S3-compatible services.
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
	return interfaces.ProviderS3
}

// PrepareCredentials stores the blob as is, tagged with the provider.
func (p *Provider) PrepareCredentials(original interfaces.CredentialBlob) (interfaces.CredentialBlob, error) {
	return storage.Tag(original, interfaces.ProviderS3), nil
}

// Client returns a client for the web or data bucket of namespace.
func (p *Provider) Client(ctx context.Context, namespace, apiHost string, web bool, creds interfaces.CredentialBlob) (interfaces.StorageClient, error) {
	var key StorageKey
	if err := storage.DecodeCredentials(creds, &key); err != nil {
		return nil, err
	}
	if key.Credentials.AccessKeyID == "" || key.Credentials.SecretAccessKey == "" {
		return nil, interfaces.ErrInsufficientCredentials
	}

	bucket := storage.BucketName(apiHost, namespace, web)

	var webURL string
	if web {
		webURL = key.WebURL
		if webURL == "" {
			webURL = storage.VirtualHostURL(key.Endpoint, bucket)
		}
		if webURL == "" {
			return nil, interfaces.ErrNoValidURL
		}
	}

	api, err := NewAPI(key)
	if err != nil {
		return nil, err
	}

	p.log.Debug("Created S3 client",
		slog.String("bucket", bucket),
		slog.String("region", aws.StringValue(api.Config.Region)),
		slog.String("endpoint", key.Endpoint))

	return NewClient(api, bucket, webURL, p.log), nil
}

// NewAPI creates an S3 service client from key.
func NewAPI(key StorageKey) (*awss3.S3, error) {
	region := key.Region
	if region == "" {
		region = defaultRegion
	}

	cfg := aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewStaticCredentials(key.Credentials.AccessKeyID, key.Credentials.SecretAccessKey, ""),
	}
	if key.Endpoint != "" {
		cfg.Endpoint = aws.String(key.Endpoint)
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return awss3.New(sess), nil
}

// Client is a handle on one bucket.
type Client struct {
	api    s3iface.S3API
	bucket string
	url    string
	log    *slog.Logger
}

// NewClient wraps api for bucket. A non-empty url marks a web bucket, whose
// objects are written with a public-read ACL.
func NewClient(api s3iface.S3API, bucket, url string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		api:    api,
		bucket: bucket,
		url:    url,
		log:    log,
	}
}

func (c *Client) URL() string        { return c.url }
func (c *Client) BucketName() string { return c.bucket }

func (c *Client) Native() interfaces.Native {
	return interfaces.S3Native{Client: c.api, Bucket: c.bucket}
}

// Close is a no-op. The AWS session shares its HTTP transport process-wide.
func (c *Client) Close() error { return nil }

// SetWebsite configures the index and error documents of the bucket.
func (c *Client) SetWebsite(ctx context.Context, website interfaces.WebsiteOptions) error {
	cfg := &awss3.WebsiteConfiguration{}
	if website.MainPageSuffix != "" {
		cfg.IndexDocument = &awss3.IndexDocument{Suffix: aws.String(website.MainPageSuffix)}
	}
	if website.NotFoundPage != "" {
		cfg.ErrorDocument = &awss3.ErrorDocument{Key: aws.String(website.NotFoundPage)}
	}

	_, err := c.api.PutBucketWebsiteWithContext(ctx, &awss3.PutBucketWebsiteInput{
		Bucket:               aws.String(c.bucket),
		WebsiteConfiguration: cfg,
	})
	if err != nil {
		return fmt.Errorf("failed to configure website of %s: %w", c.bucket, err)
	}
	return nil
}

// DeleteFiles lists the matching keys and removes them with multi-object
// deletes. Per-key failures are collected as ErrDeletionFailed entries.
func (c *Client) DeleteFiles(ctx context.Context, opts *interfaces.DeleteFilesOptions) ([]string, error) {
	start := time.Now()

	keys, err := c.list(ctx, storage.DeletePrefix(opts))
	if err != nil {
		return nil, err
	}

	deleted := []string{}
	var errs []error
	for i := 0; i < len(keys); i += maxDeleteBatch {
		batch := keys[i:min(i+maxDeleteBatch, len(keys))]

		objects := make([]*awss3.ObjectIdentifier, 0, len(batch))
		for _, key := range batch {
			objects = append(objects, &awss3.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := c.api.DeleteObjectsWithContext(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &awss3.Delete{Objects: objects},
		})
		if err != nil {
			for _, key := range batch {
				errs = append(errs, interfaces.DeletionFailed(fmt.Sprintf("%s: %v", key, err)))
			}
			continue
		}

		for _, d := range out.Deleted {
			deleted = append(deleted, aws.StringValue(d.Key))
		}
		for _, e := range out.Errors {
			reason := aws.StringValue(e.Message)
			if reason == "" {
				reason = "unknown reason"
			}
			errs = append(errs, interfaces.DeletionFailed(fmt.Sprintf("%s: %s", aws.StringValue(e.Key), reason)))
		}
	}

	c.log.Debug("Deleted files from S3",
		slog.String("bucket", c.bucket),
		slog.Int("deleted", len(deleted)),
		slog.Int("failed", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return deleted, interfaces.NewMultiError(errs)
}

// Upload copies the local file at path into the bucket.
func (c *Client) Upload(ctx context.Context, path string, opts *interfaces.UploadOptions) error {
	data, err := storage.ReadUpload(path, opts)
	if err != nil {
		return err
	}

	in := c.putInput(storage.UploadKey(path, opts), data, storage.UploadMetadata(opts))
	if opts != nil && opts.Gzip {
		in.ContentEncoding = aws.String("gzip")
	}

	if _, err := c.api.PutObjectWithContext(ctx, in); err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", path, err)
	}
	return nil
}

func (c *Client) File(name string) interfaces.RemoteFile {
	return &File{client: c, name: name}
}

// Files lists the objects of the bucket.
func (c *Client) Files(ctx context.Context, opts *interfaces.GetFilesOptions) ([]interfaces.RemoteFile, error) {
	keys, err := c.list(ctx, storage.Prefix(opts))
	if err != nil {
		return nil, err
	}

	files := make([]interfaces.RemoteFile, 0, len(keys))
	for _, key := range keys {
		files = append(files, c.File(key))
	}
	return files, nil
}

func (c *Client) list(ctx context.Context, prefix string) ([]string, error) {
	in := &awss3.ListObjectsV2Input{Bucket: aws.String(c.bucket)}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}

	var keys []string
	for {
		out, err := c.api.ListObjectsV2WithContext(ctx, in)
		if err != nil {
			c.log.Error("Failed to list S3 objects",
				slog.String("bucket", c.bucket),
				slog.String("prefix", prefix),
				"err", err)
			return nil, fmt.Errorf("failed to list objects in %s: %w", c.bucket, err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		if !aws.BoolValue(out.IsTruncated) || out.NextContinuationToken == nil {
			return keys, nil
		}
		in.ContinuationToken = out.NextContinuationToken
	}
}

func (c *Client) web() bool {
	return c.url != ""
}

func (c *Client) putInput(key string, data []byte, meta interfaces.SettableFileMetadata) *awss3.PutObjectInput {
	in := &awss3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if c.web() {
		in.ACL = aws.String(aclPublicRead)
	}
	if meta.ContentType != "" {
		in.ContentType = aws.String(meta.ContentType)
	}
	if meta.CacheControl != "" {
		in.CacheControl = aws.String(meta.CacheControl)
	}
	return in
}

// File is a handle on one object.
type File struct {
	client *Client
	name   string
}

func (f *File) Name() string { return f.name }

func (f *File) Native() interfaces.Native {
	return interfaces.S3Native{Client: f.client.api, Bucket: f.client.bucket, Key: f.name}
}

func (f *File) Save(ctx context.Context, data []byte, opts *interfaces.SaveOptions) error {
	in := f.client.putInput(f.name, data, storage.SaveMetadata(opts))
	if _, err := f.client.api.PutObjectWithContext(ctx, in); err != nil {
		return fmt.Errorf("failed to save %s: %w", f.name, err)
	}
	return nil
}

// SetMetadata copies the object onto itself with the REPLACE directive.
func (f *File) SetMetadata(ctx context.Context, meta interfaces.SettableFileMetadata) error {
	in := &awss3.CopyObjectInput{
		Bucket:            aws.String(f.client.bucket),
		Key:               aws.String(f.name),
		CopySource:        aws.String(f.client.bucket + "/" + (&url.URL{Path: f.name}).EscapedPath()),
		MetadataDirective: aws.String(awss3.MetadataDirectiveReplace),
	}
	if f.client.web() {
		in.ACL = aws.String(aclPublicRead)
	}
	if meta.ContentType != "" {
		in.ContentType = aws.String(meta.ContentType)
	}
	if meta.CacheControl != "" {
		in.CacheControl = aws.String(meta.CacheControl)
	}

	if _, err := f.client.api.CopyObjectWithContext(ctx, in); err != nil {
		return fmt.Errorf("failed to set metadata of %s: %w", f.name, err)
	}
	return nil
}

func (f *File) GetMetadata(ctx context.Context) (interfaces.FileMetadata, error) {
	out, err := f.client.api.HeadObjectWithContext(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(f.client.bucket),
		Key:    aws.String(f.name),
	})
	if err != nil {
		return interfaces.FileMetadata{}, fmt.Errorf("failed to get metadata of %s: %w", f.name, err)
	}

	return interfaces.FileMetadata{
		Name:         f.name,
		StorageClass: aws.StringValue(out.StorageClass),
		Size:         aws.Int64Value(out.ContentLength),
		ETag:         aws.StringValue(out.ETag),
		Updated:      aws.TimeValue(out.LastModified),
	}, nil
}

func (f *File) Exists(ctx context.Context) (bool, error) {
	_, err := f.client.api.HeadObjectWithContext(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(f.client.bucket),
		Key:    aws.String(f.name),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check %s: %w", f.name, err)
}

func (f *File) Delete(ctx context.Context) error {
	_, err := f.client.api.DeleteObjectWithContext(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(f.client.bucket),
		Key:    aws.String(f.name),
	})
	if err != nil {
		return interfaces.DeletionFailed(fmt.Sprintf("%s: %v", f.name, err))
	}
	return nil
}

func (f *File) Download(ctx context.Context, opts *interfaces.DownloadOptions) ([]byte, error) {
	out, err := f.client.api.GetObjectWithContext(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(f.client.bucket),
		Key:    aws.String(f.name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", f.name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return storage.Deliver(data, opts)
}

// SignedURL presigns a request for the object. Only v4 signatures are
// supported; an empty version means v4.
func (f *File) SignedURL(ctx context.Context, opts interfaces.SignedURLOptions) (string, error) {
	if opts.Version != "" && opts.Version != interfaces.SignedURLV4 {
		return "", interfaces.InvalidInput("signing version v4 is required for s3")
	}
	expires := time.Until(opts.Expires)
	if expires <= 0 {
		return "", interfaces.InvalidInput("signed URL expiry is in the past")
	}

	bucket, key := aws.String(f.client.bucket), aws.String(f.name)

	var req *request.Request
	switch opts.Action {
	case interfaces.SignedURLRead, "":
		req, _ = f.client.api.GetObjectRequest(&awss3.GetObjectInput{Bucket: bucket, Key: key})
	case interfaces.SignedURLWrite:
		in := &awss3.PutObjectInput{Bucket: bucket, Key: key}
		if opts.ContentType != "" {
			in.ContentType = aws.String(opts.ContentType)
		}
		req, _ = f.client.api.PutObjectRequest(in)
	case interfaces.SignedURLDelete:
		req, _ = f.client.api.DeleteObjectRequest(&awss3.DeleteObjectInput{Bucket: bucket, Key: key})
	default:
		return "", interfaces.InvalidInput(fmt.Sprintf("unknown signed URL action %q", opts.Action))
	}
	req.SetContext(ctx)

	signed, err := req.Presign(expires)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", f.name, err)
	}
	return signed, nil
}

func isNotFound(err error) bool {
	var rf awserr.RequestFailure
	if errors.As(err, &rf) && rf.StatusCode() == http.StatusNotFound {
		return true
	}
	var ae awserr.Error
	if errors.As(err, &ae) {
		switch ae.Code() {
		case awss3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
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
