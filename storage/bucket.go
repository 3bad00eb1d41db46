package storage

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/ruteri/serverless-sdk/interfaces"
)

const bucketSuffix = "nimbella-io"

// Deployment returns the first DNS label of apiHost with any scheme removed:
// "https://apigcp.nimbella.io" yields "apigcp".
func Deployment(apiHost string) string {
	host := apiHost
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	host, _, _ = strings.Cut(host, "/")
	label, _, _ := strings.Cut(host, ".")
	return label
}

// BucketName computes the bucket holding the web or data content of
// namespace: <namespace>-<deployment>-nimbella-io, prefixed with "data-" for
// data buckets.
func BucketName(apiHost, namespace string, web bool) string {
	name := fmt.Sprintf("%s-%s-%s", namespace, Deployment(apiHost), bucketSuffix)
	if web {
		return name
	}
	return "data-" + name
}

// VirtualHostURL returns http://<bucket>.<endpoint host>, or "" when endpoint
// has no host.
func VirtualHostURL(endpoint, bucket string) string {
	if endpoint == "" {
		return ""
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("http://%s.%s", bucket, u.Hostname())
}

// DecodeCredentials decodes the provider-private fields of creds into out,
// matching keys case-insensitively and ignoring unknown keys.
func DecodeCredentials(creds interfaces.CredentialBlob, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(creds)); err != nil {
		return interfaces.CorruptCredentials(err.Error())
	}
	return nil
}

// Tag returns a copy of creds with id recorded under interfaces.ProviderKey.
func Tag(creds interfaces.CredentialBlob, id string) interfaces.CredentialBlob {
	out := creds.Clone()
	out[interfaces.ProviderKey] = id
	return out
}

// ReadUpload reads the local file to upload, gzip-compressing it when asked.
func ReadUpload(path string, opts *interfaces.UploadOptions) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, interfaces.CouldNotOpenResource(path)
	}
	if opts == nil || !opts.Gzip {
		return data, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// UploadKey returns the object name an upload of path is stored under.
func UploadKey(path string, opts *interfaces.UploadOptions) string {
	if opts != nil && opts.Destination != "" {
		return opts.Destination
	}
	return path
}

// Deliver honors DownloadOptions: with a destination the content is written
// there and an empty slice is returned.
func Deliver(data []byte, opts *interfaces.DownloadOptions) ([]byte, error) {
	if opts == nil || opts.Destination == "" {
		return data, nil
	}
	if err := os.WriteFile(opts.Destination, data, 0644); err != nil {
		return nil, interfaces.CouldNotOpenResource(opts.Destination)
	}
	return []byte{}, nil
}

// SaveMetadata returns the metadata carried by opts, if any.
func SaveMetadata(opts *interfaces.SaveOptions) interfaces.SettableFileMetadata {
	if opts == nil || opts.Metadata == nil {
		return interfaces.SettableFileMetadata{}
	}
	return *opts.Metadata
}

// UploadMetadata returns the metadata carried by opts, if any.
func UploadMetadata(opts *interfaces.UploadOptions) interfaces.SettableFileMetadata {
	if opts == nil || opts.Metadata == nil {
		return interfaces.SettableFileMetadata{}
	}
	return *opts.Metadata
}

// Prefix returns the listing prefix of opts.
func Prefix(opts *interfaces.GetFilesOptions) string {
	if opts == nil {
		return ""
	}
	return opts.Prefix
}

// DeletePrefix returns the deletion prefix of opts.
func DeletePrefix(opts *interfaces.DeleteFilesOptions) string {
	if opts == nil {
		return ""
	}
	return opts.Prefix
}
