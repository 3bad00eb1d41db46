// Package storage holds what the object storage providers share: bucket
// naming, credential decoding and the handling of upload and download
// options.
//
// The providers themselves live in subpackages:
//
//   - storage/gcs: Google Cloud Storage, the default provider
//   - storage/s3: Amazon S3 and S3-compatible services
//   - storage/file: buckets as directories under a local root, for development
//
// Each subpackage exports LoadProvider, the entry point the provider registry
// looks up in a provider library.
//
// # Bucket Naming
//
// Every namespace owns two buckets derived from the API host of its
// deployment:
//
//	<namespace>-<deployment>-nimbella-io        web content, publicly readable
//	data-<namespace>-<deployment>-nimbella-io   private data
//
// where <deployment> is the first DNS label of the API host, e.g. "apigcp"
// for https://apigcp.nimbella.io.
//
// # Credentials
//
// Providers decode the fields they need from the credential blob with
// DecodeCredentials. Providers other than the default record their
// identifier in the blob with Tag.
package storage
