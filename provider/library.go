package provider

import (
	"path/filepath"

	"github.com/ruteri/serverless-sdk/interfaces"
)

// Library names of the built-in providers.
const (
	LibraryGCS   = "nimbella-gcs"
	LibraryS3    = "nimbella-s3"
	LibraryFile  = "nimbella-file"
	LibraryRedis = "nimbella-redis"
)

// DefaultLibraries maps storage provider identifiers to library names.
var DefaultLibraries = map[string]string{
	interfaces.ProviderGCS:  LibraryGCS,
	interfaces.ProviderS3:   LibraryS3,
	interfaces.ProviderFile: LibraryFile,
}

// Library is a provider library located on disk.
type Library struct {
	Name string
	Path string
}

// LibraryFor builds the location of the named library.
func (c Config) LibraryFor(name string) Library {
	return Library{
		Name: name,
		Path: filepath.Join(c.Prefix, FileName(name, c.Suffix)),
	}
}

// FileName returns the file name of a library: lib<name><suffix>.
func FileName(name, suffix string) string {
	return "lib" + name + suffix
}
