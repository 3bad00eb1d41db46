// Package builtin links every provider into the binary. Its Loader stands in
// for shared libraries in statically linked builds and in tests.
package builtin

import (
	"github.com/ruteri/serverless-sdk/keyvalue/redis"
	"github.com/ruteri/serverless-sdk/provider"
	"github.com/ruteri/serverless-sdk/storage/file"
	"github.com/ruteri/serverless-sdk/storage/gcs"
	"github.com/ruteri/serverless-sdk/storage/s3"
)

// Loader returns a loader serving the entry points of all providers.
func Loader() provider.StaticLoader {
	return provider.StaticLoader{
		provider.LibraryGCS:   gcs.LoadProvider,
		provider.LibraryS3:    s3.LoadProvider,
		provider.LibraryFile:  file.LoadProvider,
		provider.LibraryRedis: redis.LoadProvider,
	}
}
