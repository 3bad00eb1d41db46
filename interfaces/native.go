package interfaces

import (
	gcs "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/redis/go-redis/v9"
)

// Backend tags the variant of a Native handle.
type Backend string

const (
	BackendS3    Backend = "s3"
	BackendGCS   Backend = "gcs"
	BackendFile  Backend = "file"
	BackendRedis Backend = "redis"
)

// Native is the escape hatch to the handle a provider wraps. It is a closed
// union: callers type-switch on the concrete variants below.
type Native interface {
	Backend() Backend
	native()
}

// S3Native is returned by S3 clients and files.
type S3Native struct {
	Client s3iface.S3API
	Bucket string
	// Key is empty for client handles.
	Key string
}

// GCSNative is returned by GCS clients and files.
type GCSNative struct {
	Client *gcs.Client
	Bucket *gcs.BucketHandle
	// Object is nil for client handles.
	Object *gcs.ObjectHandle
}

// FileNative is returned by the local filesystem provider.
type FileNative struct {
	// Path is the bucket directory, or the object path for files.
	Path string
}

// RedisNative is returned by the Redis key-value client.
type RedisNative struct {
	Client redis.UniversalClient
}

func (S3Native) Backend() Backend    { return BackendS3 }
func (GCSNative) Backend() Backend   { return BackendGCS }
func (FileNative) Backend() Backend  { return BackendFile }
func (RedisNative) Backend() Backend { return BackendRedis }

func (S3Native) native()    {}
func (GCSNative) native()   {}
func (FileNative) native()  {}
func (RedisNative) native() {}
