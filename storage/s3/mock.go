package s3

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/mock"
)

// MockS3API mocks the subset of s3iface.S3API used by Client. Calling any
// other method panics.
type MockS3API struct {
	s3iface.S3API
	mock.Mock
}

// ListObjectsV2WithContext mocks the ListObjectsV2WithContext method
func (m *MockS3API) ListObjectsV2WithContext(ctx aws.Context, in *awss3.ListObjectsV2Input, _ ...request.Option) (*awss3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awss3.ListObjectsV2Output), args.Error(1)
}

// DeleteObjectsWithContext mocks the DeleteObjectsWithContext method
func (m *MockS3API) DeleteObjectsWithContext(ctx aws.Context, in *awss3.DeleteObjectsInput, _ ...request.Option) (*awss3.DeleteObjectsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awss3.DeleteObjectsOutput), args.Error(1)
}

// DeleteObjectWithContext mocks the DeleteObjectWithContext method
func (m *MockS3API) DeleteObjectWithContext(ctx aws.Context, in *awss3.DeleteObjectInput, _ ...request.Option) (*awss3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awss3.DeleteObjectOutput), args.Error(1)
}

// PutObjectWithContext mocks the PutObjectWithContext method
func (m *MockS3API) PutObjectWithContext(ctx aws.Context, in *awss3.PutObjectInput, _ ...request.Option) (*awss3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awss3.PutObjectOutput), args.Error(1)
}

// GetObjectWithContext mocks the GetObjectWithContext method
func (m *MockS3API) GetObjectWithContext(ctx aws.Context, in *awss3.GetObjectInput, _ ...request.Option) (*awss3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awss3.GetObjectOutput), args.Error(1)
}

// HeadObjectWithContext mocks the HeadObjectWithContext method
func (m *MockS3API) HeadObjectWithContext(ctx aws.Context, in *awss3.HeadObjectInput, _ ...request.Option) (*awss3.HeadObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awss3.HeadObjectOutput), args.Error(1)
}

// CopyObjectWithContext mocks the CopyObjectWithContext method
func (m *MockS3API) CopyObjectWithContext(ctx aws.Context, in *awss3.CopyObjectInput, _ ...request.Option) (*awss3.CopyObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awss3.CopyObjectOutput), args.Error(1)
}

// PutBucketWebsiteWithContext mocks the PutBucketWebsiteWithContext method
func (m *MockS3API) PutBucketWebsiteWithContext(ctx aws.Context, in *awss3.PutBucketWebsiteInput, _ ...request.Option) (*awss3.PutBucketWebsiteOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awss3.PutBucketWebsiteOutput), args.Error(1)
}
