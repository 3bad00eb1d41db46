package s3

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/serverless-sdk/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testHost      = "https://apigcp.nimbella.io"
	testNamespace = "acme"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validKey() interfaces.CredentialBlob {
	return interfaces.CredentialBlob{
		"provider": interfaces.ProviderS3,
		"credentials": map[string]any{
			"accessKeyId":     "AKIA",
			"secretAccessKey": "secret",
		},
		"region":   "eu-west-1",
		"endpoint": "https://s3.eu-west-1.amazonaws.com",
	}
}

func TestProvider_Client(t *testing.T) {
	ctx := context.Background()
	p := NewProvider(testLogger())

	tests := []struct {
		name       string
		creds      func() interfaces.CredentialBlob
		web        bool
		wantBucket string
		wantURL    string
		wantErr    error
	}{
		{
			name:       "data bucket",
			creds:      validKey,
			wantBucket: "data-acme-apigcp-nimbella-io",
		},
		{
			name:       "web bucket from endpoint",
			creds:      validKey,
			web:        true,
			wantBucket: "acme-apigcp-nimbella-io",
			wantURL:    "http://acme-apigcp-nimbella-io.s3.eu-west-1.amazonaws.com",
		},
		{
			name: "web bucket with explicit url",
			creds: func() interfaces.CredentialBlob {
				c := validKey()
				c["weburl"] = "https://acme.nimbella.site"
				return c
			},
			web:        true,
			wantBucket: "acme-apigcp-nimbella-io",
			wantURL:    "https://acme.nimbella.site",
		},
		{
			name: "web bucket without endpoint",
			creds: func() interfaces.CredentialBlob {
				c := validKey()
				delete(c, "endpoint")
				return c
			},
			web:     true,
			wantErr: interfaces.ErrNoValidURL,
		},
		{
			name: "missing secret",
			creds: func() interfaces.CredentialBlob {
				return interfaces.CredentialBlob{"credentials": map[string]any{"accessKeyId": "AKIA"}}
			},
			wantErr: interfaces.ErrInsufficientCredentials,
		},
		{
			name: "no credentials at all",
			creds: func() interfaces.CredentialBlob {
				return interfaces.CredentialBlob{}
			},
			wantErr: interfaces.ErrInsufficientCredentials,
		},
		{
			name: "credentials of wrong shape",
			creds: func() interfaces.CredentialBlob {
				return interfaces.CredentialBlob{"credentials": "AKIA:secret"}
			},
			wantErr: interfaces.ErrCorruptCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := p.Client(ctx, testNamespace, testHost, tt.web, tt.creds())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, client.BucketName())
			assert.Equal(t, tt.wantURL, client.URL())

			native, ok := client.Native().(interfaces.S3Native)
			require.True(t, ok)
			assert.Equal(t, tt.wantBucket, native.Bucket)
			assert.Empty(t, native.Key)
		})
	}
}

func TestProvider_PrepareCredentials(t *testing.T) {
	p := NewProvider(testLogger())
	original := interfaces.CredentialBlob{"region": "us-east-2"}

	prepared, err := p.PrepareCredentials(original)
	require.NoError(t, err)

	id, ok := prepared.Provider()
	assert.True(t, ok)
	assert.Equal(t, interfaces.ProviderS3, id)
	assert.Equal(t, "us-east-2", prepared["region"])
	assert.NotContains(t, original, interfaces.ProviderKey)
	assert.Equal(t, interfaces.ProviderS3, p.Identifier())
}

func TestClient_DeleteFiles_PartialFailure(t *testing.T) {
	ctx := context.Background()
	api := new(MockS3API)
	client := NewClient(api, "data-acme-apigcp-nimbella-io", "", testLogger())

	api.On("ListObjectsV2WithContext", ctx, mock.MatchedBy(func(in *awss3.ListObjectsV2Input) bool {
		return aws.StringValue(in.Prefix) == "tmp/"
	})).Return(&awss3.ListObjectsV2Output{
		Contents: []*awss3.Object{
			{Key: aws.String("tmp/a")},
			{Key: aws.String("tmp/b")},
			{Key: aws.String("tmp/c")},
			{Key: aws.String("tmp/d")},
		},
	}, nil).Once()

	api.On("DeleteObjectsWithContext", ctx, mock.MatchedBy(func(in *awss3.DeleteObjectsInput) bool {
		return len(in.Delete.Objects) == 4
	})).Return(&awss3.DeleteObjectsOutput{
		Deleted: []*awss3.DeletedObject{
			{Key: aws.String("tmp/a")},
			{Key: aws.String("tmp/c")},
		},
		Errors: []*awss3.Error{
			{Key: aws.String("tmp/b"), Message: aws.String("Access Denied")},
			{Key: aws.String("tmp/d")},
		},
	}, nil).Once()

	deleted, err := client.DeleteFiles(ctx, &interfaces.DeleteFilesOptions{Prefix: "tmp/"})
	assert.Equal(t, []string{"tmp/a", "tmp/c"}, deleted)
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrMultiple)
	assert.ErrorIs(t, err, interfaces.ErrDeletionFailed)

	var multi *interfaces.MultiError
	require.True(t, errors.As(err, &multi))
	assert.Len(t, multi.Errs, 2)
	assert.Contains(t, multi.Errs[0].Error(), "Access Denied")
	assert.Contains(t, multi.Errs[1].Error(), "unknown reason")

	api.AssertExpectations(t)
}

func TestClient_DeleteFiles_AllSucceed(t *testing.T) {
	ctx := context.Background()
	api := new(MockS3API)
	client := NewClient(api, "bucket", "", testLogger())

	api.On("ListObjectsV2WithContext", ctx, mock.Anything).Return(&awss3.ListObjectsV2Output{
		Contents: []*awss3.Object{{Key: aws.String("a")}},
	}, nil).Once()
	api.On("DeleteObjectsWithContext", ctx, mock.Anything).Return(&awss3.DeleteObjectsOutput{
		Deleted: []*awss3.DeletedObject{{Key: aws.String("a")}},
	}, nil).Once()

	deleted, err := client.DeleteFiles(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, deleted)
}

func TestClient_DeleteFiles_Empty(t *testing.T) {
	ctx := context.Background()
	api := new(MockS3API)
	client := NewClient(api, "bucket", "", testLogger())

	api.On("ListObjectsV2WithContext", ctx, mock.Anything).Return(&awss3.ListObjectsV2Output{}, nil).Once()

	deleted, err := client.DeleteFiles(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, deleted)
	api.AssertNotCalled(t, "DeleteObjectsWithContext", mock.Anything, mock.Anything)
}

func TestClient_Files_Paginates(t *testing.T) {
	ctx := context.Background()
	api := new(MockS3API)
	client := NewClient(api, "bucket", "", testLogger())

	api.On("ListObjectsV2WithContext", ctx, mock.MatchedBy(func(in *awss3.ListObjectsV2Input) bool {
		return in.ContinuationToken == nil
	})).Return(&awss3.ListObjectsV2Output{
		Contents:              []*awss3.Object{{Key: aws.String("one")}},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("page-2"),
	}, nil).Once()
	api.On("ListObjectsV2WithContext", ctx, mock.MatchedBy(func(in *awss3.ListObjectsV2Input) bool {
		return aws.StringValue(in.ContinuationToken) == "page-2"
	})).Return(&awss3.ListObjectsV2Output{
		Contents: []*awss3.Object{{Key: aws.String("two")}},
	}, nil).Once()

	files, err := client.Files(ctx, nil)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "one", files[0].Name())
	assert.Equal(t, "two", files[1].Name())
}

func TestClient_Upload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte("<html></html>"), 0644))

	t.Run("web bucket", func(t *testing.T) {
		api := new(MockS3API)
		client := NewClient(api, "acme-apigcp-nimbella-io", "https://acme.nimbella.site", testLogger())

		api.On("PutObjectWithContext", ctx, mock.MatchedBy(func(in *awss3.PutObjectInput) bool {
			body, _ := io.ReadAll(in.Body)
			_, _ = in.Body.Seek(0, io.SeekStart)
			return aws.StringValue(in.Key) == "site/index.html" &&
				aws.StringValue(in.ACL) == "public-read" &&
				aws.StringValue(in.ContentType) == "text/html" &&
				in.ContentEncoding == nil &&
				string(body) == "<html></html>"
		})).Return(&awss3.PutObjectOutput{}, nil).Once()

		err := client.Upload(ctx, path, &interfaces.UploadOptions{
			Destination: "site/index.html",
			Metadata:    &interfaces.SettableFileMetadata{ContentType: "text/html"},
		})
		require.NoError(t, err)
		api.AssertExpectations(t)
	})

	t.Run("data bucket gzip", func(t *testing.T) {
		api := new(MockS3API)
		client := NewClient(api, "data-acme-apigcp-nimbella-io", "", testLogger())

		api.On("PutObjectWithContext", ctx, mock.MatchedBy(func(in *awss3.PutObjectInput) bool {
			return aws.StringValue(in.Key) == path &&
				in.ACL == nil &&
				aws.StringValue(in.ContentEncoding) == "gzip"
		})).Return(&awss3.PutObjectOutput{}, nil).Once()

		require.NoError(t, client.Upload(ctx, path, &interfaces.UploadOptions{Gzip: true}))
		api.AssertExpectations(t)
	})

	t.Run("missing local file", func(t *testing.T) {
		client := NewClient(new(MockS3API), "bucket", "", testLogger())
		err := client.Upload(ctx, filepath.Join(t.TempDir(), "nope"), nil)
		assert.ErrorIs(t, err, interfaces.ErrCouldNotOpenResource)
	})
}

func TestFile_SetMetadata(t *testing.T) {
	ctx := context.Background()
	api := new(MockS3API)
	client := NewClient(api, "acme-apigcp-nimbella-io", "https://acme.nimbella.site", testLogger())

	api.On("CopyObjectWithContext", ctx, mock.MatchedBy(func(in *awss3.CopyObjectInput) bool {
		return aws.StringValue(in.CopySource) == "acme-apigcp-nimbella-io/img/a%20b.png" &&
			aws.StringValue(in.MetadataDirective) == "REPLACE" &&
			aws.StringValue(in.CacheControl) == "no-cache" &&
			aws.StringValue(in.ACL) == "public-read"
	})).Return(&awss3.CopyObjectOutput{}, nil).Once()

	err := client.File("img/a b.png").SetMetadata(ctx, interfaces.SettableFileMetadata{CacheControl: "no-cache"})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestFile_GetMetadataAndExists(t *testing.T) {
	ctx := context.Background()
	updated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	api := new(MockS3API)
	client := NewClient(api, "bucket", "", testLogger())

	api.On("HeadObjectWithContext", ctx, mock.MatchedBy(func(in *awss3.HeadObjectInput) bool {
		return aws.StringValue(in.Key) == "present"
	})).Return(&awss3.HeadObjectOutput{
		ContentLength: aws.Int64(42),
		ETag:          aws.String(`"abc"`),
		StorageClass:  aws.String("STANDARD"),
		LastModified:  aws.Time(updated),
	}, nil)
	api.On("HeadObjectWithContext", ctx, mock.MatchedBy(func(in *awss3.HeadObjectInput) bool {
		return aws.StringValue(in.Key) == "absent"
	})).Return(nil, awserr.NewRequestFailure(awserr.New("NotFound", "Not Found", nil), http.StatusNotFound, "req"))
	api.On("HeadObjectWithContext", ctx, mock.MatchedBy(func(in *awss3.HeadObjectInput) bool {
		return aws.StringValue(in.Key) == "forbidden"
	})).Return(nil, awserr.NewRequestFailure(awserr.New("Forbidden", "Forbidden", nil), http.StatusForbidden, "req"))

	meta, err := client.File("present").GetMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, interfaces.FileMetadata{
		Name:         "present",
		StorageClass: "STANDARD",
		Size:         42,
		ETag:         `"abc"`,
		Updated:      updated,
	}, meta)

	ok, err := client.File("present").Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.File("absent").Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = client.File("forbidden").Exists(ctx)
	assert.Error(t, err)
}

func TestFile_Download(t *testing.T) {
	ctx := context.Background()
	api := new(MockS3API)
	client := NewClient(api, "bucket", "", testLogger())

	api.On("GetObjectWithContext", ctx, mock.Anything).Return(func() *awss3.GetObjectOutput {
		return &awss3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("payload"))}
	}(), nil).Once()
	api.On("GetObjectWithContext", ctx, mock.Anything).Return(func() *awss3.GetObjectOutput {
		return &awss3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("payload"))}
	}(), nil).Once()

	data, err := client.File("k").Download(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	dest := filepath.Join(t.TempDir(), "out")
	data, err = client.File("k").Download(ctx, &interfaces.DownloadOptions{Destination: dest})
	require.NoError(t, err)
	assert.Empty(t, data)

	written, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(written))
}

func TestFile_Delete(t *testing.T) {
	ctx := context.Background()
	api := new(MockS3API)
	client := NewClient(api, "bucket", "", testLogger())

	api.On("DeleteObjectWithContext", ctx, mock.Anything).Return(nil, errors.New("throttled")).Once()

	err := client.File("k").Delete(ctx)
	assert.ErrorIs(t, err, interfaces.ErrDeletionFailed)
}

func TestFile_SignedURL(t *testing.T) {
	ctx := context.Background()
	api, err := NewAPI(StorageKey{
		Credentials: Credentials{AccessKeyID: "AKIA", SecretAccessKey: "secret"},
		Region:      "us-east-2",
	})
	require.NoError(t, err)
	file := NewClient(api, "data-acme-apigcp-nimbella-io", "", testLogger()).File("report.csv")

	expires := time.Now().Add(15 * time.Minute)

	signed, err := file.SignedURL(ctx, interfaces.SignedURLOptions{
		Version: interfaces.SignedURLV4,
		Action:  interfaces.SignedURLRead,
		Expires: expires,
	})
	require.NoError(t, err)
	assert.Contains(t, signed, "report.csv")
	assert.Contains(t, signed, "X-Amz-Signature=")
	assert.Contains(t, signed, "X-Amz-Expires=")

	_, err = file.SignedURL(ctx, interfaces.SignedURLOptions{Version: interfaces.SignedURLV2, Expires: expires})
	assert.ErrorIs(t, err, interfaces.ErrInvalidInput)

	_, err = file.SignedURL(ctx, interfaces.SignedURLOptions{Expires: time.Now().Add(-time.Minute)})
	assert.ErrorIs(t, err, interfaces.ErrInvalidInput)

	_, err = file.SignedURL(ctx, interfaces.SignedURLOptions{Action: "copy", Expires: expires})
	assert.ErrorIs(t, err, interfaces.ErrInvalidInput)
}

func TestLoadProvider(t *testing.T) {
	maker, ok := LoadProvider().(interfaces.ProviderMaker)
	require.True(t, ok)

	p, err := maker.Make()
	require.NoError(t, err)
	assert.Equal(t, interfaces.ProviderS3, p.Identifier())
}
