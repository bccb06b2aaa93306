package storage

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOfflineService(t *testing.T) *S3Service {
	t.Helper()
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
		BaseEndpoint: aws.String("http://localhost:9000"),
		UsePathStyle: true,
	})
	return NewS3Service(client, "avatars-bucket")
}

func TestPresignUpload(t *testing.T) {
	svc := newOfflineService(t)

	raw, err := svc.PresignUpload(context.Background(), "/avatars/u1/abc", "image/png", 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/avatars-bucket/avatars/u1/abc", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestPresignDownload(t *testing.T) {
	svc := newOfflineService(t)

	raw, err := svc.PresignDownload(context.Background(), "avatars/u1/abc", time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/avatars-bucket/avatars/u1/abc", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}

func TestPresign_RequiresKey(t *testing.T) {
	svc := newOfflineService(t)

	_, err := svc.PresignUpload(context.Background(), "", "image/png", time.Minute)
	assert.Error(t, err)
	_, err = svc.PresignDownload(context.Background(), "/", time.Minute)
	assert.Error(t, err)
	assert.Error(t, svc.DeleteObject(context.Background(), ""))
}

type fakeObjects struct {
	deleted []string
	present map[string]bool
	err     error
	headErr error
}

func (f *fakeObjects) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if !f.present[aws.ToString(in.Key)] {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestDeleteObject(t *testing.T) {
	svc := newOfflineService(t)
	objects := &fakeObjects{}
	svc.client = objects

	require.NoError(t, svc.DeleteObject(context.Background(), "avatars/u1/old"))
	assert.Equal(t, []string{"avatars-bucket/avatars/u1/old"}, objects.deleted)

	objects.err = errors.New("access denied")
	assert.ErrorContains(t, svc.DeleteObject(context.Background(), "avatars/u1/old"), "access denied")
}

func TestObjectExists(t *testing.T) {
	svc := newOfflineService(t)
	objects := &fakeObjects{present: map[string]bool{"avatars/u1/new": true}}
	svc.client = objects
	ctx := context.Background()

	ok, err := svc.ObjectExists(ctx, "/avatars/u1/new")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.ObjectExists(ctx, "avatars/u1/never-uploaded")
	require.NoError(t, err)
	assert.False(t, ok)

	objects.headErr = errors.New("access denied")
	_, err = svc.ObjectExists(ctx, "avatars/u1/new")
	assert.ErrorContains(t, err, "access denied")

	_, err = svc.ObjectExists(ctx, "")
	assert.Error(t, err)
}

func TestNewS3ServiceFromOptions_RequiresBucket(t *testing.T) {
	_, err := NewS3ServiceFromOptions(context.Background(), Options{Region: "us-east-1"})
	assert.Error(t, err)
}
