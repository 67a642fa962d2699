package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects   map[string][]byte
	modified  map[string]time.Time
	putType   map[string]string
	deleteErr map[string]error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:   map[string][]byte{},
		modified:  map[string]time.Time{},
		putType:   map[string]string{},
		deleteErr: map[string]error{},
	}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	f.objects[key] = data
	f.putType[key] = aws.ToString(in.ContentType)
	if _, ok := f.modified[key]; !ok {
		f.modified[key] = time.Now()
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(in.Key)
	if err := f.deleteErr[key]; err != nil {
		return nil, err
	}
	delete(f.objects, key)
	delete(f.modified, key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for key := range f.objects {
		if !strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			LastModified: aws.Time(f.modified[key]),
		})
	}
	return out, nil
}

func TestS3MediaHostUploadAndDelete(t *testing.T) {
	client := newFakeS3()
	host := NewS3MediaHost(client, "media", "https://cdn.example.org/media/")
	ctx := context.Background()

	hosted, err := host.Upload(ctx, []byte("png"), "image/png", ".png", "image")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hosted.ExternalID, "evidence/image/"))
	assert.True(t, strings.HasSuffix(hosted.ExternalID, ".png"))
	assert.Equal(t, "https://cdn.example.org/media/"+hosted.ExternalID, hosted.URL)
	assert.Equal(t, "image", hosted.Kind)
	assert.Equal(t, "image/png", client.putType[hosted.ExternalID])

	require.NoError(t, host.Delete(ctx, hosted.ExternalID, hosted.Kind))
	assert.Empty(t, client.objects)

	client.deleteErr["evidence/raw/x.pdf"] = errors.New("access denied")
	err = host.Delete(ctx, "evidence/raw/x.pdf", "raw")
	assert.ErrorContains(t, err, "access denied")
}
