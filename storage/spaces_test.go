package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBucket struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryBucket) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(params.Bucket) + "/" + aws.ToString(params.Key)
	m.objects[key] = data
	m.types[key] = aws.ToString(params.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (m *memoryBucket) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, fmt.Errorf("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestSpacesRoundTrip(t *testing.T) {
	bucket := newMemoryBucket()
	client := &SpacesClient{client: bucket, bucket: "archive"}
	ctx := context.Background()

	require.NoError(t, client.SaveTranscript(ctx, TranscriptRecord{
		VideoID: "dQw4w9WgXcQ",
		URL:     "https://youtu.be/dQw4w9WgXcQ",
		Text:    "[00:00:12] intro",
		Source:  "captions",
	}))

	assert.Contains(t, bucket.objects, "archive/transcripts/dQw4w9WgXcQ.json")
	assert.Equal(t, "application/json", bucket.types["archive/transcripts/dQw4w9WgXcQ.json"])

	got, err := client.GetTranscript(ctx, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "[00:00:12] intro", got.Text)
	assert.Equal(t, "captions", got.Source)
	assert.False(t, got.Timestamp.IsZero())
}

func TestSpacesMissingObject(t *testing.T) {
	client := &SpacesClient{client: newMemoryBucket(), bucket: "archive"}
	_, err := client.GetTranscript(context.Background(), "missing0000")
	assert.Error(t, err)
}

func TestNewSpacesClient(t *testing.T) {
	client, err := NewSpacesClient(context.Background(), SpacesConfig{
		AccessKey: "key",
		SecretKey: "secret",
		Region:    "nyc3",
		Endpoint:  "https://nyc3.digitaloceanspaces.com",
		Bucket:    "archive",
	})
	require.NoError(t, err)
	assert.Equal(t, "archive", client.bucket)
}
