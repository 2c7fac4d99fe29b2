package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestArchive_KeyLayout(t *testing.T) {
	fake := &fakePutter{}
	archive := NewArchive(fake, "kai-archive")
	archive.now = func() time.Time { return time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC) }

	id := uuid.MustParse("8f14e45f-ceea-467f-a8d5-bd1b1a1d7c11")
	key, err := archive.Archive(context.Background(), id, []byte(`{"menus":[]}`))
	require.NoError(t, err)

	assert.Equal(t, "generations/2026/03/09/8f14e45f-ceea-467f-a8d5-bd1b1a1d7c11.json", key)
	assert.Equal(t, key, fake.key)
	assert.Equal(t, "kai-archive", fake.bucket)
	assert.Equal(t, "application/json", fake.contentType)
	assert.JSONEq(t, `{"menus":[]}`, string(fake.body))
}

func TestArchive_NilIDGetsFreshKey(t *testing.T) {
	archive := NewArchive(&fakePutter{}, "b")

	key, err := archive.Archive(context.Background(), uuid.Nil, []byte(`{}`))
	require.NoError(t, err)
	assert.NotContains(t, key, uuid.Nil.String())
}

func TestArchive_PutError(t *testing.T) {
	archive := NewArchive(&fakePutter{err: errors.New("denied")}, "b")

	_, err := archive.Archive(context.Background(), uuid.New(), []byte(`{}`))
	assert.ErrorContains(t, err, "denied")
}

func TestR2Config_Enabled(t *testing.T) {
	assert.False(t, R2Config{}.Enabled())
	assert.False(t, R2Config{Endpoint: "e", AccessKey: "a", SecretKey: "s"}.Enabled())
	assert.True(t, R2Config{Endpoint: "e", AccessKey: "a", SecretKey: "s", Bucket: "b"}.Enabled())

	_, err := NewR2Archive(context.Background(), R2Config{})
	assert.Error(t, err)
}
