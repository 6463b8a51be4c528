package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menusemanal/internal/config"
)

type fakeBucket struct {
	objects map[string]string
	types   map[string]string
	err     error
}

func (f *fakeBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = string(body)
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestArchive(t *testing.T) {
	bucket := &fakeBucket{objects: map[string]string{}, types: map[string]string{}}
	client := newR2Client(bucket, "menus", "https://cdn.example.com/")

	url, err := client.Archive(context.Background(), "menus/2024-06-03/a.xlsx", strings.NewReader("data"), "text/csv")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/menus/2024-06-03/a.xlsx", url)
	assert.Equal(t, "data", bucket.objects["menus/menus/2024-06-03/a.xlsx"])
	assert.Equal(t, "text/csv", bucket.types["menus/menus/2024-06-03/a.xlsx"])
}

func TestArchiveWithoutPublicURL(t *testing.T) {
	bucket := &fakeBucket{objects: map[string]string{}, types: map[string]string{}}
	client := newR2Client(bucket, "b", "")

	url, err := client.Archive(context.Background(), "k.pdf", strings.NewReader("x"), "")
	require.NoError(t, err)
	assert.Equal(t, "r2://b/k.pdf", url)
}

func TestArchiveError(t *testing.T) {
	client := newR2Client(&fakeBucket{err: errors.New("denied")}, "b", "")

	_, err := client.Archive(context.Background(), "k.pdf", strings.NewReader("x"), "")
	assert.ErrorContains(t, err, "denied")
}

func TestNewR2ClientRequiresConfig(t *testing.T) {
	_, err := NewR2Client(context.Background(), config.R2Config{})
	assert.Error(t, err)
}
