package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutAndDelete(t *testing.T) {
	root := t.TempDir()
	st, err := NewLocalStore(root)
	require.NoError(t, err)

	ref, err := st.Put(context.Background(), "tickets/ABC.png", []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/tickets/ABC.png", ref)

	b, err := os.ReadFile(filepath.Join(root, "tickets", "ABC.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(b))

	entries, err := os.ReadDir(filepath.Join(root, "tickets"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")

	require.NoError(t, st.Delete(context.Background(), ref))
	_, err = os.Stat(filepath.Join(root, "tickets", "ABC.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, st.Delete(context.Background(), ref), "deleting a missing artifact is not an error")
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	st, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../escape.png", "uploads/../../x"} {
		_, err := st.Put(context.Background(), key, []byte("x"), "")
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
	assert.ErrorIs(t, st.Delete(context.Background(), "/../../x"), ErrInvalidKey)
}

func TestLocalStore_HonoursCancelledContext(t *testing.T) {
	st, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = st.Put(ctx, "uploads/a.png", []byte("x"), "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "design.png", SanitizeFilename("design.png"))
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "my_design.png", SanitizeFilename(`C:\Users\me\my design.png`))
	assert.Equal(t, "file", SanitizeFilename(""))
}

type fakeS3 struct {
	s3iface.S3API
	puts    map[string][]byte
	deleted []string
	failPut bool
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if f.failPut {
		return nil, errors.New("access denied")
	}
	b, _ := io.ReadAll(in.Body)
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[aws.StringValue(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_PutAndDelete(t *testing.T) {
	fake := &fakeS3{}
	st := NewS3StoreWithClient(fake, "bucket", "https://cdn.example.com/")

	ref, err := st.Put(context.Background(), "uploads/d.png", []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/uploads/d.png", ref)
	assert.Equal(t, []byte("img"), fake.puts["uploads/d.png"])

	require.NoError(t, st.Delete(context.Background(), ref))
	assert.Equal(t, []string{"uploads/d.png"}, fake.deleted)
}

func TestS3Store_PutFailure(t *testing.T) {
	st := NewS3StoreWithClient(&fakeS3{failPut: true}, "bucket", "https://cdn.example.com")
	_, err := st.Put(context.Background(), "tickets/a.png", []byte("x"), "image/png")
	assert.ErrorContains(t, err, "access denied")
}
