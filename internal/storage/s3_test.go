package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	pages   [][]string
	objects map[string][]byte
	listErr error
	putErr  error

	listCalls    int
	lastPrefix   string
	contentTypes map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.lastPrefix = aws.ToString(in.Prefix)
	page := f.listCalls
	f.listCalls++

	out := &s3.ListObjectsV2Output{}
	if page < len(f.pages) {
		for _, k := range f.pages[page] {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		}
	}
	if page+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String("next")
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	f.objects[key] = body
	f.contentTypes[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestS3StoreListFollowsPages(t *testing.T) {
	fake := newFakeS3()
	fake.pages = [][]string{
		{"profiling/pod-a/profile-20250102-000000.jfr"},
		{"profiling/pod-a/profile-20250102-000100.jfr", "profiling/pod-a/notes.txt"},
	}
	store := NewS3StoreWithClient(fake, "bucket")

	keys, err := store.List(context.Background(), "profiling/pod-a/")

	require.NoError(t, err)
	assert.Equal(t, 2, fake.listCalls)
	assert.Equal(t, "profiling/pod-a/", fake.lastPrefix)
	assert.ElementsMatch(t, []string{
		"profiling/pod-a/profile-20250102-000000.jfr",
		"profiling/pod-a/profile-20250102-000100.jfr",
		"profiling/pod-a/notes.txt",
	}, keys)
}

func TestS3StoreListError(t *testing.T) {
	fake := newFakeS3()
	fake.listErr = errors.New("access denied")

	_, err := NewS3StoreWithClient(fake, "bucket").List(context.Background(), "x/")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestS3StorePutGet(t *testing.T) {
	fake := newFakeS3()
	store := NewS3StoreWithClient(fake, "bucket")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "analysis/a.md", []byte("# report"), "text/markdown"))
	assert.Equal(t, "text/markdown", fake.contentTypes["analysis/a.md"])

	body, err := store.Get(ctx, "analysis/a.md")
	require.NoError(t, err)
	assert.Equal(t, "# report", string(body))

	_, err = store.Get(ctx, "analysis/missing.md")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3StorePutError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("slow down")

	err := NewS3StoreWithClient(fake, "bucket").Put(context.Background(), "k", []byte("v"), "")

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "s3://bucket/k"))
}
