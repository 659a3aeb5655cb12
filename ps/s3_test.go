package ps

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory S3Client keyed by "bucket/key".
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)] = data
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := aws.ToString(params.Bucket) + "/" + aws.ToString(params.Prefix)
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, aws.ToString(params.Bucket)+"/"))
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

type failingS3 struct {
	*fakeS3
}

func (f *failingS3) GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return nil, errors.New("access denied")
}

func TestS3BackendKeys(t *testing.T) {
	client := newFakeS3()
	backend := NewS3BackendWithClient(t.Context(), client, "tables", "/mydb/")

	assert.Equal(t, "s3://tables/mydb/users.json", backend.Location("users.json"))

	require.NoError(t, backend.Write("users.json", []byte("{}")))
	assert.Contains(t, client.objects, "tables/mydb/users.json")

	unprefixed := NewS3BackendWithClient(t.Context(), client, "tables", "")
	assert.Equal(t, "s3://tables/users.json", unprefixed.Location("users.json"))
}

func TestS3BackendListSkipsNestedKeys(t *testing.T) {
	client := newFakeS3()
	client.objects["tables/mydb/users.json"] = []byte("{}")
	client.objects["tables/mydb/archive/old.json"] = []byte("{}")
	client.objects["tables/other/orders.json"] = []byte("{}")

	backend := NewS3BackendWithClient(t.Context(), client, "tables", "mydb")

	names, err := backend.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"users.json"}, names)
}

func TestS3BackendReadError(t *testing.T) {
	backend := NewS3BackendWithClient(t.Context(), &failingS3{fakeS3: newFakeS3()}, "tables", "")

	_, err := backend.Read("users.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "access denied")
}

func TestNewS3BackendRequiresBucket(t *testing.T) {
	_, err := NewS3Backend(t.Context(), S3Config{})
	assert.Error(t, err)
}
