package s3fs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/salpanel/internal/pluginfs"
)

// fakeClient serves a fixed set of keys from one bucket.
type fakeClient struct {
	bucket string
	keys   map[string]int64
	fail   error
}

func (c *fakeClient) ListBuckets(ctx context.Context, in *s3.ListBucketsInput, _ ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	now := time.Now()
	return &s3.ListBucketsOutput{Buckets: []types.Bucket{{Name: aws.String(c.bucket), CreationDate: &now}}}, nil
}

func (c *fakeClient) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if c.fail != nil {
		return nil, c.fail
	}
	if aws.ToString(in.Bucket) != c.bucket {
		return nil, errors.New("NoSuchBucket")
	}
	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)
	out := &s3.ListObjectsV2Output{}
	seen := map[string]bool{}
	for key, size := range c.keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				cp := prefix + rest[:i+1]
				if !seen[cp] {
					seen[cp] = true
					out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(cp)})
				}
				continue
			}
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key), Size: aws.Int64(size)})
	}
	return out, nil
}

func newFS(t *testing.T, c *fakeClient) pluginfs.FS {
	t.Helper()
	f, err := New(c).OpenFS("s3", 0)
	require.NoError(t, err)
	return f
}

func TestChangePathAndList(t *testing.T) {
	c := &fakeClient{bucket: "data", keys: map[string]int64{
		"docs/a.txt":     3,
		"docs/img/b.png": 10,
		"top.bin":        1,
	}}
	f := newFS(t, c)

	res := f.ChangePath(context.Background(), pluginfs.ChangePathRequest{FSName: "s3", UserPart: "/data/docs", Mode: pluginfs.ModeHistory})
	require.True(t, res.OK)
	assert.False(t, res.PathWasCut)
	assert.True(t, f.IsCurrentPath(0, "/data/docs/"))

	l, _, _, err := f.ListCurrentPath(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, l.HasUpDir())
	assert.NotNil(t, l.FindDir("img"))
	idx, _ := l.Find("a.txt")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, uint64(3), l.At(idx).Size)
}

func TestChangePathShortens(t *testing.T) {
	c := &fakeClient{bucket: "data", keys: map[string]int64{"docs/a.txt": 3}}
	f := newFS(t, c)

	res := f.ChangePath(context.Background(), pluginfs.ChangePathRequest{UserPart: "/data/docs/a.txt", Mode: pluginfs.ModeUserInput})
	require.True(t, res.OK)
	assert.True(t, res.PathWasCut)
	assert.Equal(t, "a.txt", res.CutFileName)
	assert.Equal(t, "/data/docs", res.UserPart)

	res = f.ChangePath(context.Background(), pluginfs.ChangePathRequest{UserPart: "/data/nope/deeper", Mode: pluginfs.ModeHistory})
	require.True(t, res.OK)
	assert.Equal(t, "/data", res.UserPart)
	assert.Empty(t, res.CutFileName)
}

func TestListRootShowsBuckets(t *testing.T) {
	f := newFS(t, &fakeClient{bucket: "data"})
	l, _, _, err := f.ListCurrentPath(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"data"}, l.Names())
}

func TestListFailure(t *testing.T) {
	c := &fakeClient{bucket: "data", keys: map[string]int64{"a": 1}}
	f := newFS(t, c)
	require.True(t, f.ChangePath(context.Background(), pluginfs.ChangePathRequest{UserPart: "/data"}).OK)

	c.fail = errors.New("access denied")
	_, _, _, err := f.ListCurrentPath(context.Background(), false)
	assert.ErrorIs(t, err, pluginfs.ErrListFailed)
}

func TestBucketAndPrefix(t *testing.T) {
	testCases := []struct {
		in     string
		bucket string
		prefix string
	}{
		{"/", "", ""},
		{"/b", "b", ""},
		{`\b\x\y`, "b", "x/y/"},
	}
	for _, tc := range testCases {
		b, p := bucketAndPrefix(tc.in)
		assert.Equal(t, tc.bucket, b, tc.in)
		assert.Equal(t, tc.prefix, p, tc.in)
	}
}
