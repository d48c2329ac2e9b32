// Package s3fs exposes S3 buckets as the "s3:" plugin filesystem. The user
// part is "/bucket/prefix"; the root lists buckets.
package s3fs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/listing"
	"github.com/justyntemme/salpanel/internal/logging"
	"github.com/justyntemme/salpanel/internal/pluginfs"
)

// Client is the part of *s3.Client the filesystem uses.
type Client interface {
	ListBuckets(ctx context.Context, in *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config selects the endpoint and credentials.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// NewClient builds an S3 client from cfg, falling back to the default
// credential chain when no static keys are given.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	}), nil
}

// Plugin serves the "s3" fs name.
type Plugin struct {
	client Client
}

// New returns the plugin over client.
func New(client Client) *Plugin { return &Plugin{client: client} }

var _ pluginfs.Plugin = (*Plugin)(nil)

func (p *Plugin) Name() string      { return "s3fs" }
func (p *Plugin) FSNames() []string { return []string{"s3"} }

func (p *Plugin) OpenFS(fsName string, fsNameIndex int) (pluginfs.FS, error) {
	return &FS{client: p.client, cur: "/"}, nil
}

func (p *Plugin) CloseFS(pluginfs.FS) {}

func (p *Plugin) ConvertPathToInternal(fsName string, fsNameIndex int, userPart string) string {
	return cleanPath(userPart)
}

// FS is one browsing session.
type FS struct {
	client Client

	mu    sync.Mutex
	cur   string
	valid bool
}

var _ pluginfs.FS = (*FS)(nil)

func splitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
}

func cleanPath(p string) string { return "/" + strings.Join(splitPath(p), "/") }

// bucketAndPrefix splits "/bucket/a/b" into ("bucket", "a/b/").
func bucketAndPrefix(p string) (bucket, prefix string) {
	parts := splitPath(p)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) > 1 {
		prefix = strings.Join(parts[1:], "/") + "/"
	}
	return parts[0], prefix
}

// exists reports whether p is a listable directory and, if not, whether it
// names an object.
func (f *FS) exists(ctx context.Context, p string) (dir, object bool, err error) {
	bucket, prefix := bucketAndPrefix(p)
	if bucket == "" {
		return true, false, nil
	}
	out, err := f.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
		MaxKeys:   aws.Int32(1),
	})
	if err != nil {
		return false, false, err
	}
	if prefix == "" || len(out.Contents) > 0 || len(out.CommonPrefixes) > 0 {
		return true, false, nil
	}
	key := strings.TrimSuffix(prefix, "/")
	out, err = f.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(key),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, false, err
	}
	return false, len(out.Contents) > 0 && aws.ToString(out.Contents[0].Key) == key, nil
}

// ChangePath implements pluginfs.FS.
func (f *FS) ChangePath(ctx context.Context, req pluginfs.ChangePathRequest) pluginfs.ChangePathResult {
	res := pluginfs.ChangePathResult{FSName: req.FSName, FSNameIndex: req.FSNameIndex}
	parts := splitPath(req.UserPart)
	first := true
	for {
		p := "/" + strings.Join(parts, "/")
		dir, obj, err := f.exists(ctx, p)
		if err != nil {
			debug.Log(debug.PLUGIN, "s3fs: probing %s: %v", p, err)
		}
		if err == nil && dir {
			f.mu.Lock()
			f.cur, f.valid = p, true
			f.mu.Unlock()
			res.OK = true
			res.UserPart = p
			return res
		}
		if obj && first && req.Mode == pluginfs.ModeUserInput {
			res.CutFileName = parts[len(parts)-1]
		}
		if len(parts) == 0 || ctx.Err() != nil {
			return res
		}
		parts = parts[:len(parts)-1]
		res.PathWasCut = true
		first = false
	}
}

// ListCurrentPath implements pluginfs.FS.
func (f *FS) ListCurrentPath(ctx context.Context, forceUpdate bool) (*listing.Listing, pluginfs.PluginData, pluginfs.IconsType, error) {
	f.mu.Lock()
	cur := f.cur
	f.mu.Unlock()

	start := time.Now()
	l := listing.New()
	bucket, prefix := bucketAndPrefix(cur)
	if bucket == "" {
		out, err := f.client.ListBuckets(ctx, &s3.ListBucketsInput{})
		if err != nil {
			return nil, nil, pluginfs.IconsSimple, fmt.Errorf("%w: %w", pluginfs.ErrListFailed, err)
		}
		for _, b := range out.Buckets {
			e := listing.NewEntry(aws.ToString(b.Name), true)
			e.ModTime = aws.ToTime(b.CreationDate)
			l.Add(e)
		}
		return l, nil, pluginfs.IconsSimple, nil
	}

	pager := s3.NewListObjectsV2Paginator(f.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			logging.Named("s3fs").Warn("list objects failed",
				zap.String("bucket", bucket), zap.String("prefix", prefix), zap.Error(err))
			return nil, nil, pluginfs.IconsSimple, fmt.Errorf("%w: %w", pluginfs.ErrListFailed, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				l.Add(listing.NewEntry(name, true))
			}
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			e := listing.NewEntry(name, false)
			e.Size = uint64(aws.ToInt64(obj.Size))
			e.ModTime = aws.ToTime(obj.LastModified)
			l.Add(e)
		}
	}
	l.AddUpDir()
	debug.Log(debug.PLUGIN, "s3fs: listed %s in %v (%d entries)", cur, time.Since(start), l.Count())
	return l, nil, pluginfs.IconsSimple, nil
}

func (f *FS) GetCurrentPath() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cur, f.valid
}

func (f *FS) IsCurrentPath(fsNameIndex int, userPart string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.valid && f.cur == cleanPath(userPart)
}

func (f *FS) Event(pluginfs.EventKind, pluginfs.Side) {}

func (f *FS) TryCloseOrDetach(force, canDetach bool, reason pluginfs.CloseReason) (bool, bool) {
	return true, false
}

func (f *FS) ReleaseObject(pluginfs.Side) {}
