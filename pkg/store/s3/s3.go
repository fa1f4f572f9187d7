// Package s3 implements a DittoFM store on Amazon S3 or an S3-compatible
// object store.
//
// Key Design:
//   - A file "content/notes.txt" is stored at <prefix>content/notes.txt
//   - A directory "content/docs" is a zero-byte marker <prefix>content/docs/
//   - Directories implied by deeper keys (created by other tools) are
//     reported as directories even without a marker
//
// The bucket therefore mirrors the tree and stays inspectable with any S3
// client.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittofm/pkg/store"
)

// deleteBatchSize is the DeleteObjects limit per request.
const deleteBatchSize = 1000

// API is the subset of *s3.Client used by the store.
type API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ API = (*s3.Client)(nil)

// S3Store implements store.Store on an S3 bucket.
//
// Thread Safety:
// Safe for concurrent use. S3 offers no multi-object transactions, so
// concurrent writers to the same path are last-write-wins and a Mkdir racing
// a Write on the same name may leave both a file and a directory marker.
type S3Store struct {
	client    API
	bucket    string
	keyPrefix string
}

// Config configures an S3Store.
type Config struct {
	// Client is the configured S3 client.
	Client API

	// Bucket is the bucket name. The bucket must already exist.
	Bucket string

	// KeyPrefix is prepended to every key, e.g. "dittofm/" stores the tree
	// under that folder. A trailing slash is added when missing.
	KeyPrefix string
}

// NewS3Store creates the store and verifies bucket access.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	prefix := strings.Trim(cfg.KeyPrefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: prefix,
	}, nil
}

func (s *S3Store) fileKey(p string) string {
	return s.keyPrefix + p
}

// dirPrefix is the key prefix shared by everything below directory p. For
// directories other than the root it is also the marker key.
func (s *S3Store) dirPrefix(p string) string {
	if p == "" {
		return s.keyPrefix
	}
	return s.keyPrefix + p + "/"
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}

func clean(op, p string) (string, error) {
	cleaned, err := store.CleanPath(p)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return cleaned, nil
}

// stat resolves p to a file (HEAD hit) or a directory (any key under its
// prefix).
func (s *S3Store) stat(ctx context.Context, p string) (store.EntryInfo, error) {
	if p == "" {
		return store.EntryInfo{Type: store.EntryTypeDirectory}, nil
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fileKey(p)),
	})
	if err == nil {
		info := store.EntryInfo{Name: store.Base(p), Type: store.EntryTypeFile}
		if head.ContentLength != nil {
			info.Size = *head.ContentLength
		}
		if head.LastModified != nil {
			info.ModTime = *head.LastModified
		}
		return info, nil
	}
	if !isNotFound(err) {
		return store.EntryInfo{}, err
	}

	found, err := s.anyUnder(ctx, s.dirPrefix(p), "")
	if err != nil {
		return store.EntryInfo{}, err
	}
	if found {
		return store.EntryInfo{Name: store.Base(p), Type: store.EntryTypeDirectory}, nil
	}

	if parent := store.Parent(p); parent != "" {
		if info, perr := s.stat(ctx, parent); perr == nil && !info.IsDir() {
			return store.EntryInfo{}, store.ErrNotDirectory
		}
	}
	return store.EntryInfo{}, store.ErrNotFound
}

// anyUnder reports whether at least one key other than skip starts with
// prefix.
func (s *S3Store) anyUnder(ctx context.Context, prefix, skip string) (bool, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(2),
	})
	if err != nil {
		return false, err
	}
	for _, obj := range out.Contents {
		if aws.ToString(obj.Key) != skip {
			return true, nil
		}
	}
	return false, nil
}

func (s *S3Store) requireParentDir(ctx context.Context, p string) error {
	info, err := s.stat(ctx, store.Parent(p))
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return store.ErrNotDirectory
	}
	return nil
}

func (s *S3Store) Stat(ctx context.Context, p string) (store.EntryInfo, error) {
	if err := ctx.Err(); err != nil {
		return store.EntryInfo{}, err
	}
	p, err := clean("stat", p)
	if err != nil {
		return store.EntryInfo{}, err
	}

	info, err := s.stat(ctx, p)
	if err != nil {
		return store.EntryInfo{}, fmt.Errorf("stat %q: %w", p, err)
	}
	return info, nil
}

func (s *S3Store) List(ctx context.Context, p string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := clean("list", p)
	if err != nil {
		return nil, err
	}

	info, err := s.stat(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", p, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("list %q: %w", p, store.ErrNotDirectory)
	}

	prefix := s.dirPrefix(p)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	seen := make(map[string]struct{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", p, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name != "" {
				seen[name] = struct{}{}
			}
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				seen[name] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *S3Store) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := clean("open", p)
	if err != nil {
		return nil, err
	}
	if p == "" {
		return nil, fmt.Errorf("open %q: %w", p, store.ErrIsDirectory)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fileKey(p)),
	})
	if err == nil {
		return out.Body, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("open %q: %w", p, err)
	}

	info, serr := s.stat(ctx, p)
	if serr != nil {
		return nil, fmt.Errorf("open %q: %w", p, serr)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open %q: %w", p, store.ErrIsDirectory)
	}
	return nil, fmt.Errorf("open %q: %w", p, store.ErrNotFound)
}

// Write buffers r in memory before uploading, since PutObject needs a
// seekable body to sign the payload.
func (s *S3Store) Write(ctx context.Context, p string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p, err := clean("write", p)
	if err != nil {
		return 0, err
	}
	if p == "" {
		return 0, fmt.Errorf("write %q: %w", p, store.ErrIsDirectory)
	}

	if err := s.requireParentDir(ctx, p); err != nil {
		return 0, fmt.Errorf("write %q: %w", p, err)
	}
	if info, err := s.stat(ctx, p); err == nil && info.IsDir() {
		return 0, fmt.Errorf("write %q: %w", p, store.ErrIsDirectory)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("write %q: %w", p, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.fileKey(p)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return 0, fmt.Errorf("write %q: %w", p, err)
	}
	return int64(len(data)), nil
}

func (s *S3Store) Mkdir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := clean("mkdir", p)
	if err != nil {
		return err
	}
	if p == "" {
		return fmt.Errorf("mkdir %q: %w", p, store.ErrExists)
	}

	if err := s.requireParentDir(ctx, p); err != nil {
		return fmt.Errorf("mkdir %q: %w", p, err)
	}
	if _, err := s.stat(ctx, p); err == nil {
		return fmt.Errorf("mkdir %q: %w", p, store.ErrExists)
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("mkdir %q: %w", p, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.dirPrefix(p)),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return fmt.Errorf("mkdir %q: %w", p, err)
	}
	return nil
}

func (s *S3Store) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := clean("remove", p)
	if err != nil {
		return err
	}
	if p == "" {
		return fmt.Errorf("remove %q: %w", p, store.ErrInvalidPath)
	}

	info, err := s.stat(ctx, p)
	if err != nil {
		return fmt.Errorf("remove %q: %w", p, err)
	}

	key := s.fileKey(p)
	if info.IsDir() {
		key = s.dirPrefix(p)
		nonEmpty, err := s.anyUnder(ctx, key, key)
		if err != nil {
			return fmt.Errorf("remove %q: %w", p, err)
		}
		if nonEmpty {
			return fmt.Errorf("remove %q: %w", p, store.ErrNotEmpty)
		}
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("remove %q: %w", p, err)
	}
	return nil
}

func (s *S3Store) RemoveAll(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := clean("remove", p)
	if err != nil {
		return err
	}
	if p == "" {
		return fmt.Errorf("remove %q: %w", p, store.ErrInvalidPath)
	}

	info, err := s.stat(ctx, p)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrNotDirectory) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove %q: %w", p, err)
	}

	if !info.IsDir() {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.fileKey(p)),
		})
		if err != nil {
			return fmt.Errorf("remove %q: %w", p, err)
		}
		return nil
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.dirPrefix(p)),
	})

	var batch []types.ObjectIdentifier
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("remove %q: %w", p, err)
		}
		for _, obj := range page.Contents {
			batch = append(batch, types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == deleteBatchSize {
				if err := s.deleteBatch(ctx, batch); err != nil {
					return fmt.Errorf("remove %q: %w", p, err)
				}
				batch = batch[:0]
			}
		}
	}

	if len(batch) > 0 {
		if err := s.deleteBatch(ctx, batch); err != nil {
			return fmt.Errorf("remove %q: %w", p, err)
		}
	}
	return nil
}

func (s *S3Store) deleteBatch(ctx context.Context, objects []types.ObjectIdentifier) error {
	result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		first := result.Errors[0]
		return fmt.Errorf("failed to delete %d objects, first %s: %s",
			len(result.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
	}
	return nil
}

// Close is a no-op; the S3 client holds no resources that need releasing.
func (s *S3Store) Close() error {
	return nil
}

var _ store.Store = (*S3Store)(nil)
