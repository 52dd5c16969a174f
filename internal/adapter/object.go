package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/util"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/MKhiriev/go-note-sync/internal/config"
	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/models"
)

// objectClient is the subset of the minio client the object driver uses.
// GetObject returns an io.ReadCloser so tests can fake it.
type objectClient interface {
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
	CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error)
}

type minioClient struct {
	*minio.Client
}

func (c minioClient) GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return c.Client.GetObject(ctx, bucket, key, opts)
}

// objectDriver implements [Driver] over an S3-compatible bucket. Directories
// do not exist as such: Mkdir is a no-op and List groups keys by "/".
type objectDriver struct {
	client objectClient
	bucket string
	prefix string

	logger *logger.Logger
}

// NewObjectDriver constructs an S3-compatible implementation of [Driver].
// cfg.URL is the endpoint ("host:port"), cfg.Path an optional key prefix,
// cfg.Username and cfg.Password the access and secret keys.
func NewObjectDriver(cfg config.ClientTarget, logger *logger.Logger) (Driver, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.URL, "https://"), "http://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Username, cfg.Password, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating s3 client: %w", err)
	}

	return newObjectDriver(minioClient{Client: client}, cfg.Bucket, cfg.Path, logger), nil
}

func newObjectDriver(client objectClient, bucket, prefix string, logger *logger.Logger) *objectDriver {
	prefix = cleanPath(prefix)
	if prefix != "" {
		prefix += "/"
	}
	return &objectDriver{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

func (o *objectDriver) key(p string) string {
	return o.prefix + cleanPath(p)
}

func (o *objectDriver) Stat(ctx context.Context, p string) (*models.ItemStat, error) {
	p = cleanPath(p)

	info, err := o.client.StatObject(ctx, o.bucket, o.key(p), minio.StatObjectOptions{})
	if err != nil {
		if err = translateError(err); isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}

	return &models.ItemStat{Path: p, UpdatedTime: info.LastModified.UnixMilli()}, nil
}

func (o *objectDriver) List(ctx context.Context, p string) (models.ListResult, error) {
	p = cleanPath(p)
	listPrefix := o.key(p)
	if p != "" {
		listPrefix += "/"
	}

	result := models.ListResult{}
	for info := range o.client.ListObjects(ctx, o.bucket, minio.ListObjectsOptions{Prefix: listPrefix}) {
		if info.Err != nil {
			return models.ListResult{}, fmt.Errorf("list %s: %w", p, translateError(info.Err))
		}

		rel := strings.TrimPrefix(info.Key, o.prefix)
		isDir := strings.HasSuffix(rel, "/")
		rel = strings.TrimSuffix(rel, "/")
		if rel == "" || rel == p {
			continue
		}

		result.Items = append(result.Items, models.ItemStat{
			Path:        rel,
			UpdatedTime: info.LastModified.UnixMilli(),
			IsDir:       isDir,
		})
	}

	sort.Slice(result.Items, func(i, j int) bool { return result.Items[i].Path < result.Items[j].Path })
	return result, nil
}

func (o *objectDriver) Get(ctx context.Context, p string, opts GetOptions) ([]byte, error) {
	p = cleanPath(p)

	obj, err := o.client.GetObject(ctx, o.bucket, o.key(p), minio.GetObjectOptions{})
	if err != nil {
		if err = translateError(err); isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", p, err)
	}
	defer obj.Close()

	// minio resolves the object lazily: a missing key surfaces on read.
	content, err := io.ReadAll(obj)
	if err != nil {
		if err = translateError(err); isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}

	if opts.Target == TargetFile {
		if err := util.WriteFile(localFS(opts.LocalFS), opts.LocalPath, content, 0o600); err != nil {
			return nil, fmt.Errorf("get %s to %s: %w", p, opts.LocalPath, err)
		}
		return []byte{}, nil
	}
	return content, nil
}

func (o *objectDriver) Put(ctx context.Context, p string, content []byte, opts PutOptions) error {
	p = cleanPath(p)
	if p == "" {
		return fmt.Errorf("put: %w", ErrInvalidPath)
	}

	if opts.Source == SourceFile {
		data, err := util.ReadFile(localFS(opts.LocalFS), opts.LocalPath)
		if err != nil {
			return fmt.Errorf("put %s from %s: %w", p, opts.LocalPath, err)
		}
		content = data
	}

	_, err := o.client.PutObject(ctx, o.bucket, o.key(p), bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("put %s: %w", p, translateError(err))
	}
	return nil
}

// Delete removes the object at p and every object below p/.
func (o *objectDriver) Delete(ctx context.Context, p string) error {
	p = cleanPath(p)
	if p == "" {
		return fmt.Errorf("delete: %w", ErrInvalidPath)
	}

	if err := o.remove(ctx, o.key(p)); err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return o.removeUnder(ctx, o.key(p)+"/")
}

func (o *objectDriver) Mkdir(ctx context.Context, p string) error {
	return nil
}

// Move copies oldPath to newPath server-side, then removes oldPath.
func (o *objectDriver) Move(ctx context.Context, oldPath, newPath string) error {
	oldPath, newPath = cleanPath(oldPath), cleanPath(newPath)

	_, err := o.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: o.bucket, Object: o.key(newPath)},
		minio.CopySrcOptions{Bucket: o.bucket, Object: o.key(oldPath)},
	)
	if err != nil {
		return fmt.Errorf("move %s to %s: %w", oldPath, newPath, translateError(err))
	}

	if err := o.remove(ctx, o.key(oldPath)); err != nil {
		return fmt.Errorf("move %s: %w", oldPath, err)
	}
	return nil
}

func (o *objectDriver) ClearRoot(ctx context.Context, p string) error {
	p = cleanPath(p)
	under := o.key(p)
	if p != "" {
		under += "/"
	}
	return o.removeUnder(ctx, under)
}

func (o *objectDriver) remove(ctx context.Context, key string) error {
	err := o.client.RemoveObject(ctx, o.bucket, key, minio.RemoveObjectOptions{})
	if err = translateError(err); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (o *objectDriver) removeUnder(ctx context.Context, prefix string) error {
	var keys []string
	for info := range o.client.ListObjects(ctx, o.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return fmt.Errorf("list %s: %w", prefix, translateError(info.Err))
		}
		keys = append(keys, info.Key)
	}

	for _, key := range keys {
		if err := o.remove(ctx, key); err != nil {
			return fmt.Errorf("remove %s: %w", path.Base(key), err)
		}
	}
	return nil
}

// translateError maps minio errors onto the driver sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrTransient) {
		return err
	}

	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey", resp.Code == "NotFound":
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case resp.Code == "AccessDenied", resp.Code == "InvalidAccessKeyId", resp.Code == "SignatureDoesNotMatch",
		resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case resp.Code == "SlowDown", resp.Code == "RequestTimeout", resp.Code == "InternalError", resp.Code == "ServiceUnavailable",
		resp.StatusCode >= http.StatusInternalServerError, resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrTransient, err)
	case resp.Code == "" && resp.StatusCode == 0:
		// Not an S3 error response: the request never completed.
		return fmt.Errorf("%w: %w", ErrTransient, err)
	default:
		return err
	}
}
