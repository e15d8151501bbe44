package source

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"memorylens/internal/model"
)

// BucketConfig describes an S3-compatible object store.
type BucketConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// Region skips the bucket location lookup when set.
	Region    string
	Bucket    string
}

// Bucket lists objects in a MinIO/S3 bucket as upload candidates.
type Bucket struct {
	client *minio.Client
	bucket string
}

func NewBucket(cfg BucketConfig) (*Bucket, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	log.Printf("object source initialized endpoint=%s bucket=%s", cfg.Endpoint, cfg.Bucket)
	return &Bucket{client: client, bucket: cfg.Bucket}, nil
}

// List returns the objects under prefix ordered by key.
func (b *Bucket) List(ctx context.Context, prefix string) ([]model.File, error) {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", b.bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", b.bucket)
	}

	// Cancelling stops the listing goroutine when the loop returns early.
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var objects []*Object
	for info := range b.client.ListObjects(listCtx, b.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list bucket %s: %w", b.bucket, info.Err)
		}
		if strings.HasSuffix(info.Key, "/") {
			continue
		}
		objects = append(objects, &Object{
			bucket:      b,
			key:         info.Key,
			size:        info.Size,
			contentType: objectType(info.Key, info.ContentType),
			ctx:         ctx,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].key < objects[j].key })

	files := make([]model.File, len(objects))
	for i, o := range objects {
		files[i] = o
	}
	return files, nil
}

func objectType(key, declared string) string {
	if ct := baseType(declared); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return baseType(mime.TypeByExtension(strings.ToLower(path.Ext(key))))
}

// Object is fetched lazily when the upload flow opens it.
type Object struct {
	bucket      *Bucket
	key         string
	size        int64
	contentType string
	ctx         context.Context
}

func (o *Object) Name() string        { return path.Base(o.key) }
func (o *Object) Key() string         { return o.key }
func (o *Object) Size() int64         { return o.size }
func (o *Object) ContentType() string { return o.contentType }

func (o *Object) Open() (io.ReadCloser, error) {
	obj, err := o.bucket.client.GetObject(o.ctx, o.bucket.bucket, o.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", o.key, err)
	}
	return obj, nil
}
