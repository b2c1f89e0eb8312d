package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

var (
	errMissingBucket = errors.New("blob: bucket name required")
)

// GCSConfig describes the Google Cloud Storage backing bucket.
type GCSConfig struct {
	Bucket string
	// Prefix is prepended to every pathname, keeping one bucket shareable
	// between deployments.
	Prefix string
	// CredentialsFile is optional; when empty, application default
	// credentials are used.
	CredentialsFile string
}

// GCSStore implements Store on top of a GCS bucket.
type GCSStore struct {
	bucket *storage.BucketHandle
	config GCSConfig
}

// NewGCSStore opens a GCS client for the configured bucket.
func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errMissingBucket
	}

	var clientOptions []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("blob: open gcs client: %w", err)
	}

	return &GCSStore{
		bucket: client.Bucket(cfg.Bucket),
		config: cfg,
	}, nil
}

func (s *GCSStore) objectName(pathname string) string {
	return path.Join(s.config.Prefix, pathname)
}

// Put writes one object and returns its descriptor. With AddRandomSuffix set,
// a fresh object name is generated per call so concurrent writers coexist
// instead of clobbering each other.
func (s *GCSStore) Put(ctx context.Context, pathname string, body []byte, opts PutOptions) (Object, error) {
	name := pathname
	if opts.AddRandomSuffix {
		extension := path.Ext(pathname)
		stem := strings.TrimSuffix(pathname, extension)
		name = fmt.Sprintf("%s-%s%s", stem, uuid.NewString()[:8], extension)
	}

	writer := s.bucket.Object(s.objectName(name)).NewWriter(ctx)
	if opts.ContentType != "" {
		writer.ObjectAttrs.ContentType = opts.ContentType
	}
	writer.ObjectAttrs.CacheControl = "no-cache,max-age=0"

	if _, err := writer.Write(body); err != nil {
		writer.Close() //nolint:errcheck
		return Object{}, fmt.Errorf("blob: write object %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return Object{}, fmt.Errorf("blob: finalize object %s: %w", name, err)
	}

	return Object{
		Pathname:   name,
		URL:        s.objectURL(name),
		UploadedAt: writer.Attrs().Updated,
	}, nil
}

// List returns objects under the prefix, at most limit entries when limit > 0.
func (s *GCSStore) List(ctx context.Context, prefix string, limit int) ([]Object, error) {
	objectIterator := s.bucket.Objects(ctx, &storage.Query{Prefix: s.objectName(prefix)})

	var objects []Object
	for {
		attrs, err := objectIterator.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("blob: list prefix %s: %w", prefix, err)
		}
		objects = append(objects, Object{
			Pathname:   strings.TrimPrefix(strings.TrimPrefix(attrs.Name, s.config.Prefix), "/"),
			URL:        s.objectURL(strings.TrimPrefix(strings.TrimPrefix(attrs.Name, s.config.Prefix), "/")),
			UploadedAt: attrs.Updated,
		})
		if limit > 0 && len(objects) >= limit {
			break
		}
	}
	return objects, nil
}

// Get reads the full body of one object.
func (s *GCSStore) Get(ctx context.Context, pathname string) ([]byte, error) {
	reader, err := s.bucket.Object(s.objectName(pathname)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("blob: open object %s: %w", pathname, err)
	}
	defer reader.Close()

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("blob: read object %s: %w", pathname, err)
	}
	return body, nil
}

// Delete removes one object.
func (s *GCSStore) Delete(ctx context.Context, pathname string) error {
	err := s.bucket.Object(s.objectName(pathname)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("blob: delete object %s: %w", pathname, err)
	}
	return nil
}

// BaseURL returns the public URL prefix for objects in this store.
func (s *GCSStore) BaseURL() string {
	return s.objectURL("")
}

func (s *GCSStore) objectURL(name string) string {
	return "https://storage.googleapis.com/" + path.Join(s.config.Bucket, s.config.Prefix, name)
}
