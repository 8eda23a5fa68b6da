package media

// The GCS store keeps the shared media collection in an upstream Google Cloud
// Storage bucket. Credentials are resolved via Application Default
// Credentials (GOOGLE_APPLICATION_CREDENTIALS, gcloud auth, metadata server).

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSAPI defines the subset of the GCS client that GCSStore uses. This allows
// mocking in tests.
type GCSAPI interface {
	// NewWriter returns a writer for the given GCS object.
	NewWriter(ctx context.Context, bucket, object string) io.WriteCloser
	// NewReader returns a reader for the given GCS object.
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	// Size returns the size of the given GCS object.
	Size(ctx context.Context, bucket, object string) (int64, error)
	// ListObjects lists object names with the given prefix.
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
}

// realGCSClient wraps the official GCS client to satisfy GCSAPI.
type realGCSClient struct {
	client *gcs.Client
}

func (c *realGCSClient) NewWriter(ctx context.Context, bucket, object string) io.WriteCloser {
	return c.client.Bucket(bucket).Object(object).NewWriter(ctx)
}

func (c *realGCSClient) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return c.client.Bucket(bucket).Object(object).NewReader(ctx)
}

func (c *realGCSClient) Size(ctx context.Context, bucket, object string) (int64, error) {
	attrs, err := c.client.Bucket(bucket).Object(object).Attrs(ctx)
	if err != nil {
		return 0, err
	}
	return attrs.Size, nil
}

func (c *realGCSClient) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	it := c.client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

// GCSStore implements Store on top of a single upstream GCS bucket.
type GCSStore struct {
	// Bucket is the upstream GCS bucket name.
	Bucket string
	// Prefix is prepended to every object name.
	Prefix string
	client GCSAPI
}

// NewGCSStore creates a GCS client with Application Default Credentials and
// verifies that the bucket is reachable.
func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	s := NewGCSStoreWithClient(bucket, prefix, &realGCSClient{client: client})
	if err := s.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("cannot access upstream GCS bucket %q: %w", bucket, err)
	}

	slog.Info("GCS media store initialized", "bucket", bucket, "prefix", prefix)
	return s, nil
}

// NewGCSStoreWithClient creates a GCSStore around a pre-configured client.
// This is primarily used for testing with mock clients.
func NewGCSStoreWithClient(bucket, prefix string, client GCSAPI) *GCSStore {
	return &GCSStore{Bucket: bucket, Prefix: prefix, client: client}
}

func (s *GCSStore) key(name string) string {
	return s.Prefix + name
}

// Put reads all data to compute the MD5 locally, then uploads it.
func (s *GCSStore) Put(ctx context.Context, name string, reader io.Reader, size int64) (int64, string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, "", fmt.Errorf("reading media data: %w", err)
	}
	sum := md5.Sum(data)

	w := s.client.NewWriter(ctx, s.Bucket, s.key(name))
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return 0, "", fmt.Errorf("uploading to GCS: %w", err)
	}
	// The object is only committed when Close succeeds.
	if err := w.Close(); err != nil {
		return 0, "", fmt.Errorf("finalizing GCS upload: %w", err)
	}
	return int64(len(data)), hex.EncodeToString(sum[:]), nil
}

// Get fetches the size first, then opens a reader.
func (s *GCSStore) Get(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	size, err := s.client.Size(ctx, s.Bucket, s.key(name))
	if err != nil {
		if isGCSNotFound(err) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, 0, fmt.Errorf("getting object attrs from GCS: %w", err)
	}

	reader, err := s.client.NewReader(ctx, s.Bucket, s.key(name))
	if err != nil {
		if isGCSNotFound(err) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, 0, fmt.Errorf("getting object from GCS: %w", err)
	}
	return reader, size, nil
}

// Exists reads the object attributes.
func (s *GCSStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.Size(ctx, s.Bucket, s.key(name))
	if err != nil {
		if isGCSNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking object in GCS: %w", err)
	}
	return true, nil
}

// HealthCheck lists with a prefix that matches nothing.
func (s *GCSStore) HealthCheck(ctx context.Context) error {
	_, err := s.client.ListObjects(ctx, s.Bucket, "\x00nonexistent\x00")
	return err
}

// Location returns "gs://bucket/prefix".
func (s *GCSStore) Location() string {
	return "gs://" + s.Bucket + "/" + s.Prefix
}

// isGCSNotFound checks whether a GCS error means the object does not exist.
func isGCSNotFound(err error) bool {
	if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
		return true
	}
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "not found") || strings.Contains(msg, "404") {
			return true
		}
	}
	return false
}

var _ Store = (*GCSStore)(nil)
