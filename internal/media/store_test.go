package media

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

// storeFactories builds every backend; cloud backends run against mocks.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"local": func(t *testing.T) Store {
			s, err := NewLocalStore(filepath.Join(t.TempDir(), "media"))
			if err != nil {
				t.Fatalf("NewLocalStore failed: %v", err)
			}
			return s
		},
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "media.db"))
			if err != nil {
				t.Fatalf("NewSQLiteStore failed: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
		"s3": func(t *testing.T) Store {
			return NewS3StoreWithClient("upstream", "media/", newMockS3Client())
		},
		"gcs": func(t *testing.T) Store {
			return NewGCSStoreWithClient("upstream", "media/", newMockGCSClient())
		},
		"azure": func(t *testing.T) Store {
			return NewAzureStoreWithClient("upstream", "https://acct.blob.core.windows.net", "media/", newMockAzureClient())
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			content := "\xff\xd8\xff\xe0 fake jpeg bytes"
			n, sum, err := s.Put(ctx, "photo.jpg", strings.NewReader(content), int64(len(content)))
			if err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			if n != int64(len(content)) {
				t.Errorf("Put bytes = %d, want %d", n, len(content))
			}
			want := md5.Sum([]byte(content))
			if sum != hex.EncodeToString(want[:]) {
				t.Errorf("Put checksum = %q, want %x", sum, want)
			}

			rc, size, err := s.Get(ctx, "photo.jpg")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			defer rc.Close()
			if size != int64(len(content)) {
				t.Errorf("Get size = %d, want %d", size, len(content))
			}
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if string(data) != content {
				t.Errorf("Get data = %q, want %q", data, content)
			}

			ok, err := s.Exists(ctx, "photo.jpg")
			if err != nil || !ok {
				t.Errorf("Exists(photo.jpg) = %v, %v; want true, nil", ok, err)
			}
		})
	}
}

func TestStoreMissingObject(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			if _, _, err := s.Get(ctx, "missing.jpg"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
			}
			ok, err := s.Exists(ctx, "missing.jpg")
			if err != nil {
				t.Fatalf("Exists(missing) failed: %v", err)
			}
			if ok {
				t.Error("Exists(missing) = true, want false")
			}
		})
	}
}

func TestStoreOverwriteAndEmpty(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			s.Put(ctx, "a.bin", strings.NewReader("first version"), 13)
			if _, _, err := s.Put(ctx, "a.bin", strings.NewReader(""), 0); err != nil {
				t.Fatalf("Put(empty) failed: %v", err)
			}
			rc, size, err := s.Get(ctx, "a.bin")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			defer rc.Close()
			if size != 0 {
				t.Errorf("size after empty overwrite = %d, want 0", size)
			}
			if err := s.HealthCheck(ctx); err != nil {
				t.Errorf("HealthCheck failed: %v", err)
			}
			if s.Location() == "" {
				t.Error("Location() is empty")
			}
		})
	}
}

func TestS3StoreKeyMapping(t *testing.T) {
	mock := newMockS3Client()
	s := NewS3StoreWithClient("upstream", "tenants/a/", mock)
	s.Put(context.Background(), "x.png", strings.NewReader("png"), 3)

	if _, ok := mock.objects["tenants/a/x.png"]; !ok {
		t.Errorf("expected upstream key tenants/a/x.png, have %v", mock.objects)
	}
	if mock.putObjectCalls != 1 {
		t.Errorf("putObjectCalls = %d, want 1", mock.putObjectCalls)
	}
	if got := s.Location(); got != "s3://upstream/tenants/a/" {
		t.Errorf("Location() = %q", got)
	}
}

func TestS3StoreHealthCheckFailure(t *testing.T) {
	mock := newMockS3Client()
	mock.failHeadBucket = true
	s := NewS3StoreWithClient("upstream", "", mock)
	if err := s.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck should fail when HeadBucket is denied")
	}
}

func TestGCSStoreCloseFailureIsReported(t *testing.T) {
	mock := newMockGCSClient()
	mock.failClose = true
	s := NewGCSStoreWithClient("upstream", "", mock)

	if _, _, err := s.Put(context.Background(), "x", strings.NewReader("data"), 4); err == nil {
		t.Fatal("Put should fail when the writer fails to finalize")
	}
	if ok, _ := s.Exists(context.Background(), "x"); ok {
		t.Error("object should not exist after a failed finalize")
	}
}

func TestIsAWSNotFound(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&mockAPIError{code: "NoSuchKey"}, true},
		{&mockAPIError{code: "NotFound"}, true},
		{&mockAPIError{code: "AccessDenied", httpStatus: 403}, false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := isAWSNotFound(tt.err); got != tt.want {
			t.Errorf("isAWSNotFound(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestIsAzureNotFound(t *testing.T) {
	if !isAzureNotFound(errors.New("ERROR CODE: BlobNotFound")) {
		t.Error("BlobNotFound should be not-found")
	}
	if isAzureNotFound(errors.New("AuthorizationFailure")) {
		t.Error("AuthorizationFailure should not be not-found")
	}
	if isAzureNotFound(nil) {
		t.Error("nil should not be not-found")
	}
}
