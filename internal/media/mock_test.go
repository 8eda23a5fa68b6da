package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// mockS3Client implements S3API for unit testing.
type mockS3Client struct {
	mu sync.Mutex
	// objects stores all objects keyed by their S3 key.
	objects map[string][]byte
	// putObjectCalls tracks the number of PutObject calls for verification.
	putObjectCalls int
	// failHeadBucket makes HeadBucket return an access error.
	failHeadBucket bool
}

func newMockS3Client() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putObjectCalls++
	m.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &mockAPIError{code: "NoSuchKey", message: "The specified key does not exist.", httpStatus: 404}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (m *mockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &mockAPIError{code: "NotFound", message: "Not Found", httpStatus: 404}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (m *mockS3Client) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if m.failHeadBucket {
		return nil, &mockAPIError{code: "AccessDenied", message: "Access Denied", httpStatus: 403}
	}
	return &s3.HeadBucketOutput{}, nil
}

type mockAPIError struct {
	code       string
	message    string
	httpStatus int
}

func (e *mockAPIError) Error() string {
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *mockAPIError) ErrorCode() string {
	return e.code
}

func (e *mockAPIError) ErrorMessage() string {
	return e.message
}

func (e *mockAPIError) ErrorFault() smithy.ErrorFault {
	if e.httpStatus >= 500 {
		return smithy.FaultServer
	}
	return smithy.FaultClient
}

// Ensure mockAPIError satisfies smithy.APIError.
var _ smithy.APIError = (*mockAPIError)(nil)

// mockGCSClient implements GCSAPI for unit testing.
type mockGCSClient struct {
	mu sync.Mutex
	// objects stores all objects keyed by their GCS object name.
	objects map[string][]byte
	// failClose makes writers fail on Close, as GCS does on a rejected upload.
	failClose bool
}

func newMockGCSClient() *mockGCSClient {
	return &mockGCSClient{objects: make(map[string][]byte)}
}

type mockGCSWriter struct {
	buf    bytes.Buffer
	client *mockGCSClient
	key    string
}

func (w *mockGCSWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *mockGCSWriter) Close() error {
	if w.client.failClose {
		return errors.New("googleapi: Error 403: forbidden")
	}
	w.client.mu.Lock()
	defer w.client.mu.Unlock()
	w.client.objects[w.key] = w.buf.Bytes()
	return nil
}

func (m *mockGCSClient) NewWriter(ctx context.Context, bucket, object string) io.WriteCloser {
	return &mockGCSWriter{client: m, key: object}
}

func (m *mockGCSClient) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[object]
	if !ok {
		return nil, errors.New("storage: object doesn't exist: not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockGCSClient) Size(ctx context.Context, bucket, object string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[object]
	if !ok {
		return 0, errors.New("storage: object doesn't exist: not found")
	}
	return int64(len(data)), nil
}

func (m *mockGCSClient) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	return nil, nil
}

// mockAzureClient implements AzureBlobAPI for unit testing.
type mockAzureClient struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMockAzureClient() *mockAzureClient {
	return &mockAzureClient{blobs: make(map[string][]byte)}
}

func (m *mockAzureClient) UploadBlob(ctx context.Context, containerName, blobName string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[blobName] = bytes.Clone(data)
	return nil
}

func (m *mockAzureClient) DownloadBlob(ctx context.Context, containerName, blobName string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[blobName]
	if !ok {
		return nil, errors.New("RESPONSE 404: 404 The specified blob does not exist. ERROR CODE: BlobNotFound")
	}
	return data, nil
}

func (m *mockAzureClient) BlobExists(ctx context.Context, containerName, blobName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[blobName]
	return ok, nil
}
