package media

// The Azure store keeps the shared media collection in an Azure Blob Storage
// container. Credentials come from a connection string, managed identity, or
// DefaultAzureCredential, in that order of preference.

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureBlobAPI defines the subset of the Azure Blob client that AzureStore
// uses. This allows mocking in tests.
type AzureBlobAPI interface {
	// UploadBlob uploads data to a blob, overwriting if it already exists.
	UploadBlob(ctx context.Context, containerName, blobName string, data []byte) error
	// DownloadBlob downloads a blob's contents.
	DownloadBlob(ctx context.Context, containerName, blobName string) ([]byte, error)
	// BlobExists checks if a blob exists.
	BlobExists(ctx context.Context, containerName, blobName string) (bool, error)
}

// AzureOptions configures NewAzureStore.
type AzureOptions struct {
	Container          string
	AccountURL         string
	Prefix             string
	ConnectionString   string
	UseManagedIdentity bool
}

// realAzureClient wraps the official Azure SDK client to satisfy AzureBlobAPI.
type realAzureClient struct {
	client *azblob.Client
}

func newRealAzureClient(opts AzureOptions) (*realAzureClient, error) {
	if opts.ConnectionString != "" {
		client, err := azblob.NewClientFromConnectionString(opts.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("creating Azure Blob client from connection string: %w", err)
		}
		return &realAzureClient{client: client}, nil
	}

	if opts.UseManagedIdentity {
		cred, err := azidentity.NewManagedIdentityCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("creating Azure managed identity credential: %w", err)
		}
		client, err := azblob.NewClient(opts.AccountURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("creating Azure Blob client with managed identity: %w", err)
		}
		return &realAzureClient{client: client}, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure credential: %w", err)
	}
	client, err := azblob.NewClient(opts.AccountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure Blob client: %w", err)
	}
	return &realAzureClient{client: client}, nil
}

func (c *realAzureClient) UploadBlob(ctx context.Context, containerName, blobName string, data []byte) error {
	_, err := c.client.UploadBuffer(ctx, containerName, blobName, data, nil)
	return err
}

func (c *realAzureClient) DownloadBlob(ctx context.Context, containerName, blobName string) ([]byte, error) {
	resp, err := c.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *realAzureClient) BlobExists(ctx context.Context, containerName, blobName string) (bool, error) {
	_, err := c.client.ServiceClient().NewContainerClient(containerName).NewBlobClient(blobName).GetProperties(ctx, nil)
	if err != nil {
		if isAzureNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AzureStore implements Store on top of a single Azure Blob container.
type AzureStore struct {
	// Container is the upstream Azure Blob container name.
	Container string
	// AccountURL is the storage account URL (https://account.blob.core.windows.net).
	AccountURL string
	// Prefix is prepended to every blob name.
	Prefix string
	client AzureBlobAPI
}

// NewAzureStore creates the Azure client and verifies that the container is
// reachable.
func NewAzureStore(ctx context.Context, opts AzureOptions) (*AzureStore, error) {
	client, err := newRealAzureClient(opts)
	if err != nil {
		return nil, fmt.Errorf("creating Azure client: %w", err)
	}

	s := NewAzureStoreWithClient(opts.Container, opts.AccountURL, opts.Prefix, client)
	if err := s.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("cannot access upstream Azure container %q: %w", opts.Container, err)
	}

	slog.Info("Azure media store initialized", "container", opts.Container, "account", opts.AccountURL, "prefix", opts.Prefix)
	return s, nil
}

// NewAzureStoreWithClient creates an AzureStore around a pre-configured
// client. This is primarily used for testing with mock clients.
func NewAzureStoreWithClient(container, accountURL, prefix string, client AzureBlobAPI) *AzureStore {
	return &AzureStore{Container: container, AccountURL: accountURL, Prefix: prefix, client: client}
}

func (s *AzureStore) blobName(name string) string {
	return s.Prefix + name
}

// Put reads all data to compute the MD5 locally, then uploads it.
func (s *AzureStore) Put(ctx context.Context, name string, reader io.Reader, size int64) (int64, string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, "", fmt.Errorf("reading media data: %w", err)
	}
	sum := md5.Sum(data)

	if err := s.client.UploadBlob(ctx, s.Container, s.blobName(name), data); err != nil {
		return 0, "", fmt.Errorf("uploading to Azure Blob: %w", err)
	}
	return int64(len(data)), hex.EncodeToString(sum[:]), nil
}

// Get downloads the whole blob.
func (s *AzureStore) Get(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	data, err := s.client.DownloadBlob(ctx, s.Container, s.blobName(name))
	if err != nil {
		if isAzureNotFound(err) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, 0, fmt.Errorf("getting object from Azure Blob: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

// Exists reads the blob properties.
func (s *AzureStore) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := s.client.BlobExists(ctx, s.Container, s.blobName(name))
	if err != nil {
		return false, fmt.Errorf("checking blob in Azure: %w", err)
	}
	return ok, nil
}

// HealthCheck asks whether a blob name that cannot exist is present.
func (s *AzureStore) HealthCheck(ctx context.Context) error {
	_, err := s.client.BlobExists(ctx, s.Container, "\x00nonexistent\x00")
	return err
}

// Location returns "azblob://container/prefix".
func (s *AzureStore) Location() string {
	return "azblob://" + s.Container + "/" + s.Prefix
}

// isAzureNotFound checks whether an Azure error means the blob is missing.
func isAzureNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "404") ||
		strings.Contains(msg, "blobnotfound") || strings.Contains(msg, "containernotfound") ||
		strings.Contains(msg, "the specified blob does not exist")
}

var _ Store = (*AzureStore)(nil)
