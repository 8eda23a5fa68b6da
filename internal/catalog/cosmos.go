package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"

	"github.com/tierstore/tierstore/internal/config"
	"github.com/tierstore/tierstore/internal/tier"
)

// CosmosAPI is the subset of container operations used by CosmosStore.
// Items are raw JSON documents; partitionKey is the tier name.
type CosmosAPI interface {
	UpsertItem(ctx context.Context, partitionKey string, item []byte) error
	ReadItem(ctx context.Context, partitionKey, id string) ([]byte, error)
	QueryTier(ctx context.Context, partitionKey string) ([][]byte, error)
	Ping(ctx context.Context) error
}

// CosmosStore keeps entries in a Cosmos DB container partitioned by tier.
type CosmosStore struct {
	client CosmosAPI
}

// cosmosContainer adapts a container client to CosmosAPI.
type cosmosContainer struct {
	client *azcosmos.ContainerClient
}

func (c *cosmosContainer) UpsertItem(ctx context.Context, partitionKey string, item []byte) error {
	_, err := c.client.UpsertItem(ctx, azcosmos.NewPartitionKeyString(partitionKey), item, nil)
	return err
}

func (c *cosmosContainer) ReadItem(ctx context.Context, partitionKey, id string) ([]byte, error) {
	resp, err := c.client.ReadItem(ctx, azcosmos.NewPartitionKeyString(partitionKey), id, nil)
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (c *cosmosContainer) QueryTier(ctx context.Context, partitionKey string) ([][]byte, error) {
	pager := c.client.NewQueryItemsPager(
		"SELECT * FROM c WHERE c.tier = @tier",
		azcosmos.NewPartitionKeyString(partitionKey),
		&azcosmos.QueryOptions{
			QueryParameters: []azcosmos.QueryParameter{{Name: "@tier", Value: partitionKey}},
		},
	)
	var items [][]byte
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func (c *cosmosContainer) Ping(ctx context.Context) error {
	_, err := c.client.Read(ctx, nil)
	return err
}

type cosmosEntry struct {
	ID        string `json:"id"`
	Tier      string `json:"tier"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Checksum  string `json:"checksum,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Cosmos IDs may not contain '/', '\', '?' or '#', so the name is encoded.
func docIDEntryCosmos(t tier.Tier, name string) string {
	return "entry_" + t.String() + "_" + encodeName(name)
}

// NewCosmosStore creates a CosmosStore from the given config.
func NewCosmosStore(ctx context.Context, cfg *config.CosmosConfig) (*CosmosStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cosmos config is required")
	}
	if cfg.Endpoint == "" && cfg.MasterKey == "" {
		return nil, fmt.Errorf("cosmos endpoint or master key is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("cosmos database name is required")
	}
	if cfg.Container == "" {
		return nil, fmt.Errorf("cosmos container name is required")
	}

	var cred azcosmos.KeyCredential
	if cfg.MasterKey != "" {
		var err error
		cred, err = azcosmos.NewKeyCredential(cfg.MasterKey)
		if err != nil {
			return nil, fmt.Errorf("creating cosmos key credential: %w", err)
		}
	}

	client, err := azcosmos.NewClientWithKey(cfg.Endpoint, cred, &azcosmos.ClientOptions{
		ClientOptions: policy.ClientOptions{},
	})
	if err != nil {
		return nil, fmt.Errorf("creating cosmos client: %w", err)
	}

	dbClient, err := client.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("getting database client: %w", err)
	}

	containerClient, err := dbClient.NewContainer(cfg.Container)
	if err != nil {
		return nil, fmt.Errorf("getting container client: %w", err)
	}

	return NewCosmosStoreWithClient(&cosmosContainer{client: containerClient}), nil
}

// NewCosmosStoreWithClient creates a CosmosStore with a caller-supplied
// client, used by tests.
func NewCosmosStoreWithClient(client CosmosAPI) *CosmosStore {
	return &CosmosStore{client: client}
}

func (s *CosmosStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *CosmosStore) Close() error {
	return nil
}

func isCosmosNotFound(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404")
}

func (s *CosmosStore) Put(ctx context.Context, e *Entry) error {
	data, err := json.Marshal(cosmosEntry{
		ID:        docIDEntryCosmos(e.Tier, e.Name),
		Tier:      e.Tier.String(),
		Name:      e.Name,
		Size:      e.Size,
		Checksum:  e.Checksum,
		MimeType:  e.MimeType,
		UpdatedAt: formatTime(e.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("marshaling catalog entry: %w", err)
	}
	if err := s.client.UpsertItem(ctx, e.Tier.String(), data); err != nil {
		return fmt.Errorf("putting catalog entry %s/%s: %w", e.Tier, e.Name, err)
	}
	return nil
}

func (s *CosmosStore) Get(ctx context.Context, t tier.Tier, name string) (*Entry, error) {
	raw, err := s.client.ReadItem(ctx, t.String(), docIDEntryCosmos(t, name))
	if err != nil {
		if isCosmosNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting catalog entry %s/%s: %w", t, name, err)
	}

	var item cosmosEntry
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("unmarshaling catalog entry: %w", err)
	}
	return item.toEntry(t), nil
}

func (s *CosmosStore) List(ctx context.Context, t tier.Tier) ([]Entry, error) {
	items, err := s.client.QueryTier(ctx, t.String())
	if err != nil {
		return nil, fmt.Errorf("listing catalog entries for %s: %w", t, err)
	}

	out := make([]Entry, 0, len(items))
	for _, raw := range items {
		var item cosmosEntry
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		out = append(out, *item.toEntry(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c cosmosEntry) toEntry(t tier.Tier) *Entry {
	return &Entry{
		Tier:      t,
		Name:      c.Name,
		Size:      c.Size,
		Checksum:  c.Checksum,
		MimeType:  c.MimeType,
		UpdatedAt: parseTime(c.UpdatedAt),
	}
}

var _ Store = (*CosmosStore)(nil)
