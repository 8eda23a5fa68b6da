package catalog

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tierstore/tierstore/internal/config"
	"github.com/tierstore/tierstore/internal/tier"
)

// FirestoreAPI is the subset of collection operations used by
// FirestoreStore. GetDoc returns nil data for a missing document.
type FirestoreAPI interface {
	SetDoc(ctx context.Context, id string, data map[string]interface{}) error
	GetDoc(ctx context.Context, id string) (map[string]interface{}, error)
	QueryTier(ctx context.Context, tierName string) ([]map[string]interface{}, error)
	Ping(ctx context.Context) error
	Close() error
}

// FirestoreStore keeps one document per entry in a single collection.
type FirestoreStore struct {
	client FirestoreAPI
}

// firestoreCollection adapts a Firestore client to FirestoreAPI.
type firestoreCollection struct {
	client *firestore.Client
	name   string
}

func (c *firestoreCollection) ref() *firestore.CollectionRef {
	return c.client.Collection(c.name)
}

func (c *firestoreCollection) SetDoc(ctx context.Context, id string, data map[string]interface{}) error {
	_, err := c.ref().Doc(id).Set(ctx, data)
	return err
}

func (c *firestoreCollection) GetDoc(ctx context.Context, id string) (map[string]interface{}, error) {
	doc, err := c.ref().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	if !doc.Exists() {
		return nil, nil
	}
	return doc.Data(), nil
}

func (c *firestoreCollection) QueryTier(ctx context.Context, tierName string) ([]map[string]interface{}, error) {
	docs, err := c.ref().
		Where("type", "==", "entry").
		Where("tier", "==", tierName).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.Data())
	}
	return out, nil
}

func (c *firestoreCollection) Ping(ctx context.Context) error {
	_, err := c.ref().Limit(1).Documents(ctx).Next()
	if err != nil && err != iterator.Done {
		return err
	}
	return nil
}

func (c *firestoreCollection) Close() error {
	return c.client.Close()
}

// encodeName makes a file name safe for use inside a document ID.
func encodeName(name string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(name))
}

func docIDEntry(t tier.Tier, name string) string {
	return "entry_" + t.String() + "_" + encodeName(name)
}

// NewFirestoreStore creates a FirestoreStore from the given config.
func NewFirestoreStore(ctx context.Context, cfg *config.FirestoreConfig) (*FirestoreStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("firestore config is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = "tierstore"
	}

	return NewFirestoreStoreWithClient(&firestoreCollection{client: client, name: collection}), nil
}

// NewFirestoreStoreWithClient creates a FirestoreStore with a caller-supplied
// client, used by tests.
func NewFirestoreStoreWithClient(client FirestoreAPI) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *FirestoreStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *FirestoreStore) Put(ctx context.Context, e *Entry) error {
	err := s.client.SetDoc(ctx, docIDEntry(e.Tier, e.Name), map[string]interface{}{
		"type":       "entry",
		"tier":       e.Tier.String(),
		"name":       e.Name,
		"size":       e.Size,
		"checksum":   e.Checksum,
		"mime_type":  e.MimeType,
		"updated_at": formatTime(e.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("putting catalog entry %s/%s: %w", e.Tier, e.Name, err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, t tier.Tier, name string) (*Entry, error) {
	data, err := s.client.GetDoc(ctx, docIDEntry(t, name))
	if err != nil {
		return nil, fmt.Errorf("getting catalog entry %s/%s: %w", t, name, err)
	}
	if data == nil {
		return nil, nil
	}
	return docToEntry(t, data), nil
}

func (s *FirestoreStore) List(ctx context.Context, t tier.Tier) ([]Entry, error) {
	docs, err := s.client.QueryTier(ctx, t.String())
	if err != nil {
		return nil, fmt.Errorf("listing catalog entries for %s: %w", t, err)
	}

	out := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		out = append(out, *docToEntry(t, doc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func docToEntry(t tier.Tier, data map[string]interface{}) *Entry {
	e := &Entry{Tier: t}
	e.Name, _ = data["name"].(string)
	e.Checksum, _ = data["checksum"].(string)
	e.MimeType, _ = data["mime_type"].(string)
	if v, ok := data["updated_at"].(string); ok {
		e.UpdatedAt = parseTime(v)
	}
	switch v := data["size"].(type) {
	case int64:
		e.Size = v
	case float64:
		e.Size = int64(v)
	}
	return e
}

var _ Store = (*FirestoreStore)(nil)
