// Package app assembles a storage manager and its collaborators from the
// configuration. Both the server and the CLI start through here.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tierstore/tierstore/internal/catalog"
	"github.com/tierstore/tierstore/internal/config"
	"github.com/tierstore/tierstore/internal/location"
	"github.com/tierstore/tierstore/internal/media"
	"github.com/tierstore/tierstore/internal/notify"
	"github.com/tierstore/tierstore/internal/permission"
	"github.com/tierstore/tierstore/internal/storage"
)

// recorderLimit bounds the notifications kept for GET /notifications.
const recorderLimit = 256

// App holds everything a storage manager needs at runtime.
type App struct {
	Manager   *storage.Manager
	Locations *location.DirProvider
	Grants    *permission.Grants
	Media     media.Store   // nil when the media backend is "none"
	Catalog   catalog.Store // nil when the catalog engine is "none"
	Recorder  *notify.Recorder

	subtype string
}

// New opens the configured locations, media store and catalog, and builds
// the manager on top of them. It leaves temp files alone; see Recover.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	locations, err := location.New(cfg.Locations)
	if err != nil {
		return nil, fmt.Errorf("preparing tier directories: %w", err)
	}

	mediaStore, err := OpenMedia(ctx, cfg.Media)
	if err != nil {
		return nil, err
	}
	cat, err := OpenCatalog(ctx, cfg.Catalog)
	if err != nil {
		closeIfCloser(mediaStore)
		return nil, err
	}

	a := &App{
		Locations: locations,
		Grants:    permission.NewGrants(cfg.Permissions.ReadGranted, cfg.Permissions.WriteGranted),
		Media:     mediaStore,
		Catalog:   cat,
		Recorder:  notify.NewRecorder(recorderLimit),
		subtype:   cfg.Locations.ExternalSubtype,
	}

	opts := []storage.Option{
		storage.WithScopedStorage(cfg.Permissions.ScopedStorage),
		storage.WithExternalSubtype(cfg.Locations.ExternalSubtype),
		storage.WithNotifier(notify.Multi{notify.NewLogger(nil), a.Recorder}),
	}
	if mediaStore != nil {
		opts = append(opts, storage.WithMediaStore(mediaStore))
	}
	if cat != nil {
		opts = append(opts, storage.WithCatalog(cat))
	}
	a.Manager = storage.NewManager(locations, a.Grants, opts...)
	return a, nil
}

// Recover removes temp files left by interrupted writes from every available
// tier directory and from a local media store, returning how many were
// removed. Only the server calls it, once at startup: a temp file may belong
// to a write in flight in another process sharing the directories.
func (a *App) Recover() int {
	n := a.Locations.CleanTempFiles(a.subtype)
	if local, ok := a.Media.(*media.LocalStore); ok {
		m, err := local.CleanTempFiles()
		if err != nil {
			slog.Warn("Cleaning media temp files failed", "error", err)
		}
		n += m
	}
	if n > 0 {
		slog.Info("Removed leftover temp files", "count", n)
	}
	return n
}

// Close releases the catalog and media store.
func (a *App) Close() error {
	var firstErr error
	if a.Catalog != nil {
		firstErr = a.Catalog.Close()
	}
	if err := closeIfCloser(a.Media); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func closeIfCloser(s media.Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// OpenMedia builds the SharedMedia backend selected by cfg.Backend. The
// "none" backend returns a nil store.
func OpenMedia(ctx context.Context, cfg config.MediaConfig) (media.Store, error) {
	switch cfg.Backend {
	case "none":
		slog.Info("Media store disabled")
		return nil, nil
	case "memory":
		slog.Info("Media store initialized", "backend", "memory")
		return media.NewMemoryStore(), nil
	case "local":
		s, err := media.NewLocalStore(cfg.Local.RootDir)
		if err != nil {
			return nil, fmt.Errorf("initializing local media store: %w", err)
		}
		slog.Info("Media store initialized", "backend", "local", "root", cfg.Local.RootDir)
		return s, nil
	case "sqlite":
		if err := ensureParent(cfg.SQLite.Path); err != nil {
			return nil, err
		}
		s, err := media.NewSQLiteStore(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("initializing SQLite media store: %w", err)
		}
		slog.Info("Media store initialized", "backend", "sqlite", "path", cfg.SQLite.Path)
		return s, nil
	case "aws":
		if cfg.AWSBucket == "" {
			return nil, fmt.Errorf("media.aws_bucket is required when backend is 'aws'")
		}
		s, err := media.NewS3Store(ctx, media.S3Options{
			Bucket:          cfg.AWSBucket,
			Region:          cfg.AWSRegion,
			Prefix:          cfg.AWSPrefix,
			EndpointURL:     cfg.AWSEndpointURL,
			UsePathStyle:    cfg.AWSUsePathStyle,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing AWS media store: %w", err)
		}
		return s, nil
	case "gcp":
		if cfg.GCPBucket == "" {
			return nil, fmt.Errorf("media.gcp_bucket is required when backend is 'gcp'")
		}
		s, err := media.NewGCSStore(ctx, cfg.GCPBucket, cfg.GCPPrefix)
		if err != nil {
			return nil, fmt.Errorf("initializing GCP media store: %w", err)
		}
		return s, nil
	case "azure":
		if cfg.AzureContainer == "" {
			return nil, fmt.Errorf("media.azure_container is required when backend is 'azure'")
		}
		if cfg.AzureAccountURL == "" && cfg.AzureConnectionString == "" {
			return nil, fmt.Errorf("media.azure_account, azure_account_url or azure_connection_string is required when backend is 'azure'")
		}
		s, err := media.NewAzureStore(ctx, media.AzureOptions{
			Container:          cfg.AzureContainer,
			AccountURL:         cfg.AzureAccountURL,
			Prefix:             cfg.AzurePrefix,
			ConnectionString:   cfg.AzureConnectionString,
			UseManagedIdentity: cfg.AzureUseManagedIdentity,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing Azure media store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}

// OpenCatalog builds the catalog selected by cfg.Engine. The "none" engine
// returns a nil store.
func OpenCatalog(ctx context.Context, cfg config.CatalogConfig) (catalog.Store, error) {
	var (
		s   catalog.Store
		err error
	)
	switch cfg.Engine {
	case "none":
		slog.Info("Catalog disabled")
		return nil, nil
	case "memory":
		s = catalog.NewMemoryStore()
	case "sqlite":
		if err := ensureParent(cfg.SQLite.Path); err != nil {
			return nil, err
		}
		s, err = catalog.NewSQLiteStore(cfg.SQLite.Path)
	case "dynamodb":
		s, err = catalog.NewDynamoDBStore(ctx, &cfg.DynamoDB)
	case "firestore":
		s, err = catalog.NewFirestoreStore(ctx, &cfg.Firestore)
	case "cosmos":
		s, err = catalog.NewCosmosStore(ctx, &cfg.Cosmos)
	default:
		return nil, fmt.Errorf("unknown catalog engine %q", cfg.Engine)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s catalog: %w", cfg.Engine, err)
	}
	slog.Info("Catalog initialized", "engine", cfg.Engine)
	return s, nil
}

func ensureParent(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %q: %w", path, err)
	}
	return nil
}
