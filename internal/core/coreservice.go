package core

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jo-hoe/imagehost/internal/backend/database"
	"github.com/jo-hoe/imagehost/internal/blobstore"
)

// ImageService owns the lifecycle of stored images: the metadata record in
// the database and the payload in the blob store.
type ImageService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	blobStore       blobstore.BlobStore
	pool            *TransformPool
	now             func() time.Time
}

func NewImageService(config *ServiceConfig) (*ImageService, error) {
	databaseService, err := getDatabaseService(config)
	if err != nil {
		return nil, err
	}
	blobStore, err := blobstore.NewFilesystemBlobStore(config.BlobStore.Root)
	if err != nil {
		_ = databaseService.Close()
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}
	slog.Info("blob store initialized successfully", "root", blobStore.Root())

	return NewImageServiceWithStores(config, databaseService, blobStore), nil
}

// NewImageServiceWithStores wires the service onto already opened stores.
func NewImageServiceWithStores(config *ServiceConfig, databaseService database.DatabaseService, blobStore blobstore.BlobStore) *ImageService {
	return &ImageService{
		config:          config,
		databaseService: databaseService,
		blobStore:       blobStore,
		pool:            NewTransformPool(config.Transforms.MaxConcurrent, config.Transforms.MaxQueued),
		now:             time.Now,
	}
}

// Database exposes the metadata store so the auth service can share it.
func (service *ImageService) Database() database.DatabaseService {
	return service.databaseService
}

func (service *ImageService) BlobStore() blobstore.BlobStore {
	return service.blobStore
}

func (service *ImageService) Close() error {
	var errs []error
	if service.databaseService != nil {
		if err := service.databaseService.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}
