package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/recorddb/pkg/store"
	storebadger "github.com/marmos91/recorddb/pkg/store/badger"
	storefile "github.com/marmos91/recorddb/pkg/store/file"
)

// CreateStoreBackend builds the persistence backend selected by cfg.Type,
// decoding the matching type-specific section.
//
// createNew only applies to the file backend: it creates a fresh store
// file (failing if one exists), mirroring the server's new-file flag.
// Badger creates its database on first open either way.
func CreateStoreBackend(ctx context.Context, cfg *StoreConfig, createNew bool) (store.Backend, error) {
	switch cfg.Type {
	case "file":
		return createFileBackend(cfg.File, createNew)
	case "badger":
		return createBadgerBackend(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}

// createFileBackend creates the flat-file backend.
func createFileBackend(options map[string]any, createNew bool) (store.Backend, error) {
	type FileBackendConfig struct {
		Path string `mapstructure:"path"`
	}

	var backendCfg FileBackendConfig
	if err := mapstructure.Decode(options, &backendCfg); err != nil {
		return nil, fmt.Errorf("failed to decode file store config: %w", err)
	}

	if backendCfg.Path == "" {
		return nil, fmt.Errorf("file store: path is required")
	}

	if createNew {
		return storefile.Create(backendCfg.Path)
	}
	return storefile.Open(backendCfg.Path)
}

// createBadgerBackend creates the BadgerDB backend.
func createBadgerBackend(ctx context.Context, options map[string]any) (store.Backend, error) {
	var backendCfg storebadger.Config
	if err := mapstructure.Decode(options, &backendCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger store config: %w", err)
	}

	backend, err := storebadger.New(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return backend, nil
}
