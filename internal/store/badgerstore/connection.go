// Package badgerstore is the badgerhold-backed implementation of
// store.Store, grounded on the teacher's internal/storage/badger package
// (connection.go, job_storage.go): same badgerhold.Open construction and
// Where/And/Eq/Find query idiom, adapted from the teacher's generic
// JobModel shape to this domain's Company/Job/CrawlLog records.
package badgerstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/timshannon/badgerhold/v4"

	"github.com/careercrawl/orchestrator/internal/config"
)

// DB wraps the shared badgerhold.Store handle.
type DB struct {
	store *badgerhold.Store
}

// Open creates the badger data directory (if needed, honouring
// ResetOnStartup) and opens the badgerhold store, mirroring the teacher's
// NewBadgerDB.
func Open(cfg config.StoreConfig) (*DB, error) {
	if cfg.ResetOnStartup {
		if _, err := os.Stat(cfg.BadgerPath); err == nil {
			if err := os.RemoveAll(cfg.BadgerPath); err != nil {
				return nil, fmt.Errorf("failed to reset badger directory: %w", err)
			}
		}
	}

	dir := filepath.Dir(cfg.BadgerPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = cfg.BadgerPath
	options.ValueDir = cfg.BadgerPath
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &DB{store: store}, nil
}

func (d *DB) Close() error {
	return d.store.Close()
}
