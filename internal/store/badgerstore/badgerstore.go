package badgerstore

import (
	"github.com/careercrawl/orchestrator/internal/config"
)

// Store is the badgerhold-backed store.Store implementation.
type Store struct {
	db *DB
}

// New opens the badger database and returns a ready Store.
func New(cfg config.StoreConfig) (*Store, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
