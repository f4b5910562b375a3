package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"p2pquotes/internal/filters"
)

// filtersKey is the single record holding the last-used filter
// selection. The four fields are always read and written together.
var filtersKey = []byte("settings/filters")

// Store persists the user's filter selection across popup sessions
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the settings database in dir
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open settings database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the persisted filter selection. The second return value
// is false when nothing has been persisted yet.
func (s *Store) Load(ctx context.Context) (filters.State, bool, error) {
	if err := ctx.Err(); err != nil {
		return filters.State{}, false, err
	}

	var state filters.State
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(filtersKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &state); err != nil {
			return fmt.Errorf("corrupt settings record: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return filters.State{}, false, err
	}

	return state, found, nil
}

// Save writes the full filter selection as one record
func (s *Store) Save(ctx context.Context, state filters.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(filtersKey, raw)
	})
}
