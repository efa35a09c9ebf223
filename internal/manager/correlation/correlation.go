// Package correlation maps dispatch tokens back to the work item they were issued for.
package correlation

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackadi-io/configmanager/internal/manager/database"
)

var ErrUnknownCorrelationToken = errors.New("unknown correlation token")
var ErrDuplicateToken = errors.New("correlation token already registered")
var ErrEmptyToken = errors.New("empty correlation token")

// Table stores correlation entries in badger.
//
// Entries expire after the TTL, and are released once their completion is applied.
type Table struct {
	db  *badger.DB
	ttl time.Duration
}

func New(db *badger.DB, ttl time.Duration) *Table {
	return &Table{db: db, ttl: ttl}
}

// Register links a token to the (account, run, host) triple of its work item.
func (t *Table) Register(token, account, runID, hostID string) error {
	if token == "" {
		return ErrEmptyToken
	}

	data, err := database.MarshalCorrelation(&database.Correlation{
		Account:   account,
		RunID:     runID,
		HostID:    hostID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("unable to register token: %w", err)
	}

	err = t.db.Update(func(txn *badger.Txn) error {
		key := database.GenerateCorrelationKey(token)
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return ErrDuplicateToken
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		entry := badger.NewEntry(key, data)
		if t.ttl > 0 {
			entry = entry.WithTTL(t.ttl)
		}
		return txn.SetEntry(entry)
	})
	if errors.Is(err, badger.ErrConflict) {
		// a concurrent transaction wrote the same token.
		return ErrDuplicateToken
	}
	return err
}

// Resolve returns the work item a token was issued for.
func (t *Table) Resolve(token string) (*database.Correlation, error) {
	var entry *database.Correlation
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(database.GenerateCorrelationKey(token))
		if err != nil {
			return err
		}

		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		entry, err = database.UnmarshalCorrelation(data)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) || errors.Is(err, badger.ErrEmptyKey) {
		return nil, ErrUnknownCorrelationToken
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Release removes a token.
func (t *Table) Release(token string) error {
	return t.db.Update(func(txn *badger.Txn) error {
		key := database.GenerateCorrelationKey(token)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrUnknownCorrelationToken
			}
			return err
		}
		return txn.Delete(key)
	})
}
