// Package history archives every replacement of the desired state of an account.
package history

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackadi-io/configmanager/internal/config"
	"github.com/jackadi-io/configmanager/internal/manager/database"
)

var ErrChangeNotFound = errors.New("state change not found")

// Store keeps state changes in badger. Changes never expire.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
	now func() time.Time
}

func New(db *badger.DB) (*Store, error) {
	seq, err := db.GetSequence(database.StateChangeSequenceKey, config.StateChangeSequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state change sequence: %w", err)
	}
	return &Store{db: db, seq: seq, now: time.Now}, nil
}

// Append archives a new state of the account.
func (s *Store) Append(account string, desired map[string]string, initiator string) (*database.StateChange, error) {
	n, err := s.seq.Next()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate state change id: %w", err)
	}
	id := n + 1

	change := &database.StateChange{
		ID:        strconv.FormatUint(id, 10),
		Account:   account,
		State:     maps.Clone(desired),
		Initiator: initiator,
		CreatedAt: s.now().UTC(),
	}
	data, err := database.MarshalStateChange(change)
	if err != nil {
		return nil, fmt.Errorf("unable to archive state change: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(database.GenerateStateChangeKey(account, id), data)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to archive state change: %w", err)
	}
	return change, nil
}

func (s *Store) Get(account, id string) (*database.StateChange, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, ErrChangeNotFound
	}

	var change *database.StateChange
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(database.GenerateStateChangeKey(account, n))
		if err != nil {
			return err
		}

		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		change, err = database.UnmarshalStateChange(data)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrChangeNotFound
	}
	if err != nil {
		return nil, err
	}
	return change, nil
}

// List returns one page of the state changes of an account, newest first.
//
// A non positive limit is replaced by the default one.
func (s *Store) List(account string, limit, offset int) (*database.StateChanges, error) {
	if limit <= 0 {
		limit = config.DefaultHistoryLimit
	}
	offset = max(offset, 0)

	page := &database.StateChanges{
		Limit:   limit,
		Offset:  offset,
		Changes: []database.StateChange{},
	}

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := database.GenerateStateChangeAccountPrefix(account)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		// in reverse mode, seek past the last key of the prefix.
		for it.Seek(append(slices.Clone(prefix), 0xFF)); it.Valid(); it.Next() {
			index := page.Total
			page.Total++
			if index < offset || index >= offset+limit {
				continue
			}

			item := it.Item()
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			change, err := database.UnmarshalStateChange(data)
			if err != nil {
				slog.Warn("skipping unreadable state change", "key", string(item.Key()), "error", err)
				continue
			}
			page.Changes = append(page.Changes, *change)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	page.Count = len(page.Changes)
	return page, nil
}

// Close releases the unused part of the leased state change ids.
func (s *Store) Close() error {
	return s.seq.Release()
}
