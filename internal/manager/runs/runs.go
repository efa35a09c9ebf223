// Package runs records every sync run with the state and hosts it targeted.
package runs

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackadi-io/configmanager/internal/config"
	"github.com/jackadi-io/configmanager/internal/manager/database"
)

var ErrRunNotFound = errors.New("run not found")

// Store keeps runs in badger, each entry expiring after the retention TTL.
//
// Run ids come from a single badger sequence so that they are unique and
// increasing across all accounts.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
	ttl time.Duration
}

func New(db *badger.DB, ttl time.Duration) (*Store, error) {
	seq, err := db.GetSequence(database.RunSequenceKey, config.RunSequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize run sequence: %w", err)
	}
	return &Store{db: db, seq: seq, ttl: ttl}, nil
}

// NextID allocates a new run id.
func (s *Store) NextID() (string, error) {
	n, err := s.seq.Next()
	if err != nil {
		return "", fmt.Errorf("failed to allocate run id: %w", err)
	}
	// the sequence starts at 0, run ids start at 1.
	return strconv.FormatUint(n+1, 10), nil
}

// Record stores a run. A run is written once and never updated.
func (s *Store) Record(run *database.Run) error {
	data, err := database.MarshalRun(run)
	if err != nil {
		return fmt.Errorf("unable to record run: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := database.GenerateRunKey(run.Account, run.ID)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("run %s already recorded", run.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		entry := badger.NewEntry(key, data)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (s *Store) Get(account, runID string) (*database.Run, error) {
	var run *database.Run
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(database.GenerateRunKey(account, runID))
		if err != nil {
			return err
		}

		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		run, err = database.UnmarshalRun(data)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns the runs of an account, oldest first.
func (s *Store) List(account string) ([]database.Run, error) {
	runs := []database.Run{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = database.GenerateRunAccountPrefix(account)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			run, err := database.UnmarshalRun(data)
			if err != nil {
				slog.Warn("skipping unreadable run", "key", string(item.Key()), "error", err)
				continue
			}
			runs = append(runs, *run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// keys are ordered lexicographically, "10" < "9".
	slices.SortFunc(runs, func(a, b database.Run) int {
		ai, _ := strconv.ParseUint(a.ID, 10, 64)
		bi, _ := strconv.ParseUint(b.ID, 10, 64)
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	})

	return runs, nil
}

// Close releases the unused part of the leased run ids.
func (s *Store) Close() error {
	return s.seq.Release()
}
