// Package state keeps the desired configuration state requested for each account.
package state

import (
	"errors"
	"log/slog"
	"maps"
	"sync"
)

var (
	ErrNoStateForAccount = errors.New("no state for account")
	ErrNullValue         = errors.New("value is null")
)

// Desired maps a capability name to its requested value, e.g. "compliance": "enabled".
type Desired map[string]string

func (d Desired) Clone() Desired {
	if d == nil {
		return Desired{}
	}
	return maps.Clone(d)
}

// Store holds the last requested state of each account.
//
// The first read of an unknown account materializes a copy of the default state.
type Store struct {
	mutex    *sync.Mutex
	accounts map[string]Desired
	fallback Desired
}

func NewStore(fallback Desired) Store {
	return Store{
		mutex:    &sync.Mutex{},
		accounts: make(map[string]Desired),
		fallback: fallback.Clone(),
	}
}

// Get returns the state of the account, installing the default one if absent.
func (s *Store) Get(account string) Desired {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, ok := s.accounts[account]
	if !ok {
		slog.Debug("materializing default state", "account", account)
		current = s.fallback.Clone()
		s.accounts[account] = current
	}
	return current.Clone()
}

// Lookup returns the state of the account without materializing a default one.
func (s *Store) Lookup(account string) (Desired, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, ok := s.accounts[account]
	if !ok {
		return nil, ErrNoStateForAccount
	}
	return current.Clone(), nil
}

// Set replaces the whole state of the account.
func (s *Store) Set(account string, desired Desired) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	slog.Debug("updating requested state", "account", account)
	s.accounts[account] = desired.Clone()
}

// Default returns a copy of the default state.
func (s *Store) Default() Desired {
	return s.fallback.Clone()
}

// Resolve is Get satisfying sources that may fail on unknown accounts.
func (s *Store) Resolve(account string) (Desired, error) {
	return s.Get(account), nil
}
