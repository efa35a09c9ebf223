package database

import (
	"fmt"
	"strings"
)

// StringToKey parses a database key string into its prefix and ID components.
//
// Only the first separator is significant: the ID of a run key keeps its account part.
func StringToKey(key string) (Key, error) {
	prefix, id, ok := strings.Cut(key, KeySeparator)
	if !ok {
		return Key{}, fmt.Errorf("invalide key: %s not in 'prefix:id' format", key)
	}
	return Key{prefix, id}, nil
}

// GenerateRunKey creates a database key for storing a run of an account.
func GenerateRunKey(account, runID string) []byte {
	return fmt.Appendf(nil, "%s:%s:%s", RunKeyPrefix, account, runID)
}

// GenerateRunAccountPrefix returns the prefix shared by every run key of an account.
func GenerateRunAccountPrefix(account string) []byte {
	return fmt.Appendf(nil, "%s:%s:", RunKeyPrefix, account)
}

// GenerateCorrelationKey creates a database key for storing a correlation token.
func GenerateCorrelationKey(token string) []byte {
	return fmt.Appendf(nil, "%s:%s", CorrelationKeyPrefix, token)
}

// GenerateStateChangeKey creates a database key for an archived state change.
//
// The id is zero padded so that the keys of an account sort in creation order.
func GenerateStateChangeKey(account string, id uint64) []byte {
	return fmt.Appendf(nil, "%s:%s:%020d", StateChangeKeyPrefix, account, id)
}

// GenerateStateChangeAccountPrefix returns the prefix shared by every state change key of an account.
func GenerateStateChangeAccountPrefix(account string) []byte {
	return fmt.Appendf(nil, "%s:%s:", StateChangeKeyPrefix, account)
}
