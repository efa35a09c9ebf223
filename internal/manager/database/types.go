package database

import (
	"time"

	"github.com/jackadi-io/configmanager/internal/manager/inventory"
)

const (
	KeySeparator         = ":"
	RunKeyPrefix         = "run"
	CorrelationKeyPrefix = "cor"
	StateChangeKeyPrefix = "chg"
	SequencePrefix       = "seq"
)

var (
	// RunSequenceKey holds the lease of the run id sequence.
	RunSequenceKey = []byte(SequencePrefix + KeySeparator + RunKeyPrefix)
	// StateChangeSequenceKey holds the lease of the state change id sequence.
	StateChangeSequenceKey = []byte(SequencePrefix + KeySeparator + StateChangeKeyPrefix)
)

// Run is the stored record of a sync run.
type Run struct {
	ID        string            `json:"id"`
	Account   string            `json:"account"`
	State     map[string]string `json:"requested_state"`
	Hosts     []inventory.Host  `json:"connected_hosts"`
	CreatedAt time.Time         `json:"created_at"`
}

// Correlation links a dispatch token to the work item it was issued for.
type Correlation struct {
	Account   string    `json:"account"`
	RunID     string    `json:"run_id"`
	HostID    string    `json:"host_id"`
	CreatedAt time.Time `json:"created_at"`
}

// StateChange is an archived replacement of the desired state of an account.
type StateChange struct {
	ID        string            `json:"id"`
	Account   string            `json:"account"`
	State     map[string]string `json:"state"`
	Initiator string            `json:"initiator,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// StateChanges is one page of the state changes of an account, newest first.
type StateChanges struct {
	Count   int           `json:"count"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	Total   int           `json:"total"`
	Changes []StateChange `json:"results"`
}

type Key struct {
	Prefix string
	ID     string
}
