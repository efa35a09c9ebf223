// Package results aggregates the per-host outcomes of each run.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/jackadi-io/configmanager/internal/serializer"
)

var ErrUnknownRun = errors.New("unknown run")
var ErrUnknownHost = errors.New("host not targeted by run")
var ErrAlreadyReported = errors.New("host already reported")

type Status string

const (
	StatusPending        Status = "pending"
	StatusReported       Status = "reported"
	StatusDispatchFailed Status = "dispatch_failed"
)

// Outcome is the result of one host within a run.
//
// Value is only set when reported, Error only when the dispatch failed.
type Outcome struct {
	Status Status          `json:"status"`
	Value  json.RawMessage `json:"value,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func Pending() Outcome {
	return Outcome{Status: StatusPending}
}

// Reported builds a reported outcome from any JSON-encodable value.
func Reported(value any) (Outcome, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return Outcome{Status: StatusReported, Value: raw}, nil
	}

	data, err := serializer.JSON.Marshal(value)
	if err != nil {
		return Outcome{}, fmt.Errorf("invalid result value: %w", err)
	}
	return Outcome{Status: StatusReported, Value: data}, nil
}

func DispatchFailed(reason string) Outcome {
	return Outcome{Status: StatusDispatchFailed, Error: reason}
}

// RunResult maps the inventory id of each targeted host to its outcome.
type RunResult map[string]Outcome

type run struct {
	createdAt time.Time
	hosts     RunResult
}

type runKey struct {
	account string
	runID   string
}

// Aggregator holds the latest known outcome of every host of every run.
type Aggregator struct {
	mutex *sync.RWMutex
	runs  map[runKey]*run
	now   func() time.Time
}

func New() Aggregator {
	return Aggregator{
		mutex: &sync.RWMutex{},
		runs:  make(map[runKey]*run),
		now:   time.Now,
	}
}

// InitRun seeds a run with every host pending.
func (a *Aggregator) InitRun(account, runID string, hostIDs []string) {
	hosts := make(RunResult, len(hostIDs))
	for _, id := range hostIDs {
		hosts[id] = Pending()
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.runs[runKey{account, runID}] = &run{createdAt: a.now(), hosts: hosts}
}

func (a *Aggregator) lookup(account, runID, hostID string) (*run, Outcome, error) {
	r, ok := a.runs[runKey{account, runID}]
	if !ok {
		return nil, Outcome{}, fmt.Errorf("%w: account %s run %s", ErrUnknownRun, account, runID)
	}

	current, ok := r.hosts[hostID]
	if !ok {
		return nil, Outcome{}, fmt.Errorf("%w: run %s host %s", ErrUnknownHost, runID, hostID)
	}
	return r, current, nil
}

// ApplyResult records the reported value of a host.
//
// The first report wins: a host already reported is left untouched.
// A host whose dispatch failed may still be reported by a late completion.
func (a *Aggregator) ApplyResult(account, runID, hostID string, value any) error {
	outcome, err := Reported(value)
	if err != nil {
		return err
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	r, current, err := a.lookup(account, runID, hostID)
	if err != nil {
		return err
	}

	if current.Status == StatusReported {
		return fmt.Errorf("%w: run %s host %s", ErrAlreadyReported, runID, hostID)
	}
	if current.Status == StatusDispatchFailed {
		slog.Warn("result received for a host whose dispatch failed", "account", account, "run", runID, "host", hostID)
	}

	r.hosts[hostID] = outcome
	return nil
}

// MarkDispatchFailed records that the work item of a pending host could not be submitted.
func (a *Aggregator) MarkDispatchFailed(account, runID, hostID, reason string) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	r, current, err := a.lookup(account, runID, hostID)
	if err != nil {
		return err
	}
	if current.Status != StatusPending {
		return fmt.Errorf("host %s of run %s is %s", hostID, runID, current.Status)
	}

	r.hosts[hostID] = DispatchFailed(reason)
	return nil
}

// View returns a copy of the current outcomes of a run.
func (a *Aggregator) View(account, runID string) (RunResult, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	r, ok := a.runs[runKey{account, runID}]
	if !ok {
		return nil, fmt.Errorf("%w: account %s run %s", ErrUnknownRun, account, runID)
	}
	return maps.Clone(r.hosts), nil
}

// Sweep drops the runs created before the cutoff and returns how many were removed.
func (a *Aggregator) Sweep(cutoff time.Time) int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	removed := 0
	for key, r := range a.runs {
		if r.createdAt.Before(cutoff) {
			delete(a.runs, key)
			removed++
		}
	}
	return removed
}
