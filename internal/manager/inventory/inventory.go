package inventory

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

var ErrHostNotFound = errors.New("unknown host")

// Host identifies a remote system both in the inventory and at the dispatch service.
type Host struct {
	InventoryID string `json:"inventory_id"`
	ClientID    string `json:"client_id"`
}

// ParseHost parses an "inventory-id:client-id" pair.
func ParseHost(in string) (Host, error) {
	inventoryID, clientID, ok := strings.Cut(strings.TrimSpace(in), ":")
	if !ok || inventoryID == "" || clientID == "" {
		return Host{}, fmt.Errorf("invalid host '%s': not in 'inventory-id:client-id' format", in)
	}
	return Host{InventoryID: inventoryID, ClientID: clientID}, nil
}

func ParseHosts(in []string) ([]Host, error) {
	hosts := make([]Host, 0, len(in))
	for _, h := range in {
		host, err := ParseHost(h)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, host)
	}
	return hosts, nil
}

type HostState struct {
	Host
	Connected bool      `json:"connected"`
	Since     time.Time `json:"since"`
}

// Hosts tracks the connectivity of each account's hosts.
//
// Accounts without any observed host resolve to the static host set.
type Hosts struct {
	mutex    *sync.Mutex
	accounts map[string]map[string]HostState
	static   []Host
}

func New(static []Host) Hosts {
	return Hosts{
		mutex:    &sync.Mutex{},
		accounts: make(map[string]map[string]HostState),
		static:   slices.Clone(static),
	}
}

// MarkHostStateChange records a connectivity change of a host.
func (h *Hosts) MarkHostStateChange(account string, host Host, connected bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	hosts, ok := h.accounts[account]
	if !ok {
		hosts = make(map[string]HostState)
		h.accounts[account] = hosts
	}

	if existing, ok := hosts[host.InventoryID]; ok && existing.ClientID != host.ClientID {
		slog.Warn("host changed client id", "account", account, "host", host.InventoryID, "previous", existing.ClientID, "current", host.ClientID)
	}

	hosts[host.InventoryID] = HostState{
		Host:      host,
		Connected: connected,
		Since:     time.Now(),
	}
}

// Forget removes any reference to a host.
func (h *Hosts) Forget(account, inventoryID string) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	hosts, ok := h.accounts[account]
	if !ok {
		return ErrHostNotFound
	}
	if _, ok := hosts[inventoryID]; !ok {
		return ErrHostNotFound
	}

	delete(hosts, inventoryID)
	if len(hosts) == 0 {
		delete(h.accounts, account)
	}
	return nil
}

// Connected returns the hosts to target for the account, ordered by inventory id.
//
// When no connectivity event has been observed for the account, the static hosts are returned.
func (h *Hosts) Connected(account string) []Host {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	hosts, ok := h.accounts[account]
	if !ok {
		return slices.Clone(h.static)
	}

	connected := make([]Host, 0, len(hosts))
	for _, state := range hosts {
		if state.Connected {
			connected = append(connected, state.Host)
		}
	}
	slices.SortFunc(connected, func(a, b Host) int {
		return strings.Compare(a.InventoryID, b.InventoryID)
	})

	return connected
}

// List returns a snapshot of the observed hosts of an account, ordered by inventory id.
func (h *Hosts) List(account string) []HostState {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	states := slices.Collect(maps.Values(h.accounts[account]))
	slices.SortFunc(states, func(a, b HostState) int {
		return strings.Compare(a.InventoryID, b.InventoryID)
	})
	return states
}
