// Package playbook renders the work item sent to hosts from a desired state.
package playbook

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/jackadi-io/configmanager/internal/config"
	"github.com/jackadi-io/configmanager/internal/state"
)

const header = "---\n# Service Enablement playbook\n"

// firstCapability is always applied before the others.
const firstCapability = "insights"

var ErrUnknownValue = errors.New("unknown capability value")

type play struct {
	Name   string   `yaml:"name"`
	Hosts  string   `yaml:"hosts"`
	Become bool     `yaml:"become"`
	Roles  []string `yaml:"roles"`
}

// Job is the request document handed to hosts through the dispatch service.
type Job struct {
	PayloadURL string `json:"payload_url"`
	ReturnURL  string `json:"return_url"`
	Handler    string `json:"handler"`
}

func role(capability, value string) (string, error) {
	switch value {
	case state.Enabled:
		return capability + "_setup", nil
	case state.Disabled:
		return capability + "_remove", nil
	default:
		return "", fmt.Errorf("%w: %s=%q", ErrUnknownValue, capability, value)
	}
}

// Order returns the capabilities of a state, insights first then alphabetically.
func Order(desired state.Desired) []string {
	capabilities := make([]string, 0, len(desired))
	for c := range desired {
		capabilities = append(capabilities, c)
	}

	slices.SortFunc(capabilities, func(a, b string) int {
		switch {
		case a == b:
			return 0
		case a == firstCapability:
			return -1
		case b == firstCapability:
			return 1
		}
		return strings.Compare(a, b)
	})
	return capabilities
}

// Generate renders the playbook enforcing the desired state, one play per capability.
func Generate(desired state.Desired) (string, error) {
	plays := make([]play, 0, len(desired))
	for _, capability := range Order(desired) {
		r, err := role(capability, desired[capability])
		if err != nil {
			return "", err
		}
		plays = append(plays, play{Name: r, Hosts: "localhost", Become: true, Roles: []string{r}})
	}

	if len(plays) == 0 {
		return header, nil
	}

	out, err := yaml.MarshalWithOptions(plays, yaml.IndentSequence(true))
	if err != nil {
		return "", fmt.Errorf("unable to render playbook: %w", err)
	}
	return header + string(out), nil
}

// JobRequest builds the job pointing hosts back at this service for the account.
func JobRequest(baseURL, account string) Job {
	base := strings.TrimRight(baseURL, "/")
	q := url.Values{"account": []string{account}}.Encode()
	return Job{
		PayloadURL: base + "/job?" + q,
		ReturnURL:  base + "/playbook_dispatcher?" + q,
		Handler:    config.PlaybookHandler,
	}
}
