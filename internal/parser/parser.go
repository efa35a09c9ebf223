// Package parser reads capability assignments given on the command line.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/shlex"
)

var assignment = regexp.MustCompile(`^(?P<key>[a-zA-Z0-9_-]+)=(?P<value>.+)$`)

// ParseAssignments extracts key=value pairs from a list of arguments.
//
// Values may be quoted: key="some value" and key='some value' are allowed.
func ParseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))

	for _, arg := range args {
		groups := assignment.FindStringSubmatch(arg)
		if groups == nil {
			return nil, fmt.Errorf("invalid assignment '%s', expected key=value", arg)
		}

		key := groups[1]
		if _, exists := out[key]; exists {
			return nil, fmt.Errorf("'%s' assigned twice", key)
		}

		words, err := shlex.Split(groups[2])
		if err != nil {
			return nil, fmt.Errorf("failed to process '%s': %w", arg, err)
		}
		value := strings.Join(words, " ")
		if value == "" {
			return nil, fmt.Errorf("empty value for '%s'", key)
		}
		out[key] = value
	}

	if len(out) == 0 {
		return nil, errors.New("at least one key=value is required")
	}
	return out, nil
}
