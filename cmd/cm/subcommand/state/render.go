package state

import (
	"sort"

	"github.com/jackadi-io/configmanager/cmd/cm/style"
	"github.com/jackadi-io/configmanager/internal/serializer"
	"github.com/jackadi-io/configmanager/internal/state"
)

func render(account string, desired map[string]string, jsonFormat bool) (string, error) {
	if jsonFormat {
		out, err := serializer.JSON.MarshalIndent(desired, "", "  ")
		return string(out), err
	}

	capabilities := make([]string, 0, len(desired))
	for c := range desired {
		capabilities = append(capabilities, c)
	}
	sort.Strings(capabilities)

	out := style.Title("Account " + account)
	if len(capabilities) == 0 {
		return out + style.Subtitle("no capability requested"), nil
	}

	items := ""
	for _, c := range capabilities {
		value := desired[c]
		switch value {
		case state.Enabled:
			value = style.RenderSuccess(value)
		case state.Disabled:
			value = style.RenderError(value)
		}
		items += style.Item(c + ": " + value)
	}
	return out + style.Block(items), nil
}
