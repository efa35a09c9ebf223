package sync

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/jackadi-io/configmanager/cmd/cm/style"
	"github.com/jackadi-io/configmanager/internal/serializer"
)

func valueToPretty(raw []byte) string {
	var out any
	if err := serializer.JSON.Unmarshal(raw, &out); err != nil {
		return string(raw)
	}

	pretty, err := yaml.MarshalWithOptions(out, yaml.UseLiteralStyleIfMultiline(true))
	if err != nil {
		return string(raw)
	}
	return string(pretty)
}

func render(runID string, view runResult, jsonFormat bool) (string, error) {
	if jsonFormat {
		out, err := serializer.JSON.MarshalIndent(view, "", "  ")
		return string(out), err
	}

	hosts := make([]string, 0, len(view))
	for h := range view {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)

	out := style.Title("Run " + runID)
	if len(hosts) == 0 {
		return out + style.Subtitle("no host targeted"), nil
	}

	for _, h := range hosts {
		o := view[h]
		var status string
		switch o.Status {
		case "reported":
			status = style.RenderSuccess(o.Status)
		case "dispatch_failed":
			status = style.RenderError(o.Status)
		default:
			status = style.RenderPending(o.Status)
		}

		out += style.InlineBlockTitle(h) + status + "\n"
		switch {
		case o.Error != "":
			out += style.Block(o.Error) + "\n"
		case len(o.Value) > 0:
			out += style.Block(strings.TrimRight(valueToPretty(o.Value), "\n")) + "\n"
		}
	}

	pending := 0
	for _, o := range view {
		if o.Status == "pending" {
			pending++
		}
	}
	if pending > 0 {
		out += style.Subtitle(fmt.Sprintf("%d/%d hosts pending", pending, len(view)))
	}
	return out, nil
}
