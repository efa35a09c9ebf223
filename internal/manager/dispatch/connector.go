package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jackadi-io/configmanager/internal/manager/inventory"
	"github.com/jackadi-io/configmanager/internal/serializer"
)

const maxResponseSize = 1 << 20

type connectorRequest struct {
	Account   string `json:"account"`
	Recipient string `json:"recipient"`
	Directive string `json:"directive"`
	Payload   string `json:"payload"`
}

type connectorResponse struct {
	ID string `json:"id"`
}

// ConnectorClient submits work items to the connector service over HTTP.
type ConnectorClient struct {
	URL       string
	Directive string
	Headers   map[string]string
	HTTP      *http.Client
}

func NewConnectorClient(url, directive string, headers map[string]string) *ConnectorClient {
	return &ConnectorClient{
		URL:       url,
		Directive: directive,
		Headers:   headers,
		HTTP:      &http.Client{},
	}
}

// Dispatch posts the work item to the connector. The host is addressed by its client id.
func (c *ConnectorClient) Dispatch(ctx context.Context, account string, host inventory.Host, payload string) (string, error) {
	body, err := serializer.JSON.Marshal(connectorRequest{
		Account:   account,
		Recipient: host.ClientID,
		Directive: c.Directive,
		Payload:   payload,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: unable to read response: %w", ErrDispatchFailed, err)
	}

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: unexpected status %d: %s", ErrDispatchFailed, resp.StatusCode, bytes.TrimSpace(data))
	}

	var out connectorResponse
	if err := serializer.JSON.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%w: malformed response: %w", ErrDispatchFailed, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: response without id", ErrDispatchFailed)
	}

	return out.ID, nil
}
