// Package connection is the HTTP client of the manager API.
package connection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/user"
	"strings"

	"github.com/jackadi-io/configmanager/internal/config"
	"github.com/jackadi-io/configmanager/internal/serializer"
)

var ErrNotFound = errors.New("not found")

type Client struct {
	base string
	http *http.Client

	// Initiator is sent with every request and archived with state changes.
	Initiator string
}

func New(server string) *Client {
	return &Client{
		base:      strings.TrimRight(server, "/"),
		http:      &http.Client{Timeout: config.CLIRequestTimeout},
		Initiator: currentUser(),
	}
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

type apiError struct {
	Error string `json:"error"`
}

// Do calls the API and decodes the JSON response into out, when not nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := serializer.JSON.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Initiator != "" {
		req.Header.Set(config.InitiatorHeader, c.Initiator)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect the manager: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e apiError
		msg := strings.TrimSpace(string(data))
		if serializer.JSON.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, msg)
		}
		return fmt.Errorf("manager returned %d: %s", resp.StatusCode, msg)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	return serializer.JSON.Unmarshal(data, out)
}

func Account(account string) url.Values {
	return url.Values{"account": []string{account}}
}
