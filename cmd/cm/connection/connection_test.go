package connection

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackadi-io/configmanager/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sync":
			assert.Equal(t, "010101", r.URL.Query().Get("account"))
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id":"3"}`)
		case "/sync_results":
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"unknown run"}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "boom")
		}
	}))
	defer srv.Close()

	client := New(srv.URL + "/")

	var out struct{ ID string }
	require.NoError(t, client.Do(context.Background(), http.MethodPost, "/sync", Account("010101"), nil, &out))
	assert.Equal(t, "3", out.ID)

	err := client.Do(context.Background(), http.MethodGet, "/sync_results", nil, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "unknown run")

	err = client.Do(context.Background(), http.MethodGet, "/other", nil, nil, nil)
	assert.ErrorContains(t, err, "500: boom")
}

func TestDoSendsInitiator(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(config.InitiatorHeader)
	}))
	defer srv.Close()

	client := New(srv.URL)
	client.Initiator = "alice"
	require.NoError(t, client.Do(context.Background(), http.MethodPost, "/state", Account("a"), map[string]string{}, nil))
	assert.Equal(t, "alice", got)
}
