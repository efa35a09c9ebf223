package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackadi-io/configmanager/internal/bus"
	"github.com/jackadi-io/configmanager/internal/config"
	"github.com/jackadi-io/configmanager/internal/manager/database"
	"github.com/jackadi-io/configmanager/internal/manager/history"
	"github.com/jackadi-io/configmanager/internal/manager/inventory"
	"github.com/jackadi-io/configmanager/internal/manager/message"
	"github.com/jackadi-io/configmanager/internal/manager/results"
	"github.com/jackadi-io/configmanager/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionTopic = "completion"

type stubOrchestrator struct {
	runID    string
	err      error
	accounts []string
	views    map[string]results.RunResult
	runs     []database.Run
}

func (s *stubOrchestrator) StartSync(_ context.Context, account string) (string, error) {
	s.accounts = append(s.accounts, account)
	return s.runID, s.err
}

func (s *stubOrchestrator) View(account, runID string) (results.RunResult, error) {
	view, ok := s.views[account+"/"+runID]
	if !ok {
		return nil, results.ErrUnknownRun
	}
	return view, nil
}

func (s *stubOrchestrator) Runs(string) ([]database.Run, error) {
	return s.runs, nil
}

type server struct {
	handler http.Handler
	states  *state.Store
	events  *bus.Memory
	history *history.Store
	hosts   *inventory.Hosts
}

func setupServer(t *testing.T, orch *stubOrchestrator) server {
	t.Helper()
	store := state.NewStore(state.BuiltinDefault())
	hosts := inventory.New(nil)
	events := bus.NewMemory()
	t.Cleanup(func() { events.Close() })

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	changes, err := history.New(db)
	require.NoError(t, err)
	t.Cleanup(func() { changes.Close() })

	h := NewHandler(Backends{
		States:          &store,
		History:         changes,
		Hosts:           &hosts,
		Orchestrator:    orch,
		Events:          events.Writer(),
		CompletionTopic: completionTopic,
	})
	return server{handler: h.Routes(), states: &store, events: events, history: changes, hosts: &hosts}
}

func setup(t *testing.T, orch *stubOrchestrator) (http.Handler, *state.Store, *bus.Memory) {
	t.Helper()
	srv := setupServer(t, orch)
	return srv.handler, srv.states, srv.events
}

func do(h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestStateDefaultThenReplace(t *testing.T) {
	h, _, _ := setup(t, &stubOrchestrator{})

	rec := do(h, http.MethodGet, "/state?account=010101", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string(state.BuiltinDefault()), decode[map[string]string](t, rec))

	rec = do(h, http.MethodPost, "/state?account=010101", `{"insights":"enabled","compliance":"disabled"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodGet, "/state?account=010101", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"insights": "enabled", "compliance": "disabled"}, decode[map[string]string](t, rec))
}

func TestSetStateInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "insights=enabled"},
		{name: "array", body: `["insights"]`},
		{name: "null", body: "null"},
		{name: "nested", body: `{"insights":{"mode":"enabled"}}`},
		{name: "null value", body: `{"insights":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store, _ := setup(t, &stubOrchestrator{})
			rec := do(h, http.MethodPost, "/state?account=a", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)

			_, err := store.Lookup("a")
			assert.ErrorIs(t, err, state.ErrNoStateForAccount)
		})
	}
}

func TestStateChangesArchived(t *testing.T) {
	srv := setupServer(t, &stubOrchestrator{})

	rec := do(srv.handler, http.MethodGet, "/states?account=010101", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0,"limit":10,"offset":0,"total":0,"results":[]}`, rec.Body.String())

	rec = do(srv.handler, http.MethodPost, "/state?account=010101", `{"insights":"enabled"}`, config.InitiatorHeader, "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(srv.handler, http.MethodPost, "/state?account=010101", `{"insights":"disabled"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(srv.handler, http.MethodGet, "/states?account=010101", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[database.StateChanges](t, rec)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Changes, 2)
	assert.Equal(t, map[string]string{"insights": "disabled"}, page.Changes[0].State, "newest first")
	assert.Equal(t, "alice", page.Changes[1].Initiator)

	rec = do(srv.handler, http.MethodGet, "/states?account=010101&limit=1&offset=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[database.StateChanges](t, rec)
	require.Len(t, page.Changes, 1)
	assert.Equal(t, map[string]string{"insights": "enabled"}, page.Changes[0].State)

	id := page.Changes[0].ID
	rec = do(srv.handler, http.MethodGet, "/states/"+id+"?account=010101", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decode[database.StateChange](t, rec).ID)

	rec = do(srv.handler, http.MethodGet, "/states/"+id+"?account=other", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStateChangesInvalidPaging(t *testing.T) {
	h, _, _ := setup(t, &stubOrchestrator{})
	for _, query := range []string{"limit=abc", "limit=-1", "offset=x"} {
		rec := do(h, http.MethodGet, "/states?account=a&"+query, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestRejectedStateIsNotArchived(t *testing.T) {
	srv := setupServer(t, &stubOrchestrator{})
	rec := do(srv.handler, http.MethodPost, "/state?account=a", `{"insights":null}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	page, err := srv.history.List("a", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

func TestListHosts(t *testing.T) {
	srv := setupServer(t, &stubOrchestrator{})

	rec := do(srv.handler, http.MethodGet, "/hosts?account=010101", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	srv.hosts.MarkHostStateChange("010101", inventory.Host{InventoryID: "h2", ClientID: "c2"}, false)
	srv.hosts.MarkHostStateChange("010101", inventory.Host{InventoryID: "h1", ClientID: "c1"}, true)

	rec = do(srv.handler, http.MethodGet, "/hosts?account=010101", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]inventory.HostState](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "h1", got[0].InventoryID)
	assert.True(t, got[0].Connected)
	assert.Equal(t, "c2", got[1].ClientID)
	assert.False(t, got[1].Connected)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, _ := setup(t, &stubOrchestrator{})
	_ = do(h, http.MethodGet, "/sync_results?account=a&run_id=1", "")

	rec := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `configmanager_api_error_total{status="404"}`)
}

func TestMissingParameters(t *testing.T) {
	h, _, _ := setup(t, &stubOrchestrator{})

	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/state"},
		{http.MethodPost, "/state"},
		{http.MethodPost, "/sync"},
		{http.MethodGet, "/sync_results?account=a"},
		{http.MethodGet, "/sync_results?run_id=1"},
		{http.MethodGet, "/runs"},
		{http.MethodGet, "/states"},
		{http.MethodGet, "/states/1"},
		{http.MethodGet, "/hosts"},
		{http.MethodGet, "/job"},
		{http.MethodPost, "/playbook_dispatcher"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := do(h, tt.method, tt.target, "{}")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[errorResponse](t, rec).Error, "required")
		})
	}
}

func TestStartSync(t *testing.T) {
	orch := &stubOrchestrator{runID: "7"}
	h, _, _ := setup(t, orch)

	rec := do(h, http.MethodPost, "/sync?account=010101", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, syncResponse{ID: "7"}, decode[syncResponse](t, rec))
	assert.Equal(t, []string{"010101"}, orch.accounts)
}

func TestStartSyncErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "no state", err: state.ErrNoStateForAccount, want: http.StatusNotFound},
		{name: "internal", err: errors.New("database closed"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := setup(t, &stubOrchestrator{err: tt.err})
			rec := do(h, http.MethodPost, "/sync?account=a", "")
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.err.Error(), decode[errorResponse](t, rec).Error)
		})
	}
}

func TestSyncResults(t *testing.T) {
	orch := &stubOrchestrator{views: map[string]results.RunResult{
		"010101/1": {
			"h1": {Status: results.StatusReported, Value: json.RawMessage(`{"insights":"success"}`)},
			"h2": results.Pending(),
		},
	}}
	h, _, _ := setup(t, orch)

	rec := do(h, http.MethodGet, "/sync_results?account=010101&run_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"h1":{"status":"reported","value":{"insights":"success"}},"h2":{"status":"pending"}}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/sync_results?account=010101&run_id=2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRuns(t *testing.T) {
	h, _, _ := setup(t, &stubOrchestrator{})
	rec := do(h, http.MethodGet, "/runs?account=a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h, _, _ = setup(t, &stubOrchestrator{runs: []database.Run{{ID: "1", Account: "a", CreatedAt: created}}})
	rec = do(h, http.MethodGet, "/runs?account=a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]database.Run](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestJob(t *testing.T) {
	h, store, _ := setup(t, &stubOrchestrator{})

	rec := do(h, http.MethodGet, "/job?account=010101", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no state requested yet")

	_ = store.Get("010101")
	rec = do(h, http.MethodGet, "/job?account=010101", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "insights_setup")
	assert.Contains(t, rec.Body.String(), "vulnerability_remove")

	store.Set("010101", state.Desired{"insights": "maybe"})
	rec = do(h, http.MethodGet, "/job?account=010101", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPlaybookDispatcher(t *testing.T) {
	h, _, events := setup(t, &stubOrchestrator{})
	reader, err := events.Reader(completionTopic, "test")
	require.NoError(t, err)

	rec := do(h, http.MethodPost, "/playbook_dispatcher?account=010101", `{"insights":"success"}`, "message_id", "tok-1")
	require.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", string(msg.Key))

	event, err := message.DecodeCompletion(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, "010101", event.Account)
	assert.Equal(t, "tok-1", event.MessageID)
	assert.JSONEq(t, `{"insights":"success"}`, string(event.AnsibleOutput))
}

func TestPlaybookDispatcherInvalid(t *testing.T) {
	h, _, _ := setup(t, &stubOrchestrator{})

	rec := do(h, http.MethodPost, "/playbook_dispatcher?account=a", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing message_id header")

	rec = do(h, http.MethodPost, "/playbook_dispatcher?account=a", `not json`, "message_id", "tok")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h, _, _ := setup(t, &stubOrchestrator{})
	rec := do(h, http.MethodDelete, "/state?account=a", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
