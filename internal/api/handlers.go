// Package api exposes the manager operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jackadi-io/configmanager/internal/bus"
	"github.com/jackadi-io/configmanager/internal/config"
	"github.com/jackadi-io/configmanager/internal/manager/database"
	"github.com/jackadi-io/configmanager/internal/manager/history"
	"github.com/jackadi-io/configmanager/internal/manager/inventory"
	"github.com/jackadi-io/configmanager/internal/manager/message"
	"github.com/jackadi-io/configmanager/internal/manager/results"
	"github.com/jackadi-io/configmanager/internal/manager/runs"
	"github.com/jackadi-io/configmanager/internal/metrics"
	"github.com/jackadi-io/configmanager/internal/playbook"
	"github.com/jackadi-io/configmanager/internal/serializer"
	"github.com/jackadi-io/configmanager/internal/state"
)

const maxBodySize = 1 << 20

var (
	errMissingParameter = errors.New("missing parameter")
	errInvalidParameter = errors.New("invalid parameter")
)

type States interface {
	Get(account string) state.Desired
	Lookup(account string) (state.Desired, error)
	Set(account string, desired state.Desired)
}

type Orchestrator interface {
	StartSync(ctx context.Context, account string) (string, error)
	View(account, runID string) (results.RunResult, error)
	Runs(account string) ([]database.Run, error)
}

type History interface {
	Append(account string, desired map[string]string, initiator string) (*database.StateChange, error)
	List(account string, limit, offset int) (*database.StateChanges, error)
	Get(account, id string) (*database.StateChange, error)
}

type Hosts interface {
	List(account string) []inventory.HostState
}

// Backends are the components served by the API.
type Backends struct {
	States       States
	History      History
	Hosts        Hosts
	Orchestrator Orchestrator
	Events       bus.Writer
	// CompletionTopic receives the host reports posted on the callback endpoint.
	CompletionTopic string
}

type Handler struct {
	states       States
	history      History
	hosts        Hosts
	orchestrator Orchestrator
	events       bus.Writer
	topic        string
}

func NewHandler(b Backends) *Handler {
	return &Handler{
		states:       b.States,
		history:      b.History,
		hosts:        b.Hosts,
		orchestrator: b.Orchestrator,
		events:       b.Events,
		topic:        b.CompletionTopic,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", h.getState)
	mux.HandleFunc("POST /state", h.setState)
	mux.HandleFunc("GET /states", h.listStateChanges)
	mux.HandleFunc("GET /states/{id}", h.getStateChange)
	mux.HandleFunc("GET /hosts", h.listHosts)
	mux.HandleFunc("POST /sync", h.startSync)
	mux.HandleFunc("GET /sync_results", h.syncResults)
	mux.HandleFunc("GET /runs", h.listRuns)
	mux.HandleFunc("GET /job", h.job)
	mux.HandleFunc("POST /playbook_dispatcher", h.playbookDispatcher)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

type syncResponse struct {
	ID string `json:"id"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := serializer.JSON.Marshal(body)
	if err != nil {
		slog.Error("unable to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errMissingParameter), errors.Is(err, errInvalidParameter):
		status = http.StatusBadRequest
	case errors.Is(err, state.ErrNoStateForAccount),
		errors.Is(err, history.ErrChangeNotFound),
		errors.Is(err, results.ErrUnknownRun),
		errors.Is(err, runs.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, playbook.ErrUnknownValue):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	metrics.APIError(status)
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	metrics.APIError(http.StatusBadRequest)
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func param(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", errMissingParameter, name)
	}
	return v, nil
}

// intParam returns the integer query parameter name, or fallback when absent.
func intParam(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non negative integer", errInvalidParameter, name)
	}
	return n, nil
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	account, err := param(r, "account")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.states.Get(account))
}

func (h *Handler) setState(w http.ResponseWriter, r *http.Request) {
	account, err := param(r, "account")
	if err != nil {
		writeError(w, err)
		return
	}

	var raw map[string]any
	if err := serializer.JSON.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&raw); err != nil {
		badRequest(w, "state must be a JSON object: "+err.Error())
		return
	}
	if raw == nil {
		badRequest(w, "state must be a JSON object")
		return
	}

	desired, err := state.FromMap(raw)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	change, err := h.history.Append(account, desired, r.Header.Get(config.InitiatorHeader))
	if err != nil {
		writeError(w, err)
		return
	}

	h.states.Set(account, desired)
	metrics.StateChanged()
	slog.Info("requested state updated", "account", account, "change", change.ID)
	writeJSON(w, http.StatusOK, desired)
}

func (h *Handler) listStateChanges(w http.ResponseWriter, r *http.Request) {
	account, err := param(r, "account")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := intParam(r, "limit", config.DefaultHistoryLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.history.List(account, min(limit, config.MaxHistoryLimit), offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) getStateChange(w http.ResponseWriter, r *http.Request) {
	account, err := param(r, "account")
	if err != nil {
		writeError(w, err)
		return
	}

	change, err := h.history.Get(account, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

// listHosts returns the hosts observed through connectivity events.
func (h *Handler) listHosts(w http.ResponseWriter, r *http.Request) {
	account, err := param(r, "account")
	if err != nil {
		writeError(w, err)
		return
	}

	hosts := h.hosts.List(account)
	if hosts == nil {
		hosts = []inventory.HostState{}
	}
	writeJSON(w, http.StatusOK, hosts)
}

func (h *Handler) startSync(w http.ResponseWriter, r *http.Request) {
	account, err := param(r, "account")
	if err != nil {
		writeError(w, err)
		return
	}

	runID, err := h.orchestrator.StartSync(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, syncResponse{ID: runID})
}

func (h *Handler) syncResults(w http.ResponseWriter, r *http.Request) {
	account, err := param(r, "account")
	if err != nil {
		writeError(w, err)
		return
	}
	runID, err := param(r, "run_id")
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := h.orchestrator.View(account, runID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	account, err := param(r, "account")
	if err != nil {
		writeError(w, err)
		return
	}

	list, err := h.orchestrator.Runs(account)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []database.Run{}
	}
	writeJSON(w, http.StatusOK, list)
}

// job returns the playbook hosts fetch from the payload url of their job request.
func (h *Handler) job(w http.ResponseWriter, r *http.Request) {
	account, err := param(r, "account")
	if err != nil {
		writeError(w, err)
		return
	}

	desired, err := h.states.Lookup(account)
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := playbook.Generate(desired)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}

// playbookDispatcher receives host reports and publishes them as completion events.
func (h *Handler) playbookDispatcher(w http.ResponseWriter, r *http.Request) {
	account, err := param(r, "account")
	if err != nil {
		writeError(w, err)
		return
	}

	messageID := r.Header.Get(config.MessageIDHeader)
	if messageID == "" {
		badRequest(w, config.MessageIDHeader+" header is required")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if !json.Valid(body) {
		badRequest(w, "report must be valid JSON")
		return
	}

	msg, err := message.CompletionMessage(h.topic, message.CompletionEvent{
		Account:       account,
		MessageID:     messageID,
		AnsibleOutput: body,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.events.WriteMessages(r.Context(), msg); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
