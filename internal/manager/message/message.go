// Package message defines the events exchanged on the bus.
package message

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackadi-io/configmanager/internal/bus"
	"github.com/jackadi-io/configmanager/internal/serializer"
)

var ErrMissingField = errors.New("missing field")

// EventTypeDelete marks a connectivity event of a host removed from the inventory.
const EventTypeDelete = "delete"

// ConnectivityEvent reports that a host connected to, or disconnected from, the dispatch service.
type ConnectivityEvent struct {
	Account           string `json:"account"`
	ID                string `json:"id"`
	InsightsID        string `json:"insights_id"`
	ConnectedClientID string `json:"connected_client_id"`
	// Connected defaults to true when absent.
	Connected *bool  `json:"connected,omitempty"`
	Type      string `json:"type,omitempty"`
}

func (e ConnectivityEvent) IsDelete() bool {
	return e.Type == EventTypeDelete
}

func (e ConnectivityEvent) IsConnected() bool {
	return !e.IsDelete() && (e.Connected == nil || *e.Connected)
}

// CompletionEvent carries the output of one work item.
//
// MessageID is the correlation token returned by the dispatch service.
type CompletionEvent struct {
	Account       string          `json:"account"`
	MessageID     string          `json:"message_id"`
	AnsibleOutput json.RawMessage `json:"ansible_output"`
}

func DecodeConnectivity(data []byte) (ConnectivityEvent, error) {
	var event ConnectivityEvent
	if err := serializer.JSON.Unmarshal(data, &event); err != nil {
		return event, fmt.Errorf("invalid connectivity event: %w", err)
	}
	if event.Account == "" || event.ID == "" {
		return event, fmt.Errorf("invalid connectivity event: %w: account and id are required", ErrMissingField)
	}
	return event, nil
}

func DecodeCompletion(data []byte) (CompletionEvent, error) {
	var event CompletionEvent
	if err := serializer.JSON.Unmarshal(data, &event); err != nil {
		return event, fmt.Errorf("invalid completion event: %w", err)
	}
	if event.Account == "" || event.MessageID == "" {
		return event, fmt.Errorf("invalid completion event: %w: account and message_id are required", ErrMissingField)
	}
	return event, nil
}

// CompletionMessage wraps a completion event in a bus message keyed by its correlation token.
func CompletionMessage(topic string, event CompletionEvent) (bus.Message, error) {
	data, err := serializer.JSON.Marshal(event)
	if err != nil {
		return bus.Message{}, err
	}
	return bus.Message{Topic: topic, Key: []byte(event.MessageID), Value: data}, nil
}

// ConnectivityMessage wraps a connectivity event in a bus message keyed by the host id.
func ConnectivityMessage(topic string, event ConnectivityEvent) (bus.Message, error) {
	data, err := serializer.JSON.Marshal(event)
	if err != nil {
		return bus.Message{}, err
	}
	return bus.Message{Topic: topic, Key: []byte(event.ID), Value: data}, nil
}
