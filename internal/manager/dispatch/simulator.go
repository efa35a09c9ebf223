package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackadi-io/configmanager/internal/bus"
	"github.com/jackadi-io/configmanager/internal/manager/inventory"
	"github.com/jackadi-io/configmanager/internal/manager/message"
)

var simulatedOutput = json.RawMessage(`{"compliance":"success","drift":"success","insights":"success"}`)

// Simulator accepts every work item and publishes a successful completion after Delay.
//
// It stands in for the connector service and the remote hosts.
type Simulator struct {
	Writer bus.Writer
	Topic  string
	Delay  time.Duration
	// Token is used to generate correlation tokens, uuid.NewString when nil.
	Token func() string
}

func (s *Simulator) Dispatch(ctx context.Context, account string, host inventory.Host, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token := uuid.NewString()
	if s.Token != nil {
		token = s.Token()
	}

	msg, err := message.CompletionMessage(s.Topic, message.CompletionEvent{
		Account:       account,
		MessageID:     token,
		AnsibleOutput: simulatedOutput,
	})
	if err != nil {
		return "", err
	}

	time.AfterFunc(s.Delay, func() {
		if err := s.Writer.WriteMessages(context.Background(), msg); err != nil {
			slog.Error("simulated completion not published", "account", account, "host", host.InventoryID, "error", err)
			return
		}
		slog.Debug("simulated completion published", "account", account, "host", host.InventoryID, "message_id", token)
	})

	return token, nil
}
