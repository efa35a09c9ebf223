package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackadi-io/configmanager/internal/bus"
	"github.com/jackadi-io/configmanager/internal/metrics"
)

const readRetryDelay = time.Second

// Handler processes the payload of one message.
type Handler func(ctx context.Context, data []byte) error

// Consume reads messages until the context is canceled or the reader is closed.
//
// Handler errors and panics are logged and the message is dropped.
func Consume(ctx context.Context, name string, reader bus.Reader, handler Handler) {
	slog.Info("starting consumer", "consumer", name)
	defer slog.Info("consumer stopped", "consumer", name)

	for {
		msg, err := reader.ReadMessage(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil, errors.Is(err, io.EOF), errors.Is(err, bus.ErrClosed):
			return
		default:
			slog.Warn("failed to read message", "consumer", name, "error", err)
			select {
			case <-time.After(readRetryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}

		if err := safeHandle(ctx, handler, msg.Value); err != nil {
			metrics.EventDropped(name)
			slog.Error("dropping event", "consumer", name, "key", string(msg.Key), "error", err)
		}
	}
}

func safeHandle(ctx context.Context, handler Handler, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, data)
}
