// Package bus abstracts the event stream the manager consumes and produces.
package bus

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("bus closed")

type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Reader consumes the messages of one topic for one consumer group.
type Reader interface {
	ReadMessage(ctx context.Context) (Message, error)
	Close() error
}

// Writer publishes messages, each on its own topic.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...Message) error
	Close() error
}

type Bus interface {
	Reader(topic, group string) (Reader, error)
	Writer() Writer
	Close() error
}
