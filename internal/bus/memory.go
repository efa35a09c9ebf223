package bus

import (
	"context"
	"io"
	"maps"
	"sync"
)

const memoryQueueSize = 1024

// Memory is an in-process bus.
//
// Every consumer group of a topic receives each message once; readers of the
// same group share the messages.
type Memory struct {
	mutex  *sync.Mutex
	groups map[string]map[string]chan Message
	done   chan struct{}
	once   *sync.Once
}

func NewMemory() *Memory {
	return &Memory{
		mutex:  &sync.Mutex{},
		groups: make(map[string]map[string]chan Message),
		done:   make(chan struct{}),
		once:   &sync.Once{},
	}
}

func (m *Memory) queue(topic, group string) chan Message {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	groups, ok := m.groups[topic]
	if !ok {
		groups = make(map[string]chan Message)
		m.groups[topic] = groups
	}

	ch, ok := groups[group]
	if !ok {
		ch = make(chan Message, memoryQueueSize)
		groups[group] = ch
	}
	return ch
}

func (m *Memory) Reader(topic, group string) (Reader, error) {
	select {
	case <-m.done:
		return nil, ErrClosed
	default:
	}
	return &memoryReader{ch: m.queue(topic, group), done: m.done}, nil
}

func (m *Memory) Writer() Writer {
	return memoryWriter{bus: m}
}

func (m *Memory) Close() error {
	m.once.Do(func() {
		close(m.done)
	})
	return nil
}

type memoryReader struct {
	ch   chan Message
	done chan struct{}
}

func (r *memoryReader) ReadMessage(ctx context.Context) (Message, error) {
	select {
	case msg := <-r.ch:
		return msg, nil
	case <-r.done:
		return Message{}, io.EOF
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (r *memoryReader) Close() error {
	return nil
}

type memoryWriter struct {
	bus *Memory
}

// WriteMessages delivers the messages to every group subscribed to their topic.
//
// Messages of a topic without subscriber are dropped.
func (w memoryWriter) WriteMessages(ctx context.Context, msgs ...Message) error {
	for _, msg := range msgs {
		w.bus.mutex.Lock()
		queues := maps.Clone(w.bus.groups[msg.Topic])
		w.bus.mutex.Unlock()

		for _, ch := range queues {
			select {
			case ch <- msg:
			case <-w.bus.done:
				return ErrClosed
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func (w memoryWriter) Close() error {
	return nil
}
