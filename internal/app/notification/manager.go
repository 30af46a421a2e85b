// Package notification provides the notification manager for broadcasting events.
package notification

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/animbox/internal/infra/logger"
)

// SequenceField is the field added to every broadcast message.
const SequenceField = "sequence_no"

// DefaultOutboxSize is the number of messages a subscriber may fall behind
// before it is dropped.
const DefaultOutboxSize = 64

// Stream represents a notification stream for a subscriber.
// Send is never called concurrently for the same stream.
type Stream interface {
	Send(*structpb.Struct) error
}

// subscription represents a subscriber's subscription. Messages are queued
// in outbox and sent by a single pump goroutine.
type subscription struct {
	id     string
	stream Stream
	outbox chan *structpb.Struct
	closed bool          // outbox closed; guarded by Manager.mu
	done   chan struct{} // closed when the pump has exited
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	outboxSize    int
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	done          chan struct{}
	closeOnce     sync.Once
	log           zerolog.Logger
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return NewManagerWithOutbox(DefaultOutboxSize)
}

// NewManagerWithOutbox creates a manager whose subscribers may queue up to
// size messages.
func NewManagerWithOutbox(size int) *Manager {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &Manager{
		subscriptions: make(map[string]*subscription),
		outboxSize:    size,
		done:          make(chan struct{}),
		log:           logger.For("notification"),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	sub := &subscription{
		id:     id,
		stream: stream,
		outbox: make(chan *structpb.Struct, m.outboxSize),
		done:   make(chan struct{}),
	}
	m.subscriptions[id] = sub
	go m.pump(sub)

	m.log.Debug().Msgf("subscribed: id=%s total=%d", id, len(m.subscriptions))
	return id
}

// Unsubscribe removes a subscription and waits until its stream is no
// longer in use. After it returns, Send is not called on the stream again.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	sub, ok := m.subscriptions[subscriptionID]
	if ok {
		m.closeLocked(sub)
	}
	m.mu.Unlock()

	if ok {
		<-sub.done
	}
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Broadcast stamps msg with the next sequence number and queues it for all
// subscribers. It never blocks; subscribers whose outbox is full are dropped.
func (m *Manager) Broadcast(msg *structpb.Struct) {
	if msg.Fields == nil {
		msg.Fields = make(map[string]*structpb.Value)
	}
	msg.Fields[SequenceField] = structpb.NewNumberValue(float64(m.NextSequenceNo()))

	var slow []*subscription
	m.mu.RLock()
	for _, sub := range m.subscriptions {
		if sub.closed {
			continue
		}
		select {
		case sub.outbox <- msg:
		default:
			slow = append(slow, sub)
		}
	}
	m.mu.RUnlock()

	for _, sub := range slow {
		m.log.Warn().Msgf("subscriber too slow, dropped: id=%s", sub.id)
		m.drop(sub)
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, sub := range m.subscriptions {
		if !sub.closed {
			n++
		}
	}
	return n
}

// Done returns a channel that is closed when the manager is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Close removes all subscriptions and closes Done. It is safe to call more
// than once.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subscriptions {
		m.closeLocked(sub)
	}
	m.closeOnce.Do(func() { close(m.done) })
}

// pump sends queued messages to one stream until its outbox is closed or a
// Send fails.
func (m *Manager) pump(sub *subscription) {
	defer func() {
		m.mu.Lock()
		delete(m.subscriptions, sub.id)
		m.mu.Unlock()
		close(sub.done)
	}()

	for msg := range sub.outbox {
		if err := sub.stream.Send(msg); err != nil {
			m.log.Debug().Err(err).Msgf("dropping subscriber: id=%s", sub.id)
			m.drop(sub)
			return
		}
	}
}

// drop stops delivery to a subscriber without waiting for its pump.
func (m *Manager) drop(sub *subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked(sub)
}

// closeLocked closes the outbox once.
// Must be called with lock held.
func (m *Manager) closeLocked(sub *subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.outbox)
}

// Forward encodes events from ch and broadcasts them until ch is closed or
// ctx is done. Events that fail to encode are logged and skipped.
func Forward[E any](ctx context.Context, m *Manager, ch <-chan E, encode func(E) (*structpb.Struct, error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			msg, err := encode(e)
			if err != nil {
				m.log.Error().Err(err).Msg("failed to encode event")
				continue
			}
			m.Broadcast(msg)
		}
	}
}
