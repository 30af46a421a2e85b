package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

const waitFor = time.Second

type recordingStream struct {
	mu   sync.Mutex
	msgs []*structpb.Struct
	err  error
}

func (s *recordingStream) Send(msg *structpb.Struct) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingStream) received() []*structpb.Struct {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*structpb.Struct(nil), s.msgs...)
}

func (s *recordingStream) count() int {
	return len(s.received())
}

// slowStream blocks every Send for delay and records how many Sends overlap.
type slowStream struct {
	delay time.Duration

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	sent        int
}

func (s *slowStream) Send(*structpb.Struct) error {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()

	time.Sleep(s.delay)

	s.mu.Lock()
	s.inFlight--
	s.sent++
	s.mu.Unlock()
	return nil
}

func (s *slowStream) stats() (inFlight, maxInFlight, sent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight, s.maxInFlight, s.sent
}

func TestManager_SubscribeAndBroadcast(t *testing.T) {
	m := NewManager()
	t.Cleanup(m.Close)
	a := &recordingStream{}
	b := &recordingStream{}

	idA := m.Subscribe(a)
	idB := m.Subscribe(b)
	assert.NotEqual(t, idA, idB)
	assert.Equal(t, 2, m.SubscriberCount())

	msg, err := structpb.NewStruct(map[string]any{"type": "bounced"})
	require.NoError(t, err)
	m.Broadcast(msg)

	require.Eventually(t, func() bool { return a.count() == 1 && b.count() == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, 1.0, a.received()[0].Fields[SequenceField].GetNumberValue())

	m.Unsubscribe(idB)
	assert.Equal(t, 1, m.SubscriberCount())

	m.Broadcast(&structpb.Struct{})
	require.Eventually(t, func() bool { return a.count() == 2 }, waitFor, time.Millisecond)
	assert.Equal(t, 1, b.count())
	assert.Equal(t, 2.0, a.received()[1].Fields[SequenceField].GetNumberValue())
}

func TestManager_PreservesOrder(t *testing.T) {
	m := NewManager()
	t.Cleanup(m.Close)
	s := &recordingStream{}
	m.Subscribe(s)

	for i := 0; i < 10; i++ {
		m.Broadcast(&structpb.Struct{})
	}

	require.Eventually(t, func() bool { return s.count() == 10 }, waitFor, time.Millisecond)
	for i, msg := range s.received() {
		assert.Equal(t, float64(i+1), msg.Fields[SequenceField].GetNumberValue())
	}
}

func TestManager_FailingSubscriberIsDropped(t *testing.T) {
	m := NewManager()
	t.Cleanup(m.Close)
	m.Subscribe(&recordingStream{err: errors.New("stream closed")})
	ok := &recordingStream{}
	m.Subscribe(ok)

	m.Broadcast(&structpb.Struct{})

	require.Eventually(t, func() bool { return m.SubscriberCount() == 1 }, waitFor, time.Millisecond)
	require.Eventually(t, func() bool { return ok.count() == 1 }, waitFor, time.Millisecond)
}

func TestManager_SlowSubscriberIsSerialized(t *testing.T) {
	m := NewManager()
	t.Cleanup(m.Close)
	s := &slowStream{delay: 50 * time.Millisecond}
	id := m.Subscribe(s)

	start := time.Now()
	for i := 0; i < 3; i++ {
		m.Broadcast(&structpb.Struct{})
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond, "Broadcast does not wait for Send")

	require.Eventually(t, func() bool {
		_, _, sent := s.stats()
		return sent == 3
	}, waitFor, 5*time.Millisecond)

	_, maxInFlight, _ := s.stats()
	assert.Equal(t, 1, maxInFlight, "Send never runs twice at once on one stream")

	m.Unsubscribe(id)
	inFlight, _, _ := s.stats()
	assert.Zero(t, inFlight)
}

func TestManager_UnsubscribeWaitsForInFlightSend(t *testing.T) {
	m := NewManager()
	t.Cleanup(m.Close)
	s := &slowStream{delay: 50 * time.Millisecond}
	id := m.Subscribe(s)

	m.Broadcast(&structpb.Struct{})
	require.Eventually(t, func() bool {
		inFlight, _, _ := s.stats()
		return inFlight == 1
	}, waitFor, time.Millisecond)

	m.Unsubscribe(id)
	inFlight, _, sent := s.stats()
	assert.Zero(t, inFlight, "no Send may run after Unsubscribe returns")
	assert.Equal(t, 1, sent)

	m.Broadcast(&structpb.Struct{})
	time.Sleep(60 * time.Millisecond)
	_, _, sent = s.stats()
	assert.Equal(t, 1, sent)
}

func TestManager_FullOutboxDropsSubscriber(t *testing.T) {
	m := NewManagerWithOutbox(1)
	t.Cleanup(m.Close)
	s := &slowStream{delay: 100 * time.Millisecond}
	id := m.Subscribe(s)

	// One message in Send, one queued, the third overflows.
	m.Broadcast(&structpb.Struct{})
	require.Eventually(t, func() bool {
		inFlight, _, _ := s.stats()
		return inFlight == 1
	}, waitFor, time.Millisecond)
	m.Broadcast(&structpb.Struct{})
	m.Broadcast(&structpb.Struct{})

	assert.Equal(t, 0, m.SubscriberCount())

	m.Unsubscribe(id)
	_, maxInFlight, sent := s.stats()
	assert.Equal(t, 1, maxInFlight)
	assert.LessOrEqual(t, sent, 2)
}

func TestManager_Close(t *testing.T) {
	m := NewManager()
	m.Subscribe(&recordingStream{})
	m.Close()
	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())

	select {
	case <-m.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestForward(t *testing.T) {
	m := NewManager()
	t.Cleanup(m.Close)
	s := &recordingStream{}
	m.Subscribe(s)

	ch := make(chan string, 3)
	ch <- "restarted"
	ch <- "skip-me"
	ch <- "bounced"
	close(ch)

	encode := func(e string) (*structpb.Struct, error) {
		if e == "skip-me" {
			return nil, errors.New("cannot encode")
		}
		return structpb.NewStruct(map[string]any{"type": e})
	}

	done := make(chan struct{})
	go func() {
		Forward(context.Background(), m, ch, encode)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Forward did not return after channel close")
	}

	require.Eventually(t, func() bool { return s.count() == 2 }, waitFor, time.Millisecond)
	got := s.received()
	assert.Equal(t, "restarted", got[0].Fields["type"].GetStringValue())
	assert.Equal(t, "bounced", got[1].Fields["type"].GetStringValue())
}

func TestForward_StopsOnContext(t *testing.T) {
	m := NewManager()
	ch := make(chan int)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Forward(ctx, m, ch, func(int) (*structpb.Struct, error) { return &structpb.Struct{}, nil })
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Forward did not return after cancel")
	}
}
