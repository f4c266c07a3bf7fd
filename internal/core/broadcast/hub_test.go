package broadcast

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaegraph/vitae/internal/core/model"
)

type fakeSession struct {
	messages []Message
	writeErr error
	closed   bool
}

func (f *fakeSession) WriteJSON(v interface{}) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.messages = append(f.messages, v.(Message))
	return nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func TestPublishDeliversToSubscriber(t *testing.T) {
	hub := NewHub()
	s := &fakeSession{}
	hub.Subscribe("u1", s)

	hub.Publish("u1", model.GraphDelta{Type: model.DeltaNodeAdded, UserID: "u1"})

	require.Len(t, s.messages, 1)
	assert.Equal(t, MessageGraphUpdate, s.messages[0].Type)
	delta := s.messages[0].Payload.(model.GraphDelta)
	assert.Equal(t, model.DeltaNodeAdded, delta.Type)
}

func TestPublishScopedToUser(t *testing.T) {
	hub := NewHub()
	mine := &fakeSession{}
	theirs := &fakeSession{}
	hub.Subscribe("u1", mine)
	hub.Subscribe("u2", theirs)

	hub.Publish("u1", model.GraphDelta{Type: model.DeltaNodeAdded, UserID: "u1"})

	assert.Len(t, mine.messages, 1)
	assert.Empty(t, theirs.messages)
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Publish("nobody", model.GraphDelta{Type: model.DeltaNodeAdded})
}

func TestFailedWriteDropsSession(t *testing.T) {
	hub := NewHub()
	broken := &fakeSession{writeErr: errors.New("connection reset")}
	healthy := &fakeSession{}
	hub.Subscribe("u1", broken)
	hub.Subscribe("u1", healthy)

	hub.Publish("u1", model.GraphDelta{Type: model.DeltaNodeAdded, UserID: "u1"})

	assert.True(t, broken.closed)
	assert.Equal(t, 1, hub.SessionCount("u1"))
	assert.Len(t, healthy.messages, 1)

	// the dropped session receives nothing further
	hub.Publish("u1", model.GraphDelta{Type: model.DeltaNodeUpdated, UserID: "u1"})
	assert.Len(t, healthy.messages, 2)
}

func TestUnsubscribe(t *testing.T) {
	hub := NewHub()
	s := &fakeSession{}
	hub.Subscribe("u1", s)
	hub.Unsubscribe("u1", s)

	hub.Publish("u1", model.GraphDelta{Type: model.DeltaNodeAdded})

	assert.Empty(t, s.messages)
	assert.Equal(t, 0, hub.SessionCount("u1"))
}

// racySession flags any two writes that overlap in time. A websocket
// connection tolerates only one concurrent writer.
type racySession struct {
	inWrite  int32
	overlaps int32
	writes   int32
}

func (s *racySession) WriteJSON(interface{}) error {
	if atomic.AddInt32(&s.inWrite, 1) > 1 {
		atomic.AddInt32(&s.overlaps, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&s.inWrite, -1)
	atomic.AddInt32(&s.writes, 1)
	return nil
}

func (s *racySession) Close() error { return nil }

func TestConcurrentPublishersSerializePerSession(t *testing.T) {
	hub := NewHub()
	s := &racySession{}
	hub.Subscribe("u1", s)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Publish("u1", model.GraphDelta{Type: model.DeltaRelationshipAdded, UserID: "u1"})
			hub.Notify("u1", map[string]string{"status": "ok"})
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&s.overlaps), "writes to one session must not overlap")
	assert.Equal(t, int32(16), atomic.LoadInt32(&s.writes))
}

func TestSystemReachesAllUsers(t *testing.T) {
	hub := NewHub()
	a := &fakeSession{}
	b := &fakeSession{}
	hub.Subscribe("u1", a)
	hub.Subscribe("u2", b)

	hub.System("maintenance in 5 minutes")

	require.Len(t, a.messages, 1)
	require.Len(t, b.messages, 1)
	assert.Equal(t, MessageSystemMessage, a.messages[0].Type)
}
