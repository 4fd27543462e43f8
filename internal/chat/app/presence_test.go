package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"campus_market_service/internal/chat/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPresence_RegisterAndPushToUser(t *testing.T) {
	p := NewPresenceRegistry()
	userID := uuid.New().String()

	first := &fakeConn{}
	second := &fakeConn{}
	p.Register(first, userID)
	p.Register(second, userID)

	assert.True(t, p.Online(userID))

	delivered := p.PushToUser(userID, domain.PushEvent{
		Event:   domain.NewMessage,
		Message: &domain.Message{ID: "m1"},
	})
	assert.Equal(t, 2, delivered)
	assert.Len(t, first.Frames(), 1)
	assert.Len(t, second.Frames(), 1)

	var resp domain.WSResponse
	assert.NoError(t, json.Unmarshal(first.Frames()[0], &resp))
	assert.Equal(t, string(domain.NewMessage), resp.Action)
	assert.True(t, resp.Success)
}

func TestPresence_ThreadRooms(t *testing.T) {
	p := NewPresenceRegistry()
	conn := &fakeConn{}
	other := &fakeConn{}
	p.Register(conn, uuid.New().String())
	p.Register(other, uuid.New().String())

	p.Subscribe(conn, "t1")
	p.Subscribe(other, "t2")

	delivered := p.PushToThread("t1", domain.PushEvent{Event: domain.NewMessage})
	assert.Equal(t, 1, delivered)
	assert.Len(t, conn.Frames(), 1)
	assert.Empty(t, other.Frames())

	p.Unsubscribe(conn, "t1")
	delivered = p.PushToThread("t1", domain.PushEvent{Event: domain.NewMessage})
	assert.Zero(t, delivered)
}

func TestPresence_DisconnectDropsEverything(t *testing.T) {
	p := NewPresenceRegistry()
	userID := uuid.New().String()
	conn := &fakeConn{}

	p.Register(conn, userID)
	p.Subscribe(conn, "t1")
	p.Disconnect(conn)

	assert.False(t, p.Online(userID))
	assert.Zero(t, p.PushToUser(userID, domain.PushEvent{Event: domain.NewMessage}))
	assert.Zero(t, p.PushToThread("t1", domain.PushEvent{Event: domain.NewMessage}))
}

// rawConn appends frames without its own lock. Safety comes entirely
// from the write serialization in front of it, which is what the
// concurrency test below exercises under the race detector.
type rawConn struct {
	frames [][]byte
}

func (c *rawConn) WriteMessage(messageType int, data []byte) error {
	c.frames = append(c.frames, data)
	return nil
}

func TestPresence_ConcurrentPushesAreSerialized(t *testing.T) {
	p := NewPresenceRegistry()
	userID := uuid.New().String()

	raw := &rawConn{}
	p.Register(newSyncConn(raw), userID)

	const writers = 64
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			p.PushToUser(userID, domain.PushEvent{
				Event:   domain.NewMessage,
				Message: &domain.Message{ID: "m"},
			})
		}()
	}
	wg.Wait()

	assert.Len(t, raw.frames, writers)
}

func TestPresence_WriteErrorDoesNotCountAsDelivered(t *testing.T) {
	p := NewPresenceRegistry()
	userID := uuid.New().String()

	broken := &fakeConn{err: errors.New("dead socket")}
	healthy := &fakeConn{}
	p.Register(broken, userID)
	p.Register(healthy, userID)

	delivered := p.PushToUser(userID, domain.PushEvent{Event: domain.NewMessage})
	assert.Equal(t, 1, delivered)
	assert.Len(t, healthy.Frames(), 1)
}
