package app

import (
	"encoding/json"
	"sync"

	"campus_market_service/internal/chat/domain"
	"campus_market_service/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// PushConn is the slice of a websocket connection the registry needs.
// Kept as an interface so tests can capture pushes without a socket.
type PushConn interface {
	WriteMessage(messageType int, data []byte) error
}

// syncConn serializes frame writes to one connection. The underlying
// websocket allows a single writer at a time, but handler replies, the
// ping ticker, subscriber callbacks and presence pushes all write to the
// same conn from their own goroutines. Every data-frame write for a
// connection must go through its syncConn.
type syncConn struct {
	mu   sync.Mutex
	conn PushConn
}

func newSyncConn(conn PushConn) *syncConn {
	return &syncConn{conn: conn}
}

func (c *syncConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

type session struct {
	userID  string
	threads map[string]struct{}
}

// PresenceRegistry is the in-memory binding between live connections and
// user identities plus thread-room subscriptions. It only knows about
// sessions on this process instance; cross-instance delivery rides the
// redis channels. Rebuilt empty on every restart, no replay buffer.
type PresenceRegistry struct {
	mu       sync.RWMutex
	sessions map[PushConn]*session
	users    map[string]map[PushConn]struct{}
	threads  map[string]map[PushConn]struct{}
}

// NewPresenceRegistry create an empty PresenceRegistry
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		sessions: make(map[PushConn]*session),
		users:    make(map[string]map[PushConn]struct{}),
		threads:  make(map[string]map[PushConn]struct{}),
	}
}

// Register bind conn to userID. A second Register for the same conn
// replaces the previous binding.
func (p *PresenceRegistry) Register(conn PushConn, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if old, ok := p.sessions[conn]; ok {
		p.dropLocked(conn, old)
	}

	p.sessions[conn] = &session{
		userID:  userID,
		threads: make(map[string]struct{}),
	}
	if p.users[userID] == nil {
		p.users[userID] = make(map[PushConn]struct{})
	}
	p.users[userID][conn] = struct{}{}
}

// Subscribe add conn to the thread room. No-op for unregistered conns.
func (p *PresenceRegistry) Subscribe(conn PushConn, threadID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[conn]
	if !ok {
		return
	}
	s.threads[threadID] = struct{}{}
	if p.threads[threadID] == nil {
		p.threads[threadID] = make(map[PushConn]struct{})
	}
	p.threads[threadID][conn] = struct{}{}
}

// Unsubscribe remove conn from the thread room
func (p *PresenceRegistry) Unsubscribe(conn PushConn, threadID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.sessions[conn]; ok {
		delete(s.threads, threadID)
	}
	if room, ok := p.threads[threadID]; ok {
		delete(room, conn)
		if len(room) == 0 {
			delete(p.threads, threadID)
		}
	}
}

// Disconnect drop the conn, its user binding and all its subscriptions
func (p *PresenceRegistry) Disconnect(conn PushConn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[conn]
	if !ok {
		return
	}
	p.dropLocked(conn, s)
}

func (p *PresenceRegistry) dropLocked(conn PushConn, s *session) {
	delete(p.sessions, conn)
	if conns, ok := p.users[s.userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(p.users, s.userID)
		}
	}
	for threadID := range s.threads {
		if room, ok := p.threads[threadID]; ok {
			delete(room, conn)
			if len(room) == 0 {
				delete(p.threads, threadID)
			}
		}
	}
}

// Online report whether the user has at least one live session here
func (p *PresenceRegistry) Online(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users[userID]) > 0
}

// PushToUser write the event to every session of userID on this
// instance, return the number reached. Write failures are logged and the
// event is dropped for that session; the polling read path recovers it.
func (p *PresenceRegistry) PushToUser(userID string, event domain.PushEvent) int {
	return p.push(p.snapshotUser(userID), event)
}

// PushToThread write the event to every session subscribed to the thread
// room on this instance.
func (p *PresenceRegistry) PushToThread(threadID string, event domain.PushEvent) int {
	return p.push(p.snapshotThread(threadID), event)
}

func (p *PresenceRegistry) snapshotUser(userID string) []PushConn {
	p.mu.RLock()
	defer p.mu.RUnlock()
	conns := make([]PushConn, 0, len(p.users[userID]))
	for conn := range p.users[userID] {
		conns = append(conns, conn)
	}
	return conns
}

func (p *PresenceRegistry) snapshotThread(threadID string) []PushConn {
	p.mu.RLock()
	defer p.mu.RUnlock()
	conns := make([]PushConn, 0, len(p.threads[threadID]))
	for conn := range p.threads[threadID] {
		conns = append(conns, conn)
	}
	return conns
}

func (p *PresenceRegistry) push(conns []PushConn, event domain.PushEvent) int {
	if len(conns) == 0 {
		return 0
	}

	resp := domain.WSResponse{
		Action:  string(event.Event),
		Success: true,
		Payload: map[string]interface{}{},
	}
	if event.Message != nil {
		resp.Payload["message"] = event.Message
	}
	if event.Notification != nil {
		resp.Payload["notification"] = event.Notification
	}
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Errorf("push marshal error:", err)
		return 0
	}

	delivered := 0
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Log.Error("push write failed", zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}
