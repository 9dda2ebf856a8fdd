package api

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	domain "github.com/example/chat-relay/domain/chat"
	"github.com/example/chat-relay/modules/broadcast"
	"github.com/example/chat-relay/modules/chat"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Rate limiting constants for the chat path.
const (
	messagesPerSecond = 10
	burstSize         = 20
)

// rateLimiter implements a simple token bucket rate limiter.
type rateLimiter struct {
	tokens     int
	maxTokens  int
	refillRate int // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func newRateLimiter(maxTokens, refillRate int) *rateLimiter {
	return &rateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastRefill)
	tokensToAdd := int(elapsed.Seconds()) * r.refillRate
	if tokensToAdd > 0 {
		r.tokens += tokensToAdd
		if r.tokens > r.maxTokens {
			r.tokens = r.maxTokens
		}
		r.lastRefill = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}

// handleWebSocket owns one connection for its whole lifetime: register
// with the hub, run the read loop, and on exit leave the room and
// unregister. Broadcasts reach the client through the hub; only private
// replies (join confirmations and error notices) are written here.
func (m *Module) handleWebSocket(c *websocket.Conn) {
	logger := slog.Default()

	clientID := uuid.New().String()
	client := broadcast.NewClient(clientID, c)
	m.hub.Register(client)

	sess := &chat.Session{ClientID: clientID}
	limiter := newRateLimiter(burstSize, messagesPerSecond)

	defer func() {
		m.coordinator.Disconnect(sess)
		m.hub.Unregister(clientID)
		c.Close()
		logger.Info("WebSocket disconnected", "clientID", clientID, "userID", sess.UserID)
	}()

	logger.Info("WebSocket connected", "clientID", clientID)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error", "clientID", clientID, "error", err)
			}
			break
		}

		var frame ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			logger.Warn("Dropping malformed frame", "clientID", clientID, "error", err)
			continue
		}

		switch frame.Action {
		case "join":
			m.handleJoin(client, sess, frame)
		case "chat":
			m.handleChat(client, sess, limiter, frame)
		default:
			logger.Warn("Dropping frame with unknown action", "clientID", clientID, "action", frame.Action)
		}
	}
}

// handleJoin runs the join transition. Failures turn into private
// system error messages; nothing is ever broadcast for a failed join.
func (m *Module) handleJoin(client *broadcast.Client, sess *chat.Session, frame ClientFrame) {
	confirmation, err := m.coordinator.Join(sess, frame.RoomID, frame.UserID, frame.Password)
	if err != nil {
		if reply, ok := chat.ErrorReply(frame.RoomID, err); ok {
			_ = client.SendJSON(reply)
		}
		return
	}
	_ = client.SendJSON(confirmation)
}

// handleChat relays a chat message into the room. Over-limit senders
// get a private notice instead of a relay.
func (m *Module) handleChat(client *broadcast.Client, sess *chat.Session, limiter *rateLimiter, frame ClientFrame) {
	if !limiter.allow() {
		notice := domain.NewSystemMessage(sess.RoomID, "sending too fast, slow down", domain.SystemError)
		_ = client.SendJSON(notice)
		return
	}

	m.coordinator.Chat(sess, chat.ChatRequest{
		Type:        frame.Type,
		Content:     frame.Content,
		URL:         frame.URL,
		FileName:    frame.FileName,
		FileType:    frame.FileType,
		ClientMsgID: frame.ClientMsgID,
	})
}
