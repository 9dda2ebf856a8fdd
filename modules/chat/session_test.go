package chat

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/example/chat-relay/modules/broadcast"
)

// fakePresence mirrors the hub's membership semantics: one room per
// client, synchronous mutation.
type fakePresence struct {
	rooms map[string]map[string]bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{rooms: make(map[string]map[string]bool)}
}

func (p *fakePresence) JoinRoomIfBelowCap(clientID, roomID string, max int) bool {
	if max > 0 {
		count := len(p.rooms[roomID])
		if p.rooms[roomID][clientID] {
			count--
		}
		if count >= max {
			return false
		}
	}
	p.LeaveRoom(clientID)
	if p.rooms[roomID] == nil {
		p.rooms[roomID] = make(map[string]bool)
	}
	p.rooms[roomID][clientID] = true
	return true
}

func (p *fakePresence) LeaveRoom(clientID string) {
	for _, members := range p.rooms {
		delete(members, clientID)
	}
}

func (p *fakePresence) RoomClientCount(roomID string) int {
	return len(p.rooms[roomID])
}

func (p *fakePresence) InRoom(clientID, roomID string) bool {
	return p.rooms[roomID][clientID]
}

func newTestModule(t *testing.T) (*Module, *fakePresence) {
	t.Helper()
	m := NewModule()
	presence := newFakePresence()
	m.SetPresence(presence)
	return m, presence
}

func mustCreate(t *testing.T, m *Module, roomID, ownerID, password string, maxUsers int) {
	t.Helper()
	if _, err := m.Registry().Create(roomID, ownerID, password, maxUsers); err != nil {
		t.Fatalf("Create(%s) error = %v", roomID, err)
	}
}

func TestJoin(t *testing.T) {
	m, presence := newTestModule(t)
	mustCreate(t, m, "lobby", "alice", "", 0)

	sess := &Session{ClientID: "c1"}
	confirmation, err := m.Join(sess, "lobby", "bob", "")
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	if sess.RoomID != "lobby" || sess.UserID != "bob" {
		t.Errorf("session = %+v, want joined to lobby as bob", sess)
	}
	if !presence.InRoom("c1", "lobby") {
		t.Error("presence should record c1 in lobby")
	}
	if !strings.Contains(confirmation.Content, "lobby") || !strings.Contains(confirmation.Content, "alice") {
		t.Errorf("confirmation = %q, want room and owner named", confirmation.Content)
	}
}

func TestJoinValidation(t *testing.T) {
	m, _ := newTestModule(t)
	mustCreate(t, m, "vip", "alice", "s3cret", 0)

	tests := []struct {
		name     string
		roomID   string
		userID   string
		password string
		wantErr  error
	}{
		{"missing room id", "", "bob", "", ErrInvalidArgument},
		{"missing user id", "vip", "", "", ErrInvalidArgument},
		{"unknown room", "ghost", "bob", "", ErrRoomNotFound},
		{"wrong password", "vip", "bob", "nope", ErrBadPassword},
		{"empty password on protected room", "vip", "bob", "", ErrBadPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &Session{ClientID: "c1"}
			if _, err := m.Join(sess, tt.roomID, tt.userID, tt.password); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Join() error = %v, want %v", err, tt.wantErr)
			}
			if sess.Joined() {
				t.Error("failed join must leave the session unjoined")
			}
		})
	}
}

func TestJoinCapacity(t *testing.T) {
	m, presence := newTestModule(t)
	mustCreate(t, m, "small", "alice", "", 2)

	for i, id := range []string{"c1", "c2"} {
		sess := &Session{ClientID: id}
		if _, err := m.Join(sess, "small", "user", ""); err != nil {
			t.Fatalf("Join() #%d error = %v", i, err)
		}
	}

	sess := &Session{ClientID: "c3"}
	if _, err := m.Join(sess, "small", "late", ""); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("Join() error = %v, want %v", err, ErrRoomFull)
	}
	if presence.RoomClientCount("small") != 2 {
		t.Errorf("room count = %d, want 2", presence.RoomClientCount("small"))
	}
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	m := NewModule()
	hub := broadcast.NewHub()
	m.SetPresence(hub)
	mustCreate(t, m, "small", "alice", "", 1)

	const racers = 16
	start := make(chan struct{})
	admitted := make(chan string, racers)
	var wg sync.WaitGroup

	for i := 0; i < racers; i++ {
		clientID := fmt.Sprintf("c%d", i)
		hub.Register(broadcast.NewClient(clientID, nil))
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			sess := &Session{ClientID: clientID}
			if _, err := m.Join(sess, "small", "user", ""); err == nil {
				admitted <- clientID
			}
		}()
	}
	close(start)
	wg.Wait()
	close(admitted)

	var winners []string
	for id := range admitted {
		winners = append(winners, id)
	}
	if len(winners) != 1 {
		t.Fatalf("admitted %d sessions into a one-seat room, want 1", len(winners))
	}
	if got := hub.RoomClientCount("small"); got != 1 {
		t.Fatalf("room count = %d, want 1", got)
	}
	if !hub.InRoom(winners[0], "small") {
		t.Errorf("admitted client %s should be a room member", winners[0])
	}
}

func TestFailedJoinKeepsCurrentRoom(t *testing.T) {
	m, presence := newTestModule(t)
	mustCreate(t, m, "lobby", "alice", "", 0)
	mustCreate(t, m, "small", "alice", "", 1)
	mustCreate(t, m, "vip", "alice", "s3cret", 0)

	occupant := &Session{ClientID: "c0"}
	if _, err := m.Join(occupant, "small", "first", ""); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	sess := &Session{ClientID: "c1"}
	if _, err := m.Join(sess, "lobby", "bob", ""); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	// Full target room: the capacity check runs before the session
	// leaves its current room.
	if _, err := m.Join(sess, "small", "bob", ""); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("Join() error = %v, want %v", err, ErrRoomFull)
	}
	if sess.RoomID != "lobby" || !presence.InRoom("c1", "lobby") {
		t.Error("failed join must not evict the session from its current room")
	}

	// Same for a password failure.
	if _, err := m.Join(sess, "vip", "bob", "nope"); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("Join() error = %v, want %v", err, ErrBadPassword)
	}
	if sess.RoomID != "lobby" || !presence.InRoom("c1", "lobby") {
		t.Error("failed join must not evict the session from its current room")
	}
}

func TestRejoinOwnFullRoom(t *testing.T) {
	m, presence := newTestModule(t)
	mustCreate(t, m, "small", "alice", "", 1)

	sess := &Session{ClientID: "c1"}
	if _, err := m.Join(sess, "small", "bob", ""); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	// The connection already holds the only seat; re-joining must not
	// count it against the cap.
	if _, err := m.Join(sess, "small", "bob", ""); err != nil {
		t.Fatalf("re-Join() error = %v", err)
	}
	if presence.RoomClientCount("small") != 1 {
		t.Errorf("room count = %d, want 1", presence.RoomClientCount("small"))
	}
}

func TestSwitchRooms(t *testing.T) {
	m, presence := newTestModule(t)
	mustCreate(t, m, "lobby", "alice", "", 0)
	mustCreate(t, m, "games", "alice", "", 0)

	sess := &Session{ClientID: "c1"}
	if _, err := m.Join(sess, "lobby", "bob", ""); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if _, err := m.Join(sess, "games", "bob", ""); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	if presence.InRoom("c1", "lobby") {
		t.Error("switching rooms must leave the old room")
	}
	if !presence.InRoom("c1", "games") || sess.RoomID != "games" {
		t.Error("session should be in games")
	}
}

func TestDisconnect(t *testing.T) {
	m, presence := newTestModule(t)
	mustCreate(t, m, "lobby", "alice", "", 0)

	sess := &Session{ClientID: "c1"}
	if _, err := m.Join(sess, "lobby", "bob", ""); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	m.Disconnect(sess)
	if sess.Joined() {
		t.Error("disconnected session should be unjoined")
	}
	if presence.InRoom("c1", "lobby") {
		t.Error("disconnect must remove the client from its room")
	}

	// A second disconnect is a no-op.
	m.Disconnect(sess)

	// Disconnecting an unjoined session is a no-op too.
	m.Disconnect(&Session{ClientID: "c2"})
}

func TestChatRequiresMembership(t *testing.T) {
	m, presence := newTestModule(t)
	mustCreate(t, m, "lobby", "alice", "", 0)

	// Unjoined session: dropped silently.
	m.Chat(&Session{ClientID: "c1"}, ChatRequest{Content: "hi"})

	sess := &Session{ClientID: "c2"}
	if _, err := m.Join(sess, "lobby", "bob", ""); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	// Hub no longer tracks the client: dropped silently.
	presence.LeaveRoom("c2")
	m.Chat(sess, ChatRequest{Content: "hi"})
}

func TestErrorReply(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantSent bool
		contains string
	}{
		{"room not found", ErrRoomNotFound, true, "does not exist"},
		{"bad password", ErrBadPassword, true, "password"},
		{"room full", ErrRoomFull, true, "full"},
		{"invalid argument stays silent", ErrInvalidArgument, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, sent := ErrorReply("lobby", tt.err)
			if sent != tt.wantSent {
				t.Fatalf("ErrorReply() sent = %v, want %v", sent, tt.wantSent)
			}
			if !sent {
				return
			}
			if msg.SystemType != "error" || msg.RoomID != "lobby" {
				t.Errorf("reply = %+v, want system error for lobby", msg)
			}
			if !strings.Contains(msg.Content, tt.contains) {
				t.Errorf("reply content = %q, want substring %q", msg.Content, tt.contains)
			}
		})
	}
}
