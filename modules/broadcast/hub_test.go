package broadcast

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/example/chat-relay/domain/chat"
)

// fakeConn records written frames. failWrites makes every write fail,
// simulating a closed transport.
type fakeConn struct {
	mu         sync.Mutex
	frames     [][]byte
	failWrites bool
	closed     bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errors.New("write on closed connection")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.frames = append(c.frames, buf)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *fakeConn) lastFrame() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

func addClient(h *Hub, id string) *fakeConn {
	conn := &fakeConn{}
	h.Register(NewClient(id, conn))
	return conn
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub()

	addClient(hub, "c1")
	addClient(hub, "c2")
	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("ClientCount() = %d, want 2", got)
	}

	hub.Unregister("c1")
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() after unregister = %d, want 1", got)
	}

	// Unregistering an unknown client is a no-op.
	hub.Unregister("ghost")
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() after ghost unregister = %d, want 1", got)
	}
}

func TestJoinRoomMovesBetweenRooms(t *testing.T) {
	hub := NewHub()
	addClient(hub, "c1")

	hub.JoinRoom("c1", "lobby")
	if !hub.InRoom("c1", "lobby") {
		t.Fatal("c1 should be in lobby")
	}

	// Joining another room leaves the previous one.
	hub.JoinRoom("c1", "games")
	if hub.InRoom("c1", "lobby") {
		t.Error("c1 should have left lobby")
	}
	if !hub.InRoom("c1", "games") {
		t.Error("c1 should be in games")
	}
	if got := hub.RoomClientCount("lobby"); got != 0 {
		t.Errorf("RoomClientCount(lobby) = %d, want 0", got)
	}
	if got := hub.RoomClientCount("games"); got != 1 {
		t.Errorf("RoomClientCount(games) = %d, want 1", got)
	}
}

func TestJoinRoomUnknownClient(t *testing.T) {
	hub := NewHub()

	hub.JoinRoom("ghost", "lobby")
	if got := hub.RoomClientCount("lobby"); got != 0 {
		t.Fatalf("RoomClientCount(lobby) = %d, want 0", got)
	}
}

func TestJoinRoomIfBelowCap(t *testing.T) {
	hub := NewHub()
	addClient(hub, "c1")
	addClient(hub, "c2")
	addClient(hub, "c3")

	if !hub.JoinRoomIfBelowCap("c1", "small", 2) {
		t.Fatal("first join should be admitted")
	}
	if !hub.JoinRoomIfBelowCap("c2", "small", 2) {
		t.Fatal("second join should be admitted")
	}
	if hub.JoinRoomIfBelowCap("c3", "small", 2) {
		t.Fatal("third join should be rejected")
	}
	if got := hub.RoomClientCount("small"); got != 2 {
		t.Fatalf("RoomClientCount(small) = %d, want 2", got)
	}

	// A member re-joining does not count against its own seat.
	if !hub.JoinRoomIfBelowCap("c1", "small", 2) {
		t.Error("re-join by a current member should be admitted")
	}

	// Unknown clients are never admitted.
	if hub.JoinRoomIfBelowCap("ghost", "small", 0) {
		t.Error("unknown client should be rejected")
	}

	// max <= 0 means unlimited.
	if !hub.JoinRoomIfBelowCap("c3", "open", 0) {
		t.Error("uncapped room should admit")
	}
}

func TestJoinRoomIfBelowCapConcurrent(t *testing.T) {
	hub := NewHub()
	const racers = 32
	const max = 3

	ids := make([]string, racers)
	for i := range ids {
		ids[i] = string(rune('a' + i))
		addClient(hub, ids[i])
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	var admitted atomic.Int32
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if hub.JoinRoomIfBelowCap(id, "small", max) {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := admitted.Load(); got != max {
		t.Fatalf("admitted %d clients, want %d", got, max)
	}
	if got := hub.RoomClientCount("small"); got != max {
		t.Fatalf("RoomClientCount(small) = %d, want %d", got, max)
	}
}

func TestUnregisterRemovesRoomMembership(t *testing.T) {
	hub := NewHub()
	addClient(hub, "c1")
	addClient(hub, "c2")
	hub.JoinRoom("c1", "lobby")
	hub.JoinRoom("c2", "lobby")

	hub.Unregister("c1")
	if got := hub.RoomClientCount("lobby"); got != 1 {
		t.Fatalf("RoomClientCount(lobby) = %d, want 1", got)
	}
	if hub.InRoom("c1", "lobby") {
		t.Error("c1 should no longer be in lobby")
	}
}

func TestBroadcastReachesRoomMembersOnly(t *testing.T) {
	hub := NewHub()
	c1 := addClient(hub, "c1")
	c2 := addClient(hub, "c2")
	c3 := addClient(hub, "c3")
	hub.JoinRoom("c1", "lobby")
	hub.JoinRoom("c2", "lobby")
	hub.JoinRoom("c3", "games")

	msg := chat.Message{ID: "m1", RoomID: "lobby", From: "alice", Type: chat.TypeText, Content: "hi"}
	hub.Broadcast("lobby", msg)

	if c1.frameCount() != 1 || c2.frameCount() != 1 {
		t.Fatalf("lobby members got %d/%d frames, want 1/1", c1.frameCount(), c2.frameCount())
	}
	if c3.frameCount() != 0 {
		t.Fatalf("games member got %d frames, want 0", c3.frameCount())
	}

	var got chat.Message
	if err := json.Unmarshal(c1.lastFrame(), &got); err != nil {
		t.Fatalf("unmarshal broadcast frame: %v", err)
	}
	if got.ID != "m1" || got.Content != "hi" {
		t.Errorf("broadcast frame = %+v, want id=m1 content=hi", got)
	}
}

func TestBroadcastSkipsFailedWrites(t *testing.T) {
	hub := NewHub()
	healthy := addClient(hub, "c1")
	broken := &fakeConn{failWrites: true}
	hub.Register(NewClient("c2", broken))
	hub.JoinRoom("c1", "lobby")
	hub.JoinRoom("c2", "lobby")

	hub.Broadcast("lobby", chat.Message{ID: "m1", RoomID: "lobby", Content: "hi"})

	// The broken connection is skipped, not pruned.
	if healthy.frameCount() != 1 {
		t.Fatalf("healthy client got %d frames, want 1", healthy.frameCount())
	}
	if !hub.InRoom("c2", "lobby") {
		t.Error("failed write should not evict the client from the room")
	}
	if got := hub.ClientCount(); got != 2 {
		t.Errorf("ClientCount() = %d, want 2", got)
	}
}

func TestBroadcastEmptyRoom(t *testing.T) {
	hub := NewHub()
	c1 := addClient(hub, "c1")

	hub.Broadcast("empty", chat.Message{ID: "m1", RoomID: "empty"})
	if c1.frameCount() != 0 {
		t.Fatalf("unjoined client got %d frames, want 0", c1.frameCount())
	}
}

func TestCloseAll(t *testing.T) {
	hub := NewHub()
	c1 := addClient(hub, "c1")
	c2 := addClient(hub, "c2")
	hub.JoinRoom("c1", "lobby")

	hub.CloseAll()

	if !c1.closed || !c2.closed {
		t.Error("CloseAll should close every connection")
	}
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want 0", got)
	}
	if got := hub.RoomClientCount("lobby"); got != 0 {
		t.Errorf("RoomClientCount(lobby) = %d, want 0", got)
	}
}

func TestConcurrentBroadcastAndMembership(t *testing.T) {
	hub := NewHub()
	for _, id := range []string{"c1", "c2", "c3"} {
		addClient(hub, id)
		hub.JoinRoom(id, "lobby")
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Broadcast("lobby", chat.Message{ID: "m", RoomID: "lobby", Content: "x"})
		}()
		go func() {
			defer wg.Done()
			hub.LeaveRoom("c3")
			hub.JoinRoom("c3", "lobby")
		}()
	}
	wg.Wait()

	if !hub.InRoom("c3", "lobby") {
		t.Error("c3 should end up back in lobby")
	}
}
