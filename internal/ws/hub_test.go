package ws

import (
	"testing"
	"time"
)

func recvEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev := <-c.Send:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func recvSync(t *testing.T, c *Client) PresenceSync {
	t.Helper()
	ev := recvEvent(t, c)
	if ev.Type != "presence:sync" {
		t.Fatalf("expected presence:sync, got %q", ev.Type)
	}
	sync, ok := ev.Data.(PresenceSync)
	if !ok {
		t.Fatalf("unexpected payload type %T", ev.Data)
	}
	return sync
}

func drain(c *Client) {
	for {
		select {
		case <-c.Send:
		default:
			return
		}
	}
}

func TestJoinPublishesInitialNotTyping(t *testing.T) {
	h := NewHub()
	a, _ := h.addClient("user-a", "alice")
	b, _ := h.addClient("user-b", "bob")

	h.JoinRoom(a, "conv-1")
	drain(a)
	h.JoinRoom(b, "conv-1")

	sync := recvSync(t, a)
	if len(sync.States) != 1 {
		t.Fatalf("expected one state, got %d", len(sync.States))
	}
	if sync.States[0].UserID != "user-b" || sync.States[0].Typing {
		t.Errorf("expected bob not typing, got %+v", sync.States[0])
	}
}

func TestTypingTransitionReachesOtherMembers(t *testing.T) {
	h := NewHub()
	a, _ := h.addClient("user-a", "alice")
	b, _ := h.addClient("user-b", "bob")
	h.JoinRoom(a, "conv-1")
	h.JoinRoom(b, "conv-1")
	drain(a)
	drain(b)

	h.SetTyping(a, "conv-1", true)

	sync := recvSync(t, b)
	if len(sync.States) != 1 || !sync.States[0].Typing {
		t.Fatalf("bob should see alice typing, got %+v", sync.States)
	}

	// The sender's own snapshot never contains itself
	sync = recvSync(t, a)
	for _, s := range sync.States {
		if s.UserID == "user-a" {
			t.Errorf("snapshot for alice contains alice: %+v", s)
		}
	}
}

func TestTypingExpiresAfterIdleTimeout(t *testing.T) {
	h := NewHub()
	h.idleTimeout = 30 * time.Millisecond

	a, _ := h.addClient("user-a", "alice")
	b, _ := h.addClient("user-b", "bob")
	h.JoinRoom(a, "conv-1")
	h.JoinRoom(b, "conv-1")
	drain(a)
	drain(b)

	h.SetTyping(a, "conv-1", true)
	sync := recvSync(t, b)
	if !sync.States[0].Typing {
		t.Fatal("expected typing=true before expiry")
	}

	sync = recvSync(t, b)
	if sync.States[0].Typing {
		t.Fatalf("typing flag should expire without refresh, got %+v", sync.States)
	}
}

func TestTypingRefreshRearmsTimer(t *testing.T) {
	h := NewHub()
	h.idleTimeout = 60 * time.Millisecond

	a, _ := h.addClient("user-a", "alice")
	b, _ := h.addClient("user-b", "bob")
	h.JoinRoom(a, "conv-1")
	h.JoinRoom(b, "conv-1")
	drain(a)
	drain(b)

	h.SetTyping(a, "conv-1", true)
	time.Sleep(30 * time.Millisecond)
	h.SetTyping(a, "conv-1", true)
	time.Sleep(40 * time.Millisecond)

	// 70ms after the first publish but only 40ms after the refresh:
	// the flag must still be up.
	drain(b)
	h.mu.RLock()
	entry := h.rooms["conv-1"].typing["user-a"]
	typing := entry != nil && entry.state.Typing
	h.mu.RUnlock()
	if !typing {
		t.Fatal("refresh should re-arm the idle timer")
	}
}

func TestExplicitNotTypingWins(t *testing.T) {
	h := NewHub()
	a, _ := h.addClient("user-a", "alice")
	b, _ := h.addClient("user-b", "bob")
	h.JoinRoom(a, "conv-1")
	h.JoinRoom(b, "conv-1")
	drain(a)
	drain(b)

	h.SetTyping(a, "conv-1", true)
	h.SetTyping(a, "conv-1", false)

	var last PresenceSync
	last = recvSync(t, b)
	last = recvSync(t, b)
	if last.States[0].Typing {
		t.Fatalf("last write should win, got %+v", last.States)
	}
}

func TestDisconnectLeavesRooms(t *testing.T) {
	h := NewHub()
	a, _ := h.addClient("user-a", "alice")
	b, _ := h.addClient("user-b", "bob")
	h.JoinRoom(a, "conv-1")
	h.JoinRoom(b, "conv-1")
	drain(a)
	drain(b)

	h.SetTyping(a, "conv-1", true)
	drain(b)

	last := h.RemoveClient(a)
	if !last {
		t.Error("expected last connection for user-a")
	}

	sync := recvSync(t, b)
	if len(sync.States) != 0 {
		t.Fatalf("departed member should vanish from snapshots, got %+v", sync.States)
	}

	h.mu.RLock()
	_, roomAlive := h.rooms["conv-1"]
	h.mu.RUnlock()
	if !roomAlive {
		t.Error("room with a remaining member should survive")
	}
}

func TestFirstAndLastConnection(t *testing.T) {
	h := NewHub()
	c1, first := h.addClient("user-a", "alice")
	if !first {
		t.Error("first connection should report first=true")
	}
	c2, first := h.addClient("user-a", "alice")
	if first {
		t.Error("second connection should report first=false")
	}

	if last := h.RemoveClient(c1); last {
		t.Error("one connection still open, last should be false")
	}
	if last := h.RemoveClient(c2); !last {
		t.Error("expected last=true after final disconnect")
	}
}

func TestBroadcastToUsers(t *testing.T) {
	h := NewHub()
	a, _ := h.addClient("user-a", "alice")
	b, _ := h.addClient("user-b", "bob")
	c, _ := h.addClient("user-c", "carol")

	h.BroadcastToUsers([]string{"user-a", "user-b"}, Event{Type: "message:new"})

	if ev := recvEvent(t, a); ev.Type != "message:new" {
		t.Errorf("unexpected event %q", ev.Type)
	}
	if ev := recvEvent(t, b); ev.Type != "message:new" {
		t.Errorf("unexpected event %q", ev.Type)
	}
	select {
	case ev := <-c.Send:
		t.Errorf("carol should receive nothing, got %q", ev.Type)
	default:
	}
}
