package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"collab-service/internal/metrics"
	"collab-service/internal/repository"
	"collab-service/internal/service"
)

func newTestHub() *Hub {
	svc := service.NewPresenceService(repository.NewPresenceRepository(nil), zap.NewNop(), 10*time.Second)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	return NewHub(svc, nil, nil, m, zap.NewNop())
}

// newTestClient builds a client without a network connection; events land in
// its send buffer where the tests read them back.
func newTestClient(h *Hub, userID uuid.UUID) *Client {
	return &Client{
		hub:    h,
		send:   make(chan []byte, 64),
		userID: userID,
		email:  "test@wealist.co.kr",
		rooms:  make(map[string]bool),
	}
}

func joinRoom(h *Hub, c *Client, room, username string) {
	h.handleEvent(c, &Message{Type: EventJoinRoom, Room: room, Username: username, Role: "editor"})
}

func nextMessage(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case payload := <-c.send:
		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("failed to unmarshal queued message: %v", err)
		}
		return &msg
	default:
		t.Fatal("expected a queued message, send buffer is empty")
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.send:
		t.Fatalf("unexpected message queued: %s", payload)
	default:
	}
}

func paletteContains(color string) bool {
	for _, c := range service.DefaultPalette {
		if c == color {
			return true
		}
	}
	return false
}

// Scenario: first joiner gets an ack with a palette color and a roster of
// one; the second joiner sees both entries and a distinct color, while the
// first member is notified.
func TestHub_JoinAckAndUserJoinedBroadcast(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, uuid.New())
	bob := newTestClient(h, uuid.New())

	joinRoom(h, alice, "file:42", "alice")

	ack := nextMessage(t, alice)
	if ack.Type != EventJoinAck || ack.Success == nil || !*ack.Success {
		t.Fatalf("expected successful join_ack, got %+v", ack)
	}
	if !paletteContains(ack.Color) {
		t.Errorf("ack color %s is not a palette color", ack.Color)
	}
	if len(ack.Members) != 1 || ack.Members[0].Username != "alice" {
		t.Fatalf("expected members [alice], got %+v", ack.Members)
	}
	assertNoMessage(t, alice)

	joinRoom(h, bob, "file:42", "bob")

	bobAck := nextMessage(t, bob)
	if len(bobAck.Members) != 2 {
		t.Fatalf("expected members [alice, bob], got %+v", bobAck.Members)
	}
	if bobAck.Members[0].Username != "alice" || bobAck.Members[1].Username != "bob" {
		t.Errorf("roster not in join order: %+v", bobAck.Members)
	}
	if bobAck.Color == ack.Color {
		t.Errorf("bob was assigned alice's color %s", ack.Color)
	}

	joined := nextMessage(t, alice)
	if joined.Type != EventUserJoined || joined.Username != "bob" {
		t.Fatalf("expected user_joined for bob, got %+v", joined)
	}
	if joined.Color != bobAck.Color {
		t.Errorf("user_joined color %s does not match ack color %s", joined.Color, bobAck.Color)
	}
	// The join notice goes to the others, not back to the joiner.
	assertNoMessage(t, bob)
}

func TestHub_JoinWithoutIdentityRejected(t *testing.T) {
	h := newTestHub()
	anon := newTestClient(h, uuid.Nil)

	joinRoom(h, anon, "file:42", "ghost")

	ack := nextMessage(t, anon)
	if ack.Type != EventJoinAck || ack.Success == nil || *ack.Success {
		t.Fatalf("expected failed join_ack, got %+v", ack)
	}
	if ack.Error == "" {
		t.Error("expected an error message on the rejected ack")
	}

	// No state was mutated.
	if roster := h.presence.Roster("file:42"); len(roster) != 0 {
		t.Errorf("rejected join must not touch the roster, got %d entries", len(roster))
	}
}

// Scenario: a disconnect produces exactly one user_left / cursor_removed
// pair for the remaining members and empties the roster.
func TestHub_DisconnectBroadcastsDeparture(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, uuid.New())
	bob := newTestClient(h, uuid.New())

	joinRoom(h, alice, "file:42", "alice")
	joinRoom(h, bob, "file:42", "bob")
	drain(alice)
	drain(bob)

	h.disconnect(alice)

	left := nextMessage(t, bob)
	if left.Type != EventUserLeft || left.UserID != alice.userID.String() || left.Username != "alice" {
		t.Fatalf("expected user_left for alice, got %+v", left)
	}
	removed := nextMessage(t, bob)
	if removed.Type != EventCursorRemoved || removed.UserID != alice.userID.String() {
		t.Fatalf("expected cursor_removed for alice, got %+v", removed)
	}
	assertNoMessage(t, bob)

	roster := h.presence.Roster("file:42")
	if len(roster) != 1 || roster[0].Username != "bob" {
		t.Fatalf("expected roster [bob], got %+v", roster)
	}

	// Duplicate disconnect signal: silent no-op, no second pair.
	h.disconnect(alice)
	assertNoMessage(t, bob)
}

// Scenario: cursor movement reaches the other room member with the sender's
// color and never leaks into other rooms.
func TestHub_CursorMoveRelay(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, uuid.New())
	bob := newTestClient(h, uuid.New())
	carol := newTestClient(h, uuid.New())

	joinRoom(h, alice, "file:42", "alice")
	aliceColor := nextMessage(t, alice).Color
	joinRoom(h, bob, "file:42", "bob")
	joinRoom(h, carol, "file:7", "carol")
	drain(alice)
	drain(bob)
	drain(carol)

	h.handleEvent(alice, &Message{Type: EventCursorMove, Room: "file:42", X: floatPtr(100), Y: floatPtr(200)})

	relay := nextMessage(t, bob)
	if relay.Type != EventCursorMove {
		t.Fatalf("expected cursor_move, got %+v", relay)
	}
	if relay.UserID != alice.userID.String() {
		t.Errorf("expected sender %s, got %s", alice.userID, relay.UserID)
	}
	if relay.X == nil || relay.Y == nil || *relay.X != 100 || *relay.Y != 200 {
		t.Errorf("expected cursor (100,200), got %+v", relay)
	}
	if relay.Color != aliceColor {
		t.Errorf("expected alice's color %s, got %s", aliceColor, relay.Color)
	}

	// Not echoed to the sender, not delivered to other rooms.
	assertNoMessage(t, alice)
	assertNoMessage(t, carol)
}

// Per-sender FIFO: two cursor events from one sender arrive in order.
func TestHub_CursorEventsOrdered(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, uuid.New())
	bob := newTestClient(h, uuid.New())

	joinRoom(h, alice, "file:42", "alice")
	joinRoom(h, bob, "file:42", "bob")
	drain(alice)
	drain(bob)

	h.handleEvent(alice, &Message{Type: EventCursorMove, Room: "file:42", X: floatPtr(1), Y: floatPtr(1)})
	h.handleEvent(alice, &Message{Type: EventCursorMove, Room: "file:42", X: floatPtr(2), Y: floatPtr(2)})

	first := nextMessage(t, bob)
	second := nextMessage(t, bob)
	if *first.X != 1 || *second.X != 2 {
		t.Errorf("events reordered: got x=%v then x=%v", *first.X, *second.X)
	}
}

// Scenario: a comment_added event reaches the other member as an activity
// broadcast carrying the sender's identity.
func TestHub_CommentActivityRelay(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, uuid.New())
	bob := newTestClient(h, uuid.New())

	joinRoom(h, alice, "file:42", "alice")
	joinRoom(h, bob, "file:42", "bob")
	drain(alice)
	drain(bob)

	h.handleEvent(alice, &Message{Type: EventCommentAdded, Room: "file:42", Target: "shape-17"})

	activity := nextMessage(t, bob)
	if activity.Type != EventActivity {
		t.Fatalf("expected activity, got %+v", activity)
	}
	if activity.Action != "added comment" {
		t.Errorf("expected action 'added comment', got %q", activity.Action)
	}
	if activity.UserID != alice.userID.String() || activity.Username != "alice" {
		t.Errorf("activity identity mismatch: %+v", activity)
	}
	if activity.Target != "shape-17" {
		t.Errorf("expected target shape-17, got %s", activity.Target)
	}
	if activity.Timestamp == nil {
		t.Error("expected a timestamp on the activity broadcast")
	}
	assertNoMessage(t, alice)
}

// A page refresh opens a new connection before the old one is reaped; the
// old connection's disconnect must not kick the fresh session out.
func TestHub_StaleConnectionDoesNotEvictRejoin(t *testing.T) {
	h := newTestHub()
	userID := uuid.New()
	old := newTestClient(h, userID)
	fresh := newTestClient(h, userID)
	bob := newTestClient(h, uuid.New())

	joinRoom(h, old, "file:42", "alice")
	joinRoom(h, bob, "file:42", "bob")
	joinRoom(h, fresh, "file:42", "alice")
	drain(old)
	drain(fresh)
	drain(bob)

	h.disconnect(old)

	// Bob sees no departure: the fresh connection owns alice's presence.
	assertNoMessage(t, bob)

	roster := h.presence.Roster("file:42")
	if len(roster) != 2 {
		t.Fatalf("expected alice and bob still present, got %+v", roster)
	}
}

func TestHub_CursorMoveOutsideJoinedRoomIgnored(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, uuid.New())
	bob := newTestClient(h, uuid.New())

	joinRoom(h, bob, "file:42", "bob")
	drain(bob)

	// Alice never joined file:42.
	h.handleEvent(alice, &Message{Type: EventCursorMove, Room: "file:42", X: floatPtr(5), Y: floatPtr(5)})

	assertNoMessage(t, bob)
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}
