package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func TestBroadcastReachesOnlyRoomMembers(t *testing.T) {
	hub := NewHub()
	inRoom := newClient(hub, nil, []string{MatchRoom("m1")})
	outside := newClient(hub, nil, []string{MatchRoom("m2")})
	hub.Join(MatchRoom("m1"), inRoom)
	hub.Join(MatchRoom("m2"), outside)

	hub.Broadcast(MatchRoom("m1"), Event{Type: "message", Data: "hello"})

	select {
	case payload := <-inRoom.send:
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if event.Type != "message" || event.Data != "hello" {
			t.Fatalf("unexpected event: %+v", event)
		}
	default:
		t.Fatalf("room member did not receive the event")
	}
	if len(outside.send) != 0 {
		t.Fatalf("client in another room received the event")
	}
}

func TestCloseLeavesAllRooms(t *testing.T) {
	hub := NewHub()
	userRoom := UserRoom(uuid.New())
	c := newClient(hub, nil, []string{MatchRoom("m1"), userRoom})
	hub.Join(MatchRoom("m1"), c)
	hub.Join(userRoom, c)

	c.Close()
	c.Close()

	if hub.Listeners(MatchRoom("m1")) != 0 || hub.Listeners(userRoom) != 0 {
		t.Fatalf("closed client is still subscribed")
	}
	if rooms := hub.MatchRooms(); len(rooms) != 0 {
		t.Fatalf("expected no match rooms, got %v", rooms)
	}
	// Рассылка после закрытия не должна паниковать
	hub.Broadcast(MatchRoom("m1"), Event{Type: "noop"})
}

func TestMatchRoomsListsOnlySessions(t *testing.T) {
	hub := NewHub()
	hub.Join(MatchRoom("b"), newClient(hub, nil, nil))
	hub.Join(MatchRoom("a"), newClient(hub, nil, nil))
	hub.Join(UserRoom(uuid.New()), newClient(hub, nil, nil))

	rooms := hub.MatchRooms()
	if strings.Join(rooms, ",") != "a,b" {
		t.Fatalf("MatchRooms = %v, want [a b]", rooms)
	}
}

func TestMatchRoomOpenedAtTracksFirstJoin(t *testing.T) {
	hub := NewHub()
	opened := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	hub.now = func() time.Time { return opened }

	first := newClient(hub, nil, nil)
	hub.Join(MatchRoom("m1"), first)
	hub.now = func() time.Time { return opened.Add(time.Minute) }
	second := newClient(hub, nil, nil)
	hub.Join(MatchRoom("m1"), second)

	if got := hub.MatchRoomOpenedAt("m1"); !got.Equal(opened) {
		t.Fatalf("MatchRoomOpenedAt = %v, want %v", got, opened)
	}

	hub.Leave(MatchRoom("m1"), first)
	hub.Leave(MatchRoom("m1"), second)
	if got := hub.MatchRoomOpenedAt("m1"); !got.IsZero() {
		t.Fatalf("MatchRoomOpenedAt after everyone left = %v, want zero", got)
	}
}

func TestServeWSDeliversBroadcast(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := ServeWS(hub, w, r, MatchRoom("live")); err != nil {
			t.Errorf("ServeWS: %v", err)
		}
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Listeners(MatchRoom("live")) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never joined the room")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast(MatchRoom("live"), Event{Type: "message", Data: map[string]string{"message": "hi"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(payload), `"message":"hi"`) {
		t.Fatalf("unexpected payload %s", payload)
	}
}
